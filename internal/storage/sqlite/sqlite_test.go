package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/eventlog"
	"github.com/gigledger/gigledger/internal/models"
	"github.com/gigledger/gigledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "gigledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func sampleDeal() *models.Deal {
	return &models.Deal{
		EventID:      "event-1",
		Name:         "Friday headline split",
		DealType:     models.DealTypeFullTerms,
		TotalRevenue: dec("2000"),
		Currency:     "AUD",
		GSTTreatment: models.GSTInclusive,
		CreatedBy:    "promoter-1",
		Participants: []models.DealParticipant{
			{
				PartyID:         "comedian-1",
				PartyRole:       models.RoleComedian,
				SplitType:       models.SplitPercentage,
				SplitPercentage: dec("60"),
				Manager: &models.ManagerRelationship{
					ManagerID: "manager-1",
				},
			},
			{
				PartyID:       "venue-1",
				PartyRole:     models.RoleVenue,
				SplitType:     models.SplitFlatFee,
				FlatFeeAmount: dec("300"),
			},
		},
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateDeal generates IDs and defaults", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		if deal.ID == "" {
			t.Error("Expected deal ID to be generated")
		}
		if deal.Status != models.DealStatusDraft {
			t.Errorf("Expected draft status, got %s", deal.Status)
		}
		if deal.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if deal.Version != 1 {
			t.Errorf("Expected version 1, got %d", deal.Version)
		}
		for i, p := range deal.Participants {
			if p.ID == "" {
				t.Errorf("Participant %d: expected ID to be generated", i)
			}
			if p.ApprovalStatus != models.ApprovalPending {
				t.Errorf("Participant %d: expected pending approval, got %s", i, p.ApprovalStatus)
			}
		}
	})

	t.Run("GetDeal retrieves complete aggregate", func(t *testing.T) {
		original := sampleDeal()
		original.Participants = append(original.Participants, models.DealParticipant{
			PartyID:   "comedian-2",
			PartyRole: models.RoleComedian,
			SplitType: models.SplitTiered,
			Tiers: []models.Tier{
				{RevenueThreshold: dec("0"), RatePercentage: dec("10")},
				{RevenueThreshold: dec("1000"), RatePercentage: dec("20")},
			},
		})
		if err := store.CreateDeal(ctx, original); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		retrieved, err := store.GetDeal(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetDeal failed: %v", err)
		}

		if retrieved.Name != original.Name {
			t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, original.Name)
		}
		if !retrieved.TotalRevenue.Equal(original.TotalRevenue) {
			t.Errorf("TotalRevenue mismatch: got %s, want %s", retrieved.TotalRevenue, original.TotalRevenue)
		}
		if retrieved.GSTTreatment != models.GSTInclusive {
			t.Errorf("GSTTreatment mismatch: got %s", retrieved.GSTTreatment)
		}
		if len(retrieved.Participants) != 3 {
			t.Fatalf("Expected 3 participants, got %d", len(retrieved.Participants))
		}

		// Insertion order preserved
		if retrieved.Participants[0].PartyID != "comedian-1" {
			t.Errorf("Participant order lost: got %s first", retrieved.Participants[0].PartyID)
		}
		if retrieved.Participants[0].Manager == nil {
			t.Error("Expected manager relationship to survive the round trip")
		} else if retrieved.Participants[0].Manager.ManagerID != "manager-1" {
			t.Errorf("Manager ID mismatch: got %s", retrieved.Participants[0].Manager.ManagerID)
		}
		if retrieved.Participants[1].Manager != nil {
			t.Error("Expected no manager relationship for venue")
		}

		tiers := retrieved.Participants[2].Tiers
		if len(tiers) != 2 {
			t.Fatalf("Expected 2 tiers, got %d", len(tiers))
		}
		if !tiers[1].RevenueThreshold.Equal(dec("1000")) || !tiers[1].RatePercentage.Equal(dec("20")) {
			t.Errorf("Tier mismatch: got threshold %s rate %s", tiers[1].RevenueThreshold, tiers[1].RatePercentage)
		}
	})

	t.Run("GetDeal returns ErrNotFound for unknown deal", func(t *testing.T) {
		_, err := store.GetDeal(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateDeal bumps version and persists approvals", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		deal.Status = models.DealStatusPendingApproval
		deal.SubmittedAt = time.Now().Unix()
		deal.Participants[0].ApprovalStatus = models.ApprovalApproved
		if err := store.UpdateDeal(ctx, deal); err != nil {
			t.Fatalf("UpdateDeal failed: %v", err)
		}
		if deal.Version != 2 {
			t.Errorf("Expected version 2 after update, got %d", deal.Version)
		}

		retrieved, err := store.GetDeal(ctx, deal.ID)
		if err != nil {
			t.Fatalf("GetDeal failed: %v", err)
		}
		if retrieved.Status != models.DealStatusPendingApproval {
			t.Errorf("Status not persisted: got %s", retrieved.Status)
		}
		if retrieved.Participants[0].ApprovalStatus != models.ApprovalApproved {
			t.Errorf("Approval not persisted: got %s", retrieved.Participants[0].ApprovalStatus)
		}
		if retrieved.Version != 2 {
			t.Errorf("Stored version mismatch: got %d", retrieved.Version)
		}
	})

	t.Run("UpdateDeal rejects stale version", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		stale, err := store.GetDeal(ctx, deal.ID)
		if err != nil {
			t.Fatalf("GetDeal failed: %v", err)
		}

		deal.Name = "renamed by the winner"
		if err := store.UpdateDeal(ctx, deal); err != nil {
			t.Fatalf("First update failed: %v", err)
		}

		stale.Name = "renamed by the loser"
		err = store.UpdateDeal(ctx, stale)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict, got %v", err)
		}

		retrieved, _ := store.GetDeal(ctx, deal.ID)
		if retrieved.Name != "renamed by the winner" {
			t.Errorf("Loser's write was applied: got %s", retrieved.Name)
		}
	})

	t.Run("UpdateDeal returns ErrNotFound for unknown deal", func(t *testing.T) {
		ghost := sampleDeal()
		ghost.ID = "ghost-deal"
		ghost.Version = 1
		err := store.UpdateDeal(ctx, ghost)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("AddParticipant appends in order", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		late := &models.DealParticipant{
			DealID:          deal.ID,
			PartyID:         "manager-act",
			PartyRole:       models.RoleManager,
			SplitType:       models.SplitPercentage,
			SplitPercentage: dec("5"),
		}
		if err := store.AddParticipant(ctx, late); err != nil {
			t.Fatalf("AddParticipant failed: %v", err)
		}

		retrieved, err := store.GetDeal(ctx, deal.ID)
		if err != nil {
			t.Fatalf("GetDeal failed: %v", err)
		}
		if len(retrieved.Participants) != 3 {
			t.Fatalf("Expected 3 participants, got %d", len(retrieved.Participants))
		}
		if retrieved.Participants[2].PartyID != "manager-act" {
			t.Errorf("Expected late joiner last, got %s", retrieved.Participants[2].PartyID)
		}
	})

	t.Run("UpdateParticipantTerms replaces tiers", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		p := &deal.Participants[0]
		p.SplitType = models.SplitTiered
		p.Tiers = []models.Tier{
			{RevenueThreshold: dec("0"), RatePercentage: dec("50")},
		}
		if err := store.UpdateParticipantTerms(ctx, p); err != nil {
			t.Fatalf("UpdateParticipantTerms failed: %v", err)
		}

		retrieved, _ := store.GetDeal(ctx, deal.ID)
		got := retrieved.Participants[0]
		if got.SplitType != models.SplitTiered {
			t.Errorf("SplitType not updated: got %s", got.SplitType)
		}
		if len(got.Tiers) != 1 || !got.Tiers[0].RatePercentage.Equal(dec("50")) {
			t.Errorf("Tiers not replaced: got %+v", got.Tiers)
		}
	})

	t.Run("RemoveParticipant deletes row and tiers", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		if err := store.RemoveParticipant(ctx, deal.ID, deal.Participants[1].ID); err != nil {
			t.Fatalf("RemoveParticipant failed: %v", err)
		}

		retrieved, _ := store.GetDeal(ctx, deal.ID)
		if len(retrieved.Participants) != 1 {
			t.Errorf("Expected 1 participant after removal, got %d", len(retrieved.Participants))
		}

		err := store.RemoveParticipant(ctx, deal.ID, "nonexistent")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStoreSettle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settleReady := func(t *testing.T) *models.Deal {
		t.Helper()
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}
		deal.Status = models.DealStatusApproved
		for i := range deal.Participants {
			deal.Participants[i].ApprovalStatus = models.ApprovalApproved
		}
		if err := store.UpdateDeal(ctx, deal); err != nil {
			t.Fatalf("UpdateDeal failed: %v", err)
		}
		return deal
	}

	lines := func(deal *models.Deal) []models.SettlementLine {
		return []models.SettlementLine{
			{
				ParticipantID:      deal.Participants[0].ID,
				GrossAmount:        dec("1200"),
				CommissionDeducted: dec("120"),
				TaxAmount:          dec("98.18"),
				NetAmount:          dec("981.82"),
				ShouldInvoice:      true,
				Direction:          models.PromoterToParticipant,
				AbsoluteAmount:     dec("981.82"),
			},
			{
				ParticipantID:      deal.Participants[1].ID,
				GrossAmount:        dec("300"),
				CommissionDeducted: dec("0"),
				TaxAmount:          dec("27.27"),
				NetAmount:          dec("272.73"),
				ShouldInvoice:      true,
				Direction:          models.PromoterToParticipant,
				AbsoluteAmount:     dec("272.73"),
			},
		}
	}

	t.Run("SettleDeal stores lines atomically", func(t *testing.T) {
		deal := settleReady(t)
		deal.SettledAt = time.Now().Unix()
		deal.SettledBy = "promoter-1"

		if err := store.SettleDeal(ctx, deal, lines(deal)); err != nil {
			t.Fatalf("SettleDeal failed: %v", err)
		}

		retrieved, err := store.GetDeal(ctx, deal.ID)
		if err != nil {
			t.Fatalf("GetDeal failed: %v", err)
		}
		if retrieved.Status != models.DealStatusSettled {
			t.Errorf("Expected settled status, got %s", retrieved.Status)
		}
		if retrieved.SettledBy != "promoter-1" {
			t.Errorf("SettledBy not persisted: got %s", retrieved.SettledBy)
		}

		stored, err := store.SettlementLines(ctx, deal.ID)
		if err != nil {
			t.Fatalf("SettlementLines failed: %v", err)
		}
		if len(stored) != 2 {
			t.Fatalf("Expected 2 lines, got %d", len(stored))
		}
		for _, line := range stored {
			if line.ParticipantID == deal.Participants[0].ID {
				if !line.NetAmount.Equal(dec("981.82")) {
					t.Errorf("NetAmount mismatch: got %s", line.NetAmount)
				}
				if line.Direction != models.PromoterToParticipant {
					t.Errorf("Direction mismatch: got %s", line.Direction)
				}
			}
		}
	})

	t.Run("SettleDeal rejects stale version", func(t *testing.T) {
		deal := settleReady(t)
		stale := *deal
		stale.Version = deal.Version - 1

		err := store.SettleDeal(ctx, &stale, lines(deal))
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Errorf("Expected ErrVersionConflict, got %v", err)
		}

		stored, _ := store.SettlementLines(ctx, deal.ID)
		if len(stored) != 0 {
			t.Errorf("Expected no lines after rejected settle, got %d", len(stored))
		}
	})

	t.Run("SettleDeal rejects ineligible status", func(t *testing.T) {
		deal := sampleDeal()
		if err := store.CreateDeal(ctx, deal); err != nil {
			t.Fatalf("CreateDeal failed: %v", err)
		}

		err := store.SettleDeal(ctx, deal, lines(deal))
		if !errors.Is(err, storage.ErrDealNotSettleable) {
			t.Errorf("Expected ErrDealNotSettleable for draft deal, got %v", err)
		}
	})

	t.Run("SettleDeal twice fails", func(t *testing.T) {
		deal := settleReady(t)
		if err := store.SettleDeal(ctx, deal, lines(deal)); err != nil {
			t.Fatalf("First settle failed: %v", err)
		}

		err := store.SettleDeal(ctx, deal, lines(deal))
		if !errors.Is(err, storage.ErrDealNotSettleable) {
			t.Errorf("Expected ErrDealNotSettleable on second settle, got %v", err)
		}
	})

	t.Run("SettleDeal returns ErrNotFound for unknown deal", func(t *testing.T) {
		ghost := sampleDeal()
		ghost.ID = "ghost"
		ghost.Version = 1
		err := store.SettleDeal(ctx, ghost, nil)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSQLiteStoreManagers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.UpsertManager(ctx, models.Manager{
		ID:          "manager-1",
		Name:        "Rita",
		DefaultRate: decPtr("15"),
	}); err != nil {
		t.Fatalf("UpsertManager failed: %v", err)
	}

	t.Run("override rate wins", func(t *testing.T) {
		p := &models.DealParticipant{
			Manager: &models.ManagerRelationship{
				ManagerID:    "manager-1",
				OverrideRate: decPtr("10"),
			},
		}
		rate, err := store.CommissionRate(ctx, p)
		if err != nil {
			t.Fatalf("CommissionRate failed: %v", err)
		}
		if rate == nil || !rate.Equal(dec("10")) {
			t.Errorf("Expected override rate 10, got %v", rate)
		}
	})

	t.Run("falls back to manager default", func(t *testing.T) {
		p := &models.DealParticipant{
			Manager: &models.ManagerRelationship{ManagerID: "manager-1"},
		}
		rate, err := store.CommissionRate(ctx, p)
		if err != nil {
			t.Fatalf("CommissionRate failed: %v", err)
		}
		if rate == nil || !rate.Equal(dec("15")) {
			t.Errorf("Expected default rate 15, got %v", rate)
		}
	})

	t.Run("no manager means no rate", func(t *testing.T) {
		rate, err := store.CommissionRate(ctx, &models.DealParticipant{})
		if err != nil {
			t.Fatalf("CommissionRate failed: %v", err)
		}
		if rate != nil {
			t.Errorf("Expected nil rate, got %s", rate)
		}
	})

	t.Run("unknown manager resolves to nil", func(t *testing.T) {
		p := &models.DealParticipant{
			Manager: &models.ManagerRelationship{ManagerID: "nobody"},
		}
		rate, err := store.CommissionRate(ctx, p)
		if err != nil {
			t.Fatalf("CommissionRate failed: %v", err)
		}
		if rate != nil {
			t.Errorf("Expected nil rate for unknown manager, got %s", rate)
		}
	})

	t.Run("upsert replaces default rate", func(t *testing.T) {
		if err := store.UpsertManager(ctx, models.Manager{
			ID:          "manager-1",
			Name:        "Rita",
			DefaultRate: decPtr("20"),
		}); err != nil {
			t.Fatalf("UpsertManager failed: %v", err)
		}
		p := &models.DealParticipant{
			Manager: &models.ManagerRelationship{ManagerID: "manager-1"},
		}
		rate, _ := store.CommissionRate(ctx, p)
		if rate == nil || !rate.Equal(dec("20")) {
			t.Errorf("Expected updated rate 20, got %v", rate)
		}
	})
}

func TestSQLiteStoreEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := eventlog.NewEvent(
		eventlog.WithDeal("deal-1"),
		eventlog.WithKind(eventlog.KindDealCreated),
	)
	second := eventlog.NewEvent(
		eventlog.WithDeal("deal-1"),
		eventlog.WithKind(eventlog.KindApprovalRecorded),
		eventlog.WithParticipants("p-1", "p-2"),
	)
	second.CreatedAt = first.CreatedAt.Add(time.Second)

	for _, e := range []eventlog.Event{first, second} {
		if err := store.SaveEvent(ctx, e); err != nil {
			t.Fatalf("SaveEvent failed: %v", err)
		}
	}

	events, err := store.EventsByDeal(ctx, "deal-1")
	if err != nil {
		t.Fatalf("EventsByDeal failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Kind != eventlog.KindDealCreated {
		t.Errorf("Expected oldest first, got %s", events[0].Kind)
	}
	if len(events[1].ParticipantIDs) != 2 || events[1].ParticipantIDs[0] != "p-1" {
		t.Errorf("ParticipantIDs round trip failed: got %v", events[1].ParticipantIDs)
	}

	other, err := store.EventsByDeal(ctx, "deal-2")
	if err != nil {
		t.Fatalf("EventsByDeal failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no events for other deal, got %d", len(other))
	}
}
