package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gigledger/gigledger/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateGST(t *testing.T) {
	tests := []struct {
		name      string
		amount    string
		mode      models.GSTTreatment
		wantGross string
		wantTax   string
		wantNet   string
		wantErr   error
	}{
		{
			name:   "inclusive extracts tax from amount",
			amount: "110", mode: models.GSTInclusive,
			wantGross: "110", wantTax: "10", wantNet: "100",
		},
		{
			name:   "inclusive rounds half-up on the result only",
			amount: "100", mode: models.GSTInclusive,
			// 100 / 1.10 = 90.9090..., tax = 9.0909...
			wantGross: "100", wantTax: "9.09", wantNet: "90.91",
		},
		{
			name:   "exclusive adds tax on top",
			amount: "100", mode: models.GSTExclusive,
			wantGross: "110", wantTax: "10", wantNet: "100",
		},
		{
			name:   "exclusive with cents",
			amount: "19.95", mode: models.GSTExclusive,
			// tax = 1.995 → 2.00 (half-up), gross = 21.945 → 21.95
			wantGross: "21.95", wantTax: "2", wantNet: "19.95",
		},
		{
			name:   "none passes amount through",
			amount: "1080", mode: models.GSTNone,
			wantGross: "1080", wantTax: "0", wantNet: "1080",
		},
		{
			name:   "zero amount",
			amount: "0", mode: models.GSTInclusive,
			wantGross: "0", wantTax: "0", wantNet: "0",
		},
		{
			name:   "unknown mode fails",
			amount: "100", mode: models.GSTTreatment("vat"),
			wantErr: ErrInvalidTaxMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateGST(dec(tt.amount), tt.mode)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CalculateGST error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CalculateGST failed: %v", err)
			}
			if !got.Gross.Equal(dec(tt.wantGross)) {
				t.Errorf("gross = %s, want %s", got.Gross, tt.wantGross)
			}
			if !got.Tax.Equal(dec(tt.wantTax)) {
				t.Errorf("tax = %s, want %s", got.Tax, tt.wantTax)
			}
			if !got.Net.Equal(dec(tt.wantNet)) {
				t.Errorf("net = %s, want %s", got.Net, tt.wantNet)
			}
		})
	}
}

// net + tax must recover the original inclusive amount within a cent.
func TestCalculateGST_InclusivePartsSum(t *testing.T) {
	tolerance := dec("0.01")
	for _, amount := range []string{"0", "0.01", "1", "33.33", "99.99", "110", "1234.56", "999999.99"} {
		got, err := CalculateGST(dec(amount), models.GSTInclusive)
		if err != nil {
			t.Fatalf("CalculateGST(%s) failed: %v", amount, err)
		}
		diff := got.Net.Add(got.Tax).Sub(dec(amount)).Abs()
		if diff.GreaterThan(tolerance) {
			t.Errorf("net+tax = %s, want %s ± 0.01", got.Net.Add(got.Tax), amount)
		}
	}
}

// Applying exclusive GST and then extracting it back out (inclusive on
// the resulting gross) must round-trip within a cent.
func TestCalculateGST_ExclusiveInclusiveRoundTrip(t *testing.T) {
	tolerance := dec("0.01")
	for _, amount := range []string{"0.01", "1", "19.95", "100", "1080", "54321.09"} {
		excl, err := CalculateGST(dec(amount), models.GSTExclusive)
		if err != nil {
			t.Fatalf("exclusive(%s) failed: %v", amount, err)
		}
		incl, err := CalculateGST(excl.Gross, models.GSTInclusive)
		if err != nil {
			t.Fatalf("inclusive(%s) failed: %v", excl.Gross, err)
		}
		diff := incl.Net.Sub(dec(amount)).Abs()
		if diff.GreaterThan(tolerance) {
			t.Errorf("round-trip of %s recovered %s, want within 0.01", amount, incl.Net)
		}
	}
}
