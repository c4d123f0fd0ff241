// Package models defines the core domain records for deal settlement.
//
// # Aggregate shape
//
// Deal is the aggregate root. A fully-loaded Deal carries its
// participants (with their tiers and manager relationships); every
// engine operation reasons over exactly one Deal and never reaches out
// to a store. SettlementLine is derived output, computed fresh per
// calculation run.
//
// # Design principles
//
//  1. Enumerations are typed string constants with Valid() checks so
//     invalid combinations surface at the boundary, not mid-pipeline.
//  2. Money and percentages are shopspring decimals end to end; the
//     only rounding point is the GST boundary.
//  3. Relationships use ID strings rather than pointers between
//     aggregates; only the manager relationship is embedded because it
//     is part of a participant's terms.
package models
