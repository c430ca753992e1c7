/*
Package card provides identifier and variant utilities for trading cards.

PURPOSE:
  Every other package talks about cards through the two types defined here:
  ID (a "<setId>-<number>" string such as "sv1-25") and Variant (the physical
  print finish). Validation is boolean so callers can collect several
  violations before reporting them.

KEY CONCEPTS IN THIS FILE (card.go):
  - ID: opaque identifier, split at the FIRST '-' into set and number
  - Variant: closed set of print finishes, "normal" when omitted
  - NormalizeVariant: the one place where the default variant is applied

USAGE:
  id := card.ID("sv1-25")
  card.IsValidCardID(id)        // true
  card.ExtractSetID(id)         // "sv1"
  card.NormalizeVariant("")     // card.VariantNormal

SEE ALSO:
  - rarity.go: keyword-based rarity tiers for display
  - collection/ledger.go: the ledger built on these types
*/
package card

import "strings"

// =============================================================================
// IDENTIFIERS
// =============================================================================

// ID identifies a card as "<setId>-<number>". The number part may itself
// contain '-' characters.
type ID string

// IsValidCardID reports whether id has a non-empty set segment before the
// first '-' and a non-empty remainder after it.
func IsValidCardID(id ID) bool {
	set, number, ok := strings.Cut(string(id), "-")
	return ok && set != "" && number != ""
}

// ExtractSetID returns everything before the first '-'. Without a '-' the
// whole identifier is returned.
func ExtractSetID(id ID) string {
	set, _, _ := strings.Cut(string(id), "-")
	return set
}

// ExtractCardNumber returns everything after the first '-', or "" when the
// identifier has no '-'.
func ExtractCardNumber(id ID) string {
	_, number, _ := strings.Cut(string(id), "-")
	return number
}

// =============================================================================
// VARIANTS
// =============================================================================

// Variant is the physical print finish of a card.
type Variant string

const (
	VariantNormal             Variant = "normal"
	VariantHolofoil           Variant = "holofoil"
	VariantReverseHolofoil    Variant = "reverse-holofoil"
	VariantFirstEditionHolo   Variant = "1st-edition-holofoil"
	VariantFirstEditionNormal Variant = "1st-edition-normal"

	DefaultVariant = VariantNormal
)

var allVariants = []Variant{
	VariantNormal,
	VariantHolofoil,
	VariantReverseHolofoil,
	VariantFirstEditionHolo,
	VariantFirstEditionNormal,
}

// AllVariants returns the closed set of variants in display order.
func AllVariants() []Variant {
	out := make([]Variant, len(allVariants))
	copy(out, allVariants)
	return out
}

// IsValidVariant reports membership in the closed variant set.
func IsValidVariant(v Variant) bool {
	for _, known := range allVariants {
		if v == known {
			return true
		}
	}
	return false
}

// NormalizeVariant applies the default variant to an omitted value. Every
// public operation that accepts a variant runs it through here first so that
// "" and "normal" can never become two distinct ledger keys.
func NormalizeVariant(v Variant) Variant {
	if v == "" {
		return DefaultVariant
	}
	return v
}

// =============================================================================
// QUANTITIES
// =============================================================================

// IsValidQuantity reports whether q is a positive count.
func IsValidQuantity(q int) bool {
	return q > 0
}
