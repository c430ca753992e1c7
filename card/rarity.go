package card

import "strings"

// RarityTier is a coarse display bucket derived from a catalog rarity string.
type RarityTier string

const (
	RarityCommon   RarityTier = "common"
	RarityUncommon RarityTier = "uncommon"
	RarityRare     RarityTier = "rare"
	RarityUltra    RarityTier = "ultra"
	RaritySecret   RarityTier = "secret"
	RarityUnknown  RarityTier = "unknown"
)

// Keyword sets are checked in a fixed order: secret, ultra, rare, uncommon,
// common. A string such as "Rare Shiny GX" matches both the secret ("shiny")
// and ultra ("gx") sets and is classified as secret.
var rarityKeywords = []struct {
	tier     RarityTier
	keywords []string
}{
	{RaritySecret, []string{"secret", "hyper", "rainbow", "gold", "shiny", "special illustration"}},
	{RarityUltra, []string{"ultra", "ex", "gx", "vmax", "vstar", "v", "illustration", "full art", "double rare"}},
	{RarityRare, []string{"rare", "holo"}},
	{RarityUncommon, []string{"uncommon"}},
	{RarityCommon, []string{"common", "promo"}},
}

// ClassifyRarity maps a free-text rarity label to a RarityTier.
func ClassifyRarity(label string) RarityTier {
	text := strings.ToLower(strings.TrimSpace(label))
	if text == "" {
		return RarityUnknown
	}
	words := strings.Fields(text)

	for _, set := range rarityKeywords {
		for _, kw := range set.keywords {
			if matchesKeyword(text, words, kw) {
				return set.tier
			}
		}
	}
	return RarityUnknown
}

// Multi-word keywords match as substrings; single words must match a whole
// word so that "v" does not fire on "reverse".
func matchesKeyword(text string, words []string, kw string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(text, kw)
	}
	for _, w := range words {
		if w == kw {
			return true
		}
	}
	return false
}
