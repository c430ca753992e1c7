package trade_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/trade"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func line(id string, qty int, v card.Variant) trade.Line {
	return trade.Line{CardID: card.ID(id), Quantity: qty, Variant: v}
}

func owned() collection.Collection {
	return collection.Collection{
		{CardID: "sv1-1", Quantity: 1, Variant: card.VariantNormal},
		{CardID: "sv1-2", Quantity: 4, Variant: card.VariantHolofoil},
	}
}

// =============================================================================
// OWNERSHIP
// =============================================================================

func TestValidate_InsufficientQuantity(t *testing.T) {
	// GIVEN: One normal copy of sv1-1
	// WHEN: Trading away two copies
	// THEN: The report fails with available=1, requested=2

	r := trade.Validate(owned(), trade.Proposal{
		Given:    []trade.Line{line("sv1-1", 2, card.VariantNormal)},
		Received: []trade.Line{line("sv3-3", 1, "")},
	})

	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	e := r.Errors[0]
	assert.Equal(t, trade.CodeInsufficientQuantity, e.Code)
	assert.Equal(t, trade.SideGiven, e.Side)
	assert.Equal(t, 0, e.Index)
	assert.Equal(t, 1, e.Available)
	assert.Equal(t, 2, e.Requested)
}

func TestValidate_NotOwnedVariant(t *testing.T) {
	r := trade.Validate(owned(), trade.Proposal{
		Given: []trade.Line{line("sv1-1", 1, card.VariantHolofoil)},
	})

	require.Len(t, r.Errors, 1)
	assert.Equal(t, trade.CodeNotOwned, r.Errors[0].Code)
	assert.Equal(t, 0, r.Errors[0].Available)
}

func TestValidate_DuplicateGivenLinesShareOwnership(t *testing.T) {
	// GIVEN: Four holofoil sv1-2
	// WHEN: Giving 3 then 2 on separate lines
	// THEN: The second line sees only 1 remaining

	r := trade.Validate(owned(), trade.Proposal{
		Given: []trade.Line{
			line("sv1-2", 3, card.VariantHolofoil),
			line("sv1-2", 2, card.VariantHolofoil),
		},
		Received: []trade.Line{line("sv3-3", 1, "")},
	})

	require.Len(t, r.Errors, 1)
	assert.Equal(t, 1, r.Errors[0].Index)
	assert.Equal(t, 1, r.Errors[0].Available)
	assert.True(t, r.HasWarning(trade.CodeDuplicateLines))
}

func TestValidate_ReportsEveryFailingLine(t *testing.T) {
	r := trade.Validate(owned(), trade.Proposal{
		Given: []trade.Line{
			line("sv1-1", 5, ""),
			line("bad", 1, ""),
			line("sv9-9", 1, card.VariantNormal),
		},
		Received: []trade.Line{line("sv2-2", 0, "")},
	})

	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 4)
	assert.True(t, r.HasError(trade.CodeInsufficientQuantity))
	assert.True(t, r.HasError(trade.CodeInvalidCardEntry))
	assert.True(t, r.HasError(trade.CodeNotOwned))
}

// =============================================================================
// SHAPE RULES
// =============================================================================

func TestValidate_EmptyTrade(t *testing.T) {
	r := trade.Validate(owned(), trade.Proposal{})
	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, trade.CodeEmptyTrade, r.Errors[0].Code)
	assert.Empty(t, r.Warnings)
}

func TestValidate_EmptyTradeStillChecksPartner(t *testing.T) {
	// GIVEN: No lines on either side and an over-long partner name
	// WHEN: Validating
	// THEN: Both problems are reported

	r := trade.Validate(nil, trade.Proposal{Partner: strings.Repeat("x", 500)})

	assert.False(t, r.Valid)
	require.Len(t, r.Errors, 2)
	assert.True(t, r.HasError(trade.CodeEmptyTrade))
	assert.True(t, r.HasError(trade.CodePartnerNameTooLong))
	assert.Empty(t, r.Warnings)
}

func TestValidate_TooManyCards(t *testing.T) {
	v := trade.NewValidator(trade.Limits{MaxLinesPerSide: 2})
	r := v.Validate(nil, trade.Proposal{
		Received: []trade.Line{line("sv1-1", 1, ""), line("sv1-2", 1, ""), line("sv1-3", 1, "")},
	})

	assert.True(t, r.HasError(trade.CodeTooManyCards))
	assert.Equal(t, 3, r.Errors[0].Requested)
}

func TestValidate_QuantityCap(t *testing.T) {
	r := trade.Validate(nil, trade.Proposal{
		Received: []trade.Line{line("sv1-1", 100, "")},
	})
	require.Len(t, r.Errors, 1)
	assert.Equal(t, trade.CodeInvalidCardEntry, r.Errors[0].Code)
	assert.Contains(t, r.Errors[0].Message, "exceeds maximum")
}

func TestValidate_InvalidVariant(t *testing.T) {
	r := trade.Validate(nil, trade.Proposal{
		Received: []trade.Line{line("sv1-1", 1, "shiny")},
	})
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0].Message, "invalid variant")
}

func TestValidate_PartnerNameTooLong(t *testing.T) {
	r := trade.Validate(owned(), trade.Proposal{
		Given:    []trade.Line{line("sv1-1", 1, "")},
		Received: []trade.Line{line("sv2-1", 1, "")},
		Partner:  strings.Repeat("é", 101),
	})
	assert.False(t, r.Valid)
	assert.True(t, r.HasError(trade.CodePartnerNameTooLong))

	r = trade.Validate(owned(), trade.Proposal{
		Given:    []trade.Line{line("sv1-1", 1, "")},
		Received: []trade.Line{line("sv2-1", 1, "")},
		Partner:  strings.Repeat("é", 100),
	})
	assert.True(t, r.Valid)
}

// =============================================================================
// WARNINGS
// =============================================================================

func TestValidate_GiftAndDonationAreValid(t *testing.T) {
	gift := trade.Validate(nil, trade.Proposal{Received: []trade.Line{line("sv1-1", 1, "")}})
	assert.True(t, gift.Valid)
	assert.True(t, gift.HasWarning(trade.CodeGift))

	donation := trade.Validate(owned(), trade.Proposal{Given: []trade.Line{line("sv1-1", 1, "")}})
	assert.True(t, donation.Valid)
	assert.True(t, donation.HasWarning(trade.CodeDonation))
	assert.False(t, donation.HasWarning(trade.CodeGift))
}

func TestValidate_DoesNotMutateCollection(t *testing.T) {
	c := owned()
	trade.Validate(c, trade.Proposal{Given: []trade.Line{line("sv1-1", 1, "")}})
	assert.Equal(t, owned(), c)
}
