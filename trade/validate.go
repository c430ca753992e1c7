package trade

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/warp/card-ledger/card"
	"github.com/warp/card-ledger/collection"
)

// =============================================================================
// LIMITS
// =============================================================================

// Limits bounds the size of a trade.
type Limits struct {
	MaxLinesPerSide    int `json:"max_lines_per_side"`
	MaxQuantityPerLine int `json:"max_quantity_per_line"`
	MaxPartnerLength   int `json:"max_partner_length"`
}

// DefaultLimits are used when no configuration overrides them.
func DefaultLimits() Limits {
	return Limits{
		MaxLinesPerSide:    50,
		MaxQuantityPerLine: 99,
		MaxPartnerLength:   100,
	}
}

// withDefaults replaces unset (zero or negative) limits with the defaults.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxLinesPerSide <= 0 {
		l.MaxLinesPerSide = d.MaxLinesPerSide
	}
	if l.MaxQuantityPerLine <= 0 {
		l.MaxQuantityPerLine = d.MaxQuantityPerLine
	}
	if l.MaxPartnerLength <= 0 {
		l.MaxPartnerLength = d.MaxPartnerLength
	}
	return l
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks proposals against a collection.
type Validator struct {
	Limits Limits
}

// NewValidator creates a validator. Zero-valued limits fall back to
// DefaultLimits.
func NewValidator(limits Limits) *Validator {
	return &Validator{Limits: limits.withDefaults()}
}

// Validate checks p with the default limits.
func Validate(c collection.Collection, p Proposal) Report {
	return NewValidator(DefaultLimits()).Validate(c, p)
}

// Validate checks every rule and returns all violations. It never mutates c.
func (v *Validator) Validate(c collection.Collection, p Proposal) Report {
	limits := v.Limits.withDefaults()
	var r Report

	if len(p.Given) == 0 && len(p.Received) == 0 {
		r.Errors = append(r.Errors, Issue{
			Code:    CodeEmptyTrade,
			Side:    SideTrade,
			Index:   -1,
			Message: "a trade needs at least one card given or received",
		})
	}

	if n := utf8.RuneCountInString(strings.TrimSpace(p.Partner)); n > limits.MaxPartnerLength {
		r.Errors = append(r.Errors, Issue{
			Code:    CodePartnerNameTooLong,
			Side:    SideTrade,
			Index:   -1,
			Message: fmt.Sprintf("trading partner name is %d characters, maximum is %d", n, limits.MaxPartnerLength),
		})
	}

	r.Errors = append(r.Errors, checkSide(SideGiven, p.Given, limits)...)
	r.Errors = append(r.Errors, checkSide(SideReceived, p.Received, limits)...)
	r.Errors = append(r.Errors, checkOwnership(c, p.Given)...)

	switch {
	case len(p.Given) == 0 && len(p.Received) == 0:
	case len(p.Given) == 0:
		r.Warnings = append(r.Warnings, Issue{
			Code:    CodeGift,
			Side:    SideTrade,
			Index:   -1,
			Message: "no cards are given: this trade is recorded as a gift",
		})
	case len(p.Received) == 0:
		r.Warnings = append(r.Warnings, Issue{
			Code:    CodeDonation,
			Side:    SideTrade,
			Index:   -1,
			Message: "no cards are received: this trade is recorded as a donation",
		})
	}

	for _, side := range []struct {
		name  Side
		lines []Line
	}{{SideGiven, p.Given}, {SideReceived, p.Received}} {
		for _, d := range FindDuplicates(side.lines) {
			r.Warnings = append(r.Warnings, Issue{
				Code:      CodeDuplicateLines,
				Side:      side.name,
				Index:     d.Indexes[0],
				CardID:    d.CardID,
				Variant:   d.Variant,
				Requested: d.TotalQuantity,
				Message:   fmt.Sprintf("%s (%s) appears on %d lines", d.CardID, d.Variant, len(d.Indexes)),
			})
		}
	}

	return finish(r)
}

func finish(r Report) Report {
	r.Valid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	return r
}

// checkSide applies the line-count cap and per-line syntax rules.
func checkSide(side Side, lines []Line, limits Limits) []Issue {
	var issues []Issue
	if len(lines) > limits.MaxLinesPerSide {
		issues = append(issues, Issue{
			Code:      CodeTooManyCards,
			Side:      side,
			Index:     -1,
			Requested: len(lines),
			Message:   fmt.Sprintf("%d cards %s, maximum is %d", len(lines), side, limits.MaxLinesPerSide),
		})
	}
	for i, l := range lines {
		if reason := lineProblem(l, limits); reason != "" {
			issues = append(issues, Issue{
				Code:      CodeInvalidCardEntry,
				Side:      side,
				Index:     i,
				CardID:    l.CardID,
				Variant:   card.NormalizeVariant(l.Variant),
				Requested: l.Quantity,
				Message:   reason,
			})
		}
	}
	return issues
}

func lineProblem(l Line, limits Limits) string {
	var reasons []string
	if !card.IsValidCardID(l.CardID) {
		reasons = append(reasons, fmt.Sprintf("invalid card id %q", l.CardID))
	}
	if !card.IsValidVariant(card.NormalizeVariant(l.Variant)) {
		reasons = append(reasons, fmt.Sprintf("invalid variant %q", l.Variant))
	}
	if !card.IsValidQuantity(l.Quantity) {
		reasons = append(reasons, fmt.Sprintf("quantity %d must be positive", l.Quantity))
	} else if l.Quantity > limits.MaxQuantityPerLine {
		reasons = append(reasons, fmt.Sprintf("quantity %d exceeds maximum of %d", l.Quantity, limits.MaxQuantityPerLine))
	}
	return strings.Join(reasons, "; ")
}

// checkOwnership verifies that each given line is covered by the collection.
// Lines sharing a key draw from the same entry, so Available is what is left
// after earlier lines of that key were satisfied.
func checkOwnership(c collection.Collection, given []Line) []Issue {
	var issues []Issue
	claimed := make(map[collection.Key]int)

	for i, l := range given {
		v := card.NormalizeVariant(l.Variant)
		if !card.IsValidCardID(l.CardID) || !card.IsValidVariant(v) || !card.IsValidQuantity(l.Quantity) {
			continue
		}
		k := collection.Key{CardID: l.CardID, Variant: v}

		owned, ok := collection.Find(c, l.CardID, v)
		if !ok {
			issues = append(issues, Issue{
				Code:      CodeNotOwned,
				Side:      SideGiven,
				Index:     i,
				CardID:    l.CardID,
				Variant:   v,
				Requested: l.Quantity,
				Available: 0,
				Message:   fmt.Sprintf("%s (%s) is not in the collection", l.CardID, v),
			})
			continue
		}

		available := owned.Quantity - claimed[k]
		if l.Quantity > available {
			issues = append(issues, Issue{
				Code:      CodeInsufficientQuantity,
				Side:      SideGiven,
				Index:     i,
				CardID:    l.CardID,
				Variant:   v,
				Requested: l.Quantity,
				Available: available,
				Message:   fmt.Sprintf("only %d of %s (%s) available, %d requested", available, l.CardID, v, l.Quantity),
			})
			continue
		}
		claimed[k] += l.Quantity
	}
	return issues
}
