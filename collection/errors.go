/*
errors.go - Error types for the collection ledger

PURPOSE:
  Expected domain failures (entry not found, bad quantity) are returned as
  error values, never panics. Callers map them to user-facing messages with
  errors.Is / errors.As.

ERROR CATEGORIES:
  1. Lookup errors - the (card, variant) entry does not exist
  2. Input errors  - a caller passed a malformed id, variant or quantity
  3. Snapshot errors - a stored snapshot violates a ledger invariant

SEE ALSO:
  - ledger.go: returns these errors
  - store/errors.go: storage-level errors
*/
package collection

import (
	"errors"
	"fmt"

	"github.com/warp/card-ledger/card"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEntryNotFound is returned when an operation targets a (card, variant)
	// the collection does not contain.
	ErrEntryNotFound = errors.New("collection entry not found")

	// ErrInvalidCardID is returned for identifiers without a set and number.
	ErrInvalidCardID = errors.New("invalid card id")

	// ErrInvalidVariant is returned for variants outside the closed set.
	ErrInvalidVariant = errors.New("invalid variant")

	// ErrInvalidQuantity is returned when a positive quantity was required.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrDuplicateEntry is returned when a snapshot holds two entries with the
	// same (card, variant) key.
	ErrDuplicateEntry = errors.New("duplicate collection entry")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError names the entry that was missing.
type NotFoundError struct {
	CardID  card.ID
	Variant card.Variant
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %s entry for card %s", e.Variant, e.CardID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrEntryNotFound
}

// EntryError reports an invariant violation at a position in a snapshot.
type EntryError struct {
	Index int
	Entry Entry
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%s/%s x%d): %v",
		e.Index, e.Entry.CardID, e.Entry.Variant, e.Entry.Quantity, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidCardID) ||
		errors.Is(err, ErrInvalidVariant) ||
		errors.Is(err, ErrInvalidQuantity)
}

// IsNotFound returns true if the error indicates a missing entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntryNotFound)
}

func checkKey(id card.ID, v card.Variant) error {
	if !card.IsValidCardID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidCardID, id)
	}
	if !card.IsValidVariant(v) {
		return fmt.Errorf("%w: %q", ErrInvalidVariant, v)
	}
	return nil
}
