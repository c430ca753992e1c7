package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/card-ledger/collection"
	"github.com/warp/card-ledger/trade"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	ErrInvalidCollectorID = errors.New("invalid collector id")
	ErrTradeRejected      = errors.New("trade rejected")
	ErrDuplicateTrade     = errors.New("trade already recorded")
)

// =============================================================================
// TYPED ERRORS
// =============================================================================

// RejectedError carries the validation report of a trade that could not be
// executed.
type RejectedError struct {
	Report trade.Report
}

func (e *RejectedError) Error() string {
	codes := make([]string, 0, len(e.Report.Errors))
	for _, issue := range e.Report.Errors {
		codes = append(codes, string(issue.Code))
	}
	return fmt.Sprintf("trade rejected: %s", strings.Join(codes, ", "))
}

func (e *RejectedError) Unwrap() error {
	return ErrTradeRejected
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// IsClientError reports whether err was caused by bad input rather than a
// storage failure.
func IsClientError(err error) bool {
	return collection.IsClientError(err) ||
		errors.Is(err, ErrInvalidCollectorID) ||
		errors.Is(err, ErrTradeRejected)
}

// IsNotFound reports whether err means the addressed entry does not exist.
func IsNotFound(err error) bool {
	return collection.IsNotFound(err)
}

// ValidateCollectorID rejects blank or oversized ids.
func ValidateCollectorID(id CollectorID) error {
	s := strings.TrimSpace(string(id))
	if s == "" || len(s) > 128 || s != string(id) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectorID, id)
	}
	return nil
}
