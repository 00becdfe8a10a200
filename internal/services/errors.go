package services

import (
	"errors"

	"spendlens/internal/core"
)

var (
	ErrDuplicateCategory  = errors.New("category already exists")
	ErrReceiptsDisabled   = errors.New("receipt storage is not configured")
	ErrEmptyReceipt       = errors.New("empty receipt file")
	ErrReceiptTooLarge    = errors.New("receipt file too large")
	ErrUnsupportedReceipt = errors.New("unsupported receipt type: only images and PDF are accepted")
	ErrInvalidRecord      = errors.New("stored record is invalid")
	ErrInvalidPeriod      = errors.New("invalid period")
	ErrNoOwner            = errors.New("no owner")
)

var validationErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyTitle,
	core.ErrTitleTooLong,
	core.ErrEmptyCategory,
	core.ErrCategoryTooLong,
	ErrEmptyReceipt,
	ErrReceiptTooLarge,
	ErrUnsupportedReceipt,
	ErrInvalidRecord,
	ErrInvalidPeriod,
}

// IsValidation reports whether err was caused by user input rather than by
// a store or ownership failure.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
