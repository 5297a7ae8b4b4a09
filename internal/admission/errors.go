package admission

import "errors"

// Rejections are expected, user-facing outcomes of a referral submission.
var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignClosed   = errors.New("campaign is closed")
	ErrSelfReferral     = errors.New("you cannot refer yourself")
	ErrDuplicateOrigin  = errors.New("cannot refer more than once in a giveaway")
	ErrInvalidInput     = errors.New("invalid input")
)

// ErrStoreUnavailable marks transient infrastructure failures.
var ErrStoreUnavailable = errors.New("store unavailable")

// ErrNotOwner is returned when a caller touches a campaign it does not own.
var ErrNotOwner = errors.New("only the giveaway owner can do this")

// IsRejection reports whether err is an admission rejection rather than a
// system failure. Rejections must not be logged as errors.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCampaignNotFound) ||
		errors.Is(err, ErrCampaignClosed) ||
		errors.Is(err, ErrSelfReferral) ||
		errors.Is(err, ErrDuplicateOrigin) ||
		errors.Is(err, ErrInvalidInput)
}
