package admission

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// Mode selects how repeated submissions from one origin are treated.
type Mode string

const (
	// ModeDedup admits one referral per origin per campaign.
	ModeDedup Mode = "dedup"
	// ModeAccumulate lets an origin keep crediting the referrer it first
	// credited; crediting anyone else is still rejected.
	ModeAccumulate Mode = "accumulate"
)

// MaxReferrerNameLength is measured in runes.
const MaxReferrerNameLength = 64

// ParseMode validates a configured mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDedup, "":
		return ModeDedup, nil
	case ModeAccumulate:
		return ModeAccumulate, nil
	}
	return "", fmt.Errorf("unknown referral mode %q (want dedup or accumulate)", s)
}

// CampaignState is the slice of campaign metadata the policy needs.
type CampaignState struct {
	ID      string
	OwnerID string
	Active  bool
}

// Existing is the referral record already stored for the request's
// (campaign, admission key), if any.
type Existing struct {
	ReferrerName string
	Count        int
}

// Request is one referral submission after identity resolution.
type Request struct {
	CampaignID   string
	ReferrerName string
	AdmissionKey string
	// Requester is the authenticated identity of the submitter, empty when
	// the submitter is anonymous.
	Requester string
}

// Policy decides whether a referral is admissible. It never mutates state.
type Policy struct {
	mode     Mode
	validate *validator.Validate
}

func NewPolicy(mode Mode) *Policy {
	if mode == "" {
		mode = ModeDedup
	}
	return &Policy{
		mode:     mode,
		validate: validator.New(),
	}
}

// Mode returns the configured dedup mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// Validate checks the shape of a request without consulting any state.
func (p *Policy) Validate(req Request) error {
	if err := p.validate.Var(req.CampaignID, "required,uuid"); err != nil {
		return fmt.Errorf("%w: campaign id must be a uuid", ErrInvalidInput)
	}
	return ValidateReferrerName(req.ReferrerName)
}

// ValidateReferrerName rejects empty, oversized or control-character names.
func ValidateReferrerName(name string) error {
	if strings.TrimSpace(name) != name || name == "" {
		return fmt.Errorf("%w: referrer name is required and must not have surrounding spaces", ErrInvalidInput)
	}
	if !utf8.ValidString(name) || utf8.RuneCountInString(name) > MaxReferrerNameLength {
		return fmt.Errorf("%w: referrer name must be at most %d characters", ErrInvalidInput, MaxReferrerNameLength)
	}
	if strings.ContainsFunc(name, unicode.IsControl) {
		return fmt.Errorf("%w: referrer name contains control characters", ErrInvalidInput)
	}
	return nil
}

// Decide applies the admission rules in order and returns nil to admit.
// campaign is nil when the campaign does not exist; existing is nil when no
// record is stored for (campaign, admission key).
func (p *Policy) Decide(req Request, campaign *CampaignState, existing *Existing) error {
	if err := p.Validate(req); err != nil {
		return err
	}
	if campaign == nil {
		return ErrCampaignNotFound
	}
	if !campaign.Active {
		return ErrCampaignClosed
	}
	if req.Requester != "" && req.Requester == req.ReferrerName {
		return ErrSelfReferral
	}
	if existing != nil {
		if p.mode == ModeAccumulate && existing.ReferrerName == req.ReferrerName {
			return nil
		}
		return ErrDuplicateOrigin
	}
	return nil
}
