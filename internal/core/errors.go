package core

import "errors"

// Error taxonomy for the payment ledger. Every failure surfaced by the
// services layer wraps one of these sentinels so callers can branch with
// errors.Is without parsing messages.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrUnknownCategory        = errors.New("unknown category")
	ErrScopeMismatch          = errors.New("category scope mismatch")
	ErrUnknownTransaction     = errors.New("unknown transaction")
	ErrInvalidAssociation     = errors.New("attachment must reference exactly one transaction")
	ErrNumberGenerationFailed = errors.New("transaction number generation failed")
	ErrConcurrencyConflict    = errors.New("concurrent modification conflict")
	ErrStoreUnavailable       = errors.New("ledger store unavailable")

	ErrUnknownHousehold   = errors.New("unknown household")
	ErrUnknownMember      = errors.New("unknown member")
	ErrDuplicateCategory  = errors.New("category name already exists")
	ErrDuplicateCode      = errors.New("member code already exists")
	ErrCategoryInactive   = errors.New("category is deactivated")
	ErrHouseholdHasMember = errors.New("household still has members")

	ErrInvalidKind       = errors.New("invalid transaction kind")
	ErrInvalidScope      = errors.New("invalid category scope")
	ErrInvalidMethod     = errors.New("invalid payment method")
	ErrInvalidAuditEntry = errors.New("invalid audit entry")
	ErrEmptyName         = errors.New("empty name")
	ErrEmptyCode         = errors.New("empty member code")
	ErrEmptyBlobRef      = errors.New("empty blob reference")
	ErrEmptyPrincipal    = errors.New("empty principal")
)
