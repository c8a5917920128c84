package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	ScopeHousehold CategoryScope = "household"
	ScopeMember    CategoryScope = "member"
)

const (
	MethodCash   PaymentMethod = "cash"
	MethodBank   PaymentMethod = "bank"
	MethodCard   PaymentMethod = "card"
	MethodMobile PaymentMethod = "mobile"
)

const (
	OpInsert AuditOp = "insert"
	OpUpdate AuditOp = "update"
	OpDelete AuditOp = "delete"
)

// Entity names as they appear on audit entries.
const (
	EntityHousehold   = "household"
	EntityMember      = "member"
	EntityCategory    = "category"
	EntityTransaction = "transaction"
	EntityAttachment  = "attachment"
)

type (
	TransactionKind string
	CategoryScope   string
	PaymentMethod   string
	AuditOp         string

	// Household is the paying family unit. Paid and PaidAt are owned by the
	// status propagation pass and must not be written by any other path.
	Household struct {
		ID        int64      `json:"id"`
		Name      string     `json:"name"`
		Phone     string     `json:"phone"`
		Email     string     `json:"email"`
		Address   string     `json:"address"`
		Paid      bool       `json:"paid"`
		PaidAt    *time.Time `json:"paid_at,omitempty"`
		Version   int64      `json:"version"`
		CreatedAt time.Time  `json:"created_at"`
		UpdatedAt time.Time  `json:"updated_at"`
	}

	// Member is an individual beneficiary linked to exactly one household.
	Member struct {
		ID          int64     `json:"id"`
		HouseholdID int64     `json:"household_id"`
		Code        string    `json:"code"`
		FirstName   string    `json:"first_name"`
		LastName    string    `json:"last_name"`
		Group       string    `json:"group,omitempty"`
		Paid        bool      `json:"paid"`
		Version     int64     `json:"version"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	// Category defines a fee (income) or spending (expense) bucket.
	// Scope is meaningful for income categories only; BudgetCeiling for
	// expense categories only. Deactivation is logical so that historical
	// transactions stay resolvable.
	Category struct {
		ID            int64           `json:"id"`
		Kind          TransactionKind `json:"kind"`
		Name          string          `json:"name"`
		Scope         CategoryScope   `json:"scope,omitempty"`
		DefaultAmount Money           `json:"default_amount"`
		BudgetCeiling Money           `json:"budget_ceiling,omitempty"`
		Active        bool            `json:"active"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	// Transaction is a settled money movement. HouseholdID is set on income
	// transactions; MemberID only when the category is member-scoped.
	Transaction struct {
		ID          int64           `json:"id"`
		Kind        TransactionKind `json:"kind"`
		Number      string          `json:"number"`
		CategoryID  int64           `json:"category_id"`
		Amount      Money           `json:"amount"`
		HouseholdID int64           `json:"household_id,omitempty"`
		MemberID    int64           `json:"member_id,omitempty"`
		Method      PaymentMethod   `json:"method"`
		Reference   string          `json:"reference,omitempty"`
		Notes       string          `json:"notes,omitempty"`
		RecordedBy  string          `json:"recorded_by"`
		RecordedAt  time.Time       `json:"recorded_at"`
	}

	// Attachment is a receipt or supporting document linked to exactly one
	// transaction. BlobRef is an opaque reference handed over by the blob
	// store collaborator and is never interpreted here.
	Attachment struct {
		ID          int64     `json:"id"`
		IncomeTxID  int64     `json:"income_tx_id,omitempty"`
		ExpenseTxID int64     `json:"expense_tx_id,omitempty"`
		FileName    string    `json:"file_name"`
		ContentType string    `json:"content_type,omitempty"`
		SizeBytes   int64     `json:"size_bytes"`
		BlobRef     string    `json:"blob_ref"`
		UploadedBy  string    `json:"uploaded_by"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// AuditEntry records a single mutation's before/after state. Entries are
	// write-once: nothing in this codebase updates or deletes them.
	AuditEntry struct {
		ID         int64     `json:"id"`
		Entity     string    `json:"entity"`
		EntityID   int64     `json:"entity_id"`
		Op         AuditOp   `json:"op"`
		Prior      []byte    `json:"prior,omitempty"`
		Next       []byte    `json:"next,omitempty"`
		Principal  string    `json:"principal"`
		RecordedAt time.Time `json:"recorded_at"`
	}
)

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// Prefix returns the transaction-number prefix for the kind.
func (k TransactionKind) Prefix() string {
	if k == Income {
		return "INC"
	}
	return "EXP"
}

func (s CategoryScope) Valid() bool {
	return s == ScopeHousehold || s == ScopeMember
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBank, MethodCard, MethodMobile:
		return true
	}
	return false
}

func (h Household) Validate() error {
	if strings.TrimSpace(h.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (m Member) Validate() error {
	if m.HouseholdID <= 0 {
		return ErrUnknownHousehold
	}
	if strings.TrimSpace(m.Code) == "" {
		return ErrEmptyCode
	}
	if strings.TrimSpace(m.FirstName) == "" && strings.TrimSpace(m.LastName) == "" {
		return ErrEmptyName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Kind.Valid() {
		return ErrInvalidKind
	}
	if c.DefaultAmount.Cents < 0 {
		return ErrInvalidAmount
	}
	switch c.Kind {
	case Income:
		if !c.Scope.Valid() {
			return ErrInvalidScope
		}
		if c.BudgetCeiling.Cents != 0 {
			return ErrInvalidScope
		}
	case Expense:
		if c.Scope != "" {
			return ErrInvalidScope
		}
		if c.BudgetCeiling.Cents < 0 {
			return ErrInvalidAmount
		}
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if t.CategoryID <= 0 {
		return ErrUnknownCategory
	}
	if !t.Method.Valid() {
		return ErrInvalidMethod
	}
	if strings.TrimSpace(t.RecordedBy) == "" {
		return ErrEmptyPrincipal
	}
	if t.Kind == Income && t.HouseholdID <= 0 {
		return ErrUnknownHousehold
	}
	return nil
}

// Validate enforces the standing exclusivity rule: an attachment belongs to
// exactly one transaction, income or expense, never both, never neither.
func (a Attachment) Validate() error {
	if (a.IncomeTxID > 0) == (a.ExpenseTxID > 0) {
		return ErrInvalidAssociation
	}
	if strings.TrimSpace(a.FileName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(a.BlobRef) == "" {
		return ErrEmptyBlobRef
	}
	if strings.TrimSpace(a.UploadedBy) == "" {
		return ErrEmptyPrincipal
	}
	return nil
}

func (e AuditEntry) Validate() error {
	if strings.TrimSpace(e.Entity) == "" || e.EntityID <= 0 {
		return ErrInvalidAuditEntry
	}
	if strings.TrimSpace(e.Principal) == "" {
		return ErrEmptyPrincipal
	}
	switch e.Op {
	case OpInsert:
		if e.Prior != nil || e.Next == nil {
			return ErrInvalidAuditEntry
		}
	case OpUpdate:
		if e.Prior == nil || e.Next == nil {
			return ErrInvalidAuditEntry
		}
	case OpDelete:
		if e.Prior == nil || e.Next != nil {
			return ErrInvalidAuditEntry
		}
	default:
		return ErrInvalidAuditEntry
	}
	return nil
}
