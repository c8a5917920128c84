package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"quote/internal/core"
	"quote/internal/services"
)

// principal extracts the acting principal from the X-Principal header.
func principal(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Principal"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrUnknownCategory),
		errors.Is(err, core.ErrUnknownTransaction),
		errors.Is(err, core.ErrUnknownHousehold),
		errors.Is(err, core.ErrUnknownMember):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrConcurrencyConflict),
		errors.Is(err, core.ErrDuplicateCategory),
		errors.Is(err, core.ErrDuplicateCode),
		errors.Is(err, core.ErrHouseholdHasMember):
		status = http.StatusConflict
	case errors.Is(err, core.ErrStoreUnavailable),
		errors.Is(err, core.ErrNumberGenerationFailed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrScopeMismatch),
		errors.Is(err, core.ErrInvalidAssociation),
		errors.Is(err, core.ErrCategoryInactive),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidScope),
		errors.Is(err, core.ErrInvalidMethod),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyCode),
		errors.Is(err, core.ErrEmptyBlobRef),
		errors.Is(err, core.ErrEmptyPrincipal):
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return 0, false
	}
	return id, true
}

type recordRequest struct {
	CategoryID  int64  `json:"category_id"`
	Amount      string `json:"amount"`
	HouseholdID int64  `json:"household_id,omitempty"`
	MemberID    int64  `json:"member_id,omitempty"`
	Method      string `json:"method"`
	Reference   string `json:"reference,omitempty"`
	Notes       string `json:"notes,omitempty"`
	RecordedAt  string `json:"recorded_at,omitempty"`
}

func (req recordRequest) toParams(w http.ResponseWriter, r *http.Request) (services.RecordParams, bool) {
	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, r, core.ErrInvalidAmount)
		return services.RecordParams{}, false
	}

	var when time.Time
	if req.RecordedAt != "" {
		when, err = time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "recorded_at must be RFC 3339"})
			return services.RecordParams{}, false
		}
	}

	return services.RecordParams{
		CategoryID:  req.CategoryID,
		AmountCents: cents,
		HouseholdID: req.HouseholdID,
		MemberID:    req.MemberID,
		Method:      core.PaymentMethod(req.Method),
		Reference:   req.Reference,
		Notes:       req.Notes,
		Principal:   principal(r),
		When:        when,
	}, true
}

type transactionResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	Number      string    `json:"number"`
	CategoryID  int64     `json:"category_id"`
	AmountCents int64     `json:"amount_cents"`
	HouseholdID int64     `json:"household_id,omitempty"`
	MemberID    int64     `json:"member_id,omitempty"`
	Method      string    `json:"method"`
	Reference   string    `json:"reference,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	RecordedBy  string    `json:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

func toTransactionResponse(tr core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tr.ID,
		Kind:        string(tr.Kind),
		Number:      tr.Number,
		CategoryID:  tr.CategoryID,
		AmountCents: tr.Amount.Cents,
		HouseholdID: tr.HouseholdID,
		MemberID:    tr.MemberID,
		Method:      string(tr.Method),
		Reference:   tr.Reference,
		Notes:       tr.Notes,
		RecordedBy:  tr.RecordedBy,
		RecordedAt:  tr.RecordedAt,
	}
}

func (s *Server) handleRecordIncome(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, ok := req.toParams(w, r)
	if !ok {
		return
	}
	tr, err := s.ledger.RecordIncome(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tr))
}

func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, ok := req.toParams(w, r)
	if !ok {
		return
	}
	tr, err := s.ledger.RecordExpense(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tr))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tr, err := s.ledger.Transaction(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tr))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id, principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attachRequest struct {
	IncomeTxID  int64  `json:"income_tx_id,omitempty"`
	ExpenseTxID int64  `json:"expense_tx_id,omitempty"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	BlobRef     string `json:"blob_ref"`
}

func (s *Server) handleAttach(w http.ResponseWriter, r *http.Request) {
	var req attachRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a, err := s.ledger.Attach(r.Context(), services.AttachParams{
		IncomeTxID:  req.IncomeTxID,
		ExpenseTxID: req.ExpenseTxID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
		BlobRef:     req.BlobRef,
		Principal:   principal(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

type householdRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

func (s *Server) handleRegisterHousehold(w http.ResponseWriter, r *http.Request) {
	var req householdRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h, err := s.enrollment.RegisterHousehold(r.Context(), services.HouseholdParams{
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		Address:   req.Address,
		Principal: principal(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleRemoveHousehold(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.enrollment.RemoveHousehold(r.Context(), id, principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberRequest struct {
	HouseholdID int64  `json:"household_id"`
	Code        string `json:"code"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Group       string `json:"group,omitempty"`
}

func (s *Server) handleEnrollMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decodeBody(w, r, &req) {
		return
	}
	m, err := s.enrollment.EnrollMember(r.Context(), services.MemberParams{
		HouseholdID: req.HouseholdID,
		Code:        req.Code,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Group:       req.Group,
		Principal:   principal(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handleHouseholdStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.ledger.HouseholdStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleMemberStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.ledger.MemberStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type categoryRequest struct {
	Kind               string `json:"kind"`
	Name               string `json:"name"`
	Scope              string `json:"scope,omitempty"`
	DefaultAmountCents int64  `json:"default_amount_cents,omitempty"`
	BudgetCeilingCents int64  `json:"budget_ceiling_cents,omitempty"`
}

func (req categoryRequest) toParams(r *http.Request) services.CategoryParams {
	return services.CategoryParams{
		Kind:               core.TransactionKind(req.Kind),
		Name:               req.Name,
		Scope:              core.CategoryScope(req.Scope),
		DefaultAmountCents: req.DefaultAmountCents,
		BudgetCeilingCents: req.BudgetCeilingCents,
		Principal:          principal(r),
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.registry.Create(r.Context(), req.toParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := s.registry.Update(r.Context(), id, req.toParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeactivateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.registry.Deactivate(r.Context(), id, principal(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	kind := core.TransactionKind(r.URL.Query().Get("kind"))
	cats, err := s.registry.List(r.Context(), kind)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

type auditResponse struct {
	Entries []auditEntryResponse `json:"entries"`
	Cursor  int64                `json:"cursor"`
}

type auditEntryResponse struct {
	ID         int64           `json:"id"`
	Entity     string          `json:"entity"`
	EntityID   int64           `json:"entity_id"`
	Op         string          `json:"op"`
	Prior      json.RawMessage `json:"prior,omitempty"`
	Next       json.RawMessage `json:"next,omitempty"`
	Principal  string          `json:"principal"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entity := q.Get("entity")
	entityID, err := strconv.ParseInt(q.Get("entity_id"), 10, 64)
	if entity == "" || err != nil || entityID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "entity and entity_id are required"})
		return
	}
	after, _ := strconv.ParseInt(q.Get("after"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	entries, cursor, err := s.ledger.AuditTrail(r.Context(), entity, entityID, after, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := auditResponse{Entries: []auditEntryResponse{}, Cursor: cursor}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, auditEntryResponse{
			ID:         e.ID,
			Entity:     e.Entity,
			EntityID:   e.EntityID,
			Op:         string(e.Op),
			Prior:      json.RawMessage(e.Prior),
			Next:       json.RawMessage(e.Next),
			Principal:  e.Principal,
			RecordedAt: e.RecordedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
