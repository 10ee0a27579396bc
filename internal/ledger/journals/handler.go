package journals

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/harborview-hms/harborview/internal/ledger/shared"
	"github.com/harborview-hms/harborview/internal/platform/httpx"
	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

const entryDateLayout = "2006-01-02"

// Handler exposes the ledger over JSON for direct callers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type lineRequest struct {
	AccountID   int64           `json:"account_id" validate:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

type createEntryRequest struct {
	EntryDate   string        `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Description string        `json:"description" validate:"required"`
	Lines       []lineRequest `json:"lines" validate:"required"`
	Status      string        `json:"status" validate:"omitempty,oneof=DRAFT POSTED"`
	EntryNo     string        `json:"entry_no"`
	ClientRef   string        `json:"client_ref"`
}

type updateEntryRequest struct {
	EntryDate   *string       `json:"entry_date" validate:"omitempty,datetime=2006-01-02"`
	Description *string       `json:"description"`
	Lines       []lineRequest `json:"lines"`
	Force       bool          `json:"force"`
}

type entryResponse struct {
	ID          int64          `json:"id"`
	EntryNo     string         `json:"entry_no"`
	EntryDate   string         `json:"entry_date"`
	Description string         `json:"description"`
	TotalDebit  string         `json:"total_debit"`
	TotalCredit string         `json:"total_credit"`
	Status      string         `json:"status"`
	PostedAt    *time.Time     `json:"posted_at,omitempty"`
	Lines       []lineResponse `json:"lines,omitempty"`
}

type lineResponse struct {
	AccountID   int64  `json:"account_id"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
}

func toEntryResponse(e JournalEntry, includeLines bool) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		EntryNo:     e.EntryNo,
		EntryDate:   e.EntryDate.Format(entryDateLayout),
		Description: e.Description,
		TotalDebit:  e.TotalDebit.StringFixed(2),
		TotalCredit: e.TotalCredit.StringFixed(2),
		Status:      string(e.Status),
		PostedAt:    e.PostedAt,
	}
	if includeLines {
		resp.Lines = make([]lineResponse, len(e.Lines))
		for i, l := range e.Lines {
			resp.Lines[i] = lineResponse{
				AccountID:   l.AccountID,
				Debit:       l.Debit.StringFixed(2),
				Credit:      l.Credit.StringFixed(2),
				Description: l.Description,
			}
		}
	}
	return resp
}

func toLineInputsFromRequest(lines []lineRequest) []LineInput {
	out := make([]LineInput, len(lines))
	for i, l := range lines {
		out[i] = LineInput{
			AccountID:   l.AccountID,
			Debit:       l.Debit,
			Credit:      l.Credit,
			Description: l.Description,
		}
	}
	return out
}

// MountRoutes registers journal entry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.list)
	r.Post("/entries", h.create)
	r.Get("/entries/{id}", h.get)
	r.Patch("/entries/{id}", h.update)
	r.Delete("/entries/{id}", h.delete)
	r.Post("/entries/{id}/approve", h.approve)
	r.Post("/entries/{id}/post", h.post)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 100}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = EntryStatus(status)
	}
	if year := r.URL.Query().Get("year"); year != "" {
		y, err := strconv.Atoi(year)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid year", nil)
			return
		}
		filter.Year = y
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		out[i] = toEntryResponse(e, false)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "entries": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	// Every API-created entry carries a client reference for traceability; one is
	// minted when the caller does not supply their own.
	clientRef := req.ClientRef
	if clientRef == "" {
		clientRef = uuid.NewString()
	}
	in := CreateEntryInput{
		Description: req.Description,
		Lines:       toLineInputsFromRequest(req.Lines),
		Status:      EntryStatus(req.Status),
		EntryNo:     req.EntryNo,
		ClientRef:   clientRef,
		ActorID:     internalShared.ActorFromContext(r.Context()),
	}
	if req.EntryDate != "" {
		date, err := time.Parse(entryDateLayout, req.EntryDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid entry_date", nil)
			return
		}
		in.EntryDate = date
	}
	entry, err := h.service.CreateEntry(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := toEntryResponse(entry, true)
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success":      true,
		"id":           resp.ID,
		"entry_no":     resp.EntryNo,
		"total_debit":  resp.TotalDebit,
		"total_credit": resp.TotalCredit,
		"status":       resp.Status,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "entry": toEntryResponse(entry, true)})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	in := UpdateEntryInput{
		Description: req.Description,
		Force:       req.Force,
		ActorID:     internalShared.ActorFromContext(r.Context()),
	}
	if req.EntryDate != nil {
		date, err := time.Parse(entryDateLayout, *req.EntryDate)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid entry_date", nil)
			return
		}
		in.EntryDate = &date
	}
	if req.Lines != nil {
		in.Lines = toLineInputsFromRequest(req.Lines)
	}
	entry, err := h.service.UpdateEntry(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "entry": toEntryResponse(entry, true)})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteEntry(r.Context(), id, internalShared.ActorFromContext(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.ApproveEntry(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "entry": toEntryResponse(entry, false)})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, ok := h.entryID(w, r)
	if !ok {
		return
	}
	entry, err := h.service.PostEntry(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "entry": toEntryResponse(entry, false)})
}

func (h *Handler) entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid entry id", nil)
		return 0, false
	}
	return id, true
}

// writeError maps engine errors onto the API convention: 400 for validation and
// reference failures, 404 for missing entries, 409 for duplicates and immutability
// conflicts, 500 for everything persistence-shaped.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalidAccounts shared.InvalidAccountsError
	if errors.As(err, &invalidAccounts) {
		httpx.Error(w, http.StatusBadRequest, invalidAccounts.Error(), map[string]any{
			"invalid_account_ids": invalidAccounts.AccountIDs,
		})
		return
	}
	var unbalanced shared.UnbalancedError
	if errors.As(err, &unbalanced) {
		httpx.Error(w, http.StatusBadRequest, unbalanced.Error(), map[string]any{
			"total_debit":  unbalanced.TotalDebit.String(),
			"total_credit": unbalanced.TotalCredit.String(),
		})
		return
	}
	switch {
	case errors.Is(err, shared.ErrInsufficientLines),
		errors.Is(err, shared.ErrMissingAccount),
		errors.Is(err, shared.ErrAmbiguousLine),
		errors.Is(err, shared.ErrEmptyLine):
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, shared.ErrEntryNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, shared.ErrDuplicateNumber),
		errors.Is(err, shared.ErrImmutableEntry),
		errors.Is(err, shared.ErrInvalidTransition):
		httpx.Error(w, http.StatusConflict, err.Error(), nil)
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error", nil)
	}
}
