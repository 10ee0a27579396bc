package invoicing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/harborview-hms/harborview/internal/ledger/shared"
	"github.com/harborview-hms/harborview/internal/platform/httpx"
	internalShared "github.com/harborview-hms/harborview/internal/shared"
)

// Handler exposes invoice operations over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

type invoiceLineRequest struct {
	Description      string          `json:"description" validate:"required"`
	Quantity         decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice        decimal.Decimal `json:"unit_price" validate:"required"`
	RevenueAccountID int64           `json:"revenue_account_id"`
}

type createInvoiceRequest struct {
	OutletID  int64                `json:"outlet_id" validate:"required"`
	GuestName string               `json:"guest_name" validate:"required"`
	TaxRate   decimal.Decimal      `json:"tax_rate"`
	DueAt     string               `json:"due_at" validate:"omitempty,datetime=2006-01-02"`
	Lines     []invoiceLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type invoiceResponse struct {
	ID             int64                 `json:"id"`
	Number         string                `json:"number"`
	OutletID       int64                 `json:"outlet_id"`
	GuestName      string                `json:"guest_name"`
	Subtotal       string                `json:"subtotal"`
	TaxRate        string                `json:"tax_rate"`
	TaxAmount      string                `json:"tax_amount"`
	Total          string                `json:"total"`
	Status         string                `json:"status"`
	JournalEntryID *int64                `json:"journal_entry_id,omitempty"`
	PostedAt       *time.Time            `json:"posted_at,omitempty"`
	Lines          []invoiceLineResponse `json:"lines,omitempty"`
}

type invoiceLineResponse struct {
	Description      string `json:"description"`
	Quantity         string `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	LineTotal        string `json:"line_total"`
	RevenueAccountID int64  `json:"revenue_account_id,omitempty"`
}

func toInvoiceResponse(inv Invoice, includeLines bool) invoiceResponse {
	resp := invoiceResponse{
		ID:             inv.ID,
		Number:         inv.Number,
		OutletID:       inv.OutletID,
		GuestName:      inv.GuestName,
		Subtotal:       inv.Subtotal.StringFixed(2),
		TaxRate:        inv.TaxRate.String(),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		Total:          inv.Total.StringFixed(2),
		Status:         string(inv.Status),
		JournalEntryID: inv.JournalEntryID,
		PostedAt:       inv.PostedAt,
	}
	if includeLines {
		resp.Lines = make([]invoiceLineResponse, len(inv.Lines))
		for i, l := range inv.Lines {
			resp.Lines[i] = invoiceLineResponse{
				Description:      l.Description,
				Quantity:         l.Quantity.String(),
				UnitPrice:        l.UnitPrice.StringFixed(2),
				LineTotal:        l.LineTotal.StringFixed(2),
				RevenueAccountID: l.RevenueAccountID,
			}
		}
	}
	return resp
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/post", h.post)
	r.Post("/{id}/void", h.void)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.service.ListInvoices(r.Context(), InvoiceStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		out[i] = toInvoiceResponse(inv, false)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoices": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	in := CreateInvoiceInput{
		OutletID:  req.OutletID,
		GuestName: req.GuestName,
		TaxRate:   req.TaxRate,
		ActorID:   internalShared.ActorFromContext(r.Context()),
	}
	if req.DueAt != "" {
		due, err := time.Parse("2006-01-02", req.DueAt)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid due_at", nil)
			return
		}
		in.DueAt = due
	}
	in.Lines = make([]CreateInvoiceLineInput, len(req.Lines))
	for i, l := range req.Lines {
		in.Lines[i] = CreateInvoiceLineInput{
			Description:      l.Description,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
			RevenueAccountID: l.RevenueAccountID,
		}
	}
	inv, err := h.service.CreateInvoice(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "invoice": toInvoiceResponse(inv, true)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": toInvoiceResponse(inv, true)})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	inv, err := h.service.PostInvoice(r.Context(), id, internalShared.ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": toInvoiceResponse(inv, false)})
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	if err := h.service.VoidInvoice(r.Context(), id, internalShared.ActorFromContext(r.Context())); err != nil {
		h.writeError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid invoice id", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var invalidAccounts shared.InvalidAccountsError
	if errors.As(err, &invalidAccounts) {
		httpx.Error(w, http.StatusBadRequest, invalidAccounts.Error(), map[string]any{
			"invalid_account_ids": invalidAccounts.AccountIDs,
		})
		return
	}
	var missingItems MissingItemsError
	if errors.As(err, &missingItems) {
		httpx.Error(w, http.StatusBadRequest, missingItems.Error(), map[string]any{
			"missing_items": missingItems.Items,
		})
		return
	}
	switch {
	case errors.Is(err, ErrInvoiceNotFound):
		httpx.Error(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, ErrInvalidStatus):
		httpx.Error(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, shared.ErrNoControlAccount):
		httpx.Error(w, http.StatusConflict, err.Error(), nil)
	default:
		h.logger.Error("invoicing request failed", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "internal error", nil)
	}
}
