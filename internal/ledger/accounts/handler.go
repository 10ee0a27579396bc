package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/harborview-hms/harborview/internal/platform/httpx"
)

// Handler exposes the chart of accounts over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers account routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/deactivate", h.deactivate)
}

type accountResponse struct {
	ID            int64  `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	NormalBalance string `json:"normal_balance"`
	IsActive      bool   `json:"is_active"`
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		NormalBalance: string(a.NormalBalance),
		IsActive:      a.IsActive,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to list accounts", nil)
		return
	}
	out := make([]accountResponse, len(all))
	for i, a := range all {
		out[i] = toAccountResponse(a)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "accounts": out})
}

type createAccountRequest struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name" validate:"required"`
	Type          string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	NormalBalance string `json:"normal_balance" validate:"omitempty,oneof=DEBIT CREDIT"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	created, err := h.service.Create(r.Context(), Account{
		Code:          req.Code,
		Name:          req.Name,
		Type:          AccountType(req.Type),
		NormalBalance: NormalBalance(req.NormalBalance),
	})
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.Error(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "account": toAccountResponse(created)})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid account id", nil)
		return
	}
	acc, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Error(w, http.StatusNotFound, "account not found", nil)
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to load account", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "account": toAccountResponse(acc)})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid account id", nil)
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Error(w, http.StatusNotFound, "account not found", nil)
			return
		}
		h.logger.Error("deactivate account", slog.Any("error", err))
		httpx.Error(w, http.StatusInternalServerError, "failed to deactivate account", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
