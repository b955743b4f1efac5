package ledger

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/convertline/convertline/internal/platform/httpx"
)

// IdempotencyHeader carries an optional client key that makes a POST safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// Handler serves ledger admission and listing.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{kind}", h.list)
	r.Post("/{kind}", h.create)
}

type createRequest struct {
	Envelope
	Details json.RawMessage `json:"details"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, h.validator, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	payload, err := DecodePayload(kind, req.Details)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	tx, err := h.service.Admit(r.Context(), Transaction{Envelope: req.Envelope, Payload: payload}, r.Header.Get(IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	kind, err := ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.ListRecent(r.Context(), kind, limit)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}
