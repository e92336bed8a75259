package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sundayezeilo/linkhub/internal/errx"
	"github.com/sundayezeilo/linkhub/internal/httpx"
)

// OwnerHeader carries the opaque user identifier supplied by the
// identity provider sitting in front of this service. The core never
// validates credentials itself.
const OwnerHeader = "X-User-ID"

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL         string     `json:"url"`
	CustomAlias string     `json:"custom_alias,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// HTTPUpdateLinkRequest represents the JSON request body for a partial update.
// ClearExpiry true removes the expiration; it wins over ExpiresAt.
type HTTPUpdateLinkRequest struct {
	URL         *string    `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// LinkResponse represents the JSON shape of a link.
type LinkResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	OriginalURL   string     `json:"original_url"`
	ShortURL      string     `json:"short_url"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Visits        int64      `json:"visits"`
	LastVisitedAt *time.Time `json:"last_visited_at,omitempty"`
	OwnerID       *string    `json:"owner_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// ArchivedLinkResponse represents an archived link in expired history.
type ArchivedLinkResponse struct {
	Seq       int64        `json:"seq"`
	Link      LinkResponse `json:"link"`
	ExpiredAt time.Time    `json:"expired_at"`
}

// SweepResponse reports the outcome of a manually triggered sweep.
type SweepResponse struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Handler provides HTTP handlers for the link service.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string // Base URL for constructing short URLs (e.g., "https://short.ly")
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: cfg.BaseURL,
	}
}

func (h *Handler) toResponse(l Link) LinkResponse {
	return LinkResponse{
		ID:            l.ID.String(),
		Code:          l.Code,
		OriginalURL:   l.OriginalURL,
		ShortURL:      fmt.Sprintf("%s/%s", h.baseURL, l.Code),
		ExpiresAt:     l.ExpiresAt,
		Visits:        l.Visits,
		LastVisitedAt: l.LastVisitedAt,
		OwnerID:       l.OwnerID,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
	}
}

func ownerFromRequest(r *http.Request) *string {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		return nil
	}
	return &owner
}

// CreateLink handles POST requests to create a new short link.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if req.URL == "" {
		logger.WarnContext(ctx, "request validation failed", "error", "url is required")
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "url is required", nil)
		return
	}

	created, err := h.service.Shorten(ctx, ShortenRequest{
		OriginalURL: req.URL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
		OwnerID:     ownerFromRequest(r),
	})
	if err != nil {
		h.writeServiceError(ctx, w, err, "create link")
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", created.ID.String(),
		"code", created.Code,
		"custom_alias", req.CustomAlias != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(created))
}

// Redirect handles GET requests that resolve a code and redirect to the
// original URL. Visit accounting happens off the request path.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	if code == "" || len(code) > MaxCodeLength {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link", nil)
		return
	}

	l, err := h.service.Resolve(ctx, code)
	if err != nil {
		h.writeServiceError(ctx, w, err, "resolve link")
		return
	}

	logger.InfoContext(ctx, "code resolved",
		"code", code,
		"original_url", l.OriginalURL,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, l.OriginalURL, http.StatusFound)
}

// Stats handles GET requests for a link's visit statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	code := r.PathValue("code")
	l, err := h.service.Stats(ctx, code)
	if err != nil {
		h.writeServiceError(ctx, w, err, "link stats")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, h.toResponse(l))
}

// UpdateLink handles PUT requests for partial link updates.
func (h *Handler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")

	req, err := httpx.DecodeJSON[HTTPUpdateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"error", err.Error(),
		)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	upd := UpdateRequest{OriginalURL: req.URL}
	switch {
	case req.ClearExpiry:
		upd.SetExpiresAt = true
	case req.ExpiresAt != nil:
		upd.SetExpiresAt = true
		upd.ExpiresAt = req.ExpiresAt
	}

	updated, err := h.service.Update(ctx, code, upd)
	if err != nil {
		h.writeServiceError(ctx, w, err, "update link")
		return
	}

	logger.InfoContext(ctx, "link updated", "code", code)

	httpx.WriteJSON(w, http.StatusOK, h.toResponse(updated))
}

// DeleteLink handles DELETE requests.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	code := r.PathValue("code")
	if err := h.service.Delete(ctx, code); err != nil {
		h.writeServiceError(ctx, w, err, "delete link")
		return
	}

	logger.InfoContext(ctx, "link deleted", "code", code)

	w.WriteHeader(http.StatusNoContent)
}

// SearchLinks handles GET requests listing links for an original URL,
// most recent first.
func (h *Handler) SearchLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	originalURL := r.URL.Query().Get("original_url")
	links, err := h.service.Search(ctx, originalURL)
	if err != nil {
		h.writeServiceError(ctx, w, err, "search links")
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.toResponse(l))
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

// ExpiredHistory handles GET requests paging through archived expired links.
func (h *Handler) ExpiredHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	archived, err := h.service.ExpiredHistory(ctx, limit, offset)
	if err != nil {
		h.writeServiceError(ctx, w, err, "expired history")
		return
	}

	out := make([]ArchivedLinkResponse, 0, len(archived))
	for _, a := range archived {
		out = append(out, ArchivedLinkResponse{
			Seq:       a.Seq,
			Link:      h.toResponse(a.Link),
			ExpiredAt: a.ExpiredAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// writeServiceError maps a service error onto an HTTP response using the
// errx kind, with friendlier messages for the common cases.
func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, action string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "link not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Expired:
		h.logger.InfoContext(ctx, "link expired", logAttrs...)
		httpx.WriteError(w, http.StatusGone, "expired",
			"this short link has expired", nil)

	case errx.Conflict:
		h.logger.WarnContext(ctx, "code conflict", logAttrs...)
		details := map[string]string{
			"hint": "Try a different custom alias or let us generate one for you",
		}
		if !errors.Is(err, ErrAliasTaken) {
			details = nil
		}
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"This alias is already taken", details)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unauthorized:
		h.logger.WarnContext(ctx, "anonymous creation rejected", logAttrs...)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
			"link creation requires an authenticated user", nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, "service unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			fmt.Sprintf("Unable to %s at this time. Please try again.", action), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			fmt.Sprintf("Unable to %s at this time. Please try again.", action), nil)
	}
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
