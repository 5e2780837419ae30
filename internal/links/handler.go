package links

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sundayezeilo/tinylink/internal/errx"
	"github.com/sundayezeilo/tinylink/internal/httpx"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL  string `json:"url" validate:"required"`
	Code string `json:"code,omitempty"`
}

// LinkResponse is the JSON shape of a link.
type LinkResponse struct {
	Code        string     `json:"code"`
	TargetURL   string     `json:"target_url"`
	TotalClicks int64      `json:"total_clicks"`
	LastClicked *time.Time `json:"last_clicked"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toResponse(l Link) LinkResponse {
	return LinkResponse{
		Code:        l.Code,
		TargetURL:   l.TargetURL,
		TotalClicks: l.TotalClicks,
		LastClicked: l.LastClicked,
		CreatedAt:   l.CreatedAt,
	}
}

// Handler provides HTTP handlers for the link API and redirects.
type Handler struct {
	service Service
	clicks  *ClickRecorder
	logger  *slog.Logger
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Clicks  *ClickRecorder // defaults to a recorder over Service
	Logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clicks := cfg.Clicks
	if clicks == nil {
		clicks = NewClickRecorder(ClickRecorderConfig{Tracker: cfg.Service, Logger: logger})
	}

	return &Handler{
		service: cfg.Service,
		clicks:  clicks,
		logger:  logger,
	}
}

// CreateLink handles POST /api/links.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	link, err := h.service.Create(ctx, CreateLinkRequest{URL: req.URL, Code: req.Code})
	if err != nil {
		h.writeError(ctx, w, err, "code", req.Code, "url", req.URL)
		return
	}

	logger.InfoContext(ctx, "link created",
		"code", link.Code,
		"custom_code", req.Code != "",
	)

	httpx.WriteJSON(w, http.StatusCreated, toResponse(link))
}

// ListLinks handles GET /api/links?search=.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	search := r.URL.Query().Get("search")

	list, err := h.service.List(ctx, search)
	if err != nil {
		h.writeError(ctx, w, err, "search", search)
		return
	}

	resp := make([]LinkResponse, 0, len(list))
	for _, l := range list {
		resp = append(resp, toResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// GetLink handles GET /api/links/{code}.
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	link, err := h.service.Get(ctx, code)
	if err != nil {
		h.writeError(ctx, w, err, "code", code)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(link))
}

// DeleteLink handles DELETE /api/links/{code}.
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	if err := h.service.Delete(ctx, code); err != nil {
		h.writeError(ctx, w, err, "code", code)
		return
	}

	h.requestLogger(r).InfoContext(ctx, "link deleted", "code", code)
	httpx.NoContent(w)
}

// Redirect handles GET /{code} and GET /api/redirect/{code}. The click is counted
// in the background; the 302 never waits for it.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	if IsReserved(code) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "short link doesn't exist", nil)
		return
	}

	link, err := h.service.Get(ctx, code)
	if err != nil {
		h.writeError(ctx, w, err, "code", code)
		return
	}

	h.clicks.Record(ctx, link.Code)

	http.Redirect(w, r, link.TargetURL, http.StatusFound)
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

// writeError logs err and writes the response for its kind. Only Invalid errors
// echo their cause; everything else gets a fixed message.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error, attrs ...any) {
	kind := errx.KindOf(err)

	logAttrs := append([]any{
		"request_id", httpx.GetRequestID(ctx),
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}, attrs...)

	status := httpx.ErrorKindToStatus(kind)
	code := httpx.ErrorKindToCode(kind)

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid link request", logAttrs...)
		httpx.WriteError(w, status, code, errx.Cause(err).Error(), nil)

	case errx.Conflict:
		h.logger.WarnContext(ctx, "code conflict", logAttrs...)
		httpx.WriteError(w, status, code, "This code is already taken",
			map[string]string{
				"hint": "Try a different custom code or let us generate one for you",
			})

	case errx.NotFound:
		h.logger.InfoContext(ctx, "link not found", logAttrs...)
		httpx.WriteError(w, status, code, "short link doesn't exist", nil)

	case errx.Exhausted:
		h.logger.ErrorContext(ctx, "code allocation exhausted", logAttrs...)
		httpx.WriteError(w, status, code,
			"Unable to create short link at this time. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, "link operation failed", logAttrs...)
		httpx.WriteError(w, status, code, "internal server error", nil)
	}
}
