package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/catalog-feed/internal/feed"
	"github.com/rickgao/catalog-feed/internal/model"
	"github.com/rickgao/catalog-feed/internal/version"
)

// maxBodyBytes bounds POST bodies.
const maxBodyBytes = 1 << 20

// FeedService serves feed pages.
type FeedService interface {
	Get(ctx context.Context, req feed.Request) (*model.FeedPage, error)
}

// Intake accepts item changes without blocking on storage.
type Intake interface {
	Submit(itemIDs ...int64) error
	Pending() int
}

// StoreLister lists known channels.
type StoreLister interface {
	AllStores() []model.Store
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the dependencies of the HTTP handlers.
type App struct {
	Feed        FeedService
	Intake      Intake
	Stores      StoreLister
	Verifier    Verifier     // nil disables request signing
	DB          Pinger       // nil skips the database health check
	Metrics     http.Handler // nil disables the metrics route
	MetricsPath string       // default /metrics
	Logger      *slog.Logger

	started time.Time
}

// NewApp creates an App. A nil logger uses slog.Default().
func NewApp(f FeedService, in Intake, stores StoreLister, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		Feed:    f,
		Intake:  in,
		Stores:  stores,
		Logger:  logger,
		started: time.Now(),
	}
}

type acceptResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Accepted  int    `json:"accepted"`
	Pending   int    `json:"pending"`
}

type appendRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

func (a *App) getDeltasHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseFeedRequest(r.URL.Query())
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	page, err := a.Feed.Get(r.Context(), req)
	if err != nil {
		status, code := errorResponse(err)
		if status >= http.StatusInternalServerError {
			a.Logger.Error("feed request failed",
				"error", err,
				"since_id", req.SinceID,
				"page", req.Page,
				"request_id", RequestIDFromContext(r.Context()),
			)
		}
		WriteJSONError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (a *App) postDeltasHandler(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return
	}

	var body appendRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if len(body.ItemIDs) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "item_ids is required")
		return
	}
	for _, id := range body.ItemIDs {
		if id <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid item id %d", id))
			return
		}
	}

	if err := a.Intake.Submit(body.ItemIDs...); err != nil {
		status, code := errorResponse(err)
		WriteJSONError(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, acceptResponse{
		Status:    "accepted",
		RequestID: RequestIDFromContext(r.Context()),
		Accepted:  len(body.ItemIDs),
		Pending:   a.Intake.Pending(),
	})
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if a.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			a.Logger.Warn("health check failed", "error", err)
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    version.Get(),
		"uptime_sec": time.Since(a.started).Seconds(),
	})
}

func (a *App) channelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"stores": a.Stores.AllStores(),
	})
}

// parseFeedRequest reads page, page_size, store_id, since_id and max_id.
// Range checks are left to the coordinator.
func parseFeedRequest(q url.Values) (feed.Request, error) {
	req := feed.Request{Page: 1}

	var err error
	if v := q.Get("page"); v != "" {
		if req.Page, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("page: not an integer: %q", v)
		}
	}
	if v := q.Get("page_size"); v != "" {
		if req.PageSize, err = strconv.Atoi(v); err != nil {
			return req, fmt.Errorf("page_size: not an integer: %q", v)
		}
	}
	if v := q.Get("since_id"); v != "" {
		if req.SinceID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return req, fmt.Errorf("since_id: not an integer: %q", v)
		}
	}
	if v := q.Get("max_id"); v != "" {
		maxID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("max_id: not an integer: %q", v)
		}
		req.MaxID = &maxID
	}
	if v := q.Get("store_id"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return req, fmt.Errorf("store_id: not an integer: %q", part)
			}
			req.StoreIDs = append(req.StoreIDs, id)
		}
	}
	return req, nil
}
