package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"file-reaper/internal/database"
	"file-reaper/internal/limiter"
)

// Reaper is the deletion surface the API drives
type Reaper interface {
	DeleteImmediately(path string)
	DeleteWithDelay(path string, delaySeconds float64)
	DeleteMultipleWithDelay(paths []string, delaySeconds float64)
	Pending() int64
}

// History lists recorded deletion outcomes
type History interface {
	GetRecentDeletionsPaginated(action string, limit, offset int) ([]database.DeletionRecord, int, error)
}

// DeleteRequest asks for one or more files to be deleted
type DeleteRequest struct {
	Paths        []string `json:"paths"`
	DelaySeconds float64  `json:"delay_seconds"`
}

// DeleteResponse acknowledges a request. Outcomes are never reported here.
type DeleteResponse struct {
	Scheduled int    `json:"scheduled"`
	Mode      string `json:"mode"`
}

// ErrorResponse represents error message
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

type DeletionsResponse struct {
	Deletions []database.DeletionRecord `json:"deletions"`
	Total     int                       `json:"total"`
	Limit     int                       `json:"limit"`
	Offset    int                       `json:"offset"`
}

const (
	apiPrefix       = "/api/v1"
	defaultPageSize = 50
	maxPageSize     = 1000
)

var (
	errNoPaths       = errors.New("paths must not be empty")
	errEmptyPath     = errors.New("paths must not contain empty strings")
	errInvalidDelay  = errors.New("delay_seconds must be a finite non-negative number")
	errInvalidLimit  = errors.New("limit must be a positive integer")
	errInvalidOffset = errors.New("offset must be a non-negative integer")
	errUnknownAction = errors.New("action must be one of DELETE, NOT_FOUND, ERROR")
)

type Options struct {
	Reaper       Reaper
	History      History // nil disables /deletions
	Limiter      *limiter.ClientLimiter
	MaxBodyBytes int64
	Logger       zerolog.Logger
}

// NewRouter builds the control API rooted at /api/v1
func NewRouter(opts Options) *mux.Router {
	router := mux.NewRouter()

	router.Use(LoggingMiddleware(opts.Logger))
	router.Use(MetricsMiddleware)
	if opts.MaxBodyBytes > 0 {
		router.Use(BodyLimitMiddleware(opts.MaxBodyBytes))
	}
	if opts.Limiter != nil {
		router.Use(RateLimitMiddleware(opts.Limiter))
	}

	// Full paths on the root router: a subrouter turns a method mismatch into 404.
	router.HandleFunc(apiPrefix+"/health", healthHandler(opts.Reaper)).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc(apiPrefix+"/delete", deleteHandler(opts.Reaper)).Methods(http.MethodPost)
	router.HandleFunc(apiPrefix+"/deletions", deletionsHandler(opts.History)).Methods(http.MethodGet)

	return router
}

func healthHandler(reaper Reaper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"pending": reaper.Pending(),
		})
	}
}

func deleteHandler(reaper Reaper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req DeleteRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			respondError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := req.validate(); err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}

		mode := dispatch(reaper, req)
		respondJSON(w, http.StatusAccepted, DeleteResponse{Scheduled: len(req.Paths), Mode: mode})
	}
}

func (req DeleteRequest) validate() error {
	if len(req.Paths) == 0 {
		return errNoPaths
	}
	for _, p := range req.Paths {
		if p == "" {
			return errEmptyPath
		}
	}
	if req.DelaySeconds < 0 || math.IsNaN(req.DelaySeconds) || math.IsInf(req.DelaySeconds, 0) {
		return errInvalidDelay
	}
	return nil
}

// dispatch picks the reaper operation matching the request shape
func dispatch(reaper Reaper, req DeleteRequest) string {
	switch {
	case len(req.Paths) > 1:
		reaper.DeleteMultipleWithDelay(req.Paths, req.DelaySeconds)
		return "batch"
	case req.DelaySeconds > 0:
		reaper.DeleteWithDelay(req.Paths[0], req.DelaySeconds)
		return "delayed"
	default:
		reaper.DeleteImmediately(req.Paths[0])
		return "immediate"
	}
}

func deletionsHandler(history History) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			respondError(w, "deletion history is disabled", http.StatusServiceUnavailable)
			return
		}

		q := r.URL.Query()

		limit := defaultPageSize
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				respondError(w, errInvalidLimit.Error(), http.StatusBadRequest)
				return
			}
			limit = min(n, maxPageSize)
		}

		offset := 0
		if v := q.Get("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				respondError(w, errInvalidOffset.Error(), http.StatusBadRequest)
				return
			}
			offset = n
		}

		action := q.Get("action")
		switch action {
		case "", "DELETE", "NOT_FOUND", "ERROR":
		default:
			respondError(w, errUnknownAction.Error(), http.StatusBadRequest)
			return
		}

		records, total, err := history.GetRecentDeletionsPaginated(action, limit, offset)
		if err != nil {
			respondError(w, "failed to query deletion history", http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []database.DeletionRecord{}
		}

		respondJSON(w, http.StatusOK, DeletionsResponse{
			Deletions: records,
			Total:     total,
			Limit:     limit,
			Offset:    offset,
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, message string, code int) {
	respondJSON(w, code, ErrorResponse{Error: message, Code: code})
}
