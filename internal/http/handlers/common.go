package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/http/middleware"
	"github.com/itskum47/KMRL-DocAI/internal/queue"
	"github.com/itskum47/KMRL-DocAI/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

type API struct {
	documents    *service.DocumentsService
	tasks        *service.TasksService
	results      *service.ResultsService
	jobs         queue.Queue
	webhookToken string
	logger       *log.Logger
}

type APIDependencies struct {
	Documents    *service.DocumentsService
	Tasks        *service.TasksService
	Results      *service.ResultsService
	Jobs         queue.Queue
	WebhookToken string
	Logger       *log.Logger
}

func NewAPI(deps APIDependencies) *API {
	return &API{
		documents:    deps.Documents,
		tasks:        deps.Tasks,
		results:      deps.Results,
		jobs:         deps.Jobs,
		webhookToken: deps.WebhookToken,
		logger:       deps.Logger,
	}
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := errorPayload{RequestID: middleware.GetRequestID(r.Context())}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

// writeDomainError maps the service error taxonomy onto HTTP statuses.
// Unrecognized errors are logged with the request id and reported as 500
// without leaking internals.
func (api *API) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "forbidden", "operation not permitted")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, r, http.StatusConflict, "invalid_state", "operation not valid in current state")
	case errors.Is(err, domain.ErrStorageUnavailable):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, http.StatusServiceUnavailable, "storage_unavailable", "object storage unavailable, retry later")
	case errors.Is(err, domain.ErrQueueUnavailable):
		w.Header().Set("Retry-After", "5")
		writeError(w, r, http.StatusServiceUnavailable, "queue_unavailable", "job queue unavailable, retry later")
	case errors.Is(err, domain.ErrMalformedCallback):
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "malformed payload")
	default:
		if api.logger != nil {
			api.logger.Printf(
				"request failed request_id=%s path=%s err=%v",
				middleware.GetRequestID(r.Context()), r.URL.Path, err,
			)
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

// requireUser fetches the verified actor injected by the auth middleware.
func requireUser(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
		return domain.User{}, false
	}
	return user, true
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}

func parseOptionalDateTime(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, errInvalidPayload
	}
	return &parsed, nil
}
