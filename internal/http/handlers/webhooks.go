package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/http/middleware"
)

// ProcessingWebhook ingests completion callbacks from the processing worker.
// The worker redelivers on non-2xx, so only genuinely malformed payloads are
// rejected with 400; transient internal failures are logged and acked with
// 200 to stop the redelivery loop, leaving recovery to manual reprocess.
func (api *API) ProcessingWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if api.webhookToken != "" && r.Header.Get("X-Webhook-Token") != api.webhookToken {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "invalid webhook token")
		return
	}

	// Workers may add fields over time; unknown fields are not an error here.
	var callback domain.CompletionCallback
	if err := json.NewDecoder(r.Body).Decode(&callback); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "malformed callback body")
		return
	}

	if err := api.results.Apply(r.Context(), callback); err != nil {
		if errors.Is(err, domain.ErrMalformedCallback) {
			writeError(w, r, http.StatusBadRequest, "invalid_payload", "malformed callback")
			return
		}
		if api.logger != nil {
			api.logger.Printf(
				"callback ingestion failed request_id=%s document_id=%s job_id=%s err=%v",
				middleware.GetRequestID(r.Context()), callback.DocumentID, callback.JobID, err,
			)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
}
