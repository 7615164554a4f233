package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// JobStatus reports the queue-side view of a job. Status keys expire, so an
// aged-out job reads as unknown rather than failed.
func (api *API) JobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if _, ok := requireUser(w, r); !ok {
		return
	}

	jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/jobs/"), "/")
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job id is required")
		return
	}

	status, found, err := api.jobs.Status(r.Context(), jobID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}

	response := map[string]any{"job_id": jobID}
	if !found {
		response["status"] = "unknown"
		writeJSON(w, http.StatusOK, response)
		return
	}
	response["status"] = status

	if status == domain.JobStatusCompleted || status == domain.JobStatusFailed {
		result, resultFound, err := api.jobs.Result(r.Context(), jobID)
		if err != nil {
			api.writeDomainError(w, r, err)
			return
		}
		if resultFound {
			response["result"] = jsonRawOrFallback(result)
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func jsonRawOrFallback(value []byte) any {
	var decoded any
	if err := json.Unmarshal(value, &decoded); err == nil {
		return decoded
	}
	return string(value)
}
