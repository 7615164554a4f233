package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/audit"
	httpserver "github.com/itskum47/KMRL-DocAI/internal/http"
	"github.com/itskum47/KMRL-DocAI/internal/http/handlers"
	"github.com/itskum47/KMRL-DocAI/internal/identity"
	"github.com/itskum47/KMRL-DocAI/internal/queue"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
	"github.com/itskum47/KMRL-DocAI/internal/service"
	"github.com/itskum47/KMRL-DocAI/internal/storage"
)

const (
	uploaderToken = "token-uploader"
	adminToken    = "token-admin"
	engineerToken = "token-engineer"
	webhookSecret = "integration-webhook-secret"
)

func startIntegrationRuntime(t *testing.T) *httptest.Server {
	t.Helper()

	logger := log.New(io.Discard, "", 0)
	documents := repository.NewMemoryDocumentsRepository()
	tasks := repository.NewMemoryTasksRepository()
	audits := repository.NewMemoryAuditRepository()
	jobQueue := queue.NewMemoryQueue(64, time.Hour)
	recorder := audit.NewRecorder(audits, logger)

	documentsService := service.NewDocumentsService(service.DocumentsDependencies{
		Documents: documents,
		Jobs:      jobQueue,
		Gateway:   storage.NewLocalGateway("", ""),
		Recorder:  recorder,
		Logger:    logger,
	})
	tasksService := service.NewTasksService(tasks, recorder)
	resultsService := service.NewResultsService(documents, tasks, recorder, logger)

	api := handlers.NewAPI(handlers.APIDependencies{
		Documents:    documentsService,
		Tasks:        tasksService,
		Results:      resultsService,
		Jobs:         jobQueue,
		WebhookToken: webhookSecret,
		Logger:       logger,
	})
	router := httpserver.NewRouter(httpserver.RouterDependencies{
		API:    api,
		Logger: logger,
		Verifier: identity.NewStaticVerifier([]string{
			uploaderToken + "=user-1:staff:engineering",
			adminToken + "=admin-1:admin:",
			engineerToken + "=eng-1:engineer:engineering",
		}),
		RateLimitRPS:   20000,
		RateLimitBurst: 20000,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func doJSON(
	t *testing.T,
	client *http.Client,
	method, url string,
	payload any,
	headers map[string]string,
) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("execute request: %v", err)
	}
	defer response.Body.Close()

	raw, _ := io.ReadAll(response.Body)
	if len(raw) == 0 {
		return response.StatusCode, map[string]any{}
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode response body (%d): %s", response.StatusCode, string(raw))
	}
	return response.StatusCode, decoded
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestDocumentPipelineEndToEnd(t *testing.T) {
	server := startIntegrationRuntime(t)
	client := server.Client()
	baseURL := server.URL

	// Presign as the uploading user.
	presignStatus, presignBody := doJSON(t, client, http.MethodPost, baseURL+"/v1/documents/presign", map[string]any{
		"file_name":    "tender-notice.pdf",
		"content_type": "application/pdf",
		"doc_type":     "circular",
	}, bearer(uploaderToken))
	if presignStatus != http.StatusCreated {
		t.Fatalf("expected 201 from presign, got %d body=%+v", presignStatus, presignBody)
	}
	documentID, _ := presignBody["document_id"].(string)
	if strings.TrimSpace(documentID) == "" {
		t.Fatalf("expected document id, got %+v", presignBody)
	}
	if uploadURL, _ := presignBody["upload_url"].(string); uploadURL == "" {
		t.Fatalf("expected upload url, got %+v", presignBody)
	}

	// Finalize moves the document to processing and enqueues exactly one job.
	finalizeStatus, finalizeBody := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/documents/%s/finalize", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if finalizeStatus != http.StatusAccepted {
		t.Fatalf("expected 202 from finalize, got %d body=%+v", finalizeStatus, finalizeBody)
	}
	jobID, _ := finalizeBody["job_id"].(string)
	if strings.TrimSpace(jobID) == "" {
		t.Fatalf("expected job id, got %+v", finalizeBody)
	}

	jobStatus, jobBody := doJSON(
		t, client, http.MethodGet,
		fmt.Sprintf("%s/v1/jobs/%s", baseURL, jobID),
		nil, bearer(uploaderToken),
	)
	if jobStatus != http.StatusOK || jobBody["status"] != "queued" {
		t.Fatalf("expected queued job, got %d body=%+v", jobStatus, jobBody)
	}

	// Finalizing again conflicts: the document already left uploaded.
	conflictStatus, conflictBody := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/documents/%s/finalize", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if conflictStatus != http.StatusConflict {
		t.Fatalf("expected 409 from second finalize, got %d body=%+v", conflictStatus, conflictBody)
	}

	// The worker reports completion through the webhook.
	callback := map[string]any{
		"job_id":      jobID,
		"document_id": documentID,
		"status":      "completed",
		"result": map[string]any{
			"ocr_text":             "Tender notice for corridor maintenance.",
			"summary_text":         "Corridor maintenance tender, bids due next month.",
			"department_suggested": "engineering",
			"tasks": []map[string]any{
				{"title": "Prepare bid evaluation sheet", "assigned_department": "engineering"},
				{"title": "Notify vendors", "assigned_to": "eng-1"},
			},
		},
	}
	webhookStatus, webhookBody := doJSON(
		t, client, http.MethodPost, baseURL+"/v1/webhooks/processing",
		callback, map[string]string{"X-Webhook-Token": webhookSecret},
	)
	if webhookStatus != http.StatusOK {
		t.Fatalf("expected 200 from webhook, got %d body=%+v", webhookStatus, webhookBody)
	}

	// Document is processed with extraction fields and a fresh download URL.
	documentStatus, documentBody := doJSON(
		t, client, http.MethodGet,
		fmt.Sprintf("%s/v1/documents/%s", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if documentStatus != http.StatusOK {
		t.Fatalf("expected 200 from document get, got %d body=%+v", documentStatus, documentBody)
	}
	if documentBody["status"] != "processed" {
		t.Fatalf("expected processed document, got %+v", documentBody)
	}
	if documentBody["ocr_text"] != "Tender notice for corridor maintenance." {
		t.Fatalf("unexpected ocr text: %+v", documentBody["ocr_text"])
	}
	if downloadURL, _ := documentBody["download_url"].(string); downloadURL == "" {
		t.Fatalf("expected download url, got %+v", documentBody)
	}

	// Redelivering the same callback is harmless.
	replayStatus, _ := doJSON(
		t, client, http.MethodPost, baseURL+"/v1/webhooks/processing",
		callback, map[string]string{"X-Webhook-Token": webhookSecret},
	)
	if replayStatus != http.StatusOK {
		t.Fatalf("expected 200 from webhook replay, got %d", replayStatus)
	}

	// The engineer sees both spawned tasks, and no duplicates from the replay.
	tasksStatus, tasksBody := doJSON(
		t, client, http.MethodGet, baseURL+"/v1/tasks",
		nil, bearer(engineerToken),
	)
	if tasksStatus != http.StatusOK {
		t.Fatalf("expected 200 from task list, got %d body=%+v", tasksStatus, tasksBody)
	}
	taskItems, _ := tasksBody["tasks"].([]any)
	if len(taskItems) != 2 {
		t.Fatalf("expected 2 tasks, got %+v", tasksBody)
	}

	var departmentTaskID, assignedTaskID string
	for _, item := range taskItems {
		task, _ := item.(map[string]any)
		if task["assigned_to"] == "eng-1" {
			assignedTaskID, _ = task["id"].(string)
		} else {
			departmentTaskID, _ = task["id"].(string)
		}
	}
	if departmentTaskID == "" || assignedTaskID == "" {
		t.Fatalf("expected one department task and one assigned task, got %+v", taskItems)
	}

	// Acknowledge, then close. Closing the department task needs an elevated
	// role; closing the assigned task works for its assignee.
	ackStatus, ackBody := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/tasks/%s/acknowledge", baseURL, departmentTaskID),
		nil, bearer(engineerToken),
	)
	if ackStatus != http.StatusOK || ackBody["status"] != "acknowledged" {
		t.Fatalf("expected acknowledged task, got %d body=%+v", ackStatus, ackBody)
	}

	forbiddenStatus, _ := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/tasks/%s/close", baseURL, departmentTaskID),
		nil, bearer(engineerToken),
	)
	if forbiddenStatus != http.StatusForbidden {
		t.Fatalf("expected 403 closing unassigned task, got %d", forbiddenStatus)
	}

	closeStatus, closeBody := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/tasks/%s/close", baseURL, departmentTaskID),
		nil, bearer(adminToken),
	)
	if closeStatus != http.StatusOK || closeBody["status"] != "closed" {
		t.Fatalf("expected closed task, got %d body=%+v", closeStatus, closeBody)
	}

	assigneeCloseStatus, _ := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/tasks/%s/close", baseURL, assignedTaskID),
		nil, bearer(engineerToken),
	)
	if assigneeCloseStatus != http.StatusOK {
		t.Fatalf("expected 200 closing own task, got %d", assigneeCloseStatus)
	}

	statsStatus, statsBody := doJSON(
		t, client, http.MethodGet, baseURL+"/v1/tasks/stats",
		nil, bearer(adminToken),
	)
	if statsStatus != http.StatusOK {
		t.Fatalf("expected 200 from stats, got %d body=%+v", statsStatus, statsBody)
	}
	if total, _ := statsBody["total"].(float64); total != 2 {
		t.Fatalf("expected 2 total tasks in stats, got %+v", statsBody)
	}
	if closed, _ := statsBody["closed"].(float64); closed != 2 {
		t.Fatalf("expected 2 closed tasks in stats, got %+v", statsBody)
	}

	// Reprocess is admin only and re-runs even processed documents.
	reprocessForbidden, _ := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/documents/%s/reprocess", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if reprocessForbidden != http.StatusForbidden {
		t.Fatalf("expected 403 from non-admin reprocess, got %d", reprocessForbidden)
	}

	reprocessStatus, reprocessBody := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/documents/%s/reprocess", baseURL, documentID),
		nil, bearer(adminToken),
	)
	if reprocessStatus != http.StatusAccepted {
		t.Fatalf("expected 202 from admin reprocess, got %d body=%+v", reprocessStatus, reprocessBody)
	}
}

func TestWorkerFailureSurfacesOnDocument(t *testing.T) {
	server := startIntegrationRuntime(t)
	client := server.Client()
	baseURL := server.URL

	_, presignBody := doJSON(t, client, http.MethodPost, baseURL+"/v1/documents/presign", map[string]any{
		"file_name":    "blurry-scan.pdf",
		"content_type": "application/pdf",
	}, bearer(uploaderToken))
	documentID, _ := presignBody["document_id"].(string)

	finalizeStatus, _ := doJSON(
		t, client, http.MethodPost,
		fmt.Sprintf("%s/v1/documents/%s/finalize", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if finalizeStatus != http.StatusAccepted {
		t.Fatalf("expected 202 from finalize, got %d", finalizeStatus)
	}

	webhookStatus, _ := doJSON(
		t, client, http.MethodPost, baseURL+"/v1/webhooks/processing",
		map[string]any{
			"document_id": documentID,
			"status":      "failed",
			"error":       "ocr engine timeout",
		},
		map[string]string{"X-Webhook-Token": webhookSecret},
	)
	if webhookStatus != http.StatusOK {
		t.Fatalf("expected 200 from failure webhook, got %d", webhookStatus)
	}

	documentStatus, documentBody := doJSON(
		t, client, http.MethodGet,
		fmt.Sprintf("%s/v1/documents/%s", baseURL, documentID),
		nil, bearer(uploaderToken),
	)
	if documentStatus != http.StatusOK || documentBody["status"] != "failed" {
		t.Fatalf("expected failed document, got %d body=%+v", documentStatus, documentBody)
	}
	metadata, _ := documentBody["processing_metadata"].(map[string]any)
	if metadata["error"] != "ocr engine timeout" {
		t.Fatalf("expected error detail in processing metadata, got %+v", documentBody)
	}
}

func TestAuthIsRequiredOnAPIRoutes(t *testing.T) {
	server := startIntegrationRuntime(t)
	client := server.Client()
	baseURL := server.URL

	status, _ := doJSON(t, client, http.MethodGet, baseURL+"/v1/documents", nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without bearer token, got %d", status)
	}

	status, _ = doJSON(t, client, http.MethodGet, baseURL+"/v1/documents", nil, bearer("bogus"))
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 with unknown token, got %d", status)
	}

	status, _ = doJSON(t, client, http.MethodGet, baseURL+"/healthz", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("expected open health endpoint, got %d", status)
	}

	webhookStatus, _ := doJSON(t, client, http.MethodPost, baseURL+"/v1/webhooks/processing",
		map[string]any{"document_id": "doc-1", "status": "failed", "error": "x"}, nil)
	if webhookStatus != http.StatusUnauthorized {
		t.Fatalf("expected 401 webhook without shared secret, got %d", webhookStatus)
	}
}
