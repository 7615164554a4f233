package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/service"
)

type createTaskRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description,omitempty"`
	DocumentID         string `json:"document_id,omitempty"`
	AssignedTo         string `json:"assigned_to,omitempty"`
	AssignedDepartment string `json:"assigned_department,omitempty"`
	DueDate            string `json:"due_date,omitempty"`
}

func (api *API) Tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.createTask(w, r)
	case http.MethodGet:
		api.listTasks(w, r)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) createTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var request createTaskRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	request.Title = strings.TrimSpace(request.Title)
	if request.Title == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "title is required")
		return
	}
	dueDate, err := parseOptionalDateTime(request.DueDate)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "due_date must be RFC 3339")
		return
	}

	task, err := api.tasks.Create(r.Context(), actor, service.CreateTaskInput{
		Title:              request.Title,
		Description:        request.Description,
		DocumentID:         request.DocumentID,
		AssignedTo:         request.AssignedTo,
		AssignedDepartment: request.AssignedDepartment,
		DueDate:            dueDate,
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (api *API) listTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := domain.TaskFilter{
		Status:     domain.TaskStatus(query.Get("status")),
		Department: query.Get("department"),
		AssignedTo: query.Get("assigned_to"),
		DocumentID: query.Get("document_id"),
		Search:     query.Get("search"),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.PageSize, _ = strconv.Atoi(query.Get("page_size"))

	tasks, total, err := api.tasks.List(r.Context(), actor, filter)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": total,
	})
}

// TaskByID dispatches /v1/tasks/stats plus /v1/tasks/{id} and its
// acknowledge and close sub-resources.
func (api *API) TaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/tasks/")
	taskID, action, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if taskID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "task id is required")
		return
	}
	if taskID == "stats" && action == "" {
		api.taskStats(w, r)
		return
	}

	switch action {
	case "":
		api.getTask(w, r, taskID)
	case "acknowledge":
		api.acknowledgeTask(w, r, taskID)
	case "close":
		api.closeTask(w, r, taskID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	}
}

func (api *API) taskStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	stats, err := api.tasks.Stats(r.Context(), actor)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (api *API) getTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	task, err := api.tasks.Get(r.Context(), actor, taskID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (api *API) acknowledgeTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	task, err := api.tasks.Acknowledge(r.Context(), actor, taskID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (api *API) closeTask(w http.ResponseWriter, r *http.Request, taskID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	task, err := api.tasks.Close(r.Context(), actor, taskID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
