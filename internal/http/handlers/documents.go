package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/service"
)

type presignRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	DocType     string `json:"doc_type,omitempty"`
}

type documentResponse struct {
	ID                  string            `json:"id"`
	UploaderID          string            `json:"uploader_id"`
	FileName            string            `json:"file_name"`
	StorageKey          string            `json:"storage_key"`
	ContentType         string            `json:"content_type"`
	DocType             string            `json:"doc_type,omitempty"`
	Language            string            `json:"language,omitempty"`
	Status              string            `json:"status"`
	OCRText             string            `json:"ocr_text,omitempty"`
	SummaryText         string            `json:"summary_text,omitempty"`
	SummaryBilingual    map[string]string `json:"summary_bilingual,omitempty"`
	Metadata            map[string]any    `json:"metadata,omitempty"`
	DepartmentSuggested string            `json:"department_suggested,omitempty"`
	DepartmentAssigned  string            `json:"department_assigned,omitempty"`
	ProcessingMetadata  map[string]any    `json:"processing_metadata,omitempty"`
	DownloadURL         string            `json:"download_url,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func toDocumentResponse(document domain.Document, downloadURL string) documentResponse {
	return documentResponse{
		ID:                  document.ID,
		UploaderID:          document.UploaderID,
		FileName:            document.FileName,
		StorageKey:          document.StorageKey,
		ContentType:         document.ContentType,
		DocType:             string(document.DocType),
		Language:            document.Language,
		Status:              string(document.Status),
		OCRText:             document.OCRText,
		SummaryText:         document.SummaryText,
		SummaryBilingual:    document.SummaryBilingual,
		Metadata:            document.Metadata,
		DepartmentSuggested: document.DepartmentSuggested,
		DepartmentAssigned:  document.DepartmentAssigned,
		ProcessingMetadata:  document.ProcessingMetadata,
		DownloadURL:         downloadURL,
		CreatedAt:           document.CreatedAt,
		UpdatedAt:           document.UpdatedAt,
	}
}

func (api *API) Presign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	var request presignRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "invalid payload")
		return
	}
	request.FileName = strings.TrimSpace(request.FileName)
	request.ContentType = strings.TrimSpace(request.ContentType)
	if request.FileName == "" || strings.Contains(request.FileName, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "file_name is required and must not contain slashes")
		return
	}
	if request.ContentType == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "content_type is required")
		return
	}
	docType := domain.DocType(request.DocType)
	if !domain.ValidDocType(docType) {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "unknown doc_type")
		return
	}

	output, err := api.documents.Presign(r.Context(), actor, service.PresignInput{
		FileName:    request.FileName,
		ContentType: request.ContentType,
		DocType:     docType,
	})
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, output)
}

func (api *API) Documents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	filter := domain.DocumentFilter{
		Status:     domain.DocumentStatus(query.Get("status")),
		DocType:    domain.DocType(query.Get("doc_type")),
		Department: query.Get("department"),
		Search:     query.Get("search"),
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.PageSize, _ = strconv.Atoi(query.Get("page_size"))

	documents, total, err := api.documents.List(r.Context(), actor, filter)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}

	items := make([]documentResponse, 0, len(documents))
	for _, document := range documents {
		items = append(items, toDocumentResponse(document, ""))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

// DocumentByID dispatches /v1/documents/{id} and its finalize and reprocess
// sub-resources.
func (api *API) DocumentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	documentID, action, _ := strings.Cut(strings.Trim(rest, "/"), "/")
	if documentID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "document id is required")
		return
	}

	switch action {
	case "":
		api.getDocument(w, r, documentID)
	case "finalize":
		api.finalizeDocument(w, r, documentID)
	case "reprocess":
		api.reprocessDocument(w, r, documentID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "resource not found")
	}
}

func (api *API) getDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	view, err := api.documents.Get(r.Context(), actor, documentID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(view.Document, view.DownloadURL))
}

func (api *API) finalizeDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	jobID, err := api.documents.Finalize(r.Context(), actor, documentID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"document_id": documentID,
		"job_id":      jobID,
		"status":      domain.DocumentStatusProcessing,
	})
}

func (api *API) reprocessDocument(w http.ResponseWriter, r *http.Request, documentID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	actor, ok := requireUser(w, r)
	if !ok {
		return
	}

	jobID, err := api.documents.Reprocess(r.Context(), actor, documentID)
	if err != nil {
		api.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"document_id": documentID,
		"job_id":      jobID,
		"status":      domain.DocumentStatusProcessing,
	})
}
