package domain

import "time"

type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusProcessed  DocumentStatus = "processed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

type DocType string

const (
	DocTypeInvoice     DocType = "invoice"
	DocTypeMaintenance DocType = "maintenance"
	DocTypeCircular    DocType = "circular"
	DocTypeMinutes     DocType = "minutes"
	DocTypeVendor      DocType = "vendor"
)

// ValidDocType reports whether value is one of the known document types.
// The empty string is allowed: classification is optional at upload time.
func ValidDocType(value DocType) bool {
	switch value {
	case "", DocTypeInvoice, DocTypeMaintenance, DocTypeCircular, DocTypeMinutes, DocTypeVendor:
		return true
	default:
		return false
	}
}

// Document is the unit moving through the intake pipeline. Processing fields
// (OCRText, SummaryText, ...) stay empty until a worker result is applied.
type Document struct {
	ID                  string
	UploaderID          string
	FileName            string
	StorageKey          string
	ContentType         string
	DocType             DocType
	Language            string
	Status              DocumentStatus
	OCRText             string
	SummaryText         string
	SummaryBilingual    map[string]string
	Metadata            map[string]any
	DepartmentSuggested string
	DepartmentAssigned  string
	ProcessingMetadata  map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DocumentFilter narrows document listings. Zero values mean "no filter".
type DocumentFilter struct {
	Status     DocumentStatus
	DocType    DocType
	Department string
	Search     string
	Page       int
	PageSize   int
}
