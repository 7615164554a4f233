package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDocumentsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresDocumentsRepository(pool *pgxpool.Pool) *PostgresDocumentsRepository {
	return &PostgresDocumentsRepository{pool: pool}
}

const documentColumns = `id, uploader_id, file_name, storage_key, content_type, doc_type, language,
	status, ocr_text, summary_text, summary_bilingual, metadata,
	department_suggested, department_assigned, processing_metadata, created_at, updated_at`

func (r *PostgresDocumentsRepository) Create(ctx context.Context, document *domain.Document) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		document.ID,
		document.UploaderID,
		document.FileName,
		document.StorageKey,
		document.ContentType,
		string(document.DocType),
		document.Language,
		string(document.Status),
		document.OCRText,
		document.SummaryText,
		encodeJSON(document.SummaryBilingual),
		encodeJSON(document.Metadata),
		document.DepartmentSuggested,
		document.DepartmentAssigned,
		encodeJSON(document.ProcessingMetadata),
		document.CreatedAt,
		document.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *PostgresDocumentsRepository) Get(ctx context.Context, id string) (*domain.Document, error) {
	return r.getWhere(ctx, "WHERE id = $1", id)
}

func (r *PostgresDocumentsRepository) GetForUploader(ctx context.Context, id, uploaderID string) (*domain.Document, error) {
	return r.getWhere(ctx, "WHERE id = $1 AND uploader_id = $2", id, uploaderID)
}

func (r *PostgresDocumentsRepository) getWhere(ctx context.Context, where string, args ...any) (*domain.Document, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+documentColumns+" FROM documents "+where, args...)
	document, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query document: %w", err)
	}
	return document, nil
}

func (r *PostgresDocumentsRepository) SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if command.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentsRepository) ApplyResult(ctx context.Context, id string, result domain.ProcessingResult) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2,
			ocr_text = $3,
			summary_text = $4,
			summary_bilingual = $5,
			metadata = $6,
			department_suggested = $7,
			processing_metadata = $8,
			updated_at = $9
		WHERE id = $1
	`,
		id,
		string(domain.DocumentStatusProcessed),
		result.OCRText,
		result.SummaryText,
		encodeJSON(result.SummaryBilingual),
		encodeJSON(result.Metadata),
		result.DepartmentSuggested,
		encodeJSON(result.ProcessingMetadata),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("apply document result: %w", err)
	}
	if command.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentsRepository) MarkFailed(ctx context.Context, id, errorDetail string) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE documents
		SET status = $2, processing_metadata = $3, updated_at = $4
		WHERE id = $1
	`,
		id,
		string(domain.DocumentStatusFailed),
		encodeJSON(map[string]any{"error": errorDetail}),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark document failed: %w", err)
	}
	if command.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresDocumentsRepository) List(
	ctx context.Context,
	filter domain.DocumentFilter,
) ([]domain.Document, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	baseQuery, args := buildDocumentFilters(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT `+documentColumns+`
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		baseQuery,
		len(args)+1,
		len(args)+2,
	)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Document, 0)
	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, *document)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate documents: %w", rows.Err())
	}
	return items, total, nil
}

func buildDocumentFilters(filter domain.DocumentFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM documents WHERE 1=1")

	args := make([]any, 0, 4)
	argIndex := 1

	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	if filter.DocType != "" {
		query.WriteString(fmt.Sprintf(" AND doc_type = $%d", argIndex))
		args = append(args, string(filter.DocType))
		argIndex++
	}
	if filter.Department != "" {
		query.WriteString(fmt.Sprintf(" AND department_assigned = $%d", argIndex))
		args = append(args, filter.Department)
		argIndex++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query.WriteString(fmt.Sprintf(
			" AND (file_name ILIKE '%%' || $%d || '%%' OR ocr_text ILIKE '%%' || $%d || '%%' OR summary_text ILIKE '%%' || $%d || '%%')",
			argIndex, argIndex, argIndex,
		))
		args = append(args, search)
		argIndex++
	}

	return query.String(), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		document          domain.Document
		docType           string
		status            string
		summaryBilingual  []byte
		metadata          []byte
		processingDetails []byte
	)
	err := row.Scan(
		&document.ID,
		&document.UploaderID,
		&document.FileName,
		&document.StorageKey,
		&document.ContentType,
		&docType,
		&document.Language,
		&status,
		&document.OCRText,
		&document.SummaryText,
		&summaryBilingual,
		&metadata,
		&document.DepartmentSuggested,
		&document.DepartmentAssigned,
		&processingDetails,
		&document.CreatedAt,
		&document.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	document.DocType = domain.DocType(docType)
	document.Status = domain.DocumentStatus(status)
	document.SummaryBilingual = decodeStringMap(summaryBilingual)
	document.Metadata = decodeAnyMap(metadata)
	document.ProcessingMetadata = decodeAnyMap(processingDetails)
	return &document, nil
}

func encodeJSON(value any) []byte {
	if value == nil {
		return []byte("{}")
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return []byte("{}")
	}
	return encoded
}

func decodeStringMap(raw []byte) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil || len(decoded) == 0 {
		return nil
	}
	return decoded
}

func decodeAnyMap(raw []byte) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil || len(decoded) == 0 {
		return nil
	}
	return decoded
}
