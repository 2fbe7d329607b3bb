package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/ggitteam/salesops/internal/model"
)

// Batch sizes for the chunked import and the chunked item fetch. Imports are
// split into sequential requests to bound payload size and allow progress
// reporting; a failed chunk aborts the rest of the import.
const (
	rowChunkSize  = 500
	itemChunkSize = 1000
	rowPageSize   = 1000
	rowHardLimit  = 25000
)

// Progress reports chunked import advancement to the operator.
type Progress func(done, total int)

// SalesRepository wraps all SQL used throughout the API, worker and CLI.
type SalesRepository struct {
	pool *pgxpool.Pool
}

// NewSalesRepository constructs a repository.
func NewSalesRepository(pool *pgxpool.Pool) *SalesRepository {
	return &SalesRepository{pool: pool}
}

// CreateUpload inserts a queued upload batch before the import begins.
func (r *SalesRepository) CreateUpload(ctx context.Context, filename string, rowCount int) (*model.Upload, error) {
	now := time.Now().UTC()
	upload := &model.Upload{
		ID:        uuid.NewString(),
		Filename:  filename,
		RowCount:  rowCount,
		Status:    model.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sales_uploads (id, filename, row_count, status, error_message, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, upload.ID, upload.Filename, upload.RowCount, upload.Status, nil, upload.CreatedAt, upload.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert upload: %w", err)
	}
	return upload, nil
}

// GetUpload returns an upload batch by id.
func (r *SalesRepository) GetUpload(ctx context.Context, id string) (*model.Upload, error) {
	var (
		upload model.Upload
		errMsg sql.NullString
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, filename, row_count, status, error_message, created_at, updated_at
		FROM sales_uploads WHERE id=$1
	`, id)
	if err := row.Scan(&upload.ID, &upload.Filename, &upload.RowCount, &upload.Status, &errMsg, &upload.CreatedAt, &upload.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("upload not found: %w", err)
		}
		return nil, fmt.Errorf("select upload: %w", err)
	}
	if errMsg.Valid {
		msg := errMsg.String
		upload.ErrorMessage = &msg
	}
	return &upload, nil
}

// MarkProcessing sets the batch status to processing.
func (r *SalesRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.updateUpload(ctx, id, model.StatusProcessing, nil, nil)
}

// MarkFailed marks the import attempt as failed and stores the message.
func (r *SalesRepository) MarkFailed(ctx context.Context, id, msg string) error {
	return r.updateUpload(ctx, id, model.StatusFailed, nil, &msg)
}

// MarkCompleted records the final row count on a finished batch.
func (r *SalesRepository) MarkCompleted(ctx context.Context, id string, rowCount int) error {
	return r.updateUpload(ctx, id, model.StatusCompleted, &rowCount, nil)
}

func (r *SalesRepository) updateUpload(ctx context.Context, id string, status model.UploadStatus, rowCount *int, errMsg *string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		UPDATE sales_uploads
		SET status=$1,
			row_count = COALESCE($2, row_count),
			error_message = $3,
			updated_at=$4
		WHERE id=$5
	`, status, rowCount, errMsg, now, id)
	if err != nil {
		return fmt.Errorf("update upload: %w", err)
	}
	return nil
}

// RecentUploads lists the newest upload batches.
func (r *SalesRepository) RecentUploads(ctx context.Context, limit int) ([]model.Upload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, filename, row_count, status, error_message, created_at, updated_at
		FROM sales_uploads ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select uploads: %w", err)
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		var (
			upload model.Upload
			errMsg sql.NullString
		)
		if err := rows.Scan(&upload.ID, &upload.Filename, &upload.RowCount, &upload.Status, &errMsg, &upload.CreatedAt, &upload.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		if errMsg.Valid {
			msg := errMsg.String
			upload.ErrorMessage = &msg
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

// ImportRows persists a parsed batch in sequential chunks of rowChunkSize
// rows, inserting the line items of each chunk in sub-chunks of
// itemChunkSize. Row ids are generated client-side so items can reference
// their rows without a round trip. The ids of the inserted rows are returned
// in input order. There is no cancellation beyond ctx and no retry: the first
// failed chunk terminates the import.
func (r *SalesRepository) ImportRows(ctx context.Context, uploadID string, rows []model.SaleRow, progress Progress) ([]string, error) {
	ids := make([]string, 0, len(rows))
	for start := 0; start < len(rows); start += rowChunkSize {
		end := start + rowChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		rowValues := make([][]any, 0, len(chunk))
		var itemValues [][]any
		for _, row := range chunk {
			id := uuid.NewString()
			ids = append(ids, id)
			rowValues = append(rowValues, []any{
				id, uploadID, row.TransactedAt.UTC(), row.Depot, row.PSCode, row.AccountType,
				row.BuyerRaw, row.BuyerName, row.BuyerUsername, row.ItemsRaw, row.Amount,
			})
			for _, item := range row.Items {
				itemValues = append(itemValues, []any{id, string(item.ItemType), item.Qty})
			}
		}

		if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"sales_rows"},
			[]string{"id", "upload_id", "transacted_at", "depot", "ps_code", "account_type", "buyer_raw", "buyer_name", "buyer_username", "items_raw", "amount"},
			pgx.CopyFromRows(rowValues)); err != nil {
			return nil, fmt.Errorf("insert rows %d-%d: %w", start+1, end, err)
		}

		for i := 0; i < len(itemValues); i += itemChunkSize {
			j := i + itemChunkSize
			if j > len(itemValues) {
				j = len(itemValues)
			}
			if _, err := r.pool.CopyFrom(ctx, pgx.Identifier{"sales_items"},
				[]string{"row_id", "item_type", "qty"},
				pgx.CopyFromRows(itemValues[i:j])); err != nil {
				return nil, fmt.Errorf("insert items %d-%d: %w", i+1, j, err)
			}
		}

		if progress != nil {
			progress(end, len(rows))
		}
	}
	return ids, nil
}

// ListRows fetches persisted rows ordered newest-first, optionally bounded by
// an inclusive transacted_at range. Results are paged rowPageSize at a time
// and capped at rowHardLimit rows. Zero bounds are open.
func (r *SalesRepository) ListRows(ctx context.Context, from, to time.Time) ([]model.SaleRow, error) {
	query := `
		SELECT id, upload_id, transacted_at, depot, ps_code, account_type, buyer_raw, buyer_name, buyer_username, items_raw, amount
		FROM sales_rows`
	var (
		where []string
		args  []any
	)
	if !from.IsZero() {
		args = append(args, from.UTC())
		where = append(where, fmt.Sprintf("transacted_at >= $%d", len(args)))
	}
	if !to.IsZero() {
		args = append(args, to.UTC())
		where = append(where, fmt.Sprintf("transacted_at <= $%d", len(args)))
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += fmt.Sprintf(" ORDER BY transacted_at DESC LIMIT %d OFFSET $%d", rowPageSize, len(args)+1)

	var out []model.SaleRow
	for offset := 0; offset < rowHardLimit; offset += rowPageSize {
		pageArgs := append(append([]any{}, args...), offset)
		rows, err := r.pool.Query(ctx, query, pageArgs...)
		if err != nil {
			return nil, fmt.Errorf("select rows: %w", err)
		}
		count := 0
		for rows.Next() {
			var row model.SaleRow
			if err := rows.Scan(&row.ID, &row.UploadID, &row.TransactedAt, &row.Depot, &row.PSCode, &row.AccountType,
				&row.BuyerRaw, &row.BuyerName, &row.BuyerUsername, &row.ItemsRaw, &row.Amount); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan row: %w", err)
			}
			out = append(out, row)
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("select rows: %w", err)
		}
		if count < rowPageSize {
			break
		}
	}
	return out, nil
}

// ItemsForRows fetches the persisted line items for the given row ids,
// chunked to bound the IN-list size. A failed chunk is logged and skipped so
// a partial items map still renders; missing entries fall back to re-parsing
// the raw items text downstream.
func (r *SalesRepository) ItemsForRows(ctx context.Context, rowIDs []string) map[string][]model.LineItem {
	itemsByRow := make(map[string][]model.LineItem)
	for start := 0; start < len(rowIDs); start += itemChunkSize {
		end := start + itemChunkSize
		if end > len(rowIDs) {
			end = len(rowIDs)
		}
		rows, err := r.pool.Query(ctx, `
			SELECT row_id, item_type, qty FROM sales_items WHERE row_id = ANY($1)
		`, rowIDs[start:end])
		if err != nil {
			log.Error().Err(err).Int("chunk_start", start).Msg("Failed to load items chunk")
			continue
		}
		if err := scanItems(rows, itemsByRow); err != nil {
			log.Error().Err(err).Int("chunk_start", start).Msg("Failed to scan items chunk")
		}
	}
	return itemsByRow
}

// ItemsForRow fetches the persisted line items of a single row.
func (r *SalesRepository) ItemsForRow(ctx context.Context, rowID string) ([]model.LineItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT row_id, item_type, qty FROM sales_items WHERE row_id = $1
	`, rowID)
	if err != nil {
		return nil, fmt.Errorf("select items: %w", err)
	}
	itemsByRow := make(map[string][]model.LineItem)
	if err := scanItems(rows, itemsByRow); err != nil {
		return nil, err
	}
	return itemsByRow[rowID], nil
}

func scanItems(rows pgx.Rows, itemsByRow map[string][]model.LineItem) error {
	defer rows.Close()
	for rows.Next() {
		var (
			rowID    string
			itemType string
			qty      int
		)
		if err := rows.Scan(&rowID, &itemType, &qty); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		itemsByRow[rowID] = append(itemsByRow[rowID], model.LineItem{ItemType: model.ItemType(itemType), Qty: qty})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read items: %w", err)
	}
	return nil
}
