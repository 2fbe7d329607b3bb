package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/ggitteam/salesops/internal/parse"
	"github.com/ggitteam/salesops/internal/queue"
	"github.com/ggitteam/salesops/internal/repository"
	"github.com/ggitteam/salesops/internal/s3storage"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	repo  *repository.SalesRepository
	store *s3storage.Storage
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo *repository.SalesRepository, store *s3storage.Storage) *Processor {
	return &Processor{repo: repo, store: store}
}

// Handler registers the import job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ImportSalesTask, p.handleImport)
	return mux
}

func (p *Processor) handleImport(ctx context.Context, task *asynq.Task) error {
	var payload queue.ImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	failure := func(err error) error {
		log.Error().Err(err).Str("upload_id", payload.UploadID).Msg("Import failed")
		_ = p.repo.MarkFailed(ctx, payload.UploadID, err.Error())
		return err
	}
	if err := p.repo.MarkProcessing(ctx, payload.UploadID); err != nil {
		return failure(err)
	}
	data, err := p.store.DownloadWorkbook(ctx, payload.ObjectKey)
	if err != nil {
		return failure(err)
	}
	rows, err := parse.ExtractRows(bytes.NewReader(data), payload.Sheet)
	if err != nil {
		return failure(err)
	}
	progress := func(done, total int) {
		log.Info().Str("upload_id", payload.UploadID).Int("done", done).Int("total", total).Msg("Import progress")
	}
	if _, err := p.repo.ImportRows(ctx, payload.UploadID, rows, progress); err != nil {
		return failure(err)
	}
	if err := p.repo.MarkCompleted(ctx, payload.UploadID, len(rows)); err != nil {
		return failure(err)
	}
	log.Info().
		Str("upload_id", payload.UploadID).
		Str("file", payload.Filename).
		Int("rows", len(rows)).
		Int("warnings", parse.WarningCount(rows)).
		Msg("Import complete")
	return nil
}
