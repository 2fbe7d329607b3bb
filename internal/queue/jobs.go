package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ImportSalesTask is scheduled each time a workbook is uploaded.
	ImportSalesTask = "sales:import"
)

// ImportPayload is serialized into the task payload so the worker knows which
// workbook to download and which upload batch to update.
type ImportPayload struct {
	UploadID  string `json:"upload_id"`
	ObjectKey string `json:"object_key"`
	Filename  string `json:"file_name"`
	Sheet     string `json:"sheet"`
}

// EnqueueImport enqueues a workbook import job. Import jobs are not retried:
// a failed import is terminal for that upload and requires a manual
// re-trigger.
func EnqueueImport(ctx context.Context, client *asynq.Client, payload ImportPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ImportSalesTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue import task: %w", err)
	}
	return nil
}
