package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/flatjson/internal/artifact"
)

// Uploader persists one artifact under key. The remote store client and the
// local artifact.DirStore both satisfy it.
type Uploader interface {
	PutObject(ctx context.Context, key, contentType string, data []byte) error
}

// Worker uploads the artifacts of a single job.
type Worker struct {
	uploader Uploader
	stats    *UploadStats
	log      *slog.Logger

	maxConcurrent int
	backoff       func(attempt int) time.Duration
}

func NewWorker(up Uploader, stats *UploadStats, log *slog.Logger, maxConcurrent int) *Worker {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Worker{
		uploader:      up,
		stats:         stats,
		log:           log,
		maxConcurrent: maxConcurrent,
		backoff:       Backoff,
	}
}

// Process uploads every file of job with bounded concurrency. Failures are
// recorded on the job; the flatten response has already been sent, so nothing
// is returned to the caller.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "source", job.Source)
	defer job.releaseFiles()

	files := job.Files()
	job.SetStatus(StatusUploading, "uploading")
	log.Info("uploading artifacts", "files", len(files))

	type uploadResult struct {
		name string
		size int
		err  error
	}
	results := make(chan uploadResult, len(files))
	sem := make(chan struct{}, w.maxConcurrent)

	for _, f := range files {
		sem <- struct{}{}
		go func(f artifact.File) {
			defer func() { <-sem }()
			key := job.Key(f.Name)
			start := time.Now()
			err := withRetry(ctx, w.backoff,
				func() error { return w.uploader.PutObject(ctx, key, f.ContentType, f.Data) },
				func(attempt int, err error) {
					log.Warn("retryable upload error", "key", key, "attempt", attempt, "error", err)
				},
			)
			if err == nil && w.stats != nil {
				w.stats.Record(time.Since(start))
			}
			results <- uploadResult{name: f.Name, size: len(f.Data), err: err}
		}(f)
	}

	failed := 0
	for range files {
		r := <-results
		if r.err != nil {
			log.Error("upload failed", "file", r.name, "error", r.err)
			job.AddError(fmt.Sprintf("%s: %s", r.name, r.err))
			failed++
			continue
		}
		job.AddUploaded(r.size)
	}

	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted, "done")
	case failed < len(files):
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "uploading")
	}
	log.Info("upload complete", "uploaded", len(files)-failed, "failed", failed)
}
