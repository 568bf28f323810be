/*
	Thumbnail worker.

	Consumes derivative jobs off the shared queue and writes fixed-width
	variants next to the original blob. Several workers may drain the
	same queue; delivery is at-least-once and re-running a job just
	overwrites the same derived paths, so duplicates are harmless.
*/
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/noisersup/filestore-api/database"
	"github.com/noisersup/filestore-api/disk"
	l "github.com/noisersup/filestore-api/logger"
	"github.com/noisersup/filestore-api/models"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Widths of the generated variants, in the order they are attempted.
var thumbnailWidths = []int{500, 250, 100}

const dequeueTimeout = 5 * time.Second

type Worker struct {
	db    models.Metadata
	queue models.Queue
	blobs models.Blobs
	log   *l.Logger
}

func NewWorker(db models.Metadata, queue models.Queue, blobs models.Blobs, log *l.Logger) *Worker {
	return &Worker{db: db, queue: queue, blobs: blobs, log: log}
}

// Run drains the queue until ctx is cancelled. Failed jobs are logged and
// dropped: there is no retry, the failure must be visible in the logs
// rather than silently swallowed.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, job, err := w.queue.Dequeue(dequeueTimeout)
		if err != nil {
			if payload != "" {
				// Undecodable payload: drop it, it will never get better.
				w.log.SErr("worker", "dropping malformed job %q: %s", payload, err.Error())
				w.ack(payload)
				continue
			}
			w.log.SWarn("worker", "dequeue failed: %s", err.Error())
			time.Sleep(time.Second)
			continue
		}
		if job == nil { // timeout, nothing queued
			continue
		}

		if err := w.Process(ctx, *job); err != nil {
			w.log.SErr("worker", "job for file %s failed: %s", job.FileId, err.Error())
		}
		w.ack(payload)
	}
}

func (w *Worker) ack(payload string) {
	if err := w.queue.Ack(payload); err != nil {
		w.log.SWarn("worker", "ack failed: %s", err.Error())
	}
}

// Process generates every configured variant for one job. Sizes are
// independent: a failing width must not stop the remaining ones, so
// per-size errors are collected and reported together.
func (w *Worker) Process(ctx context.Context, job models.DerivativeJob) error {
	if job.FileId == uuid.Nil {
		return errors.New("missing fileId")
	}
	if job.UserId == uuid.Nil {
		return errors.New("missing userId")
	}

	f, err := w.db.GetUserFile(ctx, job.FileId, job.UserId)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return errors.New("file not found")
		}
		return err
	}

	raw, err := w.blobs.Read(f.LocalPath)
	if err != nil {
		return fmt.Errorf("reading source blob: %w", err)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding source image: %w", err)
	}
	encodeAs, err := imaging.FormatFromExtension("." + format)
	if err != nil {
		return fmt.Errorf("unsupported image format %q", format)
	}

	var failures error
	for _, width := range thumbnailWidths {
		if err := w.writeVariant(src, encodeAs, f.LocalPath, width); err != nil {
			failures = errors.Join(failures, fmt.Errorf("width %d: %w", width, err))
		}
	}
	return failures
}

func (w *Worker) writeVariant(src image.Image, format imaging.Format, path string, width int) error {
	resized := imaging.Resize(src, width, 0, imaging.Lanczos)

	buf := bytes.Buffer{}
	if err := imaging.Encode(&buf, resized, format); err != nil {
		return err
	}
	return w.blobs.WritePath(disk.DerivativePath(path, width), buf.Bytes())
}
