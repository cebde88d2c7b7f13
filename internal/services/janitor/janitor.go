// Package janitor removes uploaded PDFs that no summary points to.
//
// A run that fails after the upload stage leaves its file behind (unless
// PIPELINE_COMPENSATE_UPLOADS is on). The janitor sweeps local storage on a
// cron schedule and deletes files older than a TTL that no summary references.
// Only the local upload transport is swept; an external service owns its
// own retention.
package janitor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Shimizu-Technology/sommaire-api/internal/services/storage"
)

const sweepTimeout = 10 * time.Minute

// Objects is the file store being swept.
type Objects interface {
	List(ctx context.Context) ([]storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// References tells whether a summary still uses a file.
type References interface {
	SummaryExistsForFileURL(ctx context.Context, fileURL string) (bool, error)
}

// Janitor periodically deletes orphaned uploads.
type Janitor struct {
	ctx     context.Context
	cron    *cron.Cron
	objects Objects
	refs    References
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// New creates a janitor. Files are addressed as baseURL/files/<key>, the
// same URL the upload transport handed to the pipeline.
func New(ctx context.Context, objects Objects, refs References, baseURL string, ttl time.Duration) *Janitor {
	return &Janitor{
		ctx:     ctx,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		objects: objects,
		refs:    refs,
		baseURL: baseURL,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Start schedules sweeps with a standard five-field cron spec.
func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, j.run); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	j.cron.Start()
	log.Printf("🧹 Orphan sweep scheduled (%s, ttl %s)", spec, j.ttl)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(j.ctx, sweepTimeout)
	defer cancel()

	removed, err := j.Sweep(ctx)
	if err != nil {
		log.Printf("⚠️  Orphan sweep failed after removing %d files: %v", removed, err)
		return
	}
	if removed > 0 {
		log.Printf("🧹 Orphan sweep removed %d files", removed)
	}
}

// Sweep deletes every unreferenced file older than the TTL and returns how
// many it removed. A failed lookup skips that file rather than deleting it.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	objects, err := j.objects.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list uploads: %w", err)
	}

	cutoff := j.now().Add(-j.ttl)
	removed := 0
	for _, obj := range objects {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if obj.ModTime.After(cutoff) {
			continue
		}

		used, err := j.refs.SummaryExistsForFileURL(ctx, storage.PublicURL(j.baseURL, obj.Key))
		if err != nil {
			log.Printf("⚠️  Orphan sweep: skipping %s: %v", obj.Key, err)
			continue
		}
		if used {
			continue
		}

		if err := j.objects.Delete(ctx, obj.Key); err != nil {
			log.Printf("⚠️  Orphan sweep: failed to delete %s: %v", obj.Key, err)
			continue
		}
		removed++
	}
	return removed, nil
}
