// Package pipeline runs one PDF through validation, upload, text extraction,
// summarization and persistence, strictly in that order.
//
// Go Pattern: The orchestrator depends on small interfaces, not concrete
// services. main.go wires in the real upload client, extractor, summarizer
// and database; tests wire in fakes and count calls.
//
// A failure at any stage ends the run: later stages never execute and
// nothing is retried. The returned error is a *StageError naming the stage
// and one of the Err* kinds.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/summary"
)

// Validator checks a candidate before anything leaves the process.
type Validator interface {
	Validate(c *models.UploadCandidate) (*models.UploadCandidate, error)
}

// Uploader sends a file to the storage service.
type Uploader interface {
	Upload(ctx context.Context, c *models.UploadCandidate, ownerID string) (*models.UploadResult, error)
}

// TextExtractor fetches an uploaded PDF and returns its text.
type TextExtractor interface {
	ExtractURL(ctx context.Context, fileURL string) (string, error)
}

// Summarizer turns text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (*summary.Result, error)
}

// Store persists a finished summary and fills in its ID.
type Store interface {
	CreateSummary(ctx context.Context, s *models.Summary) error
}

// Remover deletes an uploaded file. Only used when compensation is enabled.
type Remover interface {
	Delete(ctx context.Context, fileURL string) error
}

// Recorder observes runs for metrics. All methods must be cheap.
type Recorder interface {
	RunStarted()
	StageCompleted(stage State, d time.Duration, err error)
	RunFinished(outcome State, failedStage State, d time.Duration)
}

// Deps are the services a run calls, one per stage.
type Deps struct {
	Validator  Validator
	Uploader   Uploader
	Extractor  TextExtractor
	Summarizer Summarizer
	Store      Store
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder reports run and stage timings to r.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithCompensation deletes the uploaded file when persistence fails.
// Without it a failed save leaves the upload in place.
func WithCompensation(r Remover) Option {
	return func(o *Orchestrator) { o.remover = r }
}

// WithNotifier adds a sink that receives the events of every run, in
// addition to the per-call notifier.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.always = append(o.always, n) }
}

// Orchestrator drives runs. It holds no per-run state and is safe for
// concurrent use; concurrent runs are fully independent.
type Orchestrator struct {
	deps     Deps
	recorder Recorder
	remover  Remover
	always   notify.Multi
}

// New creates an orchestrator.
func New(deps Deps, opts ...Option) *Orchestrator {
	o := &Orchestrator{deps: deps}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run is the record of one submission.
type Run struct {
	ID        string
	OwnerID   string
	State     State
	History   []State // Every state entered, in order
	Loading   bool    // True from start until the run returns
	Upload    *models.UploadResult
	Summary   *models.Summary
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

// RedirectPath is where the user goes after a successful run.
func (r *Run) RedirectPath() string {
	if r.Summary == nil || r.Summary.ID == "" {
		return ""
	}
	return "/summaries/" + r.Summary.ID
}

func (r *Run) enter(s State) {
	if !canMove(r.State, s) {
		// Programming error; keep the record honest rather than panic.
		log.Printf("⚠️  Run %s: illegal transition %s -> %s", r.ID, r.State, s)
	}
	r.State = s
	r.History = append(r.History, s)
}

// Run processes one candidate end to end on behalf of ownerID.
// n receives progress events; it may be nil. Notifier failures are logged
// and never change the outcome.
func (o *Orchestrator) Run(ctx context.Context, c *models.UploadCandidate, ownerID string, n notify.Notifier) (*Run, error) {
	run, sink := o.begin(ownerID, n)
	defer o.end(ctx, run, sink)

	// validating
	run.enter(StateValidating)
	start := time.Now()
	_, err := o.deps.Validator.Validate(c)
	o.stageDone(StateValidating, start, err)
	if err != nil {
		return run, o.fail(ctx, run, sink, StateValidating, ErrValidation, err)
	}

	// uploading
	o.emit(ctx, sink, run, notify.KindUploading)
	run.enter(StateUploading)
	start = time.Now()
	res, err := o.deps.Uploader.Upload(ctx, c, ownerID)
	o.stageDone(StateUploading, start, err)
	if err != nil {
		return run, o.fail(ctx, run, sink, StateUploading, ErrUploadFailed, err)
	}
	if res.OwnerID == "" {
		res.OwnerID = ownerID
	}
	run.Upload = res

	return run, o.process(ctx, run, sink)
}

// Generate picks up after a client-side upload: it reads the first record
// of the upload service's reply and continues from extraction.
func (o *Orchestrator) Generate(ctx context.Context, resp []models.UploadResponse, n notify.Notifier) (*Run, error) {
	run, sink := o.begin("", n)
	defer o.end(ctx, run, sink)

	if len(resp) == 0 {
		return run, o.fail(ctx, run, sink, StateUploading, ErrUploadFailed, fmt.Errorf("empty upload response"))
	}
	data := resp[0].ServerData
	if strings.TrimSpace(data.File.URL) == "" {
		return run, o.fail(ctx, run, sink, StateUploading, ErrUploadFailed, fmt.Errorf("upload response has no file url"))
	}

	run.OwnerID = data.UserID
	run.Upload = &models.UploadResult{
		URL:      data.File.URL,
		FileName: data.File.Name,
		OwnerID:  data.UserID,
	}
	return run, o.process(ctx, run, sink)
}

// process runs extraction, summarization and persistence for an uploaded file.
func (o *Orchestrator) process(ctx context.Context, run *Run, sink notify.Notifier) error {
	// extracting
	o.emit(ctx, sink, run, notify.KindProcessing)
	run.enter(StateExtracting)
	start := time.Now()
	text, err := o.deps.Extractor.ExtractURL(ctx, run.Upload.URL)
	o.stageDone(StateExtracting, start, err)
	if err != nil {
		return o.fail(ctx, run, sink, StateExtracting, ErrExtractionFailed, err)
	}

	// summarizing; empty text still goes to the model
	run.enter(StateSummarizing)
	start = time.Now()
	result, err := o.deps.Summarizer.Summarize(ctx, text)
	if err == nil && (result == nil || strings.TrimSpace(result.Summary) == "") {
		err = fmt.Errorf("empty summary")
	}
	o.stageDone(StateSummarizing, start, err)
	if err != nil {
		return o.fail(ctx, run, sink, StateSummarizing, ErrSummaryGenerationFailed, err)
	}

	// persisting
	o.emit(ctx, sink, run, notify.KindSaving)
	run.enter(StatePersisting)
	record := &models.Summary{
		UserID:      run.Upload.OwnerID,
		FileURL:     run.Upload.URL,
		FileName:    run.Upload.FileName,
		Title:       titleFor(result.Title, run.Upload.FileName),
		SummaryText: result.Summary,
		Status:      models.SummaryCompleted,
		Backend:     result.Backend,
		ModelUsed:   result.Model,
		WordCount:   len(strings.Fields(text)),
	}
	start = time.Now()
	err = o.deps.Store.CreateSummary(ctx, record)
	o.stageDone(StatePersisting, start, err)
	if err != nil {
		o.compensate(ctx, run)
		return o.fail(ctx, run, sink, StatePersisting, ErrPersistenceFailed, err)
	}
	run.Summary = record

	run.enter(StateDone)
	done := notify.New(notify.KindDone, run.ID, "")
	done.SummaryID = record.ID
	notify.Safe(ctx, sink, done)
	log.Printf("✅ Run %s: summary %s saved for %s", run.ID, record.ID, record.FileName)
	return nil
}

func (o *Orchestrator) begin(ownerID string, n notify.Notifier) (*Run, notify.Notifier) {
	run := &Run{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		State:     StateIdle,
		History:   []State{StateIdle},
		Loading:   true,
		StartedAt: time.Now(),
	}
	if o.recorder != nil {
		o.recorder.RunStarted()
	}

	sink := notify.Notifier(o.always)
	if n != nil {
		sink = append(notify.Multi{n}, o.always...)
	}
	return run, sink
}

// end is deferred by every entry point, so Loading is cleared on success,
// failure and panic alike. A panicking stage still fails the run with a
// *StageError and an error event before the panic continues.
func (o *Orchestrator) end(ctx context.Context, run *Run, sink notify.Notifier) {
	run.Loading = false
	run.EndedAt = time.Now()

	if r := recover(); r != nil {
		if run.State != StateFailed {
			stage := run.State
			_ = o.fail(ctx, run, sink, stage, kindFor(stage), fmt.Errorf("panic: %v", r))
		}
		o.finished(run)
		panic(r)
	}
	o.finished(run)
}

func (o *Orchestrator) finished(run *Run) {
	if o.recorder == nil {
		return
	}
	o.recorder.RunFinished(run.State, StageOf(run.Err), run.EndedAt.Sub(run.StartedAt))
}

func (o *Orchestrator) fail(ctx context.Context, run *Run, sink notify.Notifier, stage State, kind, cause error) error {
	err := &StageError{Stage: stage, Kind: kind, Err: cause}
	run.Err = err
	run.enter(StateFailed)

	e := notify.New(notify.ErrorKind(string(stage)), run.ID, string(stage))
	if stage == StateValidating {
		e.Description = UserMessage(err)
	}
	notify.Safe(ctx, sink, e)

	log.Printf("❌ Run %s failed at %s: %v", run.ID, stage, cause)
	return err
}

func (o *Orchestrator) emit(ctx context.Context, sink notify.Notifier, run *Run, kind string) {
	notify.Safe(ctx, sink, notify.New(kind, run.ID, ""))
}

func (o *Orchestrator) stageDone(stage State, start time.Time, err error) {
	if o.recorder != nil {
		o.recorder.StageCompleted(stage, time.Since(start), err)
	}
}

// compensate removes the uploaded file after a failed save, if enabled.
func (o *Orchestrator) compensate(ctx context.Context, run *Run) {
	if o.remover == nil || run.Upload == nil {
		return
	}
	// The request may already be cancelled; cleanup should still happen.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := o.remover.Delete(ctx, run.Upload.URL); err != nil {
		log.Printf("⚠️  Run %s: failed to remove %s after save error: %v", run.ID, run.Upload.URL, err)
		return
	}
	log.Printf("🧹 Run %s: removed %s after save error", run.ID, run.Upload.URL)
}

// titleFor falls back to the file name when the summary has no heading.
func titleFor(title, fileName string) string {
	if title != "" {
		return title
	}
	name := strings.TrimSuffix(fileName, path.Ext(fileName))
	if name == "" {
		return "Untitled document"
	}
	return name
}
