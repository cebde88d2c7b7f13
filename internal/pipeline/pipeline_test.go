package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/summary"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/validate"
)

// --- fakes ---

type fakeUploader struct {
	calls int
	url   string
	err   error
}

func (f *fakeUploader) Upload(_ context.Context, c *models.UploadCandidate, owner string) (*models.UploadResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.UploadResult{URL: f.url, FileName: c.FileName, OwnerID: owner}, nil
}

type fakeExtractor struct {
	calls int
	text  string
	err   error
	panic bool
}

func (f *fakeExtractor) ExtractURL(context.Context, string) (string, error) {
	f.calls++
	if f.panic {
		panic("parser exploded")
	}
	return f.text, f.err
}

type fakeSummarizer struct {
	calls  int
	result *summary.Result
	err    error
}

func (f *fakeSummarizer) Summarize(context.Context, string) (*summary.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeStore struct {
	calls int
	id    string
	err   error
	saved *models.Summary
}

func (f *fakeStore) CreateSummary(_ context.Context, s *models.Summary) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	s.ID = f.id
	f.saved = s
	return nil
}

type fakeRemover struct{ deleted []string }

func (f *fakeRemover) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeRecorder struct {
	started  int
	outcome  State
	failedAt State
	stages   []State
}

func (f *fakeRecorder) RunStarted() { f.started++ }
func (f *fakeRecorder) StageCompleted(s State, _ time.Duration, _ error) {
	f.stages = append(f.stages, s)
}
func (f *fakeRecorder) RunFinished(outcome, failed State, _ time.Duration) {
	f.outcome, f.failedAt = outcome, failed
}

type fixture struct {
	uploader   *fakeUploader
	extractor  *fakeExtractor
	summarizer *fakeSummarizer
	store      *fakeStore
}

func newFixture() *fixture {
	return &fixture{
		uploader:  &fakeUploader{url: "https://files.test/doc.pdf"},
		extractor: &fakeExtractor{text: "Lorem ipsum dolor"},
		summarizer: &fakeSummarizer{result: &summary.Result{
			Summary: "# Lorem\n• 📌 ipsum", Title: "Lorem", Model: "m", Backend: "fake",
		}},
		store: &fakeStore{id: "abc123"},
	}
}

func (f *fixture) orchestrator(opts ...Option) *Orchestrator {
	return New(Deps{
		Validator:  validate.New(0),
		Uploader:   f.uploader,
		Extractor:  f.extractor,
		Summarizer: f.summarizer,
		Store:      f.store,
	}, opts...)
}

func pdfCandidate(size int64) *models.UploadCandidate {
	return &models.UploadCandidate{
		FileName: "report.pdf",
		Content:  []byte("%PDF-1.4"),
		Size:     size,
		MIMEType: "application/pdf",
	}
}

// --- tests ---

func TestRunSuccess(t *testing.T) {
	f := newFixture()
	rec := &notify.Recorder{}

	run, err := f.orchestrator().Run(context.Background(), pdfCandidate(1024), "user-1", rec)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if run.RedirectPath() != "/summaries/abc123" {
		t.Errorf("RedirectPath() = %q", run.RedirectPath())
	}
	wantHistory := []State{StateIdle, StateValidating, StateUploading, StateExtracting, StateSummarizing, StatePersisting, StateDone}
	if !reflect.DeepEqual(run.History, wantHistory) {
		t.Errorf("History = %v, want %v", run.History, wantHistory)
	}
	wantEvents := []string{notify.KindUploading, notify.KindProcessing, notify.KindSaving, notify.KindDone}
	if got := rec.Kinds(); !reflect.DeepEqual(got, wantEvents) {
		t.Errorf("events = %v, want %v", got, wantEvents)
	}
	if run.Loading {
		t.Error("Loading should be cleared after the run")
	}

	saved := f.store.saved
	if saved.UserID != "user-1" || saved.FileURL != "https://files.test/doc.pdf" || saved.FileName != "report.pdf" {
		t.Errorf("saved = %+v", saved)
	}
	if saved.Title != "Lorem" || saved.WordCount != 3 || saved.Status != models.SummaryCompleted {
		t.Errorf("saved = %+v", saved)
	}
}

func TestRunFailures(t *testing.T) {
	tests := []struct {
		name      string
		candidate *models.UploadCandidate
		setup     func(f *fixture)
		wantKind  error
		wantStage State
		wantMsg   string
		// calls expected on uploader, extractor, summarizer, store
		wantCalls [4]int
		wantEvent string
	}{
		{
			name:      "oversized file never reaches upload",
			candidate: pdfCandidate(25 * 1024 * 1024),
			wantKind:  ErrValidation,
			wantStage: StateValidating,
			wantMsg:   "File size must be less than 20MB",
			wantCalls: [4]int{0, 0, 0, 0},
			wantEvent: "error:validating",
		},
		{
			name:      "wrong type",
			candidate: &models.UploadCandidate{FileName: "a.png", Size: 10, MIMEType: "image/png"},
			wantKind:  ErrValidation,
			wantStage: StateValidating,
			wantMsg:   "File must be a PDF",
			wantCalls: [4]int{0, 0, 0, 0},
			wantEvent: "error:validating",
		},
		{
			name:      "upload fails",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.uploader.err = errors.New("network down") },
			wantKind:  ErrUploadFailed,
			wantStage: StateUploading,
			wantMsg:   "File upload failed",
			wantCalls: [4]int{1, 0, 0, 0},
			wantEvent: "error:uploading",
		},
		{
			name:      "extraction fails",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.extractor.err = errors.New("corrupt") },
			wantKind:  ErrExtractionFailed,
			wantStage: StateExtracting,
			wantMsg:   "File upload failed",
			wantCalls: [4]int{1, 1, 0, 0},
			wantEvent: "error:extracting",
		},
		{
			name:      "summarizer errors",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.summarizer.err = errors.New("quota") },
			wantKind:  ErrSummaryGenerationFailed,
			wantStage: StateSummarizing,
			wantMsg:   "File upload failed",
			wantCalls: [4]int{1, 1, 1, 0},
			wantEvent: "error:summarizing",
		},
		{
			name:      "empty summary is a failure",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.summarizer.result = &summary.Result{Summary: "   "} },
			wantKind:  ErrSummaryGenerationFailed,
			wantStage: StateSummarizing,
			wantMsg:   "File upload failed",
			wantCalls: [4]int{1, 1, 1, 0},
			wantEvent: "error:summarizing",
		},
		{
			name:      "nil summary is a failure",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.summarizer.result = nil },
			wantKind:  ErrSummaryGenerationFailed,
			wantStage: StateSummarizing,
			wantMsg:   "File upload failed",
			wantCalls: [4]int{1, 1, 1, 0},
			wantEvent: "error:summarizing",
		},
		{
			name:      "save fails",
			candidate: pdfCandidate(10),
			setup:     func(f *fixture) { f.store.err = errors.New("connection refused") },
			wantKind:  ErrPersistenceFailed,
			wantStage: StatePersisting,
			wantMsg:   "Failed to save summary",
			wantCalls: [4]int{1, 1, 1, 1},
			wantEvent: "error:persisting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.setup != nil {
				tt.setup(f)
			}
			rec := &notify.Recorder{}

			run, err := f.orchestrator().Run(context.Background(), tt.candidate, "user-1", rec)

			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("error = %v, want kind %v", err, tt.wantKind)
			}
			if got := StageOf(err); got != tt.wantStage {
				t.Errorf("StageOf() = %q, want %q", got, tt.wantStage)
			}
			if got := UserMessage(err); got != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
			}
			if run.State != StateFailed || run.Loading || run.Summary != nil {
				t.Errorf("run = state %s loading %v summary %v", run.State, run.Loading, run.Summary)
			}
			if run.RedirectPath() != "" {
				t.Errorf("RedirectPath() = %q, want empty", run.RedirectPath())
			}

			got := [4]int{f.uploader.calls, f.extractor.calls, f.summarizer.calls, f.store.calls}
			if got != tt.wantCalls {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}

			kinds := rec.Kinds()
			if len(kinds) == 0 || kinds[len(kinds)-1] != tt.wantEvent {
				t.Errorf("events = %v, want last %q", kinds, tt.wantEvent)
			}
			for _, k := range kinds {
				if k == notify.KindDone {
					t.Errorf("failed run emitted done: %v", kinds)
				}
			}
		})
	}
}

func TestNotifierFailureDoesNotAbortRun(t *testing.T) {
	f := newFixture()
	broken := notify.Func(func(context.Context, notify.Event) error {
		return errors.New("toast service down")
	})
	panicky := notify.Func(func(context.Context, notify.Event) error { panic("ui gone") })

	run, err := f.orchestrator(WithNotifier(panicky)).Run(context.Background(), pdfCandidate(10), "user-1", broken)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.State != StateDone || f.store.calls != 1 {
		t.Errorf("state = %s, store calls = %d", run.State, f.store.calls)
	}
}

func TestGenerate(t *testing.T) {
	reply := func(url string) []models.UploadResponse {
		return []models.UploadResponse{{ServerData: models.UploadServerData{
			UserID: "user-9",
			File:   models.UploadFile{URL: url, Name: "notes.pdf"},
		}}}
	}

	t.Run("continues from extraction", func(t *testing.T) {
		f := newFixture()
		rec := &notify.Recorder{}
		run, err := f.orchestrator().Generate(context.Background(), reply("https://files.test/n.pdf"), rec)
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if f.uploader.calls != 0 {
			t.Errorf("uploader called %d times", f.uploader.calls)
		}
		if f.store.saved.UserID != "user-9" || f.store.saved.FileURL != "https://files.test/n.pdf" {
			t.Errorf("saved = %+v", f.store.saved)
		}
		want := []State{StateIdle, StateExtracting, StateSummarizing, StatePersisting, StateDone}
		if !reflect.DeepEqual(run.History, want) {
			t.Errorf("History = %v, want %v", run.History, want)
		}
		wantEvents := []string{notify.KindProcessing, notify.KindSaving, notify.KindDone}
		if got := rec.Kinds(); !reflect.DeepEqual(got, wantEvents) {
			t.Errorf("events = %v, want %v", got, wantEvents)
		}
	})

	for name, resp := range map[string][]models.UploadResponse{
		"empty reply": nil,
		"missing url": reply(""),
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture()
			_, err := f.orchestrator().Generate(context.Background(), resp, nil)
			if !errors.Is(err, ErrUploadFailed) {
				t.Fatalf("error = %v, want ErrUploadFailed", err)
			}
			if UserMessage(err) != "File upload failed" {
				t.Errorf("UserMessage() = %q", UserMessage(err))
			}
			if f.extractor.calls != 0 {
				t.Error("extractor should not run")
			}
		})
	}
}

func TestCompensation(t *testing.T) {
	f := newFixture()
	f.store.err = errors.New("disk full")

	remover := &fakeRemover{}
	_, err := f.orchestrator(WithCompensation(remover)).Run(context.Background(), pdfCandidate(10), "u", nil)
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("error = %v", err)
	}
	if !reflect.DeepEqual(remover.deleted, []string{"https://files.test/doc.pdf"}) {
		t.Errorf("deleted = %v", remover.deleted)
	}

	// Without the option the upload is left alone.
	f = newFixture()
	f.extractor.err = errors.New("bad pdf")
	remover = &fakeRemover{}
	_, _ = f.orchestrator(WithCompensation(remover)).Run(context.Background(), pdfCandidate(10), "u", nil)
	if len(remover.deleted) != 0 {
		t.Errorf("only save failures compensate, deleted = %v", remover.deleted)
	}
}

func TestLoadingReleasedOnPanic(t *testing.T) {
	f := newFixture()
	f.extractor.panic = true
	recorder := &fakeRecorder{}
	o := f.orchestrator(WithRecorder(recorder))
	rec := &notify.Recorder{}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate")
			}
		}()
		_, _ = o.Run(context.Background(), pdfCandidate(10), "u", rec)
	}()

	if recorder.started != 1 || recorder.outcome != StateFailed {
		t.Errorf("recorder = %+v", recorder)
	}
	if recorder.failedAt != StateExtracting {
		t.Errorf("failed stage = %q, want %q", recorder.failedAt, StateExtracting)
	}
	kinds := rec.Kinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != "error:extracting" {
		t.Errorf("events = %v, want last error:extracting", kinds)
	}
	if f.store.calls != 0 {
		t.Error("store must not be called after a panic")
	}
}

func TestRecorder(t *testing.T) {
	f := newFixture()
	f.summarizer.err = errors.New("x")
	r := &fakeRecorder{}

	_, _ = f.orchestrator(WithRecorder(r)).Run(context.Background(), pdfCandidate(10), "u", nil)

	if r.outcome != StateFailed || r.failedAt != StateSummarizing {
		t.Errorf("recorder = %+v", r)
	}
	want := []State{StateValidating, StateUploading, StateExtracting, StateSummarizing}
	if !reflect.DeepEqual(r.stages, want) {
		t.Errorf("stages = %v, want %v", r.stages, want)
	}
}

func TestCanMove(t *testing.T) {
	if canMove(StateUploading, StateSummarizing) {
		t.Error("stages cannot be skipped")
	}
	if canMove(StateDone, StateFailed) {
		t.Error("terminal states are final")
	}
	if !canMove(StateExtracting, StateFailed) {
		t.Error("any running state can fail")
	}
	if !strings.Contains((&StageError{Stage: StateUploading, Kind: ErrUploadFailed, Err: errors.New("x")}).Error(), "uploading") {
		t.Error("StageError should name its stage")
	}
}
