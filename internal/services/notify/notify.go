// Package notify delivers progress events for a summary run.
//
// A run emits "uploading", "processing", "saving" and "done", or
// "error:<stage>" when it fails. Sinks decide what to do with them: log
// them, collect them for the JSON response, stream them over SSE, or fire
// webhooks. A sink failing never affects the run; the pipeline calls
// sinks through Safe.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Event kinds.
const (
	KindUploading  = "uploading"
	KindProcessing = "processing"
	KindSaving     = "saving"
	KindDone       = "done"
	kindErrPrefix  = "error:"
)

// ErrorKind returns the event kind for a failure in stage.
func ErrorKind(stage string) string {
	return kindErrPrefix + stage
}

// IsError reports whether kind is an "error:<stage>" kind.
func IsError(kind string) bool {
	return len(kind) > len(kindErrPrefix) && kind[:len(kindErrPrefix)] == kindErrPrefix
}

// Event is one progress notification.
type Event struct {
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	RunID       string    `json:"run_id"`
	Stage       string    `json:"stage,omitempty"`
	SummaryID   string    `json:"summary_id,omitempty"` // Set on done
	At          time.Time `json:"at"`
}

// Notifier receives events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, e Event) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// Copy returns the title and description shown to users for an event.
func Copy(kind string) (title, description string) {
	switch kind {
	case KindUploading:
		return "📄 Uploading PDF", "We are uploading your PDF!"
	case KindProcessing:
		return "📄 Processing PDF", "Hang tight, our AI is reading your document!"
	case KindSaving:
		return "📄 Saving PDF", "Hang tight, we are saving your summary!"
	case KindDone:
		return "✨ Summary Generated", "Your PDF has been successfully summarized and saved!"
	case ErrorKind("validating"):
		return "❌ Something went wrong", "Invalid File"
	case ErrorKind("uploading"):
		return "⚠️ Upload Failed", "Please try a different file."
	}
	return "❌ Error occured when uploading", "Something went wrong. Please try again."
}

// New builds an event with the standard copy for kind.
func New(kind, runID, stage string) Event {
	title, desc := Copy(kind)
	return Event{
		Kind:        kind,
		Title:       title,
		Description: desc,
		RunID:       runID,
		Stage:       stage,
		At:          time.Now().UTC(),
	}
}

// Safe delivers e to n, logging and swallowing any error or panic.
func Safe(ctx context.Context, n Notifier, e Event) {
	if n == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️  Notifier panicked on %s (run %s): %v", e.Kind, e.RunID, r)
		}
	}()
	if err := n.Notify(ctx, e); err != nil {
		log.Printf("⚠️  Notifier failed on %s (run %s): %v", e.Kind, e.RunID, err)
	}
}

// LogNotifier writes events to the standard logger.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(_ context.Context, e Event) error {
	icon := "🔔"
	if IsError(e.Kind) {
		icon = "❌"
	} else if e.Kind == KindDone {
		icon = "✅"
	}
	log.Printf("%s Run %s: %s", icon, e.RunID, e.Kind)
	return nil
}

// Recorder collects events in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Notify implements Notifier.
func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of what has been recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the recorded event kinds in order.
func (r *Recorder) Kinds() []string {
	events := r.Events()
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

// Multi fans an event out to every sink. All sinks are called even when
// some fail; the failures are joined into the returned error.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := callSink(ctx, n, e); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func callSink(ctx context.Context, n Notifier, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return n.Notify(ctx, e)
}
