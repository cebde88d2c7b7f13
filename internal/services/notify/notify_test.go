package notify

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestCopy(t *testing.T) {
	tests := []struct {
		kind      string
		wantTitle string
	}{
		{KindUploading, "📄 Uploading PDF"},
		{KindProcessing, "📄 Processing PDF"},
		{ErrorKind("uploading"), "⚠️ Upload Failed"},
		{ErrorKind("summarizing"), "❌ Error occured when uploading"},
	}
	for _, tt := range tests {
		title, desc := Copy(tt.kind)
		if title != tt.wantTitle {
			t.Errorf("Copy(%q) title = %q, want %q", tt.kind, title, tt.wantTitle)
		}
		if desc == "" {
			t.Errorf("Copy(%q) has no description", tt.kind)
		}
	}
}

func TestIsError(t *testing.T) {
	if !IsError(ErrorKind("extracting")) {
		t.Error("error:extracting should be an error kind")
	}
	for _, k := range []string{KindDone, KindSaving, "error:"} {
		if IsError(k) {
			t.Errorf("IsError(%q) = true", k)
		}
	}
}

func TestMultiContinuesPastFailures(t *testing.T) {
	rec := &Recorder{}
	failing := Func(func(context.Context, Event) error { return errors.New("sink down") })
	panicking := Func(func(context.Context, Event) error { panic("boom") })

	m := Multi{failing, panicking, nil, rec}
	err := m.Notify(context.Background(), New(KindDone, "run-1", ""))
	if err == nil {
		t.Fatal("expected joined error from failing sinks")
	}
	if got := rec.Kinds(); !reflect.DeepEqual(got, []string{KindDone}) {
		t.Errorf("recorder got %v, want [done]", got)
	}
}

func TestSafeSwallowsPanics(t *testing.T) {
	// Must not panic.
	Safe(context.Background(), Func(func(context.Context, Event) error { panic("boom") }), New(KindSaving, "r", ""))
	Safe(context.Background(), nil, New(KindSaving, "r", ""))
}
