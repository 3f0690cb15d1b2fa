package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/nao1215/apkscan/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStep is a configurable step for tests.
type mockStep struct {
	name  string
	err   error
	calls *[]string
	do    func(ctx context.Context, report *model.ScanReport)
}

func (m *mockStep) Name() string { return m.name }

func (m *mockStep) Do(ctx context.Context, report *model.ScanReport) error {
	if m.calls != nil {
		*m.calls = append(*m.calls, m.name)
	}
	if m.do != nil {
		m.do(ctx, report)
	}
	return m.err
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	tests := []struct {
		name            string
		continueOnError bool
		steps           []error
		wantCalls       []string
		wantPerformed   []string
		wantSkipped     []string
		wantErrors      int
		wantErr         bool
	}{
		{
			name:          "all steps succeed",
			steps:         []error{nil, nil, nil},
			wantCalls:     []string{"s0", "s1", "s2"},
			wantPerformed: []string{"s0", "s1", "s2"},
		},
		{
			name:          "stop on first error",
			steps:         []error{nil, errBoom, nil},
			wantCalls:     []string{"s0", "s1"},
			wantPerformed: []string{"s0", "s1"},
			wantErrors:    1,
			wantErr:       true,
		},
		{
			name:            "continue on error",
			continueOnError: true,
			steps:           []error{errBoom, nil, errBoom},
			wantCalls:       []string{"s0", "s1", "s2"},
			wantPerformed:   []string{"s0", "s1", "s2"},
			wantErrors:      2,
		},
		{
			name:          "skipped step is not an error",
			steps:         []error{nil, fmt.Errorf("%w: no tree", ErrStepSkipped), nil},
			wantCalls:     []string{"s0", "s1", "s2"},
			wantPerformed: []string{"s0", "s2"},
			wantSkipped:   []string{"s1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls []string
			p := New(WithLogger(discardLogger()), WithContinueOnError(tt.continueOnError))
			for i, err := range tt.steps {
				p.AddStep(&mockStep{name: fmt.Sprintf("s%d", i), err: err, calls: &calls})
			}

			report := model.NewScanReport("app.apk")
			err := p.Execute(context.Background(), report)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(calls, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", calls, tt.wantCalls)
			}
			if !reflect.DeepEqual(report.PerformedSteps, tt.wantPerformed) {
				t.Errorf("PerformedSteps = %v, want %v", report.PerformedSteps, tt.wantPerformed)
			}
			if !reflect.DeepEqual(report.SkippedSteps, tt.wantSkipped) {
				t.Errorf("SkippedSteps = %v, want %v", report.SkippedSteps, tt.wantSkipped)
			}
			if len(report.Errors) != tt.wantErrors {
				t.Errorf("len(Errors) = %d, want %d", len(report.Errors), tt.wantErrors)
			}
		})
	}
}

func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls []string

	p := New(WithLogger(discardLogger()))
	p.AddSteps(
		&mockStep{name: "first", calls: &calls, do: func(context.Context, *model.ScanReport) { cancel() }},
		&mockStep{name: "second", calls: &calls},
	)

	report := model.NewScanReport("app.apk")
	err := p.Execute(ctx, report)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if !report.Cancelled {
		t.Error("report.Cancelled = false, want true")
	}
	if !reflect.DeepEqual(calls, []string{"first"}) {
		t.Errorf("calls = %v, want [first]", calls)
	}
}

func TestPipelineStepNames(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "a"})
	p.AddSteps(&mockStep{name: "b"}, &mockStep{name: "c"})

	if p.StepCount() != 3 {
		t.Errorf("StepCount() = %d, want 3", p.StepCount())
	}
	if got := p.StepNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("StepNames() = %v", got)
	}
}
