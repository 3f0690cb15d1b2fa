package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/nao1215/apkscan/internal/model"
)

// mapResolver resolves identifiers from a fixed table.
type mapResolver map[string]*model.APK

func (r mapResolver) FindByIdentifier(_ context.Context, identifier string) (*model.APK, error) {
	if apk, ok := r[identifier]; ok {
		return apk, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrInputNotFound, identifier)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "run-" + strconv.Itoa(n)
	}
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("unresolved identifier does not stop the batch", func(t *testing.T) {
		t.Parallel()

		resolver := mapResolver{
			"1": writeManifest(t, 1),
			"3": writeManifest(t, 3),
		}
		store := newMemStore()
		factory := func() *Pipeline {
			return NewScanPipeline(ScanConfig{Store: store, Logger: discardLogger()})
		}
		bp := NewBatchProcessor(resolver, factory,
			WithBatchLogger(discardLogger()),
			WithRunIDGenerator(sequentialIDs()),
		)

		reports, err := bp.ProcessBatch(context.Background(), []string{"1", "2", "3"})
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if len(reports) != 3 {
			t.Fatalf("len(reports) = %d, want 3", len(reports))
		}

		if reports[0].Failed() || reports[0].APK == nil {
			t.Errorf("report 1: errors = %v", reports[0].ErrorMessage)
		}
		if len(reports[1].Errors) != 1 || !errors.Is(reports[1].Errors[0], model.ErrInputNotFound) {
			t.Errorf("report 2: errors = %v, want ErrInputNotFound", reports[1].Errors)
		}
		if len(reports[1].PerformedSteps) != 0 {
			t.Errorf("report 2: PerformedSteps = %v, want none", reports[1].PerformedSteps)
		}
		if reports[2].Failed() || reports[2].APK == nil {
			t.Errorf("report 3: errors = %v", reports[2].ErrorMessage)
		}

		for i, want := range []string{"run-1", "run-2", "run-3"} {
			if reports[i].RunID != want {
				t.Errorf("reports[%d].RunID = %q, want %q", i, reports[i].RunID, want)
			}
		}
		if len(store.runs) != 2 {
			t.Errorf("stored %d runs, want 2", len(store.runs))
		}
	})

	t.Run("cancelled context stops before the next item", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		resolver := mapResolver{"1": writeManifest(t, 1), "2": writeManifest(t, 2)}

		calls := 0
		factory := func() *Pipeline {
			calls++
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "cancel", do: func(context.Context, *model.ScanReport) { cancel() }})
			return p
		}
		bp := NewBatchProcessor(resolver, factory, WithBatchLogger(discardLogger()))

		reports, err := bp.ProcessBatch(ctx, []string{"1", "2"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("ProcessBatch() error = %v, want context.Canceled", err)
		}
		if len(reports) != 1 || calls != 1 {
			t.Errorf("len(reports) = %d, calls = %d, want 1 and 1", len(reports), calls)
		}
	})

	t.Run("default run ids are unique", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(mapResolver{}, func() *Pipeline { return New() }, WithBatchLogger(discardLogger()))
		reports, err := bp.ProcessBatch(context.Background(), []string{"a", "b"})
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reports[0].RunID == "" || reports[0].RunID == reports[1].RunID {
			t.Errorf("run ids = %q, %q", reports[0].RunID, reports[1].RunID)
		}
	})
}

func TestBatchProcessor_ProcessWithCallback(t *testing.T) {
	t.Parallel()

	var seen []string
	bp := NewBatchProcessor(mapResolver{}, func() *Pipeline { return New() }, WithBatchLogger(discardLogger()))
	err := bp.ProcessWithCallback(context.Background(), []string{"x", "y"}, func(r *model.ScanReport) {
		seen = append(seen, r.Identifier)
	})
	if err != nil {
		t.Fatalf("ProcessWithCallback() error = %v", err)
	}
	if len(seen) != 2 || seen[0] != "x" || seen[1] != "y" {
		t.Errorf("seen = %v, want [x y]", seen)
	}
}
