package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/apkscan/internal/model"
)

func TestDiffSecrets(t *testing.T) {
	t.Parallel()

	key := model.SecretFinding{SourceFile: "a/a.java", Line: 3, PatternID: "google_api_key", MatchedText: "AIzaX"}
	moved := key
	moved.Line = 7
	token := model.SecretFinding{SourceFile: "b/b.java", Line: 1, PatternID: "github_token", MatchedText: "ghp_x"}

	tests := []struct {
		name         string
		previous     []model.SecretFinding
		current      []model.SecretFinding
		wantAdded    int
		wantResolved int
	}{
		{"both empty", nil, nil, 0, 0},
		{"unchanged", []model.SecretFinding{key}, []model.SecretFinding{key}, 0, 0},
		{"new finding", nil, []model.SecretFinding{key}, 1, 0},
		{"resolved finding", []model.SecretFinding{key, token}, []model.SecretFinding{token}, 0, 1},
		{"moved line counts as new and resolved", []model.SecretFinding{key}, []model.SecretFinding{moved}, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			added, resolved := diffSecrets(tt.previous, tt.current)
			if len(added) != tt.wantAdded {
				t.Errorf("expected %d added, got %v", tt.wantAdded, added)
			}
			if len(resolved) != tt.wantResolved {
				t.Errorf("expected %d resolved, got %v", tt.wantResolved, resolved)
			}
		})
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("no runs", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		out := c.mustRun(t, "history", "app.apk")
		if !strings.Contains(out, "No scans recorded for app.apk") {
			t.Errorf("unexpected output: %s", out)
		}

		_, _, err := c.run(t, "history", "app.apk", "--diff")
		if !errors.Is(err, errNotEnoughRuns) {
			t.Errorf("expected errNotEnoughRuns, got %v", err)
		}
	})

	t.Run("unknown package", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		_, _, err := c.run(t, "history", "nope.apk")
		if !errors.Is(err, model.ErrInputNotFound) {
			t.Errorf("expected ErrInputNotFound, got %v", err)
		}
	})

	t.Run("lists runs and diffs secrets", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		jadx := fakeJadx(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		first := decodeReports(t, c.mustRun(t, "scan", "-j", "1"))
		second := decodeReports(t, c.mustRun(t, "scan", "-S", "-j", "--jadx", jadx, "1"))

		out := c.mustRun(t, "history", "1")
		for _, want := range []string{"RUN", "CRITICAL", first[0].Report.RunID, second[0].Report.RunID} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}

		out = c.mustRun(t, "history", "1", "--diff")
		if !strings.Contains(out, "1 new, 0 resolved") {
			t.Errorf("unexpected diff:\n%s", out)
		}
		if !strings.Contains(out, "google_api_key") {
			t.Errorf("expected the new secret in the diff:\n%s", out)
		}

		out = c.mustRun(t, "history", "1", "--run", first[0].Report.RunID)
		if !strings.Contains(out, "APKSCAN REPORT") {
			t.Errorf("expected stored report, got:\n%s", out)
		}

		out = c.mustRun(t, "history", "1", "--run", first[0].Report.RunID, "-j")
		var stored jsonReport
		if err := json.Unmarshal([]byte(out), &stored); err != nil {
			t.Fatalf("expected one JSON document, got %v:\n%s", err, out)
		}
		if stored.Report.RunID != first[0].Report.RunID {
			t.Errorf("expected run %s, got %s", first[0].Report.RunID, stored.Report.RunID)
		}

		_, _, err := c.run(t, "history", "1", "--run", "no-such-run")
		if !errors.Is(err, model.ErrInputNotFound) {
			t.Errorf("expected ErrInputNotFound, got %v", err)
		}
	})
}
