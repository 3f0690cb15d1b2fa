package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/config"
	"github.com/nao1215/apkscan/internal/model"
	"github.com/nao1215/apkscan/internal/report"
)

// errNotEnoughRuns is returned by --diff for packages scanned fewer than
// two times.
var errNotEnoughRuns = errors.New("at least two scan runs are needed to compare")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <id|name>",
		Short: "Show the scan history of a package",
		Long: `History lists the stored scan runs of a package, newest first, with
the number of findings per severity.

With --run the stored report of that run is printed again. With --diff
the secret findings of the two most recent runs are compared
and new and resolved findings are printed.

Examples:
  apkscan history 1
  apkscan history app-release.apk --diff
  apkscan history 1 --run 4f1c2e0a-... --json`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("diff", false, "Compare the secret findings of the latest two runs")
	cmd.Flags().String("run", "", "Print the stored report of one run")
	cmd.Flags().BoolP("json", "j", false, "Print the stored report as JSON (with --run)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	diff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return err
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	apk, err := e.repo.FindByIdentifier(ctx, args[0])
	if err != nil {
		return err
	}

	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	if runID != "" {
		return printRun(ctx, cmd, e, apk, runID)
	}

	if diff {
		return runHistoryDiff(ctx, cmd, e, apk)
	}

	runs, err := e.repo.ListScanRuns(ctx, apk.ID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		e.ui.println(e.ui.dim, fmt.Sprintf("No scans recorded for %s", apk.FileName))
		return nil
	}

	e.ui.println(e.ui.title, fmt.Sprintf("Scan history of %s (id %d)", apk.FileName, apk.ID))
	headers := []string{"RUN", "SCANNED", "DURATION"}
	for i := len(severityColumns) - 1; i >= 0; i-- {
		headers = append(headers, severityColumns[i].String())
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		row := []string{
			run.RunID,
			run.ScannedAt.Local().Format("2006-01-02 15:04:05"),
			run.Duration.Round(time.Millisecond).String(),
		}
		for i := len(severityColumns) - 1; i >= 0; i-- {
			row = append(row, strconv.Itoa(run.RiskSummary[strings.ToLower(severityColumns[i].String())]))
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(cmd.OutOrStdout(), e.ui.table(headers, rows))
	return nil
}

// severityColumns are the history table columns, least severe first.
var severityColumns = []model.Severity{
	model.SeverityInfo,
	model.SeverityLow,
	model.SeverityMedium,
	model.SeverityHigh,
	model.SeverityCritical,
}

// runHistoryDiff prints the secret findings that appeared or disappeared
// between the two most recent runs.
func runHistoryDiff(ctx context.Context, cmd *cobra.Command, e *env, apk *model.APK) error {
	runs, err := e.repo.LatestScanRuns(ctx, apk.ID, 2)
	if err != nil {
		return err
	}
	if len(runs) < 2 {
		return fmt.Errorf("%w: %s has %d", errNotEnoughRuns, apk.FileName, len(runs))
	}
	latest, previous := runs[0], runs[1]

	current, err := e.repo.SecretFindings(ctx, latest.RunID)
	if err != nil {
		return err
	}
	before, err := e.repo.SecretFindings(ctx, previous.RunID)
	if err != nil {
		return err
	}
	added, resolved := diffSecrets(before, current)

	out := cmd.OutOrStdout()
	e.ui.println(e.ui.title, fmt.Sprintf("Secret changes of %s: %s -> %s", apk.FileName, previous.RunID, latest.RunID))
	if len(added) == 0 && len(resolved) == 0 {
		e.ui.println(e.ui.dim, "No changes")
		return nil
	}

	headers := []string{"CHANGE", "SEVERITY", "PATTERN", "LOCATION", "MATCH"}
	rows := make([][]string, 0, len(added)+len(resolved))
	for _, f := range added {
		rows = append(rows, secretRow("new", f))
	}
	for _, f := range resolved {
		rows = append(rows, secretRow("resolved", f))
	}
	fmt.Fprintln(out, e.ui.table(headers, rows))
	fmt.Fprintf(out, "%d new, %d resolved\n", len(added), len(resolved))
	return nil
}

// printRun renders a stored report of apk.
func printRun(ctx context.Context, cmd *cobra.Command, e *env, apk *model.APK, runID string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	r, err := e.repo.GetScanRun(ctx, runID)
	if err != nil {
		return err
	}
	if r.APK == nil || r.APK.ID != apk.ID {
		return fmt.Errorf("%w: run %s does not belong to %s", model.ErrInputNotFound, runID, apk.FileName)
	}

	cfg := &config.Config{JSONReport: asJSON, Verbose: persistentBool(cmd, "verbose")}
	_, err = newReportWriter(cfg, cmd.OutOrStdout(), report.WithPrettyPrint()).Write(r)
	return err
}

func secretRow(change string, f model.SecretFinding) []string {
	return []string{
		change,
		f.Severity.String(),
		f.PatternID,
		fmt.Sprintf("%s:%d", f.SourceFile, f.Line),
		f.MatchedText,
	}
}

// secretKey identifies a secret finding across runs.
type secretKey struct {
	pattern string
	file    string
	line    int
	match   string
}

func keyOf(f model.SecretFinding) secretKey {
	return secretKey{pattern: f.PatternID, file: f.SourceFile, line: f.Line, match: f.MatchedText}
}

// diffSecrets returns the findings of current missing from previous (added)
// and those of previous missing from current (resolved), in input order.
func diffSecrets(previous, current []model.SecretFinding) (added, resolved []model.SecretFinding) {
	seenPrev := make(map[secretKey]struct{}, len(previous))
	for _, f := range previous {
		seenPrev[keyOf(f)] = struct{}{}
	}
	seenCur := make(map[secretKey]struct{}, len(current))
	for _, f := range current {
		seenCur[keyOf(f)] = struct{}{}
	}

	for _, f := range current {
		if _, ok := seenPrev[keyOf(f)]; !ok {
			added = append(added, f)
		}
	}
	for _, f := range previous {
		if _, ok := seenCur[keyOf(f)]; !ok {
			resolved = append(resolved, f)
		}
	}
	return added, resolved
}
