package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/model"
)

// maxSuggestions bounds the "did you mean" list of an unresolved name.
const maxSuggestions = 3

// NewSelectCmd creates the select command.
func NewSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select [id|name[,id|name...]]",
		Short: "Select packages for the next scan",
		Long: `Select adds packages to the current selection. Packages are named by
their repository id or file name, separated by spaces or commas. The
selection is kept between invocations and used by "scan" when no package
is given on its command line.

Without arguments the current selection is printed.

Examples:
  apkscan select 1,3
  apkscan select app-release.apk
  apkscan select --clear`,
		Args: cobra.ArbitraryArgs,
		RunE: runSelectCmd,
	}

	cmd.Flags().Bool("clear", false, "Clear the selection before adding")

	return cmd
}

// runSelectCmd executes the select command.
func runSelectCmd(cmd *cobra.Command, args []string) error {
	clearSel, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return err
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.sessions.Load()
	if err != nil {
		return err
	}

	identifiers := splitIdentifiers(args)
	if clearSel {
		sess.Clear()
	} else if len(identifiers) == 0 {
		return printSelection(cmd.Context(), e, sess.Selected)
	}

	var unresolved []string
	for _, identifier := range identifiers {
		apk, err := e.repo.FindByIdentifier(cmd.Context(), identifier)
		if err != nil {
			if !errors.Is(err, model.ErrInputNotFound) {
				return err
			}
			unresolved = append(unresolved, identifier)
			reportUnresolved(cmd.Context(), e, identifier)
			continue
		}
		sess.Select(apk.ID)
		e.ui.println(e.ui.success, fmt.Sprintf("Selected %s (id %d)", apk.FileName, apk.ID))
	}

	if err := e.sessions.Save(sess); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}
	if clearSel && len(identifiers) == 0 {
		e.ui.println(e.ui.dim, "Selection cleared")
	}

	if len(unresolved) > 0 {
		return fmt.Errorf("%w: %s", model.ErrInputNotFound, strings.Join(unresolved, ", "))
	}
	return nil
}

// splitIdentifiers splits arguments on commas and drops empty entries.
func splitIdentifiers(args []string) []string {
	var out []string
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// printSelection lists the selected packages.
func printSelection(ctx context.Context, e *env, ids []int64) error {
	if len(ids) == 0 {
		e.ui.println(e.ui.dim, "Nothing selected")
		return nil
	}
	e.ui.println(e.ui.title, "Selected packages:")
	for _, id := range ids {
		apk, err := e.repo.FindByID(ctx, id)
		if err != nil {
			e.ui.println(e.ui.warning, fmt.Sprintf("  %d (no longer in the repository)", id))
			continue
		}
		e.ui.println(e.ui.cell, fmt.Sprintf("%d  %s", apk.ID, apk.FileName))
	}
	return nil
}

// reportUnresolved prints an unresolved identifier with close file names.
func reportUnresolved(ctx context.Context, e *env, identifier string) {
	msg := fmt.Sprintf("No package %q", identifier)
	apks, err := e.repo.ListAPKs(ctx)
	if err == nil {
		if s := suggestNames(identifier, apks); len(s) > 0 {
			msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(s, ", "))
		}
	}
	e.ui.println(e.ui.warning, msg)
}

// suggestNames returns up to maxSuggestions file names that fuzzily match
// name, best match first.
func suggestNames(name string, apks []*model.APK) []string {
	names := make([]string, len(apks))
	for i, apk := range apks {
		names[i] = apk.FileName
	}

	matches := fuzzy.Find(name, names)
	out := make([]string, 0, maxSuggestions)
	for _, m := range matches {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

