package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded packages",
		Long: `List prints every package in the repository with its id, file name,
package name, last scan time and whether it is currently selected (*).`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	apks, err := e.repo.ListAPKs(cmd.Context())
	if err != nil {
		return err
	}
	if len(apks) == 0 {
		e.ui.println(e.ui.dim, "No packages loaded. Use 'apkscan load' first.")
		return nil
	}

	sess, err := e.sessions.Load()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(apks))
	for _, apk := range apks {
		selected := ""
		if sess.IsSelected(apk.ID) {
			selected = "*"
		}
		pkg := apk.PackageName
		if pkg == "" {
			pkg = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(apk.ID, 10),
			apk.FileName,
			pkg,
			apk.LastScannedText(),
			selected,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), e.ui.table([]string{"ID", "NAME", "PACKAGE", "LAST SCANNED", "SELECTED"}, rows))
	return nil
}
