package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/model"
)

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id|name>",
		Short: "Show the stored manifest data of a package",
		Long: `Show prints the components, meta-data and permissions extracted from a
package's manifest by its most recent scan.

Examples:
  apkscan show 1
  apkscan show app-release.apk --kind activity`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}

	cmd.Flags().StringP("kind", "k", "", "Only show components of this kind (application, activity, service, receiver, provider)")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	kinds := model.ComponentKinds
	kindFlag, err := cmd.Flags().GetString("kind")
	if err != nil {
		return err
	}
	if kindFlag != "" {
		kind, err := model.ParseComponentKind(kindFlag)
		if err != nil {
			return err
		}
		kinds = []model.ComponentKind{kind}
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

	var rows [][]string
	for _, kind := range kinds {
		comps, err := e.repo.Components(ctx, apk.ID, kind)
		if err != nil {
			return err
		}
		for _, c := range comps {
			rows = append(rows, []string{kind.String(), c.Name(), attrText(c.Get("exported")), attrText(c.Get("permission"))})
		}
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		e.ui.println(e.ui.dim, fmt.Sprintf("No components stored for %s. Use 'apkscan scan %d' first.", apk.FileName, apk.ID))
		return nil
	}
	e.ui.println(e.ui.title, "Components of "+apk.FileName)
	fmt.Fprintln(out, e.ui.table([]string{"KIND", "NAME", "EXPORTED", "PERMISSION"}, rows))

	if kindFlag != "" {
		return nil
	}

	meta, err := e.repo.MetaData(ctx, apk.ID)
	if err != nil {
		return err
	}
	if len(meta) > 0 {
		rows = rows[:0]
		for _, md := range meta {
			value := md.Value
			if !value.Present() {
				value = md.Resource
			}
			rows = append(rows, []string{md.ParentKind.String(), attrText(md.Name), attrText(value)})
		}
		e.ui.println(e.ui.title, "Meta-data")
		fmt.Fprintln(out, e.ui.table([]string{"PARENT", "NAME", "VALUE"}, rows))
	}

	perms, err := e.repo.Permissions(ctx, apk.ID)
	if err != nil {
		return err
	}
	if len(perms) > 0 {
		e.ui.println(e.ui.title, "Permissions")
		for _, p := range perms {
			fmt.Fprintln(out, "  "+p)
		}
	}
	return nil
}

// attrText renders an attribute for a table cell.
func attrText(v model.AttrValue) string {
	if !v.Present() {
		return "-"
	}
	return v.String()
}
