package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agent-switcher/internal/app"
	"agent-switcher/internal/tools"
)

func newToolsCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect built-in and configured tools",
	}
	cmd.AddCommand(newToolsListCommand(e))
	cmd.AddCommand(newToolsShowCommand(e))
	cmd.AddCommand(newToolsValidateCommand(e))
	return cmd
}

type toolRow struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Mode   string `json:"mode"`
	Note   string `json:"note,omitempty"`
}

func newToolsListCommand(e *env) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tools visible from the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := workingDir()
			if err != nil {
				return err
			}
			ids, err := e.registry.ListToolIDsForCwd(cwd)
			if err != nil {
				return err
			}
			resolved, err := e.store.Resolve(cwd)
			if err != nil {
				return err
			}
			rows := make([]toolRow, 0, len(ids))
			for _, id := range ids {
				if b, ok := tools.GetBuiltIn(id); ok {
					row := toolRow{ID: id, Source: "built-in", Mode: string(b.Mode)}
					if _, shadowed := resolved.MergedTools[id]; shadowed {
						row.Note = "configured definition ignored"
					}
					rows = append(rows, row)
					continue
				}
				row := toolRow{ID: id, Source: "config"}
				if def, err := tools.ResolveConfigured(id, resolved); err != nil {
					row.Note = "invalid: run `agent-switcher tools validate " + id + "`"
				} else {
					row.Mode = string(def.Mode)
				}
				rows = append(rows, row)
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), rows)
			}
			t := newTable("TOOL", "SOURCE", "MODE", "NOTE")
			for _, r := range rows {
				t.add(r.ID, r.Source, zeroDefault(r.Mode, "-"), r.Note)
			}
			return t.render(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newToolsShowCommand(e *env) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show <tool>",
		Short: "Print the effective definition of a tool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			var out []byte
			var err error
			if b, ok := tools.GetBuiltIn(id); ok {
				out, err = tools.RenderAny(b, format)
			} else {
				cwd, werr := workingDir()
				if werr != nil {
					return werr
				}
				def, rerr := e.registry.ResolveConfiguredTool(id, cwd)
				if rerr != nil {
					return rerr
				}
				out, err = tools.Render(def, format)
			}
			if err != nil {
				return app.WrapExit(app.ExitUserError, err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: "+strings.Join(tools.Formats, ", "))
	return cmd
}

func newToolsValidateCommand(e *env) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "validate [tool]",
		Short: "Check configured tool definitions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := workingDir()
			if err != nil {
				return err
			}
			resolved, err := e.store.Resolve(cwd)
			if err != nil {
				return err
			}
			ids := resolved.ConfiguredToolIDs()
			if len(args) == 1 {
				id := strings.TrimSpace(args[0])
				if _, ok := resolved.MergedTools[id]; !ok {
					return app.WrapExit(app.ExitUserError, fmt.Errorf("tool %q is not configured", id))
				}
				ids = []string{id}
			}

			results := make([]tools.Validation, 0, len(ids))
			invalid := 0
			for _, id := range ids {
				v := tools.ValidateToolDef(id, resolved.MergedTools[id])
				if !v.OK() {
					invalid++
				}
				results = append(results, v)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if err := printJSON(out, results); err != nil {
					return err
				}
			} else {
				if len(results) == 0 {
					fmt.Fprintln(out, "no configured tools")
				}
				for _, v := range results {
					status := "ok"
					if !v.OK() {
						status = "invalid"
					}
					fmt.Fprintf(out, "%s: %s\n", v.ID, status)
					for _, msg := range v.Errors {
						fmt.Fprintf(out, "  error: %s\n", msg)
					}
					for _, msg := range v.Warnings {
						fmt.Fprintf(out, "  warning: %s\n", msg)
					}
				}
			}
			if invalid > 0 {
				return app.WrapExit(app.ExitUserError, fmt.Errorf("%d of %d tool definitions invalid", invalid, len(results)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
