package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agent-switcher/internal/app"
	"agent-switcher/internal/config"
	"agent-switcher/internal/tools"
)

type resolution struct {
	Tool              string         `json:"tool"`
	Account           string         `json:"account,omitempty"`
	AccountKey        string         `json:"accountKey"`
	Error             string         `json:"error,omitempty"`
	ProjectConfigPath string         `json:"projectConfig,omitempty"`
	UserConfigPath    string         `json:"userConfig"`
	Volume            string         `json:"volume,omitempty"`
	Paths             *app.PathsInfo `json:"paths,omitempty"`
}

func newResolveCommand(e *env) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "resolve <tool> [account]",
		Short: "Show which account and config files a tool would use here",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := workingDir()
			if err != nil {
				return err
			}
			resolved, err := e.store.Resolve(cwd)
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])
			if _, builtIn := tools.GetBuiltIn(id); !builtIn {
				if _, err := tools.ResolveConfigured(id, resolved); err != nil {
					return err
				}
			}

			passed := ""
			if len(args) == 2 {
				passed = args[1]
			}
			out := resolution{
				Tool:              id,
				AccountKey:        config.AccountKey(id),
				ProjectConfigPath: resolved.ProjectConfigPath,
				UserConfigPath:    resolved.UserConfigPath,
			}
			account, resolveErr := config.ResolveAccountOrThrow(passed, out.AccountKey, resolved.Defaults())
			if resolveErr == nil {
				resolveErr = config.ValidateAccountLabel(account)
			}
			if resolveErr != nil {
				out.Error = resolveErr.Error()
			} else {
				out.Account = account
				out.Volume = tools.VolumeName(id, account)
				if id == "codex" {
					info, err := e.svc.Paths(account)
					if err != nil {
						return err
					}
					out.Paths = &info
				}
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				if err := printJSON(w, out); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(w, "tool: %s\n", out.Tool)
				fmt.Fprintf(w, "account: %s\n", zeroDefault(out.Account, "-"))
				fmt.Fprintf(w, "project_config: %s\n", zeroDefault(out.ProjectConfigPath, "-"))
				fmt.Fprintf(w, "user_config: %s\n", out.UserConfigPath)
				if out.Paths != nil {
					p := out.Paths
					fmt.Fprintf(w, "host_auth: %s\n", p.HostAuth)
					fmt.Fprintf(w, "store_mode: %s\n", p.StoreMode)
					fmt.Fprintf(w, "volume: %s (%s)\n", p.Volume, p.VolumeAuth)
					fmt.Fprintf(w, "browser_profile: %s\n", p.BrowserProfile)
					fmt.Fprintf(w, "snapshots: %s\n", p.SnapshotRoot)
					fmt.Fprintf(w, "image: %s (last rebuild %s)\n", p.CodexImage, zeroDefault(p.LastRebuild, "never"))
				}
			}
			return app.WrapExit(app.ExitUserError, resolveErr)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
