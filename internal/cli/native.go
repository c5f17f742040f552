package cli

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"agent-switcher/internal/app"
	"agent-switcher/internal/config"
	"agent-switcher/internal/runner"
	"agent-switcher/internal/tools"
)

func newClaudeCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:                "claude [account] [args...]",
		Short:              "Run claude with a per-account config directory",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := workingDir()
			if err != nil {
				return err
			}
			builtIn, _ := tools.GetBuiltIn("claude")
			d, account, err := resolveToolAccount(e, cwd, "claude", tools.HelperSet(builtIn), args)
			if err != nil {
				return err
			}
			spec, err := tools.ClaudePlan(e.settings.ClaudeCommand, e.svc.Layout().ClaudeConfigDir(account), cwd, d.Args)
			if err != nil {
				return app.WrapExit(app.ExitIOFailure, err)
			}
			e.log.WithFields(log.Fields{"tool": "claude", "account": account}).Debug("starting native tool")
			return exitWith(e.runner.Run(cmd.Context(), spec))
		},
	}
}

func newRunCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:                "run <tool> [account] [args...]",
		Short:              "Run a configured tool for an account",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
				return cmd.Help()
			}
			cwd, err := workingDir()
			if err != nil {
				return err
			}
			resolved, err := e.store.Resolve(cwd)
			if err != nil {
				return err
			}
			def, err := tools.ResolveConfigured(args[0], resolved)
			if err != nil {
				return err
			}
			d, account, err := resolveFrom(resolved, def.ID, nil, args[1:])
			if err != nil {
				return err
			}
			return runConfigured(cmd.Context(), e, def, account, cwd, d.Args)
		},
	}
}

func runConfigured(ctx context.Context, e *env, def *tools.ToolDefinition, account, cwd string, args []string) error {
	logger := e.log.WithFields(log.Fields{"tool": def.ID, "account": account, "mode": def.Mode})
	switch def.Mode {
	case tools.ModeNative:
		spec, err := tools.NativePlan(def, account, e.settings.StateDir, cwd, args)
		if err != nil {
			return app.WrapExit(app.ExitIOFailure, err)
		}
		logger.Debug("starting native tool")
		return exitWith(e.runner.Run(ctx, spec))
	case tools.ModeContainer:
		run, volume, err := tools.ContainerPlan(def, account, cwd, args, runner.StdinIsTerminal())
		if err != nil {
			return app.WrapExit(app.ExitUserError, err)
		}
		if volume != "" {
			labels := map[string]string{tools.LabelTool: def.ID, tools.LabelAccount: account}
			if _, err := e.docker.EnsureVolume(ctx, volume, labels); err != nil {
				return app.WrapExit(app.ExitIOFailure, fmt.Errorf("ensure volume %s: %w", volume, err))
			}
		}
		logger.WithField("image", def.Image).Debug("starting container tool")
		return exitWith(e.runner.Run(ctx, runner.DockerSpec(runner.DockerRunArgs(run))))
	}
	return app.WrapExit(app.ExitUserError, fmt.Errorf("tool %s has unknown mode %q", def.ID, def.Mode))
}

func resolveToolAccount(e *env, cwd, toolID string, helpers map[string]bool, args []string) (config.Disambiguation, string, error) {
	resolved, err := e.store.Resolve(cwd)
	if err != nil {
		return config.Disambiguation{}, "", err
	}
	return resolveFrom(resolved, toolID, helpers, args)
}

func resolveFrom(resolved *config.Resolved, toolID string, helpers map[string]bool, args []string) (config.Disambiguation, string, error) {
	accountArg, rest := "", []string(nil)
	if len(args) > 0 {
		accountArg, rest = args[0], args[1:]
	}
	d := config.Disambiguate(accountArg, rest, helpers)
	account, err := config.ResolveAccount(d, toolID, resolved)
	if err != nil {
		return d, "", err
	}
	return d, account, nil
}
