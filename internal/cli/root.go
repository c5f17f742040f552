package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"agent-switcher/internal/app"
	"agent-switcher/internal/browser"
	"agent-switcher/internal/config"
	"agent-switcher/internal/docker"
	"agent-switcher/internal/logging"
	"agent-switcher/internal/portguard"
	"agent-switcher/internal/runner"
	"agent-switcher/internal/tools"
)

// env is everything a command needs, built once after flags are parsed.
type env struct {
	settings *app.Settings
	log      *log.Logger
	svc      *app.Service
	store    *config.Store
	registry *tools.Registry
	runner   *runner.Runner
	docker   *docker.Lazy
}

func newEnv(logLevel string, stderr io.Writer) (*env, error) {
	settings, err := app.SettingsFromEnv(nil)
	if err != nil {
		return nil, app.WrapExit(app.ExitIOFailure, err)
	}
	if strings.TrimSpace(logLevel) != "" {
		settings.LogLevel = logLevel
	}
	logger := logging.Setup(stderr, settings.LogLevel)

	engine := &docker.Lazy{}
	run := runner.New(logger)
	layout := app.NewLayout(settings)
	store := config.NewStore(settings.UserConfigPath, settings.Home)

	svc := app.NewService(settings, app.Deps{
		Runner:  run,
		Volumes: engine,
		Ports: &portguard.Guard{
			Containers: engine,
			AutoStop:   settings.AutoStopPortConflicts,
			Log:        logger,
		},
		Browser: browser.New(layout.BrowserRoot(), settings.BrowserCommand),
		Log:     logger,
	})
	return &env{
		settings: settings,
		log:      logger,
		svc:      svc,
		store:    store,
		registry: tools.NewRegistry(store),
		runner:   run,
		docker:   engine,
	}, nil
}

func NewRootCommand() *cobra.Command {
	var logLevel string
	e := &env{}

	root := &cobra.Command{
		Use:           "agent-switcher",
		Short:         "Run AI coding CLIs with one isolated account per project",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			built, err := newEnv(logLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			*e = *built
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.docker != nil {
				_ = e.docker.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(newCodexCommand(e))
	root.AddCommand(newClaudeCommand(e))
	root.AddCommand(newRunCommand(e))
	root.AddCommand(newToolsCommand(e))
	root.AddCommand(newResolveCommand(e))

	return root
}

func workingDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", app.WrapExit(app.ExitIOFailure, fmt.Errorf("resolve working directory: %w", err))
	}
	return cwd, nil
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func zeroDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
