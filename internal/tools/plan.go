package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agent-switcher/internal/runner"
)

const volumePrefix = "agent-switcher"

// Labels put on every container this binary starts.
const (
	LabelTool    = "agent-switcher.tool"
	LabelAccount = "agent-switcher.account"
)

// VolumeName is the per-(tool, account) named volume.
func VolumeName(toolID, account string) string {
	return volumePrefix + "-" + sanitizeVolumePart(toolID) + "-" + sanitizeVolumePart(account)
}

func sanitizeVolumePart(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// IsolationDirs are the per-(tool, account) XDG homes of a native tool.
type IsolationDirs struct {
	Base   string
	Config string
	Data   string
	State  string
}

func NewIsolationDirs(stateDir, toolID, account string) IsolationDirs {
	base := filepath.Join(stateDir, "tools", toolID, account)
	return IsolationDirs{
		Base:   base,
		Config: filepath.Join(base, "config"),
		Data:   filepath.Join(base, "data"),
		State:  filepath.Join(base, "state"),
	}
}

func (d IsolationDirs) Env() []string {
	return []string{
		"XDG_CONFIG_HOME=" + d.Config,
		"XDG_DATA_HOME=" + d.Data,
		"XDG_STATE_HOME=" + d.State,
	}
}

func (d IsolationDirs) ensure() error {
	for _, dir := range []string{d.Config, d.Data, d.State} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create isolation dir: %w", err)
		}
	}
	return nil
}

// NativePlan builds the process for a configured native tool. Isolated
// tools get their own XDG homes; otherwise only the declared env is added.
func NativePlan(def *ToolDefinition, account, stateDir, cwd string, args []string) (runner.Spec, error) {
	if def.Mode != ModeNative {
		return runner.Spec{}, fmt.Errorf("tool %s is not a native tool", def.ID)
	}
	env := def.SortedEnv()
	if def.Isolated() {
		dirs := NewIsolationDirs(stateDir, def.ID, account)
		if err := dirs.ensure(); err != nil {
			return runner.Spec{}, err
		}
		env = append(env, dirs.Env()...)
	}
	return runner.Spec{
		Name: def.Command,
		Args: append(append([]string{}, def.Args...), args...),
		Env:  env,
		Dir:  cwd,
	}, nil
}

// ContainerPlan builds the docker run for a configured container tool. The
// working directory is always bound; the account volume only when the
// definition declares where to mount it. The returned volume name is empty
// when none is mounted.
func ContainerPlan(def *ToolDefinition, account, cwd string, args []string, tty bool) (runner.ContainerRun, string, error) {
	if def.Mode != ModeContainer {
		return runner.ContainerRun{}, "", fmt.Errorf("tool %s is not a container tool", def.ID)
	}
	workdir := def.EffectiveWorkdir()
	run := runner.ContainerRun{
		Image:       def.Image,
		Mounts:      []runner.Mount{{Source: cwd, Target: workdir}},
		Env:         def.SortedEnv(),
		Labels:      map[string]string{LabelTool: def.ID, LabelAccount: account},
		Workdir:     workdir,
		Interactive: true,
		TTY:         tty,
	}
	if def.Command != "" {
		run.Command = append(run.Command, def.Command)
	}
	run.Command = append(append(run.Command, def.Args...), args...)

	volume := ""
	if def.ConfigMountPath != "" {
		volume = VolumeName(def.ID, account)
		run.Mounts = append(run.Mounts, runner.Mount{Source: volume, Target: def.ConfigMountPath})
	}
	return run, volume, nil
}

// ClaudePlan runs the claude binary against a per-account config dir.
func ClaudePlan(command, configDir, cwd string, args []string) (runner.Spec, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return runner.Spec{}, fmt.Errorf("create claude config dir: %w", err)
	}
	return runner.Spec{
		Name: command,
		Args: append([]string{}, args...),
		Env:  []string{"CLAUDE_CONFIG_DIR=" + configDir},
		Dir:  cwd,
	}, nil
}
