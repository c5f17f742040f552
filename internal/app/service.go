package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"agent-switcher/internal/config"
	"agent-switcher/internal/docker"
	"agent-switcher/internal/runner"
	"agent-switcher/internal/tools"
)

const (
	containerWorkdir = "/work"
	codexUID         = 1000
	codexGID         = 1000
)

type Service struct {
	settings *Settings
	layout   Layout
	runner   ProcessRunner
	volumes  VolumeStore
	ports    PortChecker
	browser  URLOpener
	http     *http.Client
	log      log.FieldLogger
	now      func() time.Time
	tty      func() bool
	hostUser string
}

// Deps are the collaborators a Service drives. Nil fields fall back to
// the real implementations where one exists.
type Deps struct {
	Runner     ProcessRunner
	Volumes    VolumeStore
	Ports      PortChecker
	Browser    URLOpener
	HTTPClient *http.Client
	Log        log.FieldLogger
	Now        func() time.Time
	TTY        func() bool
}

func NewService(settings *Settings, deps Deps) *Service {
	s := &Service{
		settings: settings,
		layout:   NewLayout(settings),
		runner:   deps.Runner,
		volumes:  deps.Volumes,
		ports:    deps.Ports,
		browser:  deps.Browser,
		http:     deps.HTTPClient,
		log:      deps.Log,
		now:      deps.Now,
		tty:      deps.TTY,
		hostUser: hostUser(),
	}
	if s.log == nil {
		s.log = log.StandardLogger()
	}
	if s.runner == nil {
		s.runner = runner.New(s.log)
	}
	if s.http == nil {
		s.http = &http.Client{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tty == nil {
		s.tty = runner.StdinIsTerminal
	}
	return s
}

func (s *Service) Settings() *Settings { return s.settings }

func (s *Service) Layout() Layout { return s.layout }

// hostUser is passed to `docker run --user` for containers that write into
// a bind-mounted host directory, so files stay owned by the caller.
func hostUser() string {
	uid, gid := os.Getuid(), os.Getgid()
	if uid < 0 || gid < 0 {
		return ""
	}
	return strconv.Itoa(uid) + ":" + strconv.Itoa(gid)
}

func codexVolume(account string) string {
	return tools.VolumeName(codexToolID, account)
}

func codexLabels(account string) map[string]string {
	return map[string]string{tools.LabelTool: codexToolID, tools.LabelAccount: account}
}

func (s *Service) volumeAuthFile(account, image string) docker.VolumeFile {
	return docker.VolumeFile{
		Volume:   codexVolume(account),
		MountDir: containerCodexDir,
		Name:     authFileName,
		Image:    image,
		Mode:     0o600,
		UID:      codexUID,
		GID:      codexGID,
	}
}

func (s *Service) requireVolumes() error {
	if s.volumes == nil {
		return fmt.Errorf("container runtime is not available")
	}
	return nil
}

// requireCodexImage fails with a rebuild hint when the codex image has not
// been built yet.
func (s *Service) requireCodexImage(ctx context.Context) error {
	if err := s.requireVolumes(); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	ok, err := s.volumes.ImageExists(ctx, s.settings.CodexImage)
	if err != nil {
		return WrapExit(ExitIOFailure, fmt.Errorf("inspect image %s: %w", s.settings.CodexImage, err))
	}
	if !ok {
		return WrapExit(ExitUserError, fmt.Errorf("image %s not found; build it with `agent-switcher codex rebuild`", s.settings.CodexImage))
	}
	return nil
}

// helperImage picks an image that already exists locally for plain file
// copies: the codex image if built, else the small sync image.
func (s *Service) helperImage(ctx context.Context) (string, error) {
	if err := s.requireVolumes(); err != nil {
		return "", WrapExit(ExitIOFailure, err)
	}
	for _, ref := range []string{s.settings.CodexImage, s.settings.SyncImage} {
		ok, err := s.volumes.ImageExists(ctx, ref)
		if err != nil {
			return "", WrapExit(ExitIOFailure, fmt.Errorf("inspect image %s: %w", ref, err))
		}
		if ok {
			return ref, nil
		}
	}
	return "", WrapExit(ExitIOFailure, fmt.Errorf("neither %s nor %s is available locally; run `agent-switcher codex rebuild` or `docker pull %s`",
		s.settings.CodexImage, s.settings.SyncImage, s.settings.SyncImage))
}

// codexContainer is the base docker run for one account: its volume at
// CODEX_HOME and file credential storage forced on.
func (s *Service) codexContainer(account string, command ...string) runner.ContainerRun {
	return runner.ContainerRun{
		Image:       s.settings.CodexImage,
		Command:     command,
		Mounts:      []runner.Mount{{Source: codexVolume(account), Target: containerCodexDir}},
		Env:         []string{"CODEX_HOME=" + containerCodexDir},
		Labels:      codexLabels(account),
		Interactive: true,
		TTY:         s.tty(),
	}
}

func codexCommand(args ...string) []string {
	return append([]string{"codex", "-c", storeModeKey + `="` + fileStoreMode + `"`}, args...)
}

// Use records account as the project default for codex.
func (s *Service) Use(cwd, account string) (string, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return "", WrapExit(ExitUserError, err)
	}
	path, err := config.SetProjectDefault(cwd, codexToolID, account)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *Service) Paths(account string) (PathsInfo, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return PathsInfo{}, WrapExit(ExitUserError, err)
	}
	state, err := loadInstallState(s.layout.InstallStatePath())
	if err != nil {
		return PathsInfo{}, WrapExit(ExitIOFailure, err)
	}
	return PathsInfo{
		Account:        account,
		StateDir:       s.layout.Root,
		HostAuth:       s.layout.CodexAuthPath(account),
		HostConfig:     s.layout.CodexConfigPath(account),
		StoreMode:      storeMode(s.layout.CodexConfigPath(account)),
		Volume:         codexVolume(account),
		VolumeAuth:     containerCodexDir + "/" + authFileName,
		BrowserProfile: s.layout.BrowserProfileDir(account),
		SnapshotRoot:   s.layout.SnapshotRoot(),
		CodexImage:     s.settings.CodexImage,
		LastRebuild:    state.LastRebuild,
	}, nil
}
