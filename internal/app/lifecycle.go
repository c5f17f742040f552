package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"agent-switcher/internal/config"
	"agent-switcher/internal/portguard"
	"agent-switcher/internal/runner"
)

const (
	forceBackupTag  = "bak"
	logoutBackupTag = "logout-bak"
)

// Login runs the codex login flow for account. Browser and device logins
// write the host cache, which is then synced into the account volume.
// api-key logins write only the volume.
func (s *Service) Login(ctx context.Context, account string, opts LoginOptions) error {
	if err := config.ValidateAccountLabel(account); err != nil {
		return WrapExit(ExitUserError, err)
	}
	if opts.Method == "" {
		opts.Method = LoginBrowser
	}
	logger := s.log.WithFields(log.Fields{"account": account, "method": opts.Method})

	if opts.Method == LoginAPIKey {
		return s.loginWithAPIKey(ctx, account, logger)
	}

	if err := os.MkdirAll(s.layout.CodexAccountDir(account), 0o700); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	authPath := s.layout.CodexAuthPath(account)
	if opts.Force {
		backup, err := moveAside(authPath, forceBackupTag, s.now())
		if err != nil {
			return WrapExit(ExitIOFailure, err)
		}
		if backup != "" {
			logger.WithField("backup", backup).Info("existing credential moved aside")
		}
	}
	if err := ensureFileStoreMode(s.layout.CodexConfigPath(account)); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	if err := s.requireCodexImage(ctx); err != nil {
		return err
	}
	if opts.Method == LoginBrowser && s.ports != nil {
		if err := s.ports.EnsureFree(ctx, portguard.LoginCallbackPort); err != nil {
			return err
		}
	}

	args := []string{"login"}
	run := s.codexContainer(account)
	run.Mounts = []runner.Mount{{Source: s.layout.CodexAccountDir(account), Target: containerCodexDir}}
	run.User = s.hostUser
	if opts.Method == LoginDevice {
		args = append(args, "--device-auth")
	} else {
		run.Network = "host"
	}
	run.Command = codexCommand(args...)

	watcher := newLoginURLWatcher(func(url string) {
		if !opts.OpenBrowser || s.browser == nil {
			return
		}
		if err := s.browser.Open(account, url); err != nil {
			logger.WithError(err).Warn("could not open login URL; open it manually")
		}
	})
	code, err := s.runner.Stream(ctx, runner.DockerSpec(runner.DockerRunArgs(run)), watcher.OnLine)
	if err != nil {
		return WrapExit(ExitIOFailure, fmt.Errorf("start codex login: %w", err))
	}
	if code != 0 {
		return WrapExit(ExitAuthFailure, fmt.Errorf("codex login exited with status %d", code))
	}

	if err := s.Sync(ctx, account); err != nil {
		return err
	}

	if code, err := s.Status(ctx, account); err != nil {
		logger.WithError(err).Warn("post-login status check failed")
	} else if code != 0 {
		logger.WithField("exit", code).Warn("post-login status check reports not logged in")
	}
	return nil
}

func (s *Service) loginWithAPIKey(ctx context.Context, account string, logger log.FieldLogger) error {
	key := strings.TrimSpace(s.settings.OpenAIAPIKey)
	if key == "" {
		return WrapExit(ExitUserError, errors.New("api-key login reads the key from OPENAI_API_KEY, which is not set"))
	}
	if err := s.requireCodexImage(ctx); err != nil {
		return err
	}
	if _, err := s.volumes.EnsureVolume(ctx, codexVolume(account), codexLabels(account)); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	run := s.codexContainer(account, codexCommand("login", "--with-api-key")...)
	run.TTY = false
	spec := runner.DockerSpec(runner.DockerRunArgs(run))
	spec.Stdin = strings.NewReader(key + "\n")
	code, err := s.runner.Run(ctx, spec)
	if err != nil {
		return WrapExit(ExitIOFailure, fmt.Errorf("start codex login: %w", err))
	}
	if code != 0 {
		return WrapExit(ExitAuthFailure, fmt.Errorf("codex login --with-api-key exited with status %d", code))
	}
	logger.Info("api-key stored in account volume; use status to inspect it")
	return nil
}

// Sync copies the host credential byte for byte into the account volume.
func (s *Service) Sync(ctx context.Context, account string) error {
	if err := config.ValidateAccountLabel(account); err != nil {
		return WrapExit(ExitUserError, err)
	}
	authPath := s.layout.CodexAuthPath(account)
	raw, err := os.ReadFile(authPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &CredentialError{
				Path: authPath,
				Msg:  "no host credential to sync",
				Hint: fmt.Sprintf("login may have failed; run `agent-switcher codex %s login`", account),
			}
		}
		return WrapExit(ExitIOFailure, err)
	}
	image, err := s.helperImage(ctx)
	if err != nil {
		return err
	}
	if _, err := s.volumes.EnsureVolume(ctx, codexVolume(account), codexLabels(account)); err != nil {
		return WrapExit(ExitIOFailure, err)
	}
	if err := s.volumes.WriteVolumeFile(ctx, s.volumeAuthFile(account, image), raw); err != nil {
		return WrapExit(ExitIOFailure, fmt.Errorf("write credential into volume %s: %w", codexVolume(account), err))
	}
	s.log.WithFields(log.Fields{"account": account, "volume": codexVolume(account)}).Debug("credential synced")
	return nil
}

// Logout runs codex logout against the account volume and moves the host
// credential aside. It returns the backup path, or "" when there was no
// host credential. Both halves always run.
func (s *Service) Logout(ctx context.Context, account string) (string, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return "", WrapExit(ExitUserError, err)
	}
	logger := s.log.WithField("account", account)

	containerErr := s.requireCodexImage(ctx)
	if containerErr == nil {
		run := s.codexContainer(account, codexCommand("logout")...)
		code, err := s.runner.Run(ctx, runner.DockerSpec(runner.DockerRunArgs(run)))
		switch {
		case err != nil:
			containerErr = WrapExit(ExitIOFailure, fmt.Errorf("start codex logout: %w", err))
		case code != 0:
			logger.WithField("exit", code).Warn("codex logout in container reported failure")
		}
	}

	backup, err := moveAside(s.layout.CodexAuthPath(account), logoutBackupTag, s.now())
	if err != nil {
		return "", WrapExit(ExitIOFailure, err)
	}
	if backup != "" {
		logger.WithField("backup", backup).Info("host credential moved aside")
	}
	return backup, containerErr
}

// Status runs `codex login status` in the account container. A non-zero
// exit code is the normal "not logged in" answer, not an error.
func (s *Service) Status(ctx context.Context, account string) (int, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return 0, WrapExit(ExitUserError, err)
	}
	if err := s.requireCodexImage(ctx); err != nil {
		return 0, err
	}
	s.checkDrift(ctx, account)
	run := s.codexContainer(account, codexCommand("login", "status")...)
	code, err := s.runner.Run(ctx, runner.DockerSpec(runner.DockerRunArgs(run)))
	if err != nil {
		return 0, WrapExit(ExitIOFailure, fmt.Errorf("start codex status: %w", err))
	}
	return code, nil
}

// checkDrift warns when the volume copy no longer matches the host cache,
// e.g. after the tool refreshed its tokens inside the container.
func (s *Service) checkDrift(ctx context.Context, account string) {
	host, err := os.ReadFile(s.layout.CodexAuthPath(account))
	if err != nil {
		return
	}
	logger := s.log.WithField("account", account)
	volume, err := s.volumes.ReadVolumeFile(ctx, s.volumeAuthFile(account, s.settings.CodexImage))
	if err != nil {
		logger.WithError(err).Debug("volume credential not readable")
		return
	}
	if !bytes.Equal(host, volume) {
		logger.Warn("volume credential differs from host cache")
	}
}

// Whoami decodes the identity token in the host credential. Nothing but
// masked values leaves this function.
func (s *Service) Whoami(account string) (*Identity, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return nil, WrapExit(ExitUserError, err)
	}
	path := s.layout.CodexAuthPath(account)
	auth, err := readAuthFile(path, account)
	if err != nil {
		return nil, err
	}
	if auth.isAPIKey() {
		return nil, &CredentialError{
			Path: path,
			Msg:  "api-key credentials carry no identity",
			Hint: fmt.Sprintf("use `agent-switcher codex %s status`", account),
		}
	}
	out := &Identity{Account: account, AuthMode: auth.AuthMode}
	claims := parseJWTClaims(auth.Tokens.IDToken)
	if claims == nil {
		return out, nil
	}
	sub, _ := claims["sub"].(string)
	accountID := extractAccountID(claims)
	if accountID == "" {
		accountID = auth.Tokens.AccountID
	}
	orgs := extractOrganizations(claims)
	for i := range orgs {
		orgs[i].ID = maskID(orgs[i].ID)
	}
	out.Claims = &IdentityClaims{
		Email:         maskEmail(extractEmail(claims)),
		Subject:       maskID(sub),
		AccountID:     maskID(accountID),
		PlanType:      extractPlanType(claims),
		Organizations: orgs,
	}
	return out, nil
}

// Run starts codex in the account container with cwd mounted at /work.
func (s *Service) Run(ctx context.Context, account, cwd string, args []string) (int, error) {
	return s.interactive(ctx, account, cwd, append([]string{"codex"}, args...))
}

// App opens a shell in the account container.
func (s *Service) App(ctx context.Context, account, cwd string) (int, error) {
	return s.interactive(ctx, account, cwd, []string{"bash", "-l"})
}

func (s *Service) interactive(ctx context.Context, account, cwd string, command []string) (int, error) {
	if err := config.ValidateAccountLabel(account); err != nil {
		return 0, WrapExit(ExitUserError, err)
	}
	if err := s.requireCodexImage(ctx); err != nil {
		return 0, err
	}
	if _, err := s.volumes.EnsureVolume(ctx, codexVolume(account), codexLabels(account)); err != nil {
		return 0, WrapExit(ExitIOFailure, err)
	}
	run := s.codexContainer(account, command...)
	run.Mounts = append([]runner.Mount{{Source: cwd, Target: containerWorkdir}}, run.Mounts...)
	run.Workdir = containerWorkdir
	code, err := s.runner.Run(ctx, runner.DockerSpec(runner.DockerRunArgs(run)))
	if err != nil {
		return 0, WrapExit(ExitIOFailure, err)
	}
	return code, nil
}
