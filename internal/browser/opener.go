// Package browser opens login URLs in a per-account browser profile so
// concurrent logins for different accounts never share cookies.
package browser

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

var chromiumCandidates = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "brave-browser"}

type Opener struct {
	// ProfileRoot holds one profile directory per account.
	ProfileRoot string
	// Command is an optional launcher template. {url} and {profile} are
	// substituted per argument; without {url} the URL is appended.
	Command string

	GOOS     string
	LookPath func(file string) (string, error)
	Start    func(name string, args ...string) error
}

func New(profileRoot, command string) *Opener {
	return &Opener{ProfileRoot: profileRoot, Command: command}
}

func (o *Opener) ProfileDir(account string) string {
	return filepath.Join(o.ProfileRoot, account)
}

// Open launches a browser for url without waiting for it to exit.
func (o *Opener) Open(account, url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("empty url")
	}
	profile := o.ProfileDir(account)
	if err := os.MkdirAll(profile, 0o700); err != nil {
		return fmt.Errorf("create browser profile: %w", err)
	}
	name, args, err := o.plan(url, profile)
	if err != nil {
		return err
	}
	return o.start(name, args...)
}

func (o *Opener) plan(url, profile string) (string, []string, error) {
	if tmpl := strings.Fields(o.Command); len(tmpl) > 0 {
		args := make([]string, 0, len(tmpl))
		sawURL := false
		for _, part := range tmpl[1:] {
			if strings.Contains(part, "{url}") {
				sawURL = true
			}
			part = strings.ReplaceAll(part, "{url}", url)
			part = strings.ReplaceAll(part, "{profile}", profile)
			args = append(args, part)
		}
		if !sawURL {
			args = append(args, url)
		}
		return tmpl[0], args, nil
	}

	for _, candidate := range chromiumCandidates {
		if path, err := o.lookPath(candidate); err == nil {
			return path, []string{"--user-data-dir=" + profile, "--new-window", url}, nil
		}
	}
	switch o.goos() {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd":
		return "xdg-open", []string{url}, nil
	}
	return "", nil, fmt.Errorf("no browser launcher for %s; set AGENT_SWITCHER_BROWSER", o.goos())
}

func (o *Opener) goos() string {
	if o.GOOS != "" {
		return o.GOOS
	}
	return runtime.GOOS
}

func (o *Opener) lookPath(file string) (string, error) {
	if o.LookPath != nil {
		return o.LookPath(file)
	}
	return exec.LookPath(file)
}

func (o *Opener) start(name string, args ...string) error {
	if o.Start != nil {
		return o.Start(name, args...)
	}
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
