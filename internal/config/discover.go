package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

const (
	ProjectConfigName       = ".agent-switcher.toml"
	LegacyProjectConfigName = ".agentswitch.toml"

	userConfigDir        = "agent-switcher"
	userConfigName       = "config.toml"
	legacyUserConfigName = ".agent-switcher.toml"
)

var projectConfigNames = []string{ProjectConfigName, LegacyProjectConfigName}

// FindProjectConfig walks from cwd upward looking for a project config file.
// The walk ends after the repository root has been checked, or at the
// filesystem root when cwd is not inside a repository.
func FindProjectConfig(cwd string) (string, bool, error) {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return "", false, err
	}
	root := repositoryRoot(dir)

	for {
		for _, name := range projectConfigNames {
			candidate := filepath.Join(dir, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, true, nil
			}
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return "", false, err
			}
		}
		if root != "" && dir == root {
			return "", false, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// repositoryRoot returns the worktree root containing dir, or "" when dir is
// not inside a repository. A .git entry may be a directory or a file that
// points elsewhere (linked worktrees, submodules).
func repositoryRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err == nil {
		wt, wtErr := repo.Worktree()
		if wtErr == nil {
			if root, absErr := filepath.Abs(wt.Filesystem.Root()); absErr == nil {
				return root
			}
		}
	}
	return markerRoot(dir)
}

// markerRoot finds the nearest directory holding a .git entry without
// parsing the repository. go-git refuses half-initialised repositories and
// worktree links whose target is gone; the marker alone still bounds the walk.
func markerRoot(dir string) string {
	for {
		if _, err := os.Lstat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// FindUserConfig returns the user config path and whether it exists. An
// explicit override is used verbatim. Otherwise the first existing of the
// default and legacy locations wins; if neither exists the default path is
// returned so writes land there.
func FindUserConfig(override, home string) (string, bool) {
	if override != "" {
		return override, fileExists(override)
	}
	defaultPath := filepath.Join(home, ".config", userConfigDir, userConfigName)
	candidates := []string{
		defaultPath,
		filepath.Join(home, legacyUserConfigName),
	}
	for _, candidate := range candidates {
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return defaultPath, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
