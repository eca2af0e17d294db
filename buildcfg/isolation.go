package buildcfg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/mod/modfile"

	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
)

// FindWorkspace returns the go.work file governing dir, or "" when there is
// none. GOWORK overrides the search the way the go command does.
func FindWorkspace(dir string) (string, error) {
	if gowork, ok := os.LookupEnv("GOWORK"); ok {
		if gowork == "off" || gowork == "" {
			return "", nil
		}
		return gowork, nil
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, "go.work")
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// FindModuleRoot returns the directory of the go.mod governing dir.
func FindModuleRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if fi, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		dir = parent
	}
}

// CheckIsolation verifies that building profile from dir cannot pick up
// settings from other modules. Isolated profiles always pass because the
// plan disables workspaces. A non-isolated profile fails when an enclosing
// go.work uses any module other than the one being built, or replaces
// dependencies.
func CheckIsolation(profile *entities.BuildProfile, dir string) error {
	if profile.IsIsolated() {
		return nil
	}

	workPath, err := FindWorkspace(dir)
	if err != nil {
		return &errors.ConfigError{Field: "isolated", Err: err}
	}
	if workPath == "" {
		return nil
	}

	data, err := os.ReadFile(workPath)
	if err != nil {
		return &errors.ConfigError{Field: "isolated", Err: err}
	}
	work, err := modfile.ParseWork(workPath, data, nil)
	if err != nil {
		return &errors.ConfigError{Field: "isolated", Err: fmt.Errorf("parse %s: %w", workPath, err)}
	}

	modRoot, err := FindModuleRoot(dir)
	if err != nil {
		return &errors.ConfigError{Field: "isolated", Err: err}
	}

	workDir := filepath.Dir(workPath)
	var others []string
	for _, use := range work.Use {
		path := use.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		if filepath.Clean(path) != modRoot {
			others = append(others, use.Path)
		}
	}
	for _, rep := range work.Replace {
		others = append(others, "replace "+rep.Old.Path)
	}
	if len(others) == 0 {
		return nil
	}
	sort.Strings(others)
	return &errors.IsolationError{Workspace: workPath, Uses: others}
}
