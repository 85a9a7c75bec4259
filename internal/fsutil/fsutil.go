// Package fsutil writes generated configuration files.
package fsutil

import (
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"

	"monolith.network/netpkg/internal/errors"
	"monolith.network/netpkg/internal/logging"
)

const (
	dirMode  os.FileMode = 0755
	fileMode os.FileMode = 0644
)

// chmod is swapped out in tests.
var chmod = os.Chmod

// WriteConfigFile creates the parent directory if needed, then overwrites
// path with content. A failing final chmod is logged and ignored.
func WriteConfigFile(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return errors.Wrapf(err, errors.KindIO, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, content, fileMode); err != nil {
		return errors.Wrapf(err, errors.KindIO, "failed to write %s", path)
	}
	if err := chmod(path, fileMode); err != nil {
		logging.WithComponent("fsutil").WithError(err).Warn("failed to set permissions", "path", path)
	}
	return nil
}

// Diff returns a unified diff between the current content of path and
// content. A missing file diffs against empty input. Identical content
// yields an empty string.
func Diff(path string, content []byte) string {
	current, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		logging.WithComponent("fsutil").WithError(err).Debug("cannot read current file for diff", "path", path)
	}

	text, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(content)),
		FromFile: path,
		ToFile:   path + " (generated)",
		Context:  3,
	})
	return text
}
