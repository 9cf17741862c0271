// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

const (
	dirMode  = 0755
	fileMode = 0644
)

// Artifact is a single file to place below the base root
type Artifact struct {
	// Group labels the set of related artifacts this one belongs to, used for progress notices
	Group string `json:"group" yaml:"group"`
	// Path is the slash separated location relative to the base root
	Path string `json:"path" yaml:"path"`
	// Content is written after normalization
	Content string `json:"content" yaml:"content"`
}

// Logger is the logging interface used by materializers and runs
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
}

// Materializer writes artifacts into a filesystem rooted at the base root
type Materializer struct {
	fs   billy.Filesystem
	root string
	log  Logger
}

// NewMaterializer creates a materializer writing to the local filesystem below baseRoot, baseRoot does not need to exist
func NewMaterializer(baseRoot string) (*Materializer, error) {
	cfg := Config{TargetDirectory: baseRoot}
	err := validateConfig(&cfg)
	if err != nil {
		return nil, err
	}

	return &Materializer{fs: osfs.New(cfg.TargetDirectory, osfs.WithBoundOS()), root: cfg.TargetDirectory}, nil
}

// NewMaterializerFS creates a materializer writing into fs, the root of fs is the base root
func NewMaterializerFS(fs billy.Filesystem) *Materializer {
	return &Materializer{fs: fs, root: fs.Root()}
}

// Logger configures a logger to use, no logging is done without this
func (m *Materializer) Logger(log Logger) {
	m.log = log
}

// Root is the base root all artifacts are resolved against
func (m *Materializer) Root() string {
	return m.root
}

// Materialize creates the parent directories of logicalPath, then writes the normalized content to it
// replacing any existing file. The resolved location is returned.
func (m *Materializer) Materialize(logicalPath string, content string) (string, error) {
	clean, target, err := resolve(m.root, logicalPath)
	if err != nil {
		return "", err
	}

	err = m.checkSymlinks(logicalPath, clean)
	if err != nil {
		return "", err
	}

	if dir := path.Dir(clean); dir != "." {
		err = m.fs.MkdirAll(filepath.FromSlash(dir), dirMode)
		if err != nil {
			return "", &IOFailure{Op: "mkdir", Path: filepath.Dir(target), Err: err}
		}
	}

	err = util.WriteFile(m.fs, filepath.FromSlash(clean), []byte(Normalize(content)), fileMode)
	if err != nil {
		return "", &IOFailure{Op: "write", Path: target, Err: err}
	}

	if m.log != nil {
		m.log.Debugf("Wrote %s", target)
	}

	return target, nil
}

// Materialize writes content to logicalPath below baseRoot using the local filesystem
func Materialize(baseRoot string, logicalPath string, content string) error {
	m, err := NewMaterializer(baseRoot)
	if err != nil {
		return err
	}

	_, err = m.Materialize(logicalPath, content)

	return err
}

// Normalize removes all trailing white space from content and terminates it with a single new line
func Normalize(content string) string {
	return strings.TrimRightFunc(content, unicode.IsSpace) + "\n"
}

// ResolvePath determines the absolute location of logicalPath below baseRoot
func ResolvePath(baseRoot string, logicalPath string) (string, error) {
	root, err := filepath.Abs(baseRoot)
	if err != nil {
		return "", fmt.Errorf("invalid target %s: %w", baseRoot, err)
	}

	_, target, err := resolve(root, logicalPath)

	return target, err
}

// resolve cleans logicalPath and joins it to root, the result must be strictly below root
func resolve(root string, logicalPath string) (clean string, target string, err error) {
	clean, err = cleanLogicalPath(root, logicalPath)
	if err != nil {
		return "", "", err
	}

	target = filepath.Join(root, filepath.FromSlash(clean))
	if target == root || !containedInDir(target, root) {
		return "", "", &PathTraversalError{Root: root, Path: logicalPath}
	}

	return clean, target, nil
}

// checkSymlinks rejects paths where the target or any existing ancestor below the root is a symbolic link,
// checking stops at the first component that cannot be inspected and the write reports any problem
func (m *Materializer) checkSymlinks(logicalPath string, clean string) error {
	parts := strings.Split(clean, "/")

	for i := range parts {
		p := filepath.FromSlash(path.Join(parts[:i+1]...))

		fi, err := m.fs.Lstat(p)
		if err != nil {
			return nil
		}

		if fi.Mode()&os.ModeSymlink != 0 {
			return &PathTraversalError{Root: m.root, Path: logicalPath, Link: filepath.Join(m.root, p)}
		}
	}

	return nil
}

// cleanLogicalPath returns the cleaned slash form of p, it must be relative and stay below the root
func cleanLogicalPath(root string, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", &PathTraversalError{Root: root, Path: p}
	}

	slashed := filepath.ToSlash(p)
	if path.IsAbs(slashed) || filepath.IsAbs(p) || filepath.VolumeName(p) != "" {
		return "", &PathTraversalError{Root: root, Path: p}
	}

	clean := path.Clean(slashed)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", &PathTraversalError{Root: root, Path: p}
	}

	return clean, nil
}

func containedInDir(path string, dir string) bool {
	if path == dir {
		return true
	}

	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	return strings.HasPrefix(path, dir)
}
