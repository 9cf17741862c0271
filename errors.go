// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"errors"
	"fmt"
)

var (
	// ErrPathTraversal is the kind of every *PathTraversalError
	ErrPathTraversal = errors.New("path is not in target directory")
	// ErrIO is the kind of every *IOFailure
	ErrIO = errors.New("filesystem operation failed")
)

// PathTraversalError reports a logical path that does not resolve to a location inside the base root
type PathTraversalError struct {
	Root string
	Path string
	// Link is set when the path crosses a symbolic link
	Link string
}

func (e *PathTraversalError) Error() string {
	if e == nil {
		return ""
	}

	if e.Path == "" {
		return "empty path is not in target directory " + e.Root
	}

	if e.Link != "" {
		return fmt.Sprintf("%s is not in target directory %s: %s is a symbolic link", e.Path, e.Root, e.Link)
	}

	return fmt.Sprintf("%s is not in target directory %s", e.Path, e.Root)
}

func (e *PathTraversalError) Unwrap() error { return ErrPathTraversal }

// IOFailure reports a directory creation or file write rejected by the filesystem
type IOFailure struct {
	// Op is the failed operation, mkdir or write
	Op   string
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both the ErrIO kind and the underlying filesystem error
func (e *IOFailure) Unwrap() []error { return []error{ErrIO, e.Err} }

// EntryFailure identifies the catalog entry that stopped a run
type EntryFailure struct {
	// Index is the zero based position of the entry in the catalog
	Index int
	Path  string
	Err   error
}

func (e *EntryFailure) Error() string {
	if e == nil {
		return ""
	}

	return fmt.Sprintf("entry %d (%s): %v", e.Index+1, e.Path, e.Err)
}

func (e *EntryFailure) Unwrap() error { return e.Err }
