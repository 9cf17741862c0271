// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"fmt"

	"github.com/google/uuid"
)

// State is the lifecycle state of a run
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsTerminal reports whether the run has finished
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

func isAllowedTransition(from State, to State) bool {
	switch from {
	case StateNotStarted:
		return to == StateInProgress
	case StateInProgress:
		return to == StateCompleted || to == StateFailed
	default:
		return false
	}
}

// Progress describes a group of related artifacts that was fully written
type Progress struct {
	// Group is the label shared by the artifacts
	Group string
	// Count is how many artifacts the group held
	Count int
	// Written is how many artifacts the run wrote so far, including this group
	Written int
}

// ProgressFunc receives a notice after every completed group
type ProgressFunc func(Progress)

// WrittenArtifact is an artifact that was placed on disk
type WrittenArtifact struct {
	Group string
	Path  string
	// Location is the resolved absolute location
	Location string
}

// RunSummary is the outcome of a run
type RunSummary struct {
	// ID is unique per run and included in log lines
	ID    string
	State State
	// Root is the resolved base root
	Root string
	// Written lists the artifacts written, in catalog order
	Written []WrittenArtifact
	// Failure is set when the run failed
	Failure *EntryFailure
}

// Count is the number of artifacts written
func (s *RunSummary) Count() int {
	return len(s.Written)
}

// Locations are the resolved locations of all written artifacts
func (s *RunSummary) Locations() []string {
	res := make([]string, 0, len(s.Written))
	for _, w := range s.Written {
		res = append(res, w.Location)
	}

	return res
}

// RunOption configures a run
type RunOption func(*runner)

// WithLogger logs the run progress to log
func WithLogger(log Logger) RunOption {
	return func(r *runner) {
		r.log = log
	}
}

// WithProgress calls cb after each completed group of related artifacts
func WithProgress(cb ProgressFunc) RunOption {
	return func(r *runner) {
		r.progress = cb
	}
}

type runner struct {
	m        *Materializer
	log      Logger
	progress ProgressFunc
	summary  *RunSummary
}

// Run materializes entries in order below baseRoot on the local filesystem, stopping at the first failure
func Run(baseRoot string, entries []Artifact, opts ...RunOption) (*RunSummary, error) {
	m, err := NewMaterializer(baseRoot)
	if err != nil {
		return nil, err
	}

	return RunWith(m, entries, opts...)
}

// RunWith materializes entries in order using m, stopping at the first failure.
//
// The summary is always returned, on failure it holds the artifacts written before the failing
// entry and the returned error is the *EntryFailure describing it. Files written before a
// failure are left in place.
func RunWith(m *Materializer, entries []Artifact, opts ...RunOption) (*RunSummary, error) {
	r := &runner{
		m:       m,
		summary: &RunSummary{ID: uuid.NewString(), State: StateNotStarted, Root: m.Root()},
	}

	for _, o := range opts {
		o(r)
	}

	if r.log != nil {
		m.Logger(r.log)
	}

	return r.summary, r.run(entries)
}

func (r *runner) transition(to State) error {
	if !isAllowedTransition(r.summary.State, to) {
		return fmt.Errorf("invalid run state transition %s -> %s", r.summary.State, to)
	}

	r.summary.State = to

	return nil
}

func (r *runner) run(entries []Artifact) error {
	err := r.transition(StateInProgress)
	if err != nil {
		return err
	}

	if r.log != nil {
		r.log.Debugf("Run %s materializing %d artifacts into %s", r.summary.ID, len(entries), r.summary.Root)
	}

	groupCount := 0
	for i, e := range entries {
		loc, err := r.m.Materialize(e.Path, e.Content)
		if err != nil {
			r.summary.Failure = &EntryFailure{Index: i, Path: e.Path, Err: err}
			if r.log != nil {
				r.log.Infof("Run %s failed after writing %d artifacts: %v", r.summary.ID, r.summary.Count(), r.summary.Failure)
			}

			terr := r.transition(StateFailed)
			if terr != nil {
				return terr
			}

			return r.summary.Failure
		}

		r.summary.Written = append(r.summary.Written, WrittenArtifact{Group: e.Group, Path: e.Path, Location: loc})
		groupCount++

		if r.log != nil {
			r.log.Infof("Rendered %s", loc)
		}

		if i == len(entries)-1 || entries[i+1].Group != e.Group {
			r.notify(Progress{Group: e.Group, Count: groupCount, Written: r.summary.Count()})
			groupCount = 0
		}
	}

	if r.log != nil {
		r.log.Debugf("Run %s completed with %d artifacts", r.summary.ID, r.summary.Count())
	}

	return r.transition(StateCompleted)
}

func (r *runner) notify(p Progress) {
	if r.progress == nil || p.Group == "" {
		return
	}

	r.progress(p)
}
