// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package catalog holds the ordered list of artifacts written by a run.
//
// Artifacts are described in a YAML manifest made of groups of related
// files, each group contributing its artifacts in order. The manifest is
// literal data, no template processing is applied to any content. The
// default manifest for the generator management backend is embedded in
// the package.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"github.com/choria-io/materialize"
	"gopkg.in/yaml.v3"
)

//go:embed gms.yaml
var defaultManifest []byte

// Manifest is the YAML document describing a catalog
type Manifest struct {
	Groups []Group `json:"groups" yaml:"groups"`
}

// Group is a set of related artifacts reported on together
type Group struct {
	Name      string     `json:"name" yaml:"name"`
	Artifacts []Artifact `json:"artifacts" yaml:"artifacts"`
}

// Artifact is a single file in a group
type Artifact struct {
	Path    string `json:"path" yaml:"path"`
	Content string `json:"content" yaml:"content"`
}

// Default parses the embedded generator management backend catalog
func Default() ([]materialize.Artifact, error) {
	return Parse(defaultManifest)
}

// Parse decodes a YAML manifest and flattens its groups into catalog order
func Parse(data []byte) ([]materialize.Artifact, error) {
	var m Manifest

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	err := dec.Decode(&m)
	switch {
	case errors.Is(err, io.EOF):
		return nil, fmt.Errorf("empty catalog manifest")
	case err != nil:
		return nil, fmt.Errorf("invalid catalog manifest: %w", err)
	}

	return m.Entries()
}

// Entries validates the manifest and returns its artifacts in order, each tagged with its group name
func (m *Manifest) Entries() ([]materialize.Artifact, error) {
	if len(m.Groups) == 0 {
		return nil, fmt.Errorf("no groups defined")
	}

	var res []materialize.Artifact
	for gi, g := range m.Groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group %d has no name", gi+1)
		}

		if len(g.Artifacts) == 0 {
			return nil, fmt.Errorf("group %s has no artifacts", g.Name)
		}

		for ai, a := range g.Artifacts {
			if a.Path == "" {
				return nil, fmt.Errorf("artifact %d in group %s has no path", ai+1, g.Name)
			}

			res = append(res, materialize.Artifact{Group: g.Name, Path: a.Path, Content: a.Content})
		}
	}

	return res, nil
}

// Groups returns the distinct group names of entries in the order they first appear
func Groups(entries []materialize.Artifact) []string {
	seen := map[string]bool{}
	var res []string

	for _, e := range entries {
		if seen[e.Group] {
			continue
		}

		seen[e.Group] = true
		res = append(res, e.Group)
	}

	return res
}
