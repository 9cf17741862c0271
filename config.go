// Copyright (c) 2023-2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"fmt"
	"path/filepath"
)

// Config configures a materialization run
type Config struct {
	// TargetDirectory is the base root all artifacts are placed in, it is created when needed and existing files are overwritten
	TargetDirectory string `json:"target" yaml:"target"`
}

func validateConfig(cfg *Config) error {
	if cfg.TargetDirectory == "" {
		return fmt.Errorf("target is required")
	}

	var err error
	cfg.TargetDirectory, err = filepath.Abs(cfg.TargetDirectory)
	if err != nil {
		return fmt.Errorf("invalid target %s: %v", cfg.TargetDirectory, err)
	}

	return nil
}
