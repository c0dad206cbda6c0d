package config

import (
	"errors"
	"fmt"
	"slices"
)

// Audit trail backends.
const (
	AuditJSONL    = "jsonl"
	AuditRotating = "rotating"
	AuditSQLite   = "sqlite"
)

// LoggingConfig selects where the allocation audit trail is written.
type LoggingConfig struct {
	Backend string `json:"backend"`
	// Path is a file for the JSONL backends and a DSN for sqlite.
	Path string `json:"path"`

	// Rotation settings, used by the rotating backend only.
	MaxSizeMB  int  `json:"max_size_mb"`
	MaxBackups int  `json:"max_backups"`
	MaxAgeDays int  `json:"max_age_days"`
	Compress   bool `json:"compress"`
}

func (c *LoggingConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = AuditJSONL
	}
	if c.Path == "" {
		c.Path = "dispatch.log"
	}
	if c.Backend == AuditRotating && c.MaxSizeMB == 0 {
		c.MaxSizeMB = 100
	}
}

func (c LoggingConfig) Validate() error {
	if !slices.Contains([]string{AuditJSONL, AuditRotating, AuditSQLite}, c.Backend) {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return errors.New("path is required")
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return errors.New("rotation limits must not be negative")
	}
	return nil
}
