package config

import "fmt"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// DSN is the sqlite file path or the postgres connection string.
	DSN string `json:"dsn"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite, BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for backend %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
}
