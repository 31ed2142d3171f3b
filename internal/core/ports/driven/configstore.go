package driven

import "github.com/custodia-labs/lidarqc/internal/core/domain"

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and defaults.
type ConfigStore interface {
	// Load reads settings, applying defaults for anything unset.
	Load() (domain.Settings, error)

	// Save persists settings.
	Save(s domain.Settings) error

	// Path returns the configuration file path.
	Path() string
}
