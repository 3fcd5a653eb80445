package feed

import (
	"time"

	"github.com/lysyi3m/quake-report/app/quake"
)

// Snapshot is the latest delivered outcome for one feed.
// Available is false when the last load produced no data.
type Snapshot struct {
	Records   []quake.Record
	Available bool
	UpdatedAt time.Time
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled         bool     `yaml:"enabled"`
	RefreshInterval int      `yaml:"refresh_interval"` // seconds
	MaxItems        int      `yaml:"max_items"`
	MinMagnitude    *float64 `yaml:"min_magnitude"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"` // place, title or url
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
