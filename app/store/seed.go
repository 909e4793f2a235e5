package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedConfig is the YAML format for a custom seed file. The jobs listed here
// replace the built-in fallback set used when no valid persisted data exists.
type SeedConfig struct {
	Jobs []Job `yaml:"jobs" json:"jobs"`
}

// Seed returns the built-in fallback job set. A fresh copy on each call,
// callers are free to mutate the result.
func Seed() []Job {
	return []Job{
		{
			ID:          "1",
			Title:       "Frontend Intern",
			Company:     "Acme",
			Location:    "Stockholm",
			Type:        TypeIntern,
			PostedAt:    "2025-09-15T09:30:00.000Z",
			SalaryFrom:  1200,
			SalaryTo:    1600,
			Currency:    "EUR",
			Tags:        []string{"react", "typescript", "css"},
			Description: "Work on UI components and tests.",
		},
		{
			ID:          "2",
			Title:       "Junior Frontend",
			Company:     "Globex",
			Location:    "Remote",
			Type:        TypeFullTime,
			PostedAt:    "2025-08-28T12:00:00.000Z",
			SalaryFrom:  2500,
			SalaryTo:    3200,
			Currency:    "EUR",
			Tags:        []string{"react", "zustand", "vite"},
			Description: "Build dashboards with charts.",
		},
		{
			ID:          "3",
			Title:       "UI Intern",
			Company:     "Initech",
			Location:    "Prague",
			Type:        TypeIntern,
			PostedAt:    "2025-09-30T10:15:00.000Z",
			SalaryFrom:  1100,
			SalaryTo:    1500,
			Currency:    "EUR",
			Tags:        []string{"react", "a11y"},
			Description: "Improve accessibility and forms.",
		},
	}
}

// LoadSeedFile reads a custom seed set from a YAML file. Every record must
// pass schema validation and ids must be unique, a bad seed file is a
// startup error rather than something to silently fall back from.
func LoadSeedFile(path string) ([]Job, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator's own config
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var cfg SeedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(cfg.Jobs) == 0 {
		return nil, fmt.Errorf("seed file %s has no jobs", path)
	}

	seen := make(map[string]bool, len(cfg.Jobs))
	for i, job := range cfg.Jobs {
		if err := Validate(job); err != nil {
			return nil, fmt.Errorf("seed file %s, job #%d: %w", path, i+1, err)
		}
		if seen[job.ID] {
			return nil, fmt.Errorf("seed file %s, job #%d: duplicate id %q", path, i+1, job.ID)
		}
		seen[job.ID] = true
	}

	return cfg.Jobs, nil
}
