package plans

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	DefaultPlan string     `yaml:"default_plan"`
	TrialDays   int        `yaml:"trial_days"`
	Plans       []planFile `yaml:"plans"`
}

type planFile struct {
	ID          string             `yaml:"id"`
	Name        string             `yaml:"name"`
	Prices      map[Cycle]Money    `yaml:"prices"`
	Limits      map[Resource]int64 `yaml:"limits"`
	TrialLimits map[Resource]int64 `yaml:"trial_limits"`
	Features    []Feature          `yaml:"features"`
}

// Load decodes a YAML catalog definition.
func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	if f.TrialDays == 0 {
		f.TrialDays = DefaultTrialDays
	}

	list := make([]Plan, 0, len(f.Plans))
	for _, p := range f.Plans {
		list = append(list, Plan{
			ID:          p.ID,
			Name:        p.Name,
			Prices:      p.Prices,
			Limits:      p.Limits,
			TrialLimits: p.TrialLimits,
			Features:    p.Features,
		})
	}

	return NewCatalog(f.DefaultPlan, f.TrialDays, list...)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	defer f.Close()
	return Load(f)
}
