// Package registry loads source seed lists for onboarding. Two formats:
// a YAML seed file checked into ops repos, and the XLSX sheet the admins
// maintain by hand. Both feed the same upsert path.
package registry

import (
	"context"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/showscout/showscout-cli/internal/model"
	"github.com/showscout/showscout-cli/internal/store"
)

// SourceSeed is one onboarding entry.
type SourceSeed struct {
	URL      string `yaml:"url"`
	Priority int    `yaml:"priority,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// LoadYAML reads a seed file. The file has a top-level "sources" key.
func LoadYAML(path string) ([]SourceSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read seed file %s", path)
	}

	var wrapper struct {
		Sources []SourceSeed `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "registry: parse seed file")
	}

	return applyDefaults(wrapper.Sources)
}

// applyDefaults validates URLs and fills missing priorities.
func applyDefaults(seeds []SourceSeed) ([]SourceSeed, error) {
	out := make([]SourceSeed, 0, len(seeds))
	for _, seed := range seeds {
		seed.URL = strings.TrimSpace(seed.URL)
		if seed.URL == "" {
			continue
		}
		u, err := url.Parse(seed.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, eris.Errorf("registry: invalid source url %q", seed.URL)
		}
		if seed.Priority == 0 {
			seed.Priority = model.DefaultPriority
		}
		seed.Priority = model.ClampPriority(seed.Priority)
		out = append(out, seed)
	}
	return out, nil
}

// Seed upserts every entry into the source registry. Re-seeding an existing
// source resets its priority to the seed value; disabled seeds are switched
// off.
func Seed(ctx context.Context, st store.Store, seeds []SourceSeed) (int, error) {
	upserted := 0
	for _, seed := range seeds {
		if _, err := st.UpsertSource(ctx, seed.URL, seed.Priority); err != nil {
			return upserted, eris.Wrapf(err, "registry: seed %s", seed.URL)
		}
		if seed.Disabled {
			if err := st.SetSourceEnabled(ctx, seed.URL, false); err != nil {
				return upserted, eris.Wrapf(err, "registry: disable %s", seed.URL)
			}
		}
		upserted++
	}

	zap.L().Info("source registry seeded", zap.Int("sources", upserted))
	return upserted, nil
}

// parsePriority reads a priority cell, tolerating blanks and floats the
// spreadsheet tool writes.
func parsePriority(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return model.DefaultPriority, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "registry: priority %q", cell)
	}
	return model.ClampPriority(int(f)), nil
}
