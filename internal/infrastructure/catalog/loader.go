// Package catalog loads the curriculum and achievement catalog from YAML or
// TOML and seeds it into the store at startup.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/schema"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// RequirementSchema is the stored shape of an achievement requirement.
var RequirementSchema = json.RawMessage(`{
  "type": "object",
  "required": ["type", "count"],
  "additionalProperties": false,
  "properties": {
    "type": {"enum": ["days_completed", "streak_days", "tasks_completed", "projects_completed"]},
    "count": {"type": "integer", "minimum": 1}
  }
}`)

// Catalog is a parsed catalog file.
type Catalog struct {
	Achievements []achievement.Definition
	Tracks       []TrackFile
	// Rejected holds achievements dropped in lenient mode.
	Rejected []error
}

// TrackFile is one track with its tasks.
type TrackFile struct {
	plan.Track `yaml:",inline"`
	Tasks      []plan.Task `yaml:"tasks"`
}

type fileAchievement struct {
	achievement.Definition `yaml:",inline"`
	Requirement            yaml.Node `yaml:"requirement"`
}

type file struct {
	Achievements []fileAchievement `yaml:"achievements"`
	Tracks       []TrackFile       `yaml:"tracks"`
}

// Options control parsing.
type Options struct {
	// Strict fails on the first malformed achievement instead of skipping it.
	Strict bool
}

// Loader parses catalog files.
type Loader struct {
	validator *schema.Validator
	opts      Options
	log       *logger.Logger
}

// NewLoader creates a Loader.
func NewLoader(validator *schema.Validator, opts Options, log *logger.Logger) *Loader {
	if validator == nil {
		validator = schema.NewValidator()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{validator: validator, opts: opts, log: log.With(logger.Component("catalog"))}
}

// LoadFile reads path, or the embedded default catalog when path is empty.
// Files ending in .toml are decoded as TOML, everything else as YAML.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Catalog, error) {
	if path == "" {
		return l.Parse(ctx, defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return l.ParseTOML(ctx, data)
	}
	return l.Parse(ctx, data)
}

// ParseTOML decodes a TOML catalog with the same keys as the YAML form.
func (l *Loader) ParseTOML(ctx context.Context, data []byte) (*Catalog, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	converted, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return l.Parse(ctx, converted)
}

// Parse decodes and validates a catalog document.
func (l *Loader) Parse(ctx context.Context, data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{Tracks: f.Tracks}
	seen := make(map[string]struct{}, len(f.Achievements))
	for _, fa := range f.Achievements {
		def, err := l.achievement(ctx, fa)
		if err == nil {
			if _, dup := seen[def.ID]; dup {
				err = fmt.Errorf("duplicate achievement id %q", def.ID)
			}
		}
		if err != nil {
			if l.opts.Strict {
				return nil, err
			}
			l.log.Warn("skipping malformed achievement", logger.AchievementID(fa.ID), logger.Err(err))
			c.Rejected = append(c.Rejected, err)
			continue
		}
		seen[def.ID] = struct{}{}
		c.Achievements = append(c.Achievements, def)
	}

	for i := range c.Tracks {
		t := &c.Tracks[i]
		for j := range t.Tasks {
			t.Tasks[j].TrackID = t.ID
		}
		if err := plan.Validate(t.Track, t.Tasks); err != nil {
			return nil, fmt.Errorf("invalid track: %w", err)
		}
		plan.SortTasks(t.Tasks)
	}
	return c, nil
}

func (l *Loader) achievement(ctx context.Context, fa fileAchievement) (achievement.Definition, error) {
	if fa.ID == "" {
		return achievement.Definition{}, errors.New("achievement without id")
	}
	var raw any
	if err := fa.Requirement.Decode(&raw); err != nil {
		return achievement.Definition{}, &achievement.RecordError{ID: fa.ID, Err: err}
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return achievement.Definition{}, &achievement.RecordError{ID: fa.ID, Err: err}
	}
	if err := l.validator.Validate(ctx, RequirementSchema, js); err != nil {
		return achievement.Definition{}, &achievement.RecordError{ID: fa.ID, Err: err}
	}
	req, err := achievement.ParseRequirement(js)
	if err != nil {
		return achievement.Definition{}, &achievement.RecordError{ID: fa.ID, Err: err}
	}
	def := fa.Definition
	def.Requirement = req
	return def, nil
}

// Report summarizes a seeding run.
type Report struct {
	Tracks       int
	Tasks        int
	Achievements int
	Rejected     int
}

// Seed upserts the catalog into the store.
func Seed(ctx context.Context, c *Catalog, plans plan.Repository, achievements achievement.Repository) (Report, error) {
	rep := Report{Rejected: len(c.Rejected)}
	for _, t := range c.Tracks {
		if err := plans.UpsertTrack(ctx, t.Track, t.Tasks); err != nil {
			return rep, fmt.Errorf("seed track %s: %w", t.ID, err)
		}
		rep.Tracks++
		rep.Tasks += len(t.Tasks)
	}
	for _, def := range c.Achievements {
		rec, err := def.ToRecord()
		if err != nil {
			return rep, fmt.Errorf("encode achievement %s: %w", def.ID, err)
		}
		if err := achievements.UpsertDefinition(ctx, rec); err != nil {
			return rep, fmt.Errorf("seed achievement %s: %w", def.ID, err)
		}
		rep.Achievements++
	}
	return rep, nil
}
