package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"codecourt/store"
)

// SeedFile describes operator-provided bootstrap data for a fresh
// courthouse — languages, problem types, and configuration overrides
// applied once at startup. Grounded in the same hierarchical-override
// idea as a deployment's base config, expressed as YAML the way an
// operator hand-edits it rather than JSON generated by the API.
type SeedFile struct {
	Languages    []SeedLanguage    `yaml:"languages"`
	ProblemTypes []SeedProblemType `yaml:"problem_types"`
	Config       map[string]string `yaml:"config"`
}

type SeedLanguage struct {
	Name            string  `yaml:"name"`
	IsEnabled       bool    `yaml:"is_enabled"`
	RunScript       string  `yaml:"run_script"`
	SyntaxMode      string  `yaml:"syntax_mode"`
	DefaultTemplate *string `yaml:"default_template"`
}

type SeedProblemType struct {
	Name       string `yaml:"name"`
	EvalScript string `yaml:"eval_script"`
}

// seedStore is the narrow slice of *store.Store a seed load needs.
type seedStore interface {
	UpsertLanguage(ctx context.Context, l store.Language) error
	UpsertProblemType(ctx context.Context, pt store.ProblemType) error
}

// LoadSeedFile reads and parses a YAML seed file. Callers typically point
// this at an operator-supplied path (CODE_COURT_SEED_FILE) rather than
// something baked into the image.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read seed file: %w", err)
	}
	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("config: parse seed file: %w", err)
	}
	return &sf, nil
}

// Apply upserts every language and problem type in the seed file and
// overwrites the named configuration keys, the way EnsureDefaults fills in
// the rest. Safe to run on every boot: upserts are keyed by name.
func (sf *SeedFile) Apply(ctx context.Context, s seedStore, a *Accessor) error {
	for _, l := range sf.Languages {
		if err := s.UpsertLanguage(ctx, store.Language{
			Name:            l.Name,
			IsEnabled:       l.IsEnabled,
			RunScript:       l.RunScript,
			SyntaxMode:      l.SyntaxMode,
			DefaultTemplate: l.DefaultTemplate,
		}); err != nil {
			return err
		}
	}
	for _, pt := range sf.ProblemTypes {
		if err := s.UpsertProblemType(ctx, store.ProblemType{Name: pt.Name, EvalScript: pt.EvalScript}); err != nil {
			return err
		}
	}
	for key, val := range sf.Config {
		if err := a.setRaw(ctx, key, val); err != nil {
			return fmt.Errorf("config: seed config %s: %w", key, err)
		}
	}
	return nil
}
