package config

import (
	"errors"
	"runtime"

	"github.com/cindexd/cindexd/internal/cxierr"
)

// Validator validates configuration and applies smart defaults for
// fields left at their zero value.
type Validator struct{}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg and fills in any zero-valued
// field that has a sensible runtime-derived default.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return cxierr.Wrap(cxierr.SchemaMismatch, err, "project config")
	}
	if err := v.validateJobsConfig(&cfg.Jobs); err != nil {
		return cxierr.Wrap(cxierr.SchemaMismatch, err, "jobs config")
	}
	if err := v.validateWatchConfig(&cfg.Watch); err != nil {
		return cxierr.Wrap(cxierr.SchemaMismatch, err, "watch config")
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateJobsConfig(jobs *Jobs) error {
	if jobs.Workers < 0 {
		return errors.New("Jobs.Workers cannot be negative")
	}
	return nil
}

func (v *Validator) validateWatchConfig(watch *Watch) error {
	if watch.DebounceMs < 0 {
		return errors.New("Watch.DebounceMs cannot be negative")
	}
	return nil
}

// setSmartDefaults fills in runtime-derived defaults for fields a
// caller left unset (zero value), rather than requiring every config
// to spell out e.g. the worker count explicitly.
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Jobs.Workers == 0 {
		cfg.Jobs.Workers = runtime.NumCPU()
	}
	if cfg.Store.Dir == "" {
		cfg.Store.Dir = ".cindexd"
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 300
	}
}

// ValidateConfig is a convenience function for quick validation.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
