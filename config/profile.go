package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile is a reusable description of a grid scan. Zero values mean "not set".
type Profile struct {
	Samples    int           `yaml:"samples"`
	FileSize   int64         `yaml:"file_size"`
	Workers    []int         `yaml:"workers"`
	Prefix     string        `yaml:"prefix"`
	Quiescence time.Duration `yaml:"quiescence"`
	OpTimeout  time.Duration `yaml:"op_timeout"`
	Payload    string        `yaml:"payload"`
	Verify     bool          `yaml:"verify"`
	Cleanup    bool          `yaml:"cleanup"`
	OnError    string        `yaml:"on_error"`
	RateLimit  int           `yaml:"rate_limit"`
	Format     string        `yaml:"format"`
}

// LoadProfile parses a YAML scan profile, rejecting unknown keys.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open profile")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	p := &Profile{}
	if err := dec.Decode(p); err != nil {
		return nil, &ConfigParseError{Path: path, Reason: err.Error()}
	}
	for _, w := range p.Workers {
		if w < 1 {
			return nil, &ConfigParseError{Path: path, Field: "workers", Reason: "worker counts must be >= 1"}
		}
	}
	if p.Samples < 0 || p.FileSize < 0 {
		return nil, &ConfigParseError{Path: path, Reason: "samples and file_size must be non-negative"}
	}
	return p, nil
}
