package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"viaduct/internal/spec"
	"viaduct/source/kafka"
)

const SupportedSchema = "v1"

// LoadBridge merges the bridge YAML (if present) with env vars
// (prefix `VIADUCT__`, delimiter `__`), applies defaults and validates.
func LoadBridge(path string) (spec.File, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return spec.File{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != SupportedSchema {
		return spec.File{}, fmt.Errorf("bridge schema_version %q not supported (want %q)", sv, SupportedSchema)
	}

	_ = k.Load(env.Provider("VIADUCT__", "__", nil), nil)

	var cfg spec.File
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(c *spec.File) {
	if c.Driver == "" {
		c.Driver = "sarama"
	}
	if c.BufferCapacity == 0 {
		c.BufferCapacity = 4096
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = 200 * time.Millisecond
	}
	if c.InitialOffset == "" {
		c.InitialOffset = "latest"
	}
	if c.WindowInterval == 0 {
		c.WindowInterval = 500 * time.Millisecond
	}
	if c.EmitMaxPerWindow == 0 {
		c.EmitMaxPerWindow = 1024
	}
	if c.MetricsPort == 0 {
		c.MetricsPort = 9100
	}
	if len(c.Sinks) == 0 {
		c.Sinks = []string{"stdout"}
	}
}

func validate(c spec.File) error {
	policy, err := kafka.ParseOffsetPolicy(c.InitialOffset)
	if err != nil {
		return err
	}
	if policy.UsesApplicationOffset() && c.ApplicationName == "" {
		return fmt.Errorf("initial_offset %q requires application_name", c.InitialOffset)
	}
	if len(c.Assignment) == 0 {
		return errors.New("assignment must list at least one partition")
	}
	for _, p := range c.Assignment {
		if p.Cluster == "" || p.Topic == "" {
			return fmt.Errorf("assignment entry %+v: cluster and topic are required", p)
		}
		if p.Partition < 0 {
			return fmt.Errorf("assignment entry %+v: negative partition", p)
		}
	}
	return nil
}
