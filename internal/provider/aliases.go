package provider

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// CapacityMode selects how slot capacity is read.
type CapacityMode string

const (
	// CapacityPerSlot keeps a slot only when its own capacity field is a
	// positive integer.
	CapacityPerSlot CapacityMode = "per_slot"
	// CapacityListing is for deployments that publish capacity outside the
	// slot list: every listed slot counts as available.
	CapacityListing CapacityMode = "listing"
)

// Aliases lists, per concept, the field names seen across provider
// deployments. Lookups try them in order; the first present one wins.
type Aliases struct {
	DateList     []string     `yaml:"date_list"`
	DateValue    []string     `yaml:"date_value"`
	SlotList     []string     `yaml:"slot_list"`
	SlotTime     []string     `yaml:"slot_time"`
	Capacity     []string     `yaml:"capacity"`
	CapacityMode CapacityMode `yaml:"capacity_mode"`
}

func DefaultAliases() Aliases {
	return Aliases{
		DateList:     []string{"date", "dates"},
		DateValue:    []string{"date", "day"},
		SlotList:     []string{"product", "products"},
		SlotTime:     []string{"time", "startTime", "start_time"},
		Capacity:     []string{"available", "remaining", "availableCount"},
		CapacityMode: CapacityPerSlot,
	}
}

// LoadAliases reads an alias table from a YAML file. Concepts the file does
// not mention keep their defaults. An empty path returns the defaults.
func LoadAliases(path string) (Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Aliases{}, fmt.Errorf("read field aliases: %w", err)
	}
	var a Aliases
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Aliases{}, fmt.Errorf("parse field aliases %s: %w", path, err)
	}
	if err := mergo.Merge(&a, DefaultAliases()); err != nil {
		return Aliases{}, fmt.Errorf("merge field aliases: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Aliases{}, fmt.Errorf("field aliases %s: %w", path, err)
	}
	return a, nil
}

func (a Aliases) Validate() error {
	switch a.CapacityMode {
	case CapacityPerSlot, CapacityListing:
	default:
		return fmt.Errorf("unknown capacity_mode %q", a.CapacityMode)
	}
	return nil
}
