package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds pipeline configuration values. It maps one-to-one onto the
// JSON configuration file accepted by the CLI.
type Config struct {
	// Forwarding enables EX/MEM and MEM/WB operand bypassing.
	// Default: true.
	Forwarding bool `json:"forwarding"`

	// StructuralHazard models a single shared memory port: fetch is
	// blocked while a load or store occupies EX/MEM. Default: false.
	StructuralHazard bool `json:"structural_hazard"`

	// Predictor selects the branch prediction mode:
	// "none", "static_nt", or "onebit". Default: "none".
	Predictor string `json:"predictor"`
}

// DefaultConfig returns the default pipeline configuration.
func DefaultConfig() *Config {
	return &Config{
		Forwarding:       true,
		StructuralHazard: false,
		Predictor:        "none",
	}
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return config, nil
}

// Options converts the configuration into pipeline options.
func (c *Config) Options() ([]PipelineOption, error) {
	mode, err := ParsePredictorMode(c.Predictor)
	if err != nil {
		return nil, err
	}
	return []PipelineOption{
		WithForwarding(c.Forwarding),
		WithStructuralHazard(c.StructuralHazard),
		WithPredictor(mode),
	}, nil
}
