package align

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPublishPrefix is the MQTT topic prefix used when none is configured.
	DefaultPublishPrefix = "procrustes"

	// DefaultResolution is the PNG DPI used when none is configured.
	DefaultResolution = 300.0

	// DefaultPointRadius is the marker radius in mm used when none is configured.
	DefaultPointRadius = 1.5
)

// LoadConfig loads the unified configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	return &config, nil
}

// Validate checks that the config describes at least one job or an MQTT
// broker, and that every job is complete and uniquely named.
func (c *Config) Validate() error {
	if len(c.Jobs) == 0 && c.MQTT.Broker == "" {
		return fmt.Errorf("at least one job or mqtt.broker must be defined")
	}

	seen := make(map[string]bool, len(c.Jobs))
	for i, job := range c.Jobs {
		if err := ValidateID(job.ID); err != nil {
			return fmt.Errorf("jobs[%d].%w", i, err)
		}
		if seen[job.ID] {
			return fmt.Errorf("jobs[%d].id %q is duplicated", i, job.ID)
		}
		seen[job.ID] = true
		if job.Reference == "" {
			return fmt.Errorf("jobs[%d].reference is required for %s", i, job.ID)
		}
		if job.Target == "" {
			return fmt.Errorf("jobs[%d].target is required for %s", i, job.ID)
		}
	}

	if c.Render.Resolution < 0 {
		return fmt.Errorf("render.resolution must not be negative")
	}
	if c.Render.PointRadius < 0 {
		return fmt.Errorf("render.pointRadius must not be negative")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.MQTT.PublishPrefix == "" {
		c.MQTT.PublishPrefix = DefaultPublishPrefix
	}
	if c.MQTT.RequestTopic == "" {
		c.MQTT.RequestTopic = c.MQTT.PublishPrefix + "/align"
	}
	if c.Render.Resolution == 0 {
		c.Render.Resolution = DefaultResolution
	}
	if c.Render.PointRadius == 0 {
		c.Render.PointRadius = DefaultPointRadius
	}
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
