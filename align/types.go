package align

// Point represents a 2D coordinate
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AffineMatrix for 2D transforms: x' = ax + by + tx, y' = cx + dy + ty
type AffineMatrix struct {
	A  float64 `json:"a"`
	B  float64 `json:"b"`
	Tx float64 `json:"tx"`
	C  float64 `json:"c"`
	D  float64 `json:"d"`
	Ty float64 `json:"ty"`
}

// Identity returns an identity matrix (no transformation)
func Identity() AffineMatrix {
	return AffineMatrix{A: 1, B: 0, Tx: 0, C: 0, D: 1, Ty: 0}
}

// Config represents the full configuration file
type Config struct {
	MQTT   MQTTConfig   `yaml:"mqtt" json:"mqtt"`
	Jobs   []JobConfig  `yaml:"jobs" json:"jobs"`
	Render RenderConfig `yaml:"render,omitempty" json:"render,omitempty"`
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	RequestTopic  string `yaml:"requestTopic" json:"requestTopic"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// JobConfig names a reference/target dataset pair to align.
// Reference and Target are file paths or http(s) URLs.
type JobConfig struct {
	ID        string `yaml:"id" json:"id"`
	Reference string `yaml:"reference" json:"reference"`
	Target    string `yaml:"target" json:"target"`
}

// RenderConfig holds overlay rendering settings
type RenderConfig struct {
	Resolution  float64 `yaml:"resolution,omitempty" json:"resolution,omitempty"`   // PNG DPI (default 300)
	PointRadius float64 `yaml:"pointRadius,omitempty" json:"pointRadius,omitempty"` // Marker radius in mm (default 1.5)
}

// GetJobByID returns the job config for the given ID
func (c *Config) GetJobByID(id string) *JobConfig {
	for i := range c.Jobs {
		if c.Jobs[i].ID == id {
			return &c.Jobs[i]
		}
	}
	return nil
}

// ResultSummary is the persisted form of a Result.
type ResultSummary struct {
	ID         string        `json:"id"`
	Disparity  float64       `json:"disparity"`
	Scale      float64       `json:"scale"`
	Rotation   [][]float64   `json:"rotation"`
	Reflection bool          `json:"reflection"`
	Points     int           `json:"points"`
	Dims       int           `json:"dims"`
	Transform  *AffineMatrix `json:"transform,omitempty"` // only for 2D data
	UpdatedAt  int64         `json:"updatedAt"`
}

// ResultCache stores summaries of the most recent result per job.
type ResultCache struct {
	Results     map[string]ResultSummary `json:"results"`
	LastUpdated int64                    `json:"lastUpdated"`
}
