package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Layout    LayoutConfig    `json:"layout"`
	Export    ExportConfig    `json:"export"`
	Detection DetectionConfig `json:"detection"`
}

// LayoutConfig holds the alignment engine tuning values
type LayoutConfig struct {
	MinBodyScale float64 `json:"min_body_scale"`
	MaxBodyScale float64 `json:"max_body_scale"`
	MinOverflow  float64 `json:"min_overflow"`
	HeadroomMin  float64 `json:"headroom_min"`
	HeadroomMax  float64 `json:"headroom_max"`
	CroppedHeadY float64 `json:"cropped_head_y"`
	MaxSideCrop  float64 `json:"max_side_crop"`
}

// ExportConfig holds defaults for composite rendering
type ExportConfig struct {
	Format        string  `json:"format"`
	Resolution    int     `json:"resolution"`
	Quality       float64 `json:"quality"`
	Encoding      string  `json:"encoding"`
	IncludeLabels bool    `json:"include_labels"`
	OutputDir     string  `json:"output_dir"`
}

// DetectionConfig holds configuration for the vision-model backend
type DetectionConfig struct {
	Backend     string `json:"backend"`
	Model       string `json:"model"`
	URL         string `json:"url"`
	SendFormat  string `json:"send_format"`
	SendMaxDim  int    `json:"send_max_dim"`
	SendQuality int    `json:"send_quality"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			MinBodyScale: 0.65,
			MaxBodyScale: 1.60,
			MinOverflow:  1.15,
			HeadroomMin:  0.05,
			HeadroomMax:  0.20,
			CroppedHeadY: 0.02,
			MaxSideCrop:  0.22,
		},
		Export: ExportConfig{
			Format:        "1:1",
			Resolution:    1080,
			Quality:       0.92,
			Encoding:      "jpg",
			IncludeLabels: true,
			OutputDir:     "./output",
		},
		Detection: DetectionConfig{
			Backend:     "ollama",
			Model:       "minicpm-v",
			URL:         "http://localhost:11434",
			SendFormat:  "jpg",
			SendMaxDim:  1024,
			SendQuality: 85,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Layout.MinBodyScale <= 0 || c.Layout.MinBodyScale > c.Layout.MaxBodyScale {
		return fmt.Errorf("layout.min_body_scale must be positive and not exceed layout.max_body_scale")
	}

	if c.Layout.MinOverflow < 1 {
		return fmt.Errorf("layout.min_overflow must be at least 1")
	}

	if c.Layout.HeadroomMin < 0 || c.Layout.HeadroomMin > c.Layout.HeadroomMax || c.Layout.HeadroomMax > 1 {
		return fmt.Errorf("layout headroom band must satisfy 0 <= min <= max <= 1")
	}

	if c.Layout.MaxSideCrop < 0 || c.Layout.MaxSideCrop > 1 {
		return fmt.Errorf("layout.max_side_crop must be between 0 and 1")
	}

	switch c.Export.Format {
	case "1:1", "4:5", "9:16":
	default:
		return fmt.Errorf("export.format must be 1:1, 4:5 or 9:16")
	}

	switch c.Export.Resolution {
	case 1080, 1440, 2160:
	default:
		return fmt.Errorf("export.resolution must be 1080, 1440 or 2160")
	}

	if c.Export.Quality < 0.8 || c.Export.Quality > 1.0 {
		return fmt.Errorf("export.quality must be between 0.8 and 1.0")
	}

	switch c.Export.Encoding {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("export.encoding must be jpg, png or webp")
	}

	switch c.Detection.Backend {
	case "ollama", "llamacpp":
	default:
		return fmt.Errorf("detection.backend must be ollama or llamacpp")
	}

	if c.Detection.SendMaxDim < 0 {
		return fmt.Errorf("detection.send_max_dim must not be negative")
	}

	if c.Detection.SendQuality < 1 || c.Detection.SendQuality > 100 {
		return fmt.Errorf("detection.send_quality must be between 1 and 100")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "pose-composite", "config.json")
}
