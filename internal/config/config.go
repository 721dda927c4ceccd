package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/koala-nodes/aspect-latent/pkg/latent"
	"github.com/koala-nodes/aspect-latent/pkg/node"
	"github.com/koala-nodes/aspect-latent/pkg/ratio"
)

// Config holds the application configuration
type Config struct {
	Node   NodeConfig   `toml:"node"`
	Output OutputConfig `toml:"output"`
	Vision VisionConfig `toml:"vision"`
}

// NodeConfig holds the node's batch limits and fallback size
type NodeConfig struct {
	BatchSize     int  `toml:"batch_size"`
	MinBatch      int  `toml:"min_batch"`
	MaxBatch      int  `toml:"max_batch"`
	ClampBatch    bool `toml:"clamp_batch"`
	Channels      int  `toml:"channels"`
	DefaultWidth  int  `toml:"default_width"`
	DefaultHeight int  `toml:"default_height"`
}

// OutputConfig holds configuration for fitted images
type OutputConfig struct {
	Format   string `toml:"format"`
	Quality  int    `toml:"quality"`
	Lossless bool   `toml:"lossless"`
	Dir      string `toml:"dir"`
	Suffix   string `toml:"suffix"`
}

// VisionConfig holds configuration for subject-aware fitting
type VisionConfig struct {
	Backend     string  `toml:"backend"`
	URL         string  `toml:"url"`
	Model       string  `toml:"model"`
	SendFormat  string  `toml:"send_format"`
	SendSize    int     `toml:"send_size"`
	SendQuality int     `toml:"send_quality"`
	Zoom        float64 `toml:"zoom"`
	// SaliencySize is the longest side the saliency backend analyzes at
	SaliencySize int `toml:"saliency_size"`
}

// Default returns a configuration with default values
func Default() *Config {
	def := ratio.Default()
	return &Config{
		Node: NodeConfig{
			BatchSize:     1,
			MinBatch:      1,
			MaxBatch:      64,
			Channels:      latent.DefaultChannels,
			DefaultWidth:  def.Width,
			DefaultHeight: def.Height,
		},
		Output: OutputConfig{
			Format:  "png",
			Quality: 90,
			Dir:     "out",
			Suffix:  "_fit",
		},
		Vision: VisionConfig{
			URL:          "http://localhost:11434",
			Model:        "openbmb/minicpm-v4.5",
			SendFormat:   "jpg",
			SendSize:     1536,
			SendQuality:  85,
			Zoom:         1.0,
			SaliencySize: 256,
		},
	}
}

// LoadFromFile loads configuration from a TOML file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(filename, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Load reads filename if it exists and falls back to defaults otherwise
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}
	return LoadFromFile(filename)
}

// SaveToFile saves configuration to a TOML file
func (c *Config) SaveToFile(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	n := c.Node
	if n.MinBatch < node.MinBatchSize || n.MaxBatch < n.MinBatch || n.MaxBatch > node.MaxBatchSize {
		return fmt.Errorf("node.min_batch and node.max_batch must satisfy %d <= min <= max <= %d", node.MinBatchSize, node.MaxBatchSize)
	}
	if n.BatchSize < n.MinBatch || n.BatchSize > n.MaxBatch {
		return fmt.Errorf("node.batch_size must be between %d and %d", n.MinBatch, n.MaxBatch)
	}
	if n.Channels < 1 {
		return fmt.Errorf("node.channels must be positive")
	}
	if _, ok := ratio.Lookup(n.DefaultWidth, n.DefaultHeight); !ok {
		return fmt.Errorf("node.default_width x node.default_height (%dx%d) is not a table entry", n.DefaultWidth, n.DefaultHeight)
	}

	switch strings.ToLower(c.Output.Format) {
	case "jpg", "jpeg", "png", "webp":
	default:
		return fmt.Errorf("output.format must be jpg, png or webp")
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}

	switch c.Vision.Backend {
	case "", "none", "ollama", "saliency":
	default:
		return fmt.Errorf("vision.backend must be empty, ollama or saliency")
	}
	if c.Vision.Zoom <= 0 || c.Vision.Zoom > 1 {
		return fmt.Errorf("vision.zoom must be in (0, 1]")
	}
	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return fmt.Errorf("vision.send_quality must be between 1 and 100")
	}
	if c.Vision.SaliencySize < 32 {
		return fmt.Errorf("vision.saliency_size must be at least 32")
	}

	return nil
}

// NodeOptions converts the [node] section into the node package's config
func (c *Config) NodeOptions() node.Config {
	def, _ := ratio.Lookup(c.Node.DefaultWidth, c.Node.DefaultHeight)
	return node.Config{
		MinBatch:   c.Node.MinBatch,
		MaxBatch:   c.Node.MaxBatch,
		ClampBatch: c.Node.ClampBatch,
		Channels:   c.Node.Channels,
		Default:    def,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "aspect-latent", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", "aspect-latent", "config.toml")
}
