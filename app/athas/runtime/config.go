package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adhyaay-karnwal/athas/internal/logging"
	"github.com/adhyaay-karnwal/athas/llm"
	"github.com/adhyaay-karnwal/athas/workspace"
)

// Extractor backends.
const (
	ExtractorLocal = "local"
	ExtractorLLM   = "llm"
	ExtractorChain = "chain"
)

// Config captures every knob shared across the athas CLI, TUI and servers.
// Workspace and ConfigPath come from flags; the rest may also be set in the
// workspace config file.
type Config struct {
	Workspace  string `yaml:"-"`
	ConfigPath string `yaml:"-"`

	Logging        logging.Config    `yaml:"logging"`
	OllamaEndpoint string            `yaml:"ollama_endpoint"`
	OllamaModel    string            `yaml:"ollama_model"`
	Extractor      string            `yaml:"extractor"`
	MaxFileBytes   int64             `yaml:"max_file_bytes"`
	ServerAddr     string            `yaml:"server_addr"`
	SnapshotPath   string            `yaml:"snapshot_path"`
	Persist        bool              `yaml:"persist"`
	Watch          bool              `yaml:"watch"`
	Debounce       time.Duration     `yaml:"debounce"`
	Tree           workspace.Options `yaml:"tree"`
}

// DefaultConfig infers defaults from the current working directory and the
// OLLAMA_ENDPOINT / OLLAMA_MODEL environment variables.
func DefaultConfig() Config {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	return Config{
		Workspace:      cwd,
		ConfigPath:     filepath.Join(cwd, ".athas", "config.yaml"),
		OllamaEndpoint: envOr("OLLAMA_ENDPOINT", llm.DefaultEndpoint),
		OllamaModel:    envOr("OLLAMA_MODEL", llm.DefaultModel),
		Extractor:      ExtractorLocal,
		ServerAddr:     "127.0.0.1:7420",
		Watch:          true,
		Debounce:       workspace.DefaultDebounce,
		Tree:           workspace.DefaultOptions(),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Normalize makes every path absolute and fills missing defaults so runtime
// initialization never has to re-check the same invariants.
func (c *Config) Normalize() error {
	if c.Workspace == "" {
		return fmt.Errorf("workspace path required")
	}
	absWorkspace, err := filepath.Abs(c.Workspace)
	if err != nil {
		return fmt.Errorf("resolve workspace: %w", err)
	}
	c.Workspace = absWorkspace
	if c.ConfigPath == "" {
		c.ConfigPath = filepath.Join(c.Workspace, ".athas", "config.yaml")
	}
	if !filepath.IsAbs(c.ConfigPath) {
		c.ConfigPath = filepath.Join(c.Workspace, c.ConfigPath)
	}
	if c.Persist && c.SnapshotPath == "" {
		c.SnapshotPath = filepath.Join(c.Workspace, ".athas", "documents.db")
	}
	if c.SnapshotPath != "" && !filepath.IsAbs(c.SnapshotPath) {
		c.SnapshotPath = filepath.Join(c.Workspace, c.SnapshotPath)
	}
	if c.OllamaEndpoint == "" {
		c.OllamaEndpoint = envOr("OLLAMA_ENDPOINT", llm.DefaultEndpoint)
	}
	if c.OllamaModel == "" {
		c.OllamaModel = envOr("OLLAMA_MODEL", llm.DefaultModel)
	}
	switch c.Extractor {
	case "":
		c.Extractor = ExtractorLocal
	case ExtractorLocal, ExtractorLLM, ExtractorChain:
	default:
		return fmt.Errorf("unknown extractor %q (want local, llm or chain)", c.Extractor)
	}
	if c.ServerAddr == "" {
		c.ServerAddr = "127.0.0.1:7420"
	}
	if c.Debounce <= 0 {
		c.Debounce = workspace.DefaultDebounce
	}
	if c.Tree.Ignore == nil {
		c.Tree.Ignore = append([]string(nil), workspace.DefaultIgnore...)
	}
	if err := c.Tree.Validate(); err != nil {
		return fmt.Errorf("tree options: %w", err)
	}
	c.Logging.Normalize()
	return nil
}

// LoadFile overlays the YAML file at c.ConfigPath onto c. A missing file is
// not an error.
func (c *Config) LoadFile() error {
	if c.ConfigPath == "" {
		return nil
	}
	data, err := os.ReadFile(c.ConfigPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", c.ConfigPath, err)
	}
	return nil
}

// SaveFile writes the persisted part of c to c.ConfigPath.
func (c Config) SaveFile() error {
	if c.ConfigPath == "" {
		return fmt.Errorf("config path required")
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath, data, 0o644)
}
