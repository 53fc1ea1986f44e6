package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashpad-dev/hashpad/internal/errors"
	"github.com/hashpad-dev/hashpad/pkg/codec"
	"github.com/hashpad-dev/hashpad/pkg/linksync"
	"gopkg.in/yaml.v3"
)

// Config file names, in lookup order.
const (
	YAMLFileName = "hashpad.yaml"
	YMLFileName  = "hashpad.yml"
	JSONFileName = "hashpad.json"
)

var fileNames = []string{YAMLFileName, YMLFileName, JSONFileName}

const (
	// DefaultPort is the default server port.
	DefaultPort = 3000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultBaseURL is the page links point at when no baseURL is set.
	DefaultBaseURL = "http://localhost:3000/"

	// DefaultMetricsPath is where the server exposes Prometheus metrics.
	DefaultMetricsPath = "/metrics"
)

// Config represents hashpad.yaml / hashpad.json.
type Config struct {
	// BaseURL is the page URL that links are built on.
	BaseURL string `json:"baseURL" yaml:"baseURL"`

	// Debounce is the quiet period between the last edit and the URL write.
	Debounce Duration `json:"debounce" yaml:"debounce"`

	// LinkWarnLength is the URL length above which a write logs a warning.
	// 0 disables the warning.
	LinkWarnLength int `json:"linkWarnLength" yaml:"linkWarnLength"`

	Codec   CodecConfig   `json:"codec" yaml:"codec"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Log     LogConfig     `json:"log" yaml:"log"`

	// configPath is the path the config was loaded from (not serialized).
	configPath string
}

// CodecConfig configures compression and decode limits.
type CodecConfig struct {
	// Level is the deflate level, -2 (Huffman only) to 9.
	Level int `json:"level" yaml:"level"`

	// MaxTextSize is the largest decoded text in bytes.
	MaxTextSize int `json:"maxTextSize" yaml:"maxTextSize"`
}

// ServerConfig configures the live server.
type ServerConfig struct {
	Host              string   `json:"host" yaml:"host"`
	Port              int      `json:"port" yaml:"port"`
	ReadTimeout       Duration `json:"readTimeout" yaml:"readTimeout"`
	WriteTimeout      Duration `json:"writeTimeout" yaml:"writeTimeout"`
	HeartbeatInterval Duration `json:"heartbeatInterval" yaml:"heartbeatInterval"`
	ShutdownTimeout   Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	// MaxMessageSize is the largest websocket message accepted, in bytes.
	MaxMessageSize int `json:"maxMessageSize" yaml:"maxMessageSize"`

	// MaxEventQueue is the number of client events buffered per session.
	MaxEventQueue int `json:"maxEventQueue" yaml:"maxEventQueue"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		Debounce:       Duration(linksync.DefaultDebounce),
		LinkWarnLength: linksync.DefaultLinkWarnLength,
		Codec: CodecConfig{
			Level:       codec.DefaultLevel,
			MaxTextSize: codec.DefaultMaxTextSize,
		},
		Server: ServerConfig{
			Host:              DefaultHost,
			Port:              DefaultPort,
			ReadTimeout:       Duration(60 * time.Second),
			WriteTimeout:      Duration(10 * time.Second),
			HeartbeatInterval: Duration(30 * time.Second),
			ShutdownTimeout:   Duration(10 * time.Second),
			MaxMessageSize:    2 * codec.DefaultMaxTextSize,
			MaxEventQueue:     256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration file in dir. A directory without one
// yields the defaults.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return New(), nil
}

// LoadFile reads configuration from the specified file path. Fields the
// file leaves out keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E141").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E120").Wrap(err).WithLocation(path, 0, 0)
	}

	cfg := New()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && err != io.EOF {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithLocation(path, 0, 0)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, errors.New("E120").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON").
				WithLocation(path, 0, 0)
		}
	default:
		return nil, errors.New("E121").
			WithDetail(fmt.Sprintf("%q has extension %q", path, ext))
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to path, in the format its extension
// names.
func (c *Config) SaveTo(path string) error {
	var data []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".json":
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	default:
		return errors.New("E121").WithDetail(fmt.Sprintf("%q has extension %q", path, ext))
	}
	if err != nil {
		return errors.New("E120").Wrap(err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E120").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in defaults for fields where zero is not meaningful.
func (c *Config) applyDefaults() {
	d := New()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = d.Metrics.Path
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		err := errors.New("E122").WithDetail(fmt.Sprintf(format, args...))
		if c.configPath != "" {
			err.WithLocation(c.configPath, 0, 0)
		}
		return err
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("baseURL must be an absolute URL, got %q", c.BaseURL)
	}
	if u.Fragment != "" || strings.Contains(c.BaseURL, "#") {
		return invalid("baseURL must not contain a fragment, got %q", c.BaseURL)
	}
	if c.Debounce <= 0 {
		return invalid("debounce must be positive, got %q", c.Debounce)
	}
	if c.LinkWarnLength < 0 {
		return invalid("linkWarnLength must not be negative, got %d", c.LinkWarnLength)
	}
	if c.Codec.Level < -2 || c.Codec.Level > 9 {
		return invalid("codec.level must be between -2 and 9, got %d", c.Codec.Level)
	}
	if c.Codec.MaxTextSize <= 0 {
		return invalid("codec.maxTextSize must be positive, got %d", c.Codec.MaxTextSize)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return invalid("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	for name, d := range map[string]Duration{
		"server.readTimeout":       c.Server.ReadTimeout,
		"server.writeTimeout":      c.Server.WriteTimeout,
		"server.heartbeatInterval": c.Server.HeartbeatInterval,
		"server.shutdownTimeout":   c.Server.ShutdownTimeout,
	} {
		if d <= 0 {
			return invalid("%s must be positive, got %q", name, d)
		}
	}
	if c.Server.HeartbeatInterval >= c.Server.ReadTimeout {
		return invalid("server.heartbeatInterval (%s) must be shorter than server.readTimeout (%s)",
			c.Server.HeartbeatInterval, c.Server.ReadTimeout)
	}
	if c.Server.MaxMessageSize < 1024 {
		return invalid("server.maxMessageSize must be at least 1024, got %d", c.Server.MaxMessageSize)
	}
	if c.Server.MaxEventQueue <= 0 {
		return invalid("server.maxEventQueue must be positive, got %d", c.Server.MaxEventQueue)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return invalid("metrics.path must start with '/', got %q", c.Metrics.Path)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return invalid("%v", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Address returns the host:port the server listens on.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// NewCodec returns a codec configured from the codec section.
func (c *Config) NewCodec() *codec.Codec {
	return codec.New(
		codec.WithLevel(c.Codec.Level),
		codec.WithMaxTextSize(c.Codec.MaxTextSize),
	)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
	return level, nil
}

// NewLogger builds a logger writing to w in the configured format.
// An invalid level falls back to info.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := l.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to the nearest directory holding
// a config file. ok is false if there is none.
func FindProjectRoot(startDir string) (root string, ok bool, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, err
	}

	for {
		if Exists(dir) {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest configuration file above the
// working directory, or the defaults if there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, ok, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return New(), nil
	}
	return Load(root)
}
