package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/getmockd/intercept/pkg/engine"
	"github.com/getmockd/intercept/pkg/logging"
	"github.com/getmockd/intercept/pkg/mockerr"
	"github.com/getmockd/intercept/pkg/requestlog"
	"github.com/getmockd/intercept/pkg/transport"
)

// EngineConfig holds engine-wide settings.
type EngineConfig struct {
	Log LogConfig `yaml:"log"`

	// IdleTimeout applies to requests that carry no threshold of their own.
	IdleTimeout time.Duration `yaml:"idleTimeout"`

	// ContentLength adds a computed content-length header to replies.
	ContentLength bool `yaml:"contentLength"`

	// AllowUnmocked lets unmatched requests reach the network for every origin.
	AllowUnmocked bool `yaml:"allowUnmocked"`

	// NearMisses is how many near misses a no-match error reports.
	NearMisses *int `yaml:"nearMisses"`

	// RequestLogSize caps the in-memory request log. Zero uses the default.
	RequestLogSize int `yaml:"requestLogSize"`

	NetConnect NetConnectConfig `yaml:"netConnect"`
}

// LogConfig selects the logger built by EngineConfig.Logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"addSource"`
}

// NetConnectConfig is the policy for requests no expectation answers.
// Disabled blocks all hosts except those in Allow. A non-empty Allow without
// Disabled restricts the network to those hosts as well.
type NetConnectConfig struct {
	Disabled bool     `yaml:"disabled"`
	Allow    []string `yaml:"allow"`
}

// ParseEngineConfig parses a YAML or JSON engine configuration. Environment
// references are expanded first.
func ParseEngineConfig(data []byte) (*EngineConfig, error) {
	return parseEngineConfig([]byte(ExpandEnvVars(string(data))))
}

func parseEngineConfig(data []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := decodeStrict(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyFile
		}
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return nil
}

// Validate checks value ranges.
func (c *EngineConfig) Validate() error {
	var errs []error
	if c.IdleTimeout < 0 {
		errs = append(errs, mockerr.Configuration("engine.idleTimeout", "must not be negative"))
	}
	if c.NearMisses != nil && *c.NearMisses < 0 {
		errs = append(errs, mockerr.Configuration("engine.nearMisses", "must not be negative"))
	}
	if c.RequestLogSize < 0 {
		errs = append(errs, mockerr.Configuration("engine.requestLogSize", "must not be negative"))
	}
	switch c.Log.Format {
	case "", string(logging.FormatText), string(logging.FormatJSON):
	default:
		errs = append(errs, mockerr.Configuration("engine.log.format", "unknown format %q", c.Log.Format))
	}
	if _, err := c.NetConnectPolicy(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logger builds the configured logger writing to w.
func (c *EngineConfig) Logger(w io.Writer) *slog.Logger {
	return logging.New(logging.Config{
		Level:     logging.ParseLevel(c.Log.Level),
		Format:    logging.ParseFormat(c.Log.Format),
		Output:    w,
		AddSource: c.Log.AddSource,
	})
}

// EngineOptions converts the configuration into engine options. Logs go to w.
func (c *EngineConfig) EngineOptions(w io.Writer) []engine.Option {
	size := c.RequestLogSize
	if size == 0 {
		size = requestlog.DefaultMaxEntries
	}
	opts := []engine.Option{
		engine.WithLogger(c.Logger(w)),
		engine.WithRequestLog(requestlog.NewMemoryStore(size)),
	}
	if c.IdleTimeout > 0 {
		opts = append(opts, engine.WithIdleTimeout(c.IdleTimeout))
	}
	if c.ContentLength {
		opts = append(opts, engine.WithContentLength())
	}
	if c.AllowUnmocked {
		opts = append(opts, engine.WithAllowUnmocked())
	}
	if c.NearMisses != nil {
		opts = append(opts, engine.WithNearMisses(*c.NearMisses))
	}
	return opts
}

// NetConnectPolicy builds the transport policy.
func (c *EngineConfig) NetConnectPolicy() (*transport.NetConnect, error) {
	if !c.NetConnect.Disabled && len(c.NetConnect.Allow) == 0 {
		return transport.AllowAll(), nil
	}
	policy := transport.DenyAll()
	if len(c.NetConnect.Allow) == 0 {
		return policy, nil
	}
	matchers := make([]any, len(c.NetConnect.Allow))
	for i, host := range c.NetConnect.Allow {
		matchers[i] = host
	}
	if err := policy.Enable(matchers...); err != nil {
		return nil, fmt.Errorf("engine.netConnect.allow: %w", err)
	}
	return policy, nil
}

// TransportOptions converts the configuration into transport options.
func (c *EngineConfig) TransportOptions() ([]transport.Option, error) {
	policy, err := c.NetConnectPolicy()
	if err != nil {
		return nil, err
	}
	return []transport.Option{transport.WithNetConnect(policy)}, nil
}

// NewEngine builds an engine from the configuration.
func (c *EngineConfig) NewEngine(w io.Writer) *engine.Engine {
	return engine.New(c.EngineOptions(w)...)
}
