package msgbus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file form of the bus settings.
//
//	default_sender: continue_on_failure
//	listener_timeout: 2s
//	executor:
//	  name: pool
//	  options:
//	    workers: 8
//	    queue_size: 4096
//	observer_pool:
//	  workers: 2
//	  buffer_size: 1000
type Config struct {
	DefaultSender   string             `yaml:"default_sender"`
	ListenerTimeout time.Duration      `yaml:"listener_timeout"`
	Executor        ExecutorConfig     `yaml:"executor"`
	ObserverPool    ObserverPoolConfig `yaml:"observer_pool"`
}

type ExecutorConfig struct {
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options"`
}

// ObserverPoolConfig enables asynchronous observer notification when Workers > 0.
type ObserverPoolConfig struct {
	Workers    int `yaml:"workers"`
	BufferSize int `yaml:"buffer_size"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		DefaultSender: SenderPropagating,
		Executor:      ExecutorConfig{Name: ExecutorPool},
	}
}

// Validate checks that names resolve and sizes are sane.
func (c Config) Validate() error {
	if _, err := SenderByName(c.DefaultSender); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.ListenerTimeout < 0 {
		return fmt.Errorf("config: listener_timeout must be >= 0, got %v", c.ListenerTimeout)
	}
	if c.Executor.Name != "" {
		executorRegistryMu.RLock()
		_, ok := executorRegistry[c.Executor.Name]
		executorRegistryMu.RUnlock()
		if !ok {
			return fmt.Errorf("config: %w", ErrUnknownExecutor{name: c.Executor.Name})
		}
	}
	if c.ObserverPool.Workers < 0 || c.ObserverPool.BufferSize < 0 {
		return errors.New("config: observer_pool sizes must be >= 0")
	}
	return nil
}

// ParseConfig decodes YAML strictly: unknown keys and trailing documents are errors.
// Missing keys keep their DefaultConfig value.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("config: multiple documents or trailing content")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return ParseConfig(data)
}
