// Package config loads the ground station configuration from YAML or TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/remotelab/internal/fuzzy"
	"github.com/san-kum/remotelab/internal/plant"
	"github.com/san-kum/remotelab/internal/telemetry"
	"github.com/san-kum/remotelab/internal/transport"
)

// HostEnv names the environment variable that supplies the rig address when
// the configuration leaves it empty.
const HostEnv = "HOST_IP"

const (
	DefaultController = "fuzzy"
	DefaultDataDir    = "runs"
	DefaultMaxPoints  = 300
	DefaultTimeouts   = 5
)

type Config struct {
	Link             LinkConfig         `yaml:"link" toml:"link"`
	Controller       string             `yaml:"controller" toml:"controller"`
	ControllerParams map[string]float64 `yaml:"controller_params,omitempty" toml:"controller_params,omitempty"`
	Fuzzy            fuzzy.Tuning       `yaml:"fuzzy" toml:"fuzzy"`
	Loop             LoopConfig         `yaml:"loop" toml:"loop"`
	Plant            PlantConfig        `yaml:"plant" toml:"plant"`
	Plot             PlotConfig         `yaml:"plot" toml:"plot"`
	Telemetry        telemetry.Config   `yaml:"telemetry" toml:"telemetry"`
	DataDir          string             `yaml:"data_dir" toml:"data_dir"`
	MetricsAddr      string             `yaml:"metrics_addr" toml:"metrics_addr"`
	Verbose          bool               `yaml:"verbose" toml:"verbose"`
}

type LinkConfig struct {
	HostIP   string  `yaml:"host_ip" toml:"host_ip"`
	HostPort int     `yaml:"host_port" toml:"host_port"`
	BindIP   string  `yaml:"bind_ip" toml:"bind_ip"`
	BindPort int     `yaml:"bind_port" toml:"bind_port"`
	Timeout  float64 `yaml:"timeout" toml:"timeout"` // seconds
}

type LoopConfig struct {
	Duration      float64 `yaml:"duration" toml:"duration"` // seconds, 0 runs until stopped
	MaxIterations int     `yaml:"max_iterations" toml:"max_iterations"`
	MaxTimeouts   int     `yaml:"max_timeouts" toml:"max_timeouts"`
	Record        bool    `yaml:"record" toml:"record"`
}

// PlantConfig parameterises the emulator used by simulate and emulate.
type PlantConfig struct {
	Integrator  string  `yaml:"integrator" toml:"integrator"`
	Dt          float64 `yaml:"dt" toml:"dt"`
	Gain        float64 `yaml:"gain" toml:"gain"`
	Damping     float64 `yaml:"damping" toml:"damping"`
	Disturbance float64 `yaml:"disturbance" toml:"disturbance"`
	InitAngle   float64 `yaml:"init_angle" toml:"init_angle"`
	InitRate    float64 `yaml:"init_rate" toml:"init_rate"`
	RateNoise   float64 `yaml:"rate_noise" toml:"rate_noise"`
	Seed        int64   `yaml:"seed" toml:"seed"`
}

type PlotConfig struct {
	MaxPoints int `yaml:"max_points" toml:"max_points"`
}

func DefaultConfig() *Config {
	platform := plant.NewPlatform()
	emu := plant.DefaultConfig()
	return &Config{
		Link: LinkConfig{
			HostPort: transport.DefaultHostPort,
			BindPort: transport.DefaultBindPort,
			Timeout:  transport.DefaultTimeout.Seconds(),
		},
		Controller: DefaultController,
		Fuzzy:      fuzzy.DefaultTuning(),
		Loop: LoopConfig{
			MaxTimeouts: DefaultTimeouts,
			Record:      true,
		},
		Plant: PlantConfig{
			Integrator: "rk4",
			Dt:         emu.Dt,
			Gain:       platform.Gain,
			Damping:    platform.Damping,
			InitRate:   40,
		},
		Plot:    PlotConfig{MaxPoints: DefaultMaxPoints},
		DataDir: DefaultDataDir,
		Telemetry: telemetry.Config{
			ClientID: telemetry.DefaultClientID,
			Topic:    telemetry.DefaultTopic,
		},
	}
}

// Load reads path over the defaults, picking the format from the extension.
// An empty path returns the defaults. Unknown keys are rejected. The rig
// address falls back to $HOST_IP.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(cfg)
	case ".yaml", ".yml", "":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

func Save(path string, cfg *Config) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		data, err = toml.Marshal(cfg)
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ApplyEnv fills an empty rig host from $HOST_IP.
func (c *Config) ApplyEnv() {
	if c.Link.HostIP == "" {
		c.Link.HostIP = os.Getenv(HostEnv)
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Controller == "" {
		errs = append(errs, errors.New("controller is empty"))
	}
	for name, port := range map[string]int{"link.host_port": c.Link.HostPort, "link.bind_port": c.Link.BindPort} {
		if port < 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("%s out of range: %d", name, port))
		}
	}
	if c.Link.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("link.timeout must be positive: %g", c.Link.Timeout))
	}
	if c.Loop.Duration < 0 || c.Loop.MaxIterations < 0 || c.Loop.MaxTimeouts < 0 {
		errs = append(errs, errors.New("loop limits must not be negative"))
	}
	if c.Plant.Dt <= 0 {
		errs = append(errs, fmt.Errorf("plant.dt must be positive: %g", c.Plant.Dt))
	}
	if c.Plant.Damping < 0 {
		errs = append(errs, fmt.Errorf("plant.damping must not be negative: %g", c.Plant.Damping))
	}
	if _, ok := plant.NewIntegrator(c.Plant.Integrator); !ok {
		errs = append(errs, fmt.Errorf("unknown integrator: %s", c.Plant.Integrator))
	}
	if c.Plot.MaxPoints < 2 {
		errs = append(errs, fmt.Errorf("plot.max_points must be at least 2: %d", c.Plot.MaxPoints))
	}
	for name, r := range map[string]fuzzy.Ramp{"desired": c.Fuzzy.Desired, "large": c.Fuzzy.Large, "zero": c.Fuzzy.Zero, "max": c.Fuzzy.Max} {
		if r.A >= r.B {
			errs = append(errs, fmt.Errorf("fuzzy.%s: a must be below b", name))
		}
	}
	if m := c.Fuzzy.Mid; !(m.A <= m.B && m.B <= m.C && m.C <= m.D) {
		errs = append(errs, errors.New("fuzzy.mid: corners must be ordered"))
	}
	return errors.Join(errs...)
}

func (c *Config) TransportConfig() transport.Config {
	return transport.Config{
		HostIP:   c.Link.HostIP,
		HostPort: c.Link.HostPort,
		BindIP:   c.Link.BindIP,
		BindPort: c.Link.BindPort,
		Timeout:  time.Duration(c.Link.Timeout * float64(time.Second)),
	}
}

func (c *Config) Platform() *plant.Platform { return c.Plant.Platform() }

func (c *Config) EmulatorConfig() plant.Config { return c.Plant.EmulatorConfig() }

func (p PlantConfig) Platform() *plant.Platform {
	return &plant.Platform{
		Gain:        p.Gain,
		Damping:     p.Damping,
		Disturbance: p.Disturbance,
	}
}

func (p PlantConfig) EmulatorConfig() plant.Config {
	emu := plant.DefaultConfig()
	emu.Dt = p.Dt
	emu.InitAngle = p.InitAngle
	emu.InitRate = p.InitRate
	emu.RateNoise = p.RateNoise
	emu.Seed = p.Seed
	return emu
}

// NewEmulator builds the emulated rig described by p.
func (p PlantConfig) NewEmulator(log *zap.Logger) (*plant.Emulator, error) {
	integ, ok := plant.NewIntegrator(p.Integrator)
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", p.Integrator)
	}
	return plant.NewEmulator(p.Platform(), integ, p.EmulatorConfig(), log), nil
}
