// Package config loads Hands Off settings from defaults, an optional TOML or
// YAML file, and HANDSOFF_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/handsoff/internal/capture"
	"github.com/ayusman/handsoff/internal/detector"
	"github.com/ayusman/handsoff/internal/escalation"
	"github.com/ayusman/handsoff/internal/logging"
	"github.com/ayusman/handsoff/internal/proximity"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HANDSOFF_"

// EnvConfigPath names the config file to load.
const EnvConfigPath = EnvPrefix + "CONFIG"

// Config is the complete application configuration.
type Config struct {
	Camera     CameraConfig     `toml:"camera" yaml:"camera" envPrefix:"CAMERA_"`
	Detector   DetectorConfig   `toml:"detector" yaml:"detector" envPrefix:"DETECTOR_"`
	Proximity  ProximityConfig  `toml:"proximity" yaml:"proximity" envPrefix:"PROXIMITY_"`
	Escalation EscalationConfig `toml:"escalation" yaml:"escalation" envPrefix:"ESCALATION_"`
	Notify     NotifyConfig     `toml:"notify" yaml:"notify" envPrefix:"NOTIFY_"`
	Server     ServerConfig     `toml:"server" yaml:"server" envPrefix:"SERVER_"`
	Log        logging.Config   `toml:"log" yaml:"log" envPrefix:"LOG_"`
	Tray       bool             `toml:"tray" yaml:"tray" env:"TRAY"`
}

// CameraConfig controls capture and the motion gate.
type CameraConfig struct {
	DeviceID        int           `toml:"device_id" yaml:"device_id" env:"DEVICE_ID"`
	IdleFPS         int           `toml:"idle_fps" yaml:"idle_fps" env:"IDLE_FPS"`
	ActiveFPS       int           `toml:"active_fps" yaml:"active_fps" env:"ACTIVE_FPS"`
	MotionThreshold float64       `toml:"motion_threshold" yaml:"motion_threshold" env:"MOTION_THRESHOLD"`
	IdleTimeout     time.Duration `toml:"idle_timeout" yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
}

// DetectorConfig mirrors detector.Config.
type DetectorConfig struct {
	ScriptPath      string        `toml:"script_path" yaml:"script_path" env:"SCRIPT_PATH"`
	PythonPath      string        `toml:"python_path" yaml:"python_path" env:"PYTHON_PATH"`
	ModelComplexity int           `toml:"model_complexity" yaml:"model_complexity" env:"MODEL_COMPLEXITY"`
	RefineFace      bool          `toml:"refine_face" yaml:"refine_face" env:"REFINE_FACE"`
	MinConfidence   float64       `toml:"min_confidence" yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	MinTrackingConf float64       `toml:"min_tracking_confidence" yaml:"min_tracking_confidence" env:"MIN_TRACKING_CONFIDENCE"`
	IdleShutdown    time.Duration `toml:"idle_shutdown" yaml:"idle_shutdown" env:"IDLE_SHUTDOWN"`
}

// ProximityConfig mirrors proximity.Config.
type ProximityConfig struct {
	Threshold  float64 `toml:"threshold" yaml:"threshold" env:"THRESHOLD"`
	References []int   `toml:"references" yaml:"references" env:"REFERENCES" envSeparator:","`
	Neck       bool    `toml:"neck" yaml:"neck" env:"NECK"`
	Depth      bool    `toml:"depth" yaml:"depth" env:"DEPTH"`
}

// StageConfig is one escalation stage in file form.
type StageConfig struct {
	After    time.Duration `toml:"after" yaml:"after"`
	Severity string        `toml:"severity" yaml:"severity"`
}

// EscalationConfig holds the escalation stages and message catalogs.
type EscalationConfig struct {
	Stages     []StageConfig       `toml:"stages" yaml:"stages"`
	Catalog    map[string][]string `toml:"catalog" yaml:"catalog"`
	RearmDelay time.Duration       `toml:"rearm_delay" yaml:"rearm_delay" env:"REARM_DELAY"`
	// Seed makes message picks reproducible; 0 seeds from the clock.
	Seed uint64 `toml:"seed" yaml:"seed" env:"SEED"`
}

// NotifyConfig selects delivery sinks.
type NotifyConfig struct {
	Timeout       time.Duration `toml:"timeout" yaml:"timeout" env:"TIMEOUT"`
	Log           bool          `toml:"log" yaml:"log" env:"LOG"`
	Plugin        string        `toml:"plugin" yaml:"plugin" env:"PLUGIN"`
	PluginDir     string        `toml:"plugin_dir" yaml:"plugin_dir" env:"PLUGIN_DIR"`
	RedisAddr     string        `toml:"redis_addr" yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `toml:"redis_password" yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `toml:"redis_db" yaml:"redis_db" env:"REDIS_DB"`
	RedisChannel  string        `toml:"redis_channel" yaml:"redis_channel" env:"REDIS_CHANNEL"`
}

// ServerConfig controls the local status API. An empty Addr disables it.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" env:"ADDR"`
}

// Default returns a working configuration.
func Default() Config {
	det := detector.DefaultConfig()
	prox := proximity.DefaultConfig()

	stages := make([]StageConfig, 0, 3)
	for _, st := range escalation.DefaultStages() {
		stages = append(stages, StageConfig{After: st.After, Severity: st.Severity.String()})
	}
	catalog := make(map[string][]string)
	for sev, msgs := range escalation.DefaultCatalog() {
		catalog[sev.String()] = msgs
	}

	return Config{
		Camera: CameraConfig{
			DeviceID:        0,
			IdleFPS:         5,
			ActiveFPS:       15,
			MotionThreshold: 1.0,
			IdleTimeout:     2 * time.Second,
		},
		Detector: DetectorConfig{
			ModelComplexity: det.ModelComplexity,
			RefineFace:      det.RefineFace,
			MinConfidence:   det.MinConfidence,
			MinTrackingConf: det.MinTrackingConf,
			IdleShutdown:    det.IdleShutdown,
		},
		Proximity: ProximityConfig{
			Threshold:  prox.Threshold,
			References: prox.References,
			Neck:       prox.Neck,
			Depth:      prox.Depth,
		},
		Escalation: EscalationConfig{
			Stages:  stages,
			Catalog: catalog,
		},
		Notify: NotifyConfig{
			Timeout:      5 * time.Second,
			Log:          true,
			Plugin:       "macos-alert",
			PluginDir:    defaultPluginDir(),
			RedisChannel: "handsoff:alerts",
		},
		Server: ServerConfig{Addr: "127.0.0.1:8765"},
		Log:    logging.DefaultConfig(),
		Tray:   true,
	}
}

func defaultPluginDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "plugins"
	}
	return filepath.Join(home, ".handsoff", "plugins")
}

// ResolvePath returns the config file to use: $HANDSOFF_CONFIG, then
// ~/.handsoff/config.toml if it exists, else "".
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".handsoff", "config.toml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Load builds a Config from defaults, the file at path (if non-empty) and the
// process environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := ParseEnv(&cfg, nil); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		for _, key := range meta.Undecoded() {
			log.Warn().Str("key", key.String()).Str("file", path).Msg("unknown config key")
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("load config %s: unsupported extension %q", path, ext)
	}
	return nil
}

// ParseEnv applies HANDSOFF_* overrides. A nil environ reads the process environment.
func ParseEnv(cfg *Config, environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks ranges and that the escalation policy is usable.
func (c Config) Validate() error {
	if c.Proximity.Threshold <= 0 {
		return fmt.Errorf("%w: proximity threshold must be positive", ErrInvalid)
	}
	if c.Camera.IdleFPS <= 0 || c.Camera.ActiveFPS <= 0 {
		return fmt.Errorf("%w: camera fps must be positive", ErrInvalid)
	}
	if c.Notify.Timeout <= 0 {
		return fmt.Errorf("%w: notify timeout must be positive", ErrInvalid)
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Policy converts the escalation section to an escalation.Policy.
func (c Config) Policy() (escalation.Policy, error) {
	p := escalation.Policy{
		Stages:     make([]escalation.Stage, 0, len(c.Escalation.Stages)),
		Catalog:    make(escalation.Catalog),
		RearmDelay: c.Escalation.RearmDelay,
	}

	for i, st := range c.Escalation.Stages {
		sev, err := escalation.ParseSeverity(strings.ToLower(strings.TrimSpace(st.Severity)))
		if err != nil {
			return escalation.Policy{}, fmt.Errorf("stage %d: %w", i, err)
		}
		p.Stages = append(p.Stages, escalation.Stage{After: st.After, Severity: sev})
	}

	for name, msgs := range c.Escalation.Catalog {
		sev, err := escalation.ParseSeverity(strings.ToLower(strings.TrimSpace(name)))
		if err != nil {
			return escalation.Policy{}, fmt.Errorf("catalog: %w", err)
		}
		p.Catalog[sev] = msgs
	}

	if c.Escalation.Seed != 0 {
		p.Rand = escalation.NewRand(c.Escalation.Seed)
	}

	if err := p.Validate(); err != nil {
		return escalation.Policy{}, err
	}
	return p, nil
}

// ClassifierConfig converts the proximity section.
func (c Config) ClassifierConfig() proximity.Config {
	return proximity.Config{
		Threshold:  c.Proximity.Threshold,
		References: c.Proximity.References,
		Neck:       c.Proximity.Neck,
		Depth:      c.Proximity.Depth,
	}
}

// DetectorSettings converts the detector section.
func (c Config) DetectorSettings() detector.Config {
	return detector.Config{
		ScriptPath:      c.Detector.ScriptPath,
		PythonPath:      c.Detector.PythonPath,
		ModelComplexity: c.Detector.ModelComplexity,
		RefineFace:      c.Detector.RefineFace,
		MinConfidence:   c.Detector.MinConfidence,
		MinTrackingConf: c.Detector.MinTrackingConf,
		IdleShutdown:    c.Detector.IdleShutdown,
	}
}

// CameraSettings converts the camera section for the capture device.
func (c Config) CameraSettings() capture.Config {
	cfg := capture.DefaultConfig()
	cfg.DeviceID = c.Camera.DeviceID
	cfg.FPS = c.Camera.IdleFPS
	return cfg
}

// GateSettings converts the camera section for the motion gate.
func (c Config) GateSettings() capture.GateConfig {
	return capture.GateConfig{
		IdleFPS:     c.Camera.IdleFPS,
		ActiveFPS:   c.Camera.ActiveFPS,
		IdleTimeout: c.Camera.IdleTimeout,
		Threshold:   c.Camera.MotionThreshold,
	}
}
