package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/olivierh59500/particle-emitter-go/physics"
)

// EnvPrefix is prepended to every environment override, e.g. PARTICLES_ARENA_WIDTH
const EnvPrefix = "PARTICLES"

// Jitter sources
const (
	JitterUniform = "uniform"
	JitterPerlin  = "perlin"
)

// Config holds the entire application configuration.
// Size fields left at zero are derived from the arena width at conversion time.
type Config struct {
	Seed      int64           `mapstructure:"seed" yaml:"seed"`
	Arena     ArenaConfig     `mapstructure:"arena" yaml:"arena"`
	Emitter   EmitterConfig   `mapstructure:"emitter" yaml:"emitter"`
	Particles ParticlesConfig `mapstructure:"particles" yaml:"particles"`
	Barriers  BarriersConfig  `mapstructure:"barriers" yaml:"barriers"`
	Repulsion RepulsionConfig `mapstructure:"repulsion" yaml:"repulsion"`
	Jitter    JitterConfig    `mapstructure:"jitter" yaml:"jitter"`
	Physics   PhysicsConfig   `mapstructure:"physics" yaml:"physics"`
	Modes     ModesConfig     `mapstructure:"modes" yaml:"modes"`
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Stream    StreamConfig    `mapstructure:"stream" yaml:"stream"`
}

// ArenaConfig sizes the simulation and its clock.
type ArenaConfig struct {
	Width     float64 `mapstructure:"width" yaml:"width"`
	Height    float64 `mapstructure:"height" yaml:"height"`
	TimeScale float64 `mapstructure:"time_scale" yaml:"time_scale"`
	TPS       int     `mapstructure:"tps" yaml:"tps"`
}

// EmitterConfig sizes the emitter.
type EmitterConfig struct {
	Size    float64 `mapstructure:"size" yaml:"size"`
	MinSize float64 `mapstructure:"min_size" yaml:"min_size"`
	MaxSize float64 `mapstructure:"max_size" yaml:"max_size"`
}

// ParticlesConfig sizes the ring buffer and the emission cadence.
type ParticlesConfig struct {
	Capacity     int     `mapstructure:"capacity" yaml:"capacity"`
	Size         float64 `mapstructure:"size" yaml:"size"`
	EmitInterval int     `mapstructure:"emit_interval" yaml:"emit_interval"`
}

// BarriersConfig drives barrier generation.
type BarriersConfig struct {
	Count       int     `mapstructure:"count" yaml:"count"`
	Margin      float64 `mapstructure:"margin" yaml:"margin"`
	MinSize     float64 `mapstructure:"min_size" yaml:"min_size"`
	MaxSize     float64 `mapstructure:"max_size" yaml:"max_size"`
	MaxAttempts int     `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// RepulsionConfig configures the repulsion field.
type RepulsionConfig struct {
	Radius         float64 `mapstructure:"radius" yaml:"radius"`
	Factor         float64 `mapstructure:"factor" yaml:"factor"`
	EmitterCapMult float64 `mapstructure:"emitter_cap_mult" yaml:"emitter_cap_mult"`
	CellSize       float64 `mapstructure:"cell_size" yaml:"cell_size"`
	Workers        int     `mapstructure:"workers" yaml:"workers"`
}

// JitterConfig selects the brownian jitter source.
type JitterConfig struct {
	Factor      float64 `mapstructure:"factor" yaml:"factor"`
	Source      string  `mapstructure:"source" yaml:"source"`
	PerlinScale float64 `mapstructure:"perlin_scale" yaml:"perlin_scale"`
}

// PhysicsConfig holds the environmental constants.
type PhysicsConfig struct {
	Gravity    float64 `mapstructure:"gravity" yaml:"gravity"`
	DragSmall  float64 `mapstructure:"drag_small" yaml:"drag_small"`
	DragLarge  float64 `mapstructure:"drag_large" yaml:"drag_large"`
	RecoilGain float64 `mapstructure:"recoil_gain" yaml:"recoil_gain"`
}

// ModesConfig holds the initial mode flags.
type ModesConfig struct {
	Gravity   bool `mapstructure:"gravity" yaml:"gravity"`
	Jitter    bool `mapstructure:"jitter" yaml:"jitter"`
	Recoil    bool `mapstructure:"recoil" yaml:"recoil"`
	Repulsion bool `mapstructure:"repulsion" yaml:"repulsion"`
	Trail     bool `mapstructure:"trail" yaml:"trail"`
}

// LoggerConfig configures zap and file rotation.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// AudioConfig configures the bounce cue.
type AudioConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	SampleRate int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	Frequency  float64 `mapstructure:"frequency" yaml:"frequency"`
}

// StreamConfig configures the websocket snapshot server.
// Browsers from other origins are refused unless listed in AllowedOrigins;
// "*" admits every origin.
type StreamConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	FPS            float64  `mapstructure:"fps" yaml:"fps"`
	Burst          int      `mapstructure:"burst" yaml:"burst"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Arena --
	v.SetDefault("seed", 0)
	v.SetDefault("arena.width", 1280)
	v.SetDefault("arena.height", 720)
	v.SetDefault("arena.time_scale", physics.DefaultTimeScale)
	v.SetDefault("arena.tps", 60)

	// -- Emitter / Particles (zero sizes scale with the arena) --
	v.SetDefault("emitter.size", 0)
	v.SetDefault("emitter.min_size", 0)
	v.SetDefault("emitter.max_size", 0)
	v.SetDefault("particles.capacity", physics.DefaultCapacity)
	v.SetDefault("particles.size", 0)
	v.SetDefault("particles.emit_interval", physics.DefaultEmitInterval)

	// -- Barriers --
	v.SetDefault("barriers.count", physics.DefaultBarrierCount)
	v.SetDefault("barriers.margin", 0)
	v.SetDefault("barriers.min_size", 0)
	v.SetDefault("barriers.max_size", 0)
	v.SetDefault("barriers.max_attempts", physics.DefaultBarrierAttempts)

	// -- Repulsion --
	v.SetDefault("repulsion.radius", 1.75)
	v.SetDefault("repulsion.factor", 1.25)
	v.SetDefault("repulsion.emitter_cap_mult", physics.DefaultEmitterCapMult)
	v.SetDefault("repulsion.cell_size", physics.DefaultCellSize)
	v.SetDefault("repulsion.workers", physics.DefaultWorkers)

	// -- Jitter --
	v.SetDefault("jitter.factor", .25)
	v.SetDefault("jitter.source", JitterUniform)
	v.SetDefault("jitter.perlin_scale", .01)

	// -- Physics --
	v.SetDefault("physics.gravity", physics.DefaultGravity)
	v.SetDefault("physics.drag_small", physics.DefaultDragSmall)
	v.SetDefault("physics.drag_large", physics.DefaultDragLarge)
	v.SetDefault("physics.recoil_gain", physics.DefaultRecoilGain)

	// -- Modes --
	v.SetDefault("modes.gravity", true)
	v.SetDefault("modes.jitter", true)
	v.SetDefault("modes.recoil", false)
	v.SetDefault("modes.repulsion", false)
	v.SetDefault("modes.trail", false)

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "particles")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", false)

	// -- Audio --
	v.SetDefault("audio.enabled", false)
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.frequency", 440)

	// -- Stream --
	v.SetDefault("stream.addr", "127.0.0.1:8080")
	v.SetDefault("stream.fps", 30)
	v.SetDefault("stream.burst", 1)
	v.SetDefault("stream.allowed_origins", []string{})
}

// NewDefaultConfig returns a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		// Defaults always validate
		panic(fmt.Sprintf("failed to build default config: %v", err))
	}
	return cfg
}

// Configure points v at an explicit config file, or at config.yaml in the
// working directory and the home directory, and enables env overrides.
// A missing config file is not an error.
func Configure(v *viper.Viper, file string) error {
	SetDefaults(v)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values. Physics constraints
// that depend on derived sizes are checked again by physics.Params.Validate.
func (c *Config) Validate() error {
	if c.Arena.Width <= 0 || c.Arena.Height <= 0 {
		return fmt.Errorf("arena.width and arena.height must be positive")
	}
	if c.Arena.TPS <= 0 {
		return fmt.Errorf("arena.tps must be a positive integer")
	}
	if c.Particles.Capacity <= 0 {
		return fmt.Errorf("particles.capacity must be a positive integer")
	}
	if c.Repulsion.Workers <= 0 {
		return fmt.Errorf("repulsion.workers must be a positive integer")
	}
	switch c.Jitter.Source {
	case JitterUniform, JitterPerlin:
	default:
		return fmt.Errorf("jitter.source must be %q or %q, got %q", JitterUniform, JitterPerlin, c.Jitter.Source)
	}
	if c.Stream.FPS <= 0 {
		return fmt.Errorf("stream.fps must be positive")
	}
	if c.Audio.Enabled && c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive when audio is enabled")
	}
	return nil
}

// Params converts the configuration into simulation parameters
func (c *Config) Params() physics.Params {
	p := physics.DefaultParams(c.Arena.Width, c.Arena.Height)
	p.Seed = c.Seed
	p.TimeScale = c.Arena.TimeScale
	p.Capacity = c.Particles.Capacity
	p.EmitInterval = c.Particles.EmitInterval
	setIfPositive(&p.ParticleSize, c.Particles.Size)
	setIfPositive(&p.EmitterSize, c.Emitter.Size)
	setIfPositive(&p.MinEmitterSize, c.Emitter.MinSize)
	setIfPositive(&p.MaxEmitterSize, c.Emitter.MaxSize)

	p.Barriers.Count = c.Barriers.Count
	p.Barriers.MaxAttempts = c.Barriers.MaxAttempts
	setIfPositive(&p.Barriers.Margin, c.Barriers.Margin)
	setIfPositive(&p.Barriers.MinSize, c.Barriers.MinSize)
	setIfPositive(&p.Barriers.MaxSize, c.Barriers.MaxSize)

	p.Repulsion.EmitterCapMult = c.Repulsion.EmitterCapMult
	p.Repulsion.CellSize = c.Repulsion.CellSize
	p.Repulsion.Workers = c.Repulsion.Workers

	p.Gravity = c.Physics.Gravity
	p.DragSmall = c.Physics.DragSmall
	p.DragLarge = c.Physics.DragLarge
	p.RecoilGain = c.Physics.RecoilGain

	p.Tunables = physics.Tunables{
		RepulsionRadius: c.Repulsion.Radius,
		RepulsionFactor: c.Repulsion.Factor,
		JitterFactor:    c.Jitter.Factor,
	}
	p.Modes = physics.Modes{
		Gravity:   c.Modes.Gravity,
		Jitter:    c.Modes.Jitter,
		Recoil:    c.Modes.Recoil,
		Repulsion: c.Modes.Repulsion,
		Trail:     c.Modes.Trail,
	}
	return p
}

// JitterSource builds the configured jitter source, or nil for the
// simulation's built-in uniform source.
func (c *Config) JitterSource(seed int64) physics.Jitter {
	if c.Jitter.Source == JitterPerlin {
		return physics.NewPerlinJitter(seed, c.Jitter.PerlinScale)
	}
	return nil
}

func setIfPositive(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}
