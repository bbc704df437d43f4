package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Raikerian/go-audio-sender/pkg/audio"
)

// EnvPrefix is prepended, with an underscore, to every environment key.
const EnvPrefix = "AUDIO_SENDER"

// Protocol selects the network transport used by the sender.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// ParseProtocol accepts "tcp" or "udp" in any case.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToLower(strings.TrimSpace(s))); p {
	case TCP, UDP:
		return p, nil
	default:
		return "", fmt.Errorf("unknown protocol %q (want tcp or udp)", s)
	}
}

// AudioConfig stores capture settings.
type AudioConfig struct {
	// Device is a case-sensitive substring of the input device name.
	// Empty selects the host default input device.
	Device     string `mapstructure:"device" yaml:"device"`
	SampleRate int    `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels   int    `mapstructure:"channels" yaml:"channels"`
	// BufferSize is fixed at audio.DefaultBufferSize frames per callback and
	// is not read from the file, environment or flags.
	BufferSize int `mapstructure:"-" yaml:"-"`
}

// Format returns the capture format described by the config.
func (a AudioConfig) Format() audio.Format {
	return audio.Format{SampleRate: a.SampleRate, Channels: a.Channels, BufferSize: a.BufferSize}
}

// NetworkConfig stores sender settings.
type NetworkConfig struct {
	Server   string   `mapstructure:"server" yaml:"server"`
	Protocol Protocol `mapstructure:"protocol" yaml:"protocol"`
	// DialTimeout bounds connection establishment. Zero means no timeout.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	// LogEvery emits a progress line every N frames. Zero disables it.
	LogEvery int `mapstructure:"log_every" yaml:"log_every"`
	// ErrorLogWindow suppresses repeated identical UDP send errors for this long.
	ErrorLogWindow time.Duration `mapstructure:"error_log_window" yaml:"error_log_window"`
}

// PipelineConfig stores session settings.
type PipelineConfig struct {
	// StallTimeout is how long the sender may go without a frame before a
	// warning is logged. Zero disables the watchdog.
	StallTimeout time.Duration `mapstructure:"stall_timeout" yaml:"stall_timeout"`
}

// MetricsConfig stores the Prometheus endpoint settings.
type MetricsConfig struct {
	// ListenAddr serves /metrics when non-empty.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// Config stores the application configuration.
type Config struct {
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"`
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		LogLevel: "info",
		Audio: AudioConfig{
			SampleRate: audio.DefaultSampleRate,
			Channels:   audio.DefaultChannels,
			BufferSize: audio.DefaultBufferSize,
		},
		Network: NetworkConfig{
			Server:         "localhost:8080",
			Protocol:       TCP,
			LogEvery:       100,
			ErrorLogWindow: 10 * time.Second,
		},
		Pipeline: PipelineConfig{
			StallTimeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at filePath,
// AUDIO_SENDER_* environment variables and the flags registered by
// RegisterFlags, in increasing order of precedence. A missing file is not an
// error and flags may be nil. The result is not validated.
func Load(filePath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range envAliases {
		if err := v.BindEnv(key, EnvPrefix+"_"+name); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if filePath != "" {
		v.SetConfigFile(filePath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", filePath, err)
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envAliases maps config keys to short environment names, used alongside
// the full AUDIO_SENDER_<SECTION>_<KEY> form.
var envAliases = map[string]string{
	"network.server":       "SERVER",
	"network.protocol":     "PROTOCOL",
	"network.dial_timeout": "DIAL_TIMEOUT",
	"audio.device":         "DEVICE",
	"audio.sample_rate":    "SAMPLE_RATE",
	"audio.channels":       "CHANNELS",
	"metrics.listen_addr":  "METRICS_ADDR",
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"server":       "network.server",
	"protocol":     "network.protocol",
	"device":       "audio.device",
	"sample-rate":  "audio.sample_rate",
	"channels":     "audio.channels",
	"log-level":    "log_level",
	"metrics-addr": "metrics.listen_addr",
}

// RegisterFlags adds the configuration override flags. Only flags set
// on the command line take precedence over the file and environment.
func RegisterFlags(flags *pflag.FlagSet) {
	d := Defaults()
	flags.StringP("server", "s", d.Network.Server, "server address host:port")
	flags.StringP("protocol", "p", string(d.Network.Protocol), "transport: tcp or udp")
	flags.StringP("device", "d", "", "input device name substring (default device if empty)")
	flags.IntP("sample-rate", "r", d.Audio.SampleRate, "sample rate in Hz")
	flags.IntP("channels", "c", d.Audio.Channels, "number of input channels")
	flags.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
}

// setDefaults registers every key so AutomaticEnv and Unmarshal see it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("audio.device", d.Audio.Device)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("network.server", d.Network.Server)
	v.SetDefault("network.protocol", string(d.Network.Protocol))
	v.SetDefault("network.dial_timeout", d.Network.DialTimeout)
	v.SetDefault("network.log_every", d.Network.LogEvery)
	v.SetDefault("network.error_log_window", d.Network.ErrorLogWindow)
	v.SetDefault("pipeline.stall_timeout", d.Pipeline.StallTimeout)
	v.SetDefault("metrics.listen_addr", d.Metrics.ListenAddr)
}

var protocolType = reflect.TypeOf(Protocol(""))

var decodeHook = mapstructure.ComposeDecodeHookFunc(
	protocolHook,
	mapstructure.StringToTimeDurationHookFunc(),
)

func protocolHook(from, to reflect.Type, data any) (any, error) {
	if to != protocolType || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseProtocol(reflect.ValueOf(data).String())
}

// YAML renders the configuration in the config file format.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate reports the first problem that would prevent a run.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Network.Server); err != nil {
		return fmt.Errorf("network.server %q must be host:port: %w", c.Network.Server, err)
	}
	if _, err := ParseProtocol(string(c.Network.Protocol)); err != nil {
		return fmt.Errorf("network.protocol: %w", err)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Channels <= 0 {
		return fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels)
	}
	if c.Audio.BufferSize <= 0 {
		return fmt.Errorf("audio.buffer_size must be positive, got %d", c.Audio.BufferSize)
	}
	if c.Network.LogEvery < 0 {
		return fmt.Errorf("network.log_every must not be negative, got %d", c.Network.LogEvery)
	}
	for name, d := range map[string]time.Duration{
		"network.dial_timeout":     c.Network.DialTimeout,
		"network.error_log_window": c.Network.ErrorLogWindow,
		"pipeline.stall_timeout":   c.Pipeline.StallTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	if !logLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}
