package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/dmgerman/whisperdict/internal/capture"
	"github.com/dmgerman/whisperdict/internal/language"
)

type Config struct {
	Capture       CaptureConfig       `toml:"capture"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Delivery      DeliveryConfig      `toml:"delivery"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type CaptureConfig struct {
	Mode           string       `toml:"mode"` // "streaming" or "simple"
	OutputDir      string       `toml:"output_dir"`
	FilenamePrefix string       `toml:"filename_prefix"`
	SampleRate     int          `toml:"sample_rate"`
	Channels       int          `toml:"channels"`
	Device         string       `toml:"device"`
	Worker         WorkerConfig `toml:"worker"`
}

type WorkerConfig struct {
	Command          []string      `toml:"command"`
	Host             string        `toml:"host"`
	Port             int           `toml:"port"`
	SilenceThreshold float64       `toml:"silence_threshold"`
	MinChunkDuration float64       `toml:"min_chunk_duration"`
	MaxChunkDuration float64       `toml:"max_chunk_duration"`
	StartupTimeout   time.Duration `toml:"startup_timeout"`
	StopTimeout      time.Duration `toml:"stop_timeout"`
}

type TranscriptionConfig struct {
	Provider  string `toml:"provider"` // "openai" or "whisper-cpp"
	APIKey    string `toml:"api_key"`
	Language  string `toml:"language"`
	Model     string `toml:"model"`
	ModelPath string `toml:"model_path"`
	Threads   int    `toml:"threads"`
}

type DeliveryConfig struct {
	Mode             string        `toml:"mode"` // "clipboard" or "log"
	ClipboardTimeout time.Duration `toml:"clipboard_timeout"`
	KeepChunks       bool          `toml:"keep_chunks"`
}

type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Type    string `toml:"type"` // "desktop", "log", "none"
}

func (c *Config) ChunkDir() string {
	if c.Capture.OutputDir != "" {
		return c.Capture.OutputDir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(dir, "whisperdict", "chunks")
}

func (c *Config) ToStreamingConfig() capture.StreamingConfig {
	return capture.StreamingConfig{
		Command:          c.Capture.Worker.Command,
		Host:             c.Capture.Worker.Host,
		Port:             c.Capture.Worker.Port,
		OutputDir:        c.ChunkDir(),
		FilenamePrefix:   c.Capture.FilenamePrefix,
		SilenceThreshold: c.Capture.Worker.SilenceThreshold,
		MinChunkDuration: c.Capture.Worker.MinChunkDuration,
		MaxChunkDuration: c.Capture.Worker.MaxChunkDuration,
		StartupTimeout:   c.Capture.Worker.StartupTimeout,
		StopTimeout:      c.Capture.Worker.StopTimeout,
	}
}

func (c *Config) ToSimpleConfig() capture.SimpleConfig {
	return capture.SimpleConfig{
		SampleRate: c.Capture.SampleRate,
		Channels:   c.Capture.Channels,
		Device:     c.Capture.Device,
		OutputDir:  c.ChunkDir(),
	}
}

func (c *Config) ResolvedAPIKey() string {
	if c.Transcription.APIKey != "" {
		return c.Transcription.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (c *Config) Validate() error {
	// Capture
	switch c.Capture.Mode {
	case "streaming":
		if len(c.Capture.Worker.Command) == 0 {
			return fmt.Errorf("invalid capture.worker.command: empty (point it at the chunker script)")
		}
		if c.Capture.Worker.Port <= 0 || c.Capture.Worker.Port > 65535 {
			return fmt.Errorf("invalid capture.worker.port: %d", c.Capture.Worker.Port)
		}
		if c.Capture.Worker.SilenceThreshold <= 0 {
			return fmt.Errorf("invalid capture.worker.silence_threshold: %v", c.Capture.Worker.SilenceThreshold)
		}
		if c.Capture.Worker.MinChunkDuration <= 0 {
			return fmt.Errorf("invalid capture.worker.min_chunk_duration: %v", c.Capture.Worker.MinChunkDuration)
		}
		if c.Capture.Worker.MaxChunkDuration < c.Capture.Worker.MinChunkDuration {
			return fmt.Errorf("capture.worker.max_chunk_duration %v below min_chunk_duration %v",
				c.Capture.Worker.MaxChunkDuration, c.Capture.Worker.MinChunkDuration)
		}
		if c.Capture.Worker.StartupTimeout <= 0 {
			return fmt.Errorf("invalid capture.worker.startup_timeout: %v", c.Capture.Worker.StartupTimeout)
		}
		if c.Capture.Worker.StopTimeout <= 0 {
			return fmt.Errorf("invalid capture.worker.stop_timeout: %v", c.Capture.Worker.StopTimeout)
		}
	case "simple":
		if c.Capture.SampleRate <= 0 {
			return fmt.Errorf("invalid capture.sample_rate: %d", c.Capture.SampleRate)
		}
		if c.Capture.Channels <= 0 {
			return fmt.Errorf("invalid capture.channels: %d", c.Capture.Channels)
		}
	default:
		return fmt.Errorf("invalid capture.mode: %s (must be streaming or simple)", c.Capture.Mode)
	}
	if c.Capture.FilenamePrefix == "" {
		return fmt.Errorf("invalid capture.filename_prefix: empty")
	}

	// Transcription
	switch c.Transcription.Provider {
	case "openai":
		if c.ResolvedAPIKey() == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (transcription.api_key) or environment variable (OPENAI_API_KEY)")
		}
	case "whisper-cpp":
		if c.Transcription.ModelPath == "" {
			return fmt.Errorf("invalid transcription.model_path: empty (required for whisper-cpp)")
		}
	default:
		return fmt.Errorf("invalid transcription.provider: %s (must be openai or whisper-cpp)", c.Transcription.Provider)
	}
	if lang := c.Transcription.Language; lang != language.Auto && !language.Valid(lang) {
		return fmt.Errorf("invalid transcription.language: %s (use %q or ISO-639-1 codes like 'en', 'es', 'fr')",
			lang, language.Auto)
	}

	// Delivery
	validModes := map[string]bool{"clipboard": true, "log": true}
	if !validModes[c.Delivery.Mode] {
		return fmt.Errorf("invalid delivery.mode: %s (must be clipboard or log)", c.Delivery.Mode)
	}
	if c.Delivery.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid delivery.clipboard_timeout: %v", c.Delivery.ClipboardTimeout)
	}

	// Notifications
	validTypes := map[string]bool{"desktop": true, "log": true, "none": true}
	if !validTypes[c.Notifications.Type] {
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log, or none)", c.Notifications.Type)
	}

	return nil
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	dir := filepath.Join(configDir, "whisperdict")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Printf("config: no config file found at %s, creating with defaults", configPath)
		if err := SaveDefaultConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return Load()
	}

	var config Config
	if _, err := toml.DecodeFile(configPath, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	log.Printf("config: loaded %s", configPath)
	return &config, nil
}

func SaveDefaultConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, []byte(defaultConfigContent), 0o644)
}

const defaultConfigContent = `# Whisperdict Configuration
# This file is automatically generated with defaults.
# Edit values as needed - changes are applied immediately without daemon restart.

# Audio Capture Configuration
[capture]
  mode = "streaming"           # Capture mode ("streaming" = chunked via VAD worker, "simple" = one file per session)
  output_dir = ""              # Directory for chunk WAV files (empty = cache directory)
  filename_prefix = "whisperdict"
  sample_rate = 16000          # Simple mode: sample rate in Hz
  channels = 1                 # Simple mode: number of channels
  device = ""                  # Simple mode: PipeWire device (empty = default microphone)

# Voice-activity-detection worker (streaming mode)
[capture.worker]
  command = ["python3", "/usr/local/share/whisperdict/whisper_stream.py"]
  host = "127.0.0.1"
  port = 8765
  silence_threshold = 5.0      # Seconds of silence that closes a chunk
  min_chunk_duration = 10.0    # Minimum chunk length in seconds
  max_chunk_duration = 120.0   # Maximum chunk length in seconds
  startup_timeout = "15s"      # How long to wait for the worker to become reachable
  stop_timeout = "10s"         # Forced-completion fallback after a stop request

# Speech Transcription Configuration
[transcription]
  provider = "openai"          # Transcription backend ("openai" or "whisper-cpp")
  api_key = ""                 # OpenAI API key (or set OPENAI_API_KEY environment variable)
  language = "auto"            # Language code ("auto", "en", "it", "es", "fr", etc.)
  model = "whisper-1"          # OpenAI model name
  model_path = ""              # whisper-cpp: path to the ggml model file
  threads = 0                  # whisper-cpp: CPU threads (0 = auto)

# Result Delivery Configuration
[delivery]
  mode = "clipboard"           # Where the final document goes ("clipboard" or "log")
  clipboard_timeout = "3s"     # Timeout for clipboard operations
  keep_chunks = false          # Keep chunk WAV files after transcription

# Desktop Notification Configuration
[notifications]
  enabled = true               # Enable notifications
  type = "desktop"             # Notification type ("desktop", "log", "none")
`
