// Package config parses the process's flag-based configuration, grounded
// on the teacher's main.go: a flat set of stdlib flag.* declarations with
// defaults baked in, parsed once at startup into a plain struct the rest
// of the program reads from (no viper/koanf anywhere in the retrieved
// corpus, so flag is the idiomatic choice here too).
package config

import (
	"flag"
	"fmt"
	"time"
)

// OpusApplication selects libopus's internal tuning profile.
type OpusApplication string

const (
	OpusApplicationVoip  OpusApplication = "voip"
	OpusApplicationAudio OpusApplication = "audio"
)

// Config holds every setting the fanout core recognizes.
type Config struct {
	ListenAddr string
	APIAddr    string
	LedgerPath string

	CertValidity time.Duration
	IdleTimeout  time.Duration

	VideoFPS       int
	AudioFPS       int
	MaxClients     int
	AudioQueueMax  int
	OpusBitrateBps int
	OpusApplication OpusApplication
	NoAudioMixer   bool
	CharAspect     float64

	TestBotName string
	TestBotFreq float64
}

// Default returns the configuration the spec prescribes when no flags are
// given.
func Default() Config {
	return Config{
		ListenAddr:      ":8443",
		APIAddr:         ":8080",
		LedgerPath:      "asciichatd.db",
		CertValidity:    24 * time.Hour,
		IdleTimeout:     30 * time.Second,
		VideoFPS:        60,
		AudioFPS:        100,
		MaxClients:      9,
		AudioQueueMax:   50,
		OpusBitrateBps:  128000,
		OpusApplication: OpusApplicationAudio,
		NoAudioMixer:    false,
		CharAspect:      2.0,
		TestBotFreq:     440,
	}
}

// Parse parses args (typically os.Args[1:]) into a Config seeded with
// Default's values, and validates the ranges the spec fixes.
func Parse(args []string) (Config, error) {
	cfg := Default()
	fs := flag.NewFlagSet("asciichatd", flag.ContinueOnError)

	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "WebSocket/WebTransport listen address")
	fs.StringVar(&cfg.APIAddr, "api-addr", cfg.APIAddr, "admin HTTP listen address (empty to disable)")
	fs.StringVar(&cfg.LedgerPath, "db", cfg.LedgerPath, "SQLite operational ledger path")
	fs.DurationVar(&cfg.CertValidity, "cert-validity", cfg.CertValidity, "self-signed TLS certificate validity")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "HTTP idle timeout")

	fs.IntVar(&cfg.VideoFPS, "video-fps", cfg.VideoFPS, "per-client video render rate (1-144)")
	fs.IntVar(&cfg.AudioFPS, "audio-fps", cfg.AudioFPS, "per-client audio render rate (5-200)")
	fs.IntVar(&cfg.MaxClients, "max-clients", cfg.MaxClients, "maximum concurrent clients")
	fs.IntVar(&cfg.AudioQueueMax, "audio-queue-max", cfg.AudioQueueMax, "max depth of each client's outbound audio queue")
	fs.IntVar(&cfg.OpusBitrateBps, "opus-bitrate", cfg.OpusBitrateBps, "Opus target bitrate in bits/sec")
	app := fs.String("opus-application", string(cfg.OpusApplication), "Opus tuning profile: voip or audio")
	fs.BoolVar(&cfg.NoAudioMixer, "no-audio-mixer", cfg.NoAudioMixer, "diagnostics flag; parsed but not consulted: the audio workers always use the mixer")
	fs.Float64Var(&cfg.CharAspect, "char-aspect", cfg.CharAspect, "terminal character visual aspect ratio; parsed but not consulted: the compositor uses a fixed 2.0")

	fs.StringVar(&cfg.TestBotName, "test-bot", cfg.TestBotName, "name for a virtual tone-emitting test client (empty to disable)")
	fs.Float64Var(&cfg.TestBotFreq, "test-bot-freq", cfg.TestBotFreq, "test bot tone frequency in Hz")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.OpusApplication = OpusApplication(*app)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the ranges the spec fixes for numeric settings.
func (c Config) Validate() error {
	if c.VideoFPS < 1 || c.VideoFPS > 144 {
		return fmt.Errorf("config: video-fps must be in 1..144, got %d", c.VideoFPS)
	}
	if c.AudioFPS < 5 || c.AudioFPS > 200 {
		return fmt.Errorf("config: audio-fps must be in 5..200, got %d", c.AudioFPS)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("config: max-clients must be >= 1, got %d", c.MaxClients)
	}
	if c.AudioQueueMax < 1 {
		return fmt.Errorf("config: audio-queue-max must be >= 1, got %d", c.AudioQueueMax)
	}
	if c.OpusApplication != OpusApplicationVoip && c.OpusApplication != OpusApplicationAudio {
		return fmt.Errorf("config: opus-application must be voip or audio, got %q", c.OpusApplication)
	}
	return nil
}

// VideoInterval returns the per-client video tick interval for VideoFPS,
// clamped to the spec's 1-144 range.
func (c Config) VideoInterval() time.Duration {
	fps := c.VideoFPS
	if fps < 1 {
		fps = 1
	} else if fps > 144 {
		fps = 144
	}
	return time.Second / time.Duration(fps)
}

// AudioInterval returns the per-client audio tick interval for AudioFPS.
func (c Config) AudioInterval() time.Duration {
	fps := c.AudioFPS
	if fps < 5 {
		fps = 5
	} else if fps > 200 {
		fps = 200
	}
	return time.Second / time.Duration(fps)
}
