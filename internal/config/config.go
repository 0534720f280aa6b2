package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the application's configuration model.
// It captures Twitch credentials, API tuning, file locations and render options.
type Config struct {
	Twitch  TwitchConfig  `yaml:"twitch"`
	API     APIConfig     `yaml:"api"`
	Paths   PathsConfig   `yaml:"paths"`
	Render  RenderConfig  `yaml:"render"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type TwitchConfig struct {
	// Application credentials. If empty, read from env CLIENT_ID / CLIENT_SECRET
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	RedirectURI  string `yaml:"redirectURI"`
	// Single-use code from the authorize redirect. If empty, read AUTHORIZATION_CODE
	AuthorizationCode string `yaml:"authorizationCode"`
	// Login of the channel whose subscribers are ranked
	Broadcaster string `yaml:"broadcaster"`
}

type APIConfig struct {
	TokenURL    string        `yaml:"tokenURL"`
	BaseURL     string        `yaml:"baseURL"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	MaxAttempts int           `yaml:"maxAttempts"` // 1 disables retries
	BaseBackoff time.Duration `yaml:"baseBackoff"`
	Timeout     time.Duration `yaml:"timeout"`
}

// PathsConfig holds every file the pipeline touches.
type PathsConfig struct {
	Tokens     string `yaml:"tokens"`
	CSV        string `yaml:"csv"`
	Template   string `yaml:"template"`
	OutputHTML string `yaml:"outputHTML"`
	Icons      string `yaml:"icons"`
	Screenshot string `yaml:"screenshot"`
	DB         string `yaml:"db"`
}

type RenderConfig struct {
	Placeholder    string        `yaml:"placeholder"`
	ViewportWidth  int           `yaml:"viewportWidth"`
	ViewportHeight int           `yaml:"viewportHeight"`
	SettleDelay    time.Duration `yaml:"settleDelay"`
	Zoom           float64       `yaml:"zoom"` // 0 or 1 leaves the page unscaled
	Headless       bool          `yaml:"headless"`
}

type MetricsConfig struct {
	// Listen address for /metrics, e.g. ":9090". If empty, read METRICS_ADDR
	Addr string `yaml:"addr"`
}

// DefaultBroadcaster is ranked when neither the file nor TWITCH_BROADCASTER names a channel.
const DefaultBroadcaster = "patriciofernandezia"

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			TokenURL:    "https://id.twitch.tv/oauth2/token",
			BaseURL:     "https://api.twitch.tv/helix",
			RPS:         2,
			Burst:       10,
			MaxAttempts: 1,
			BaseBackoff: 500 * time.Millisecond,
			Timeout:     15 * time.Second,
		},
		Paths: PathsConfig{
			Tokens:     "./tokens.json",
			CSV:        "./suscriptores.csv",
			Template:   "./assets/template.html",
			OutputHTML: "./index_con_placeholder.html",
			Icons:      "./assets/icons.json",
			Screenshot: "./screenshot.png",
			DB:         "./giftboard.db",
		},
		Render: RenderConfig{
			Placeholder:    "<!-- PLACEHOLDER -->",
			ViewportWidth:  1280,
			ViewportHeight: 720,
			SettleDelay:    5 * time.Second,
			Zoom:           1,
			Headless:       true,
		},
	}
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Twitch.ClientID == "" {
		c.Twitch.ClientID = os.Getenv("CLIENT_ID")
	}
	if c.Twitch.ClientSecret == "" {
		c.Twitch.ClientSecret = os.Getenv("CLIENT_SECRET")
	}
	if c.Twitch.RedirectURI == "" {
		c.Twitch.RedirectURI = os.Getenv("REDIRECT_URI")
	}
	if c.Twitch.AuthorizationCode == "" {
		c.Twitch.AuthorizationCode = os.Getenv("AUTHORIZATION_CODE")
	}
	if c.Twitch.Broadcaster == "" {
		c.Twitch.Broadcaster = os.Getenv("TWITCH_BROADCASTER")
	}
	if c.Twitch.Broadcaster == "" {
		c.Twitch.Broadcaster = DefaultBroadcaster
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path. Fields missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
