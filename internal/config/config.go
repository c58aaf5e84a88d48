package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/strefethen/mcws-go/pkg/mcws/endpoint"
)

// Config holds the client and CLI configuration.
type Config struct {
	Profile   string
	AccessKey string
	Username  string
	Password  string
	LookupURL string

	LocalProbeTimeoutMs  int
	RemoteProbeTimeoutMs int
	RequestTimeoutMs     int

	// CachePath enables the SQLite resolution cache when set.
	CachePath string
	// MetricsAddr serves /metrics when set, e.g. ":9464".
	MetricsAddr string
	// WatchSchedule is a cron spec used by the watch command.
	WatchSchedule string
	// WatchFields limits the playback info printed by watch. Empty prints all.
	WatchFields []string

	LogLevel  string
	LogDebug  bool
	LogOutput string
}

// Profile is one named server in the config file.
type Profile struct {
	AccessKey            string `yaml:"access_key"`
	Username             string `yaml:"username"`
	Password             string `yaml:"password"`
	LookupURL            string `yaml:"lookup_url"`
	LocalProbeTimeoutMs  int    `yaml:"local_probe_timeout_ms"`
	RemoteProbeTimeoutMs int    `yaml:"remote_probe_timeout_ms"`
	RequestTimeoutMs     int    `yaml:"request_timeout_ms"`
}

// File is the layout of the optional YAML config file.
type File struct {
	DefaultProfile string             `yaml:"default_profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
	CachePath      string             `yaml:"cache_path"`
	MetricsAddr    string             `yaml:"metrics_addr"`
	WatchSchedule  string             `yaml:"watch_schedule"`
	WatchFields    []string           `yaml:"watch_fields"`
	Log            struct {
		Level  string `yaml:"level"`
		Debug  bool   `yaml:"debug"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

const defaultWatchSchedule = "@every 30s"

// Load reads the optional file named by MCWS_CONFIG, selects a profile and
// applies environment overrides.
func Load() (Config, error) {
	var file File
	if path := envString("MCWS_CONFIG", ""); path != "" {
		loaded, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		file = loaded
	}

	profileName := envString("MCWS_PROFILE", file.DefaultProfile)
	var profile Profile
	if profileName != "" {
		p, ok := file.Profiles[profileName]
		if !ok {
			return Config{}, fmt.Errorf("profile %q not found", profileName)
		}
		profile = p
	}

	cfg := Config{
		Profile:              profileName,
		AccessKey:            envString("MCWS_ACCESS_KEY", profile.AccessKey),
		Username:             envString("MCWS_USERNAME", profile.Username),
		Password:             envString("MCWS_PASSWORD", profile.Password),
		LookupURL:            envString("MCWS_LOOKUP_URL", profile.LookupURL),
		LocalProbeTimeoutMs:  envInt("MCWS_LOCAL_PROBE_TIMEOUT_MS", orInt(profile.LocalProbeTimeoutMs, 2000)),
		RemoteProbeTimeoutMs: envInt("MCWS_REMOTE_PROBE_TIMEOUT_MS", orInt(profile.RemoteProbeTimeoutMs, 3000)),
		RequestTimeoutMs:     envInt("MCWS_REQUEST_TIMEOUT_MS", orInt(profile.RequestTimeoutMs, 30000)),
		CachePath:            envString("MCWS_CACHE_PATH", file.CachePath),
		MetricsAddr:          envString("MCWS_METRICS_ADDR", file.MetricsAddr),
		WatchSchedule:        envString("MCWS_WATCH_SCHEDULE", orString(file.WatchSchedule, defaultWatchSchedule)),
		WatchFields:          file.WatchFields,
		LogLevel:             envString("MCWS_LOG_LEVEL", orString(file.Log.Level, "info")),
		LogDebug:             envBool("MCWS_LOG_DEBUG", file.Log.Debug),
		LogOutput:            envString("MCWS_LOG_OUTPUT", orString(file.Log.Output, "stderr")),
	}

	if fields := envCSV("MCWS_WATCH_FIELDS"); len(fields) > 0 {
		cfg.WatchFields = fields
	}

	if strings.TrimSpace(cfg.AccessKey) == "" {
		return Config{}, errors.New("MCWS_ACCESS_KEY (or a profile access_key) is required")
	}

	return cfg, nil
}

// ReadFile parses a YAML config file.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return File{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return file, nil
}

// EndpointOptions converts the timeouts and lookup URL into resolver options.
func (c Config) EndpointOptions() []endpoint.Option {
	return []endpoint.Option{
		endpoint.WithLookupURL(c.LookupURL),
		endpoint.WithProbeTimeouts(
			time.Duration(c.LocalProbeTimeoutMs)*time.Millisecond,
			time.Duration(c.RemoteProbeTimeoutMs)*time.Millisecond,
		),
		endpoint.WithRequestTimeout(time.Duration(c.RequestTimeoutMs) * time.Millisecond),
	}
}

func orString(val, fallback string) string {
	if val == "" {
		return fallback
	}
	return val
}

func orInt(val, fallback int) int {
	if val == 0 {
		return fallback
	}
	return val
}

func envString(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return strings.EqualFold(val, "true")
}

func envCSV(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return []string{}
	}
	parts := strings.Split(val, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
