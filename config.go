package vmd

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultConfigPath = "./vmd.yaml"
const ApiHostEnvName = "VMD_API_HOST"
const ApiUrlEnvName = "VMD_API_URL"
const DebugEnvName = "VMD_DEBUG"

const DefaultApiUrl = "https://vitemadose.gitlab.io/vitemadose"
const DefaultGeoApiUrl = "https://geo.api.gouv.fr"
const DefaultRemoteConfigPrefix = "/vmd/"

// remote config parameter names, relative to RemoteConfigPrefix
const (
	RemoteKeyApiUrl        = "api_url"
	RemoteKeyMaxDistanceKm = "vaccination_centers_list_radius_in_km"
	RemoteKeyCentresPath   = "path_list"
	RemoteKeySlotsPath     = "path_slots"
	RemoteKeyStatsPath     = "path_stats"
)

var HostPattern = regexp.MustCompile(`(?i)https?://([^/]+)`)

// Config is an immutable snapshot once built: refreshing remote values
// produces a new Config (see WithRemoteValues) instead of mutating this one.
type Config struct {
	Debug              bool     `yaml:"debug"`
	ApiUrl             string   `yaml:"api_url"`
	CentresPath        string   `yaml:"centres_path"`
	DailySlotsPath     string   `yaml:"daily_slots_path"`
	StatsPath          string   `yaml:"stats_path"`
	GeoApiUrl          string   `yaml:"geo_api_url"`
	MaxDistanceKm      float64  `yaml:"max_distance_km"`
	RequestTimeout     int64    `yaml:"request_timeout"`
	RequestsPerSecond  float64  `yaml:"requests_per_second"`
	CacheTTL           int64    `yaml:"cache_ttl"`
	RemoteConfig       bool     `yaml:"remote_config"`
	RemoteConfigPrefix string   `yaml:"remote_config_prefix"`
	PreferencesBackend string   `yaml:"preferences_backend"`
	PreferencesPath    string   `yaml:"preferences_path"`
	RedisUrl           string   `yaml:"redis_url"`
	SqlitePath         string   `yaml:"sqlite_path"`
	AmqpUrl            string   `yaml:"amqp_url"`
	WatchInterval      int64    `yaml:"watch_interval"`
	FromEmailAddress   string   `yaml:"from_email_address"`
	SmtpUsername       string   `yaml:"smtp_user"`
	SmtpPassword       string   `yaml:"smtp_pass"`
	SmtpHost           string   `yaml:"smtp_host"`
	SmtpPort           int      `yaml:"smtp_port"`
	NotifyEmailAddrs   []string `yaml:"notify_email_addrs"`
	DumpDir            string   `yaml:"dump_dir"`
	DumpOutput         bool     `yaml:"dump_output"`
	DumpOutputS3       bool     `yaml:"dump_output_s3"`
	S3Bucket           string   `yaml:"s3_bucket"`
}

func DefaultConfig() *Config {
	return &Config{
		ApiUrl:             DefaultApiUrl,
		CentresPath:        "%s.json",
		DailySlotsPath:     "%s/creneaux-quotidiens.json",
		StatsPath:          "stats.json",
		GeoApiUrl:          DefaultGeoApiUrl,
		MaxDistanceKm:      50,
		RequestTimeout:     10,
		RequestsPerSecond:  10,
		CacheTTL:           60,
		RemoteConfigPrefix: DefaultRemoteConfigPrefix,
		PreferencesBackend: PreferencesBackendFile,
		PreferencesPath:    "./vmd-preferences.json",
		SqlitePath:         "./vmd-preferences.db",
		WatchInterval:      300,
		SmtpPort:           587,
		DumpDir:            "./dump",
		S3Bucket:           "vitemadose-search-results",
	}
}

// NewConfigDefaultPath reads ./vmd.yaml, falling back to defaults when the
// file does not exist.
func NewConfigDefaultPath() (*Config, error) {
	if _, err := os.Stat(DefaultConfigPath); os.IsNotExist(err) {
		Log.Debugf("%s not found, using defaults", DefaultConfigPath)
		config := DefaultConfig()
		if err := config.applyEnv(); err != nil {
			return nil, err
		}
		return config, config.Validate()
	}
	return NewConfig(DefaultConfigPath)
}

func NewConfig(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	config := DefaultConfig()

	d := yaml.NewDecoder(file)
	if err := d.Decode(config); err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	Log.Debugf("API URL: %s", config.ApiUrl)
	Log.Debugf("Geo API URL: %s", config.GeoApiUrl)

	return config, config.Validate()
}

func (c *Config) applyEnv() error {
	if debug, err := strconv.ParseBool(os.Getenv(DebugEnvName)); err == nil {
		c.Debug = debug
	}
	SetDebug(c.Debug)

	if apiUrl := os.Getenv(ApiUrlEnvName); len(apiUrl) > 0 {
		c.ApiUrl = apiUrl
	}

	//replace host portion of url, usually for testing
	if hostOverride := os.Getenv(ApiHostEnvName); len(hostOverride) > 0 {
		newApiUrl, err := ReplaceHost(c.ApiUrl, hostOverride)
		if err != nil {
			return err
		}
		c.ApiUrl = newApiUrl
	}

	return nil
}

func (c *Config) Validate() error {
	if !HostPattern.MatchString(c.ApiUrl) {
		return fmt.Errorf("api_url must be an http(s) url, configured: %q", c.ApiUrl)
	}
	if c.MaxDistanceKm < 0 {
		return fmt.Errorf("max_distance_km must not be negative, configured: %f", c.MaxDistanceKm)
	}
	switch c.PreferencesBackend {
	case PreferencesBackendFile, PreferencesBackendRedis, PreferencesBackendSQLite:
	default:
		return fmt.Errorf("unknown preferences_backend: %q", c.PreferencesBackend)
	}
	if c.WatchInterval != 0 && (c.WatchInterval < 10 || c.WatchInterval > 86400) {
		return fmt.Errorf("watch_interval must be between 10 and 86400 seconds, configured: %d", c.WatchInterval)
	}
	return nil
}

func (c *Config) MaxDistanceMeters() float64 {
	return c.MaxDistanceKm * 1000
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

func (c *Config) CentresUrl(department string) string {
	return c.apiPath(fmt.Sprintf(c.CentresPath, department))
}

func (c *Config) DailySlotsUrl(department string) string {
	return c.apiPath(fmt.Sprintf(c.DailySlotsPath, department))
}

func (c *Config) StatsUrl() string {
	return c.apiPath(c.StatsPath)
}

func (c *Config) apiPath(path string) string {
	return strings.TrimRight(c.ApiUrl, "/") + "/" + strings.TrimLeft(path, "/")
}

// WithRemoteValues returns a copy of c with the remote values applied.
// Values that fail to parse are logged and ignored.
func (c *Config) WithRemoteValues(values map[string]string) *Config {
	snapshot := *c
	snapshot.NotifyEmailAddrs = append([]string(nil), c.NotifyEmailAddrs...)

	for key, value := range values {
		switch key {
		case RemoteKeyApiUrl:
			if HostPattern.MatchString(value) {
				snapshot.ApiUrl = value
			} else {
				Log.Warnf("Ignoring remote %s: %q", key, value)
			}
		case RemoteKeyMaxDistanceKm:
			km, err := strconv.ParseFloat(value, 64)
			if err != nil || km < 0 {
				Log.Warnf("Ignoring remote %s: %q", key, value)
				continue
			}
			snapshot.MaxDistanceKm = km
		case RemoteKeyCentresPath:
			snapshot.CentresPath = value
		case RemoteKeySlotsPath:
			snapshot.DailySlotsPath = value
		case RemoteKeyStatsPath:
			snapshot.StatsPath = value
		default:
			Log.Debugf("Unknown remote config key: %s", key)
		}
	}

	return &snapshot
}

type ParameterGetter func(name string) (string, error)

// RemoteKeys are the parameters looked up by LoadRemoteConfig.
var RemoteKeys = []string{RemoteKeyApiUrl, RemoteKeyMaxDistanceKm, RemoteKeyCentresPath, RemoteKeySlotsPath, RemoteKeyStatsPath}

// LoadRemoteConfig reads every remote key through get and returns a new
// snapshot; missing parameters keep their local value.
func (c *Config) LoadRemoteConfig(get ParameterGetter) *Config {
	values := make(map[string]string)
	for _, key := range RemoteKeys {
		value, err := get(c.RemoteConfigPrefix + key)
		if err != nil {
			Log.Debugf("Remote config %s%s not loaded: %v", c.RemoteConfigPrefix, key, err)
			continue
		}
		values[key] = value
	}
	return c.WithRemoteValues(values)
}

func ReplaceHost(originalUrl string, host string) (string, error) {
	matches := HostPattern.FindStringSubmatch(originalUrl)
	if len(matches) < 2 {
		return "", fmt.Errorf("Could not parse host from url: %s", originalUrl)
	}

	originalHost := matches[1]
	newUrl := strings.Replace(originalUrl, originalHost, host, 1)

	return newUrl, nil
}
