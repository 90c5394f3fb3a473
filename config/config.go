package config

import "time"

// Config is the root configuration of the agent, the dev receiver and the tools.
type Config struct {
	User       UserConfig       `yaml:"user"`
	Device     DeviceConfig     `yaml:"device"`
	API        APIConfig        `yaml:"api"`
	Store      StoreConfig      `yaml:"store"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Validation ValidationConfig `yaml:"validation"`
	Replay     ReplayConfig     `yaml:"replay"`
	Location   LocationConfig   `yaml:"location"`
	Notify     NotifyConfig     `yaml:"notify"`
	Export     ExportConfig     `yaml:"export"`
	Remote     RemoteConfig     `yaml:"remote"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
}

// UserConfig identifies the authenticated employee using this device.
type UserConfig struct {
	ID   string `yaml:"id"   env:"TIMECLOCK_USER_ID"`
	Name string `yaml:"name" env:"TIMECLOCK_USER_NAME"`
}

// DeviceConfig is the ambient device state stamped onto every punch.
type DeviceConfig struct {
	UserAgent    string `yaml:"user_agent"    env:"DEVICE_USER_AGENT"    env-default:"timeclock-agent/1.0"`
	Platform     string `yaml:"platform"      env:"DEVICE_PLATFORM"`
	Language     string `yaml:"language"      env:"DEVICE_LANGUAGE"      env-default:"en-AU"`
	Canvas       string `yaml:"canvas"        env:"DEVICE_CANVAS"`
	ScreenWidth  int    `yaml:"screen_width"  env:"DEVICE_SCREEN_WIDTH"  env-default:"0"`
	ScreenHeight int    `yaml:"screen_height" env:"DEVICE_SCREEN_HEIGHT" env-default:"0"`
	ColorDepth   int    `yaml:"color_depth"   env:"DEVICE_COLOR_DEPTH"   env-default:"24"`
}

// APIConfig holds the backend endpoint settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"API_BASE_URL" env-default:"http://localhost:8090"`
	Token   string        `yaml:"token"    env:"API_TOKEN"`
	Timeout time.Duration `yaml:"timeout"  env:"API_TIMEOUT"  env-default:"15s"`
}

// StoreConfig holds the on-device database settings.
type StoreConfig struct {
	Path     string `yaml:"path"      env:"STORE_PATH"      env-default:"./timeclock.db"`
	LogLevel string `yaml:"log_level" env:"STORE_LOG_LEVEL" env-default:"warn"`
}

type EncryptionConfig struct {
	Enabled bool `yaml:"enabled" env:"ENCRYPTION_ENABLED" env-default:"true"`
}

type ValidationConfig struct {
	MaxAccuracyM float64 `yaml:"max_accuracy_m" env:"VALIDATION_MAX_ACCURACY_M" env-default:"100"`
}

// ReplayConfig holds the background replay worker settings.
type ReplayConfig struct {
	Retention     time.Duration `yaml:"retention"      env:"REPLAY_RETENTION"      env-default:"24h"`
	MaxAttempts   int           `yaml:"max_attempts"   env:"REPLAY_MAX_ATTEMPTS"   env-default:"0"`
	SyncTag       string        `yaml:"sync_tag"       env:"REPLAY_SYNC_TAG"       env-default:"time-clock-sync"`
	SkipWaiting   bool          `yaml:"skip_waiting"   env:"REPLAY_SKIP_WAITING"   env-default:"true"`
	ProbeInterval time.Duration `yaml:"probe_interval" env:"REPLAY_PROBE_INTERVAL" env-default:"15s"`
}

// LocationConfig describes a fixed installation's position.
type LocationConfig struct {
	Lat          float64       `yaml:"lat"           env:"LOCATION_LAT"`
	Lng          float64       `yaml:"lng"           env:"LOCATION_LNG"`
	AccuracyM    float64       `yaml:"accuracy_m"    env:"LOCATION_ACCURACY_M"    env-default:"10"`
	Address      string        `yaml:"address"       env:"LOCATION_ADDRESS"`
	Permission   string        `yaml:"permission"    env:"LOCATION_PERMISSION"    env-default:"granted"`
	PollInterval time.Duration `yaml:"poll_interval" env:"LOCATION_POLL_INTERVAL" env-default:"30s"`
}

type NotifyConfig struct {
	SlackToken   string `yaml:"slack_token"   env:"SLACK_BOT_TOKEN"`
	InfoChannel  string `yaml:"info_channel"  env:"SLACK_INFO_CHANNEL"`
	ErrorChannel string `yaml:"error_channel" env:"SLACK_ERROR_CHANNEL"`
}

// Enabled reports whether Slack alerts are configured.
func (n NotifyConfig) Enabled() bool {
	return n.SlackToken != "" && n.ErrorChannel != ""
}

type ExportConfig struct {
	Bucket string `yaml:"bucket" env:"EXPORT_BUCKET"`
	Prefix string `yaml:"prefix" env:"EXPORT_PREFIX" env-default:"timesheets/"`
}

// RemoteConfig names the SSM parameter holding a YAML settings overlay.
// An empty parameter disables the overlay.
type RemoteConfig struct {
	Parameter string `yaml:"parameter" env:"REMOTE_SETTINGS_PARAMETER"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ServerConfig holds the dev punch receiver settings.
type ServerConfig struct {
	Addr      string `yaml:"addr"       env:"SERVER_ADDR"       env-default:":8090"`
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
	Driver    string `yaml:"driver"     env:"SERVER_DB_DRIVER"  env-default:"sqlite"`
	DSN       string `yaml:"dsn"        env:"DSN"               env-default:"./receiver.db"`
	JobsPath  string `yaml:"jobs_path"  env:"SERVER_JOBS_PATH"`
}
