package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"  validate:"required"`
	TTS      TTSConfig      `mapstructure:"tts"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Billing  BillingConfig  `mapstructure:"billing"  validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error fatal"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
	// MaxUploadBytes caps the size of uploaded source documents.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required,gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"gte=0,lte=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"gte=1"`
	ContextChars      int     `mapstructure:"context_chars"       validate:"required,gt=0"`
	ChatContextChars  int     `mapstructure:"chat_context_chars"  validate:"required,gt=0"`
	InputTokenPrice   float64 `mapstructure:"input_token_price"   validate:"gte=0"`
	OutputTokenPrice  float64 `mapstructure:"output_token_price"  validate:"gte=0"`
}

// StorageConfig selects and configures the object store for source documents and artifacts.
type StorageConfig struct {
	Backend   string `mapstructure:"backend"    validate:"required,oneof=s3 local"`
	Bucket    string `mapstructure:"bucket"     validate:"required_if=Backend s3"`
	Region    string `mapstructure:"region"     validate:"required_if=Backend s3"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"   validate:"omitempty,url"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	// LocalDir and PublicURL configure the local backend.
	LocalDir  string `mapstructure:"local_dir"  validate:"required_if=Backend local"`
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

// TTSConfig configures speech synthesis for podcasts through the Edge
// read-aloud websocket service.
type TTSConfig struct {
	DefaultVoice       string        `mapstructure:"default_voice"        validate:"required"`
	Timeout            time.Duration `mapstructure:"timeout"              validate:"required,gt=0"`
	Endpoint           string        `mapstructure:"endpoint"             validate:"required"`
	Origin             string        `mapstructure:"origin"               validate:"required"`
	UserAgent          string        `mapstructure:"user_agent"           validate:"required"`
	TrustedClientToken string        `mapstructure:"trusted_client_token" validate:"required"`
	GECVersion         string        `mapstructure:"gec_version"          validate:"required"`
	// MaxChunkBytes caps the text sent in one synthesis request.
	MaxChunkBytes int `mapstructure:"max_chunk_bytes" validate:"gte=256"`
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount               int `mapstructure:"worker_count"                 validate:"required,gt=0"`
	QueueSize                 int `mapstructure:"queue_size"                   validate:"required,gt=0"`
	StuckTaskAgeMinutes       int `mapstructure:"stuck_task_age_minutes"       validate:"required,gt=0"`
	StuckTaskCheckIntervalSec int `mapstructure:"stuck_task_check_interval_sec" validate:"required,gt=0"`
}

// BillingConfig holds token accounting settings.
type BillingConfig struct {
	DefaultBalance float64 `mapstructure:"default_balance" validate:"gte=0"`
	MinimumBalance float64 `mapstructure:"minimum_balance" validate:"gte=0"`
}
