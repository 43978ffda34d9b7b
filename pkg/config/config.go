package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	CORS      CORSConfig
	Log       LogConfig
	Engine    EngineConfig
	Bridge    BridgeConfig
	Scheduler SchedulerConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig supplies default thresholds for insight computation. Every
// value can be overridden per request; these are the fallbacks.
type EngineConfig struct {
	CacheEnabled        bool
	CacheTTL            time.Duration
	LookbackDays        int
	DaysThreshold       int
	MonthsThreshold     int
	CompletionThreshold float64
	AttendanceRateFloor float64
	IrregularityCutoff  float64
	DelaySlackFraction  float64
	WeeklyHoursCap      float64
	MarginFloor         float64
	RevenuePerStudent   float64
	DensityClampHours   float64
	WeightConsistency   float64
	WeightEfficiency    float64
	WeightProgress      float64
}

// BridgeConfig tunes insight-to-action bridging.
type BridgeConfig struct {
	NotificationCooldown time.Duration
	MasterRecipientID    string
	TaskDueDays          int
	ConflictTaskDueDays  int
}

// SchedulerConfig controls the periodic bridge runner.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// ExportsConfig toggles insight report exports.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		CacheEnabled:        v.GetBool("ENGINE_CACHE_ENABLED"),
		CacheTTL:            parseDuration(v.GetString("ENGINE_CACHE_TTL"), 10*time.Minute),
		LookbackDays:        v.GetInt("ENGINE_LOOKBACK_DAYS"),
		DaysThreshold:       v.GetInt("ENGINE_DAYS_THRESHOLD"),
		MonthsThreshold:     v.GetInt("ENGINE_MONTHS_THRESHOLD"),
		CompletionThreshold: v.GetFloat64("ENGINE_COMPLETION_THRESHOLD"),
		AttendanceRateFloor: v.GetFloat64("ENGINE_ATTENDANCE_RATE_FLOOR"),
		IrregularityCutoff:  v.GetFloat64("ENGINE_IRREGULARITY_CUTOFF"),
		DelaySlackFraction:  v.GetFloat64("ENGINE_DELAY_SLACK_FRACTION"),
		WeeklyHoursCap:      v.GetFloat64("ENGINE_WEEKLY_HOURS_CAP"),
		MarginFloor:         v.GetFloat64("ENGINE_MARGIN_FLOOR"),
		RevenuePerStudent:   v.GetFloat64("ENGINE_REVENUE_PER_STUDENT"),
		DensityClampHours:   v.GetFloat64("ENGINE_DENSITY_CLAMP_HOURS"),
		WeightConsistency:   v.GetFloat64("ENGINE_WEIGHT_CONSISTENCY"),
		WeightEfficiency:    v.GetFloat64("ENGINE_WEIGHT_EFFICIENCY"),
		WeightProgress:      v.GetFloat64("ENGINE_WEIGHT_PROGRESS"),
	}

	cfg.Bridge = BridgeConfig{
		NotificationCooldown: parseDuration(v.GetString("BRIDGE_NOTIFICATION_COOLDOWN"), 24*time.Hour),
		MasterRecipientID:    v.GetString("BRIDGE_MASTER_RECIPIENT_ID"),
		TaskDueDays:          v.GetInt("BRIDGE_TASK_DUE_DAYS"),
		ConflictTaskDueDays:  v.GetInt("BRIDGE_CONFLICT_TASK_DUE_DAYS"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:  v.GetBool("SCHEDULER_ENABLED"),
		Interval: parseDuration(v.GetString("SCHEDULER_INTERVAL"), 6*time.Hour),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tc_insight")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_CACHE_ENABLED", false)
	v.SetDefault("ENGINE_CACHE_TTL", "10m")
	v.SetDefault("ENGINE_LOOKBACK_DAYS", 90)
	v.SetDefault("ENGINE_DAYS_THRESHOLD", 7)
	v.SetDefault("ENGINE_MONTHS_THRESHOLD", 6)
	v.SetDefault("ENGINE_COMPLETION_THRESHOLD", 0.8)
	v.SetDefault("ENGINE_ATTENDANCE_RATE_FLOOR", 0.6)
	v.SetDefault("ENGINE_IRREGULARITY_CUTOFF", 0.5)
	v.SetDefault("ENGINE_DELAY_SLACK_FRACTION", 0.2)
	v.SetDefault("ENGINE_WEEKLY_HOURS_CAP", 40)
	v.SetDefault("ENGINE_MARGIN_FLOOR", 0)
	v.SetDefault("ENGINE_REVENUE_PER_STUDENT", 0)
	v.SetDefault("ENGINE_DENSITY_CLAMP_HOURS", 12)
	v.SetDefault("ENGINE_WEIGHT_CONSISTENCY", 0.3)
	v.SetDefault("ENGINE_WEIGHT_EFFICIENCY", 0.3)
	v.SetDefault("ENGINE_WEIGHT_PROGRESS", 0.4)

	v.SetDefault("BRIDGE_NOTIFICATION_COOLDOWN", "24h")
	v.SetDefault("BRIDGE_MASTER_RECIPIENT_ID", "")
	v.SetDefault("BRIDGE_TASK_DUE_DAYS", 7)
	v.SetDefault("BRIDGE_CONFLICT_TASK_DUE_DAYS", 2)

	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("SCHEDULER_INTERVAL", "6h")

	v.SetDefault("ENABLE_EXPORTS", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
