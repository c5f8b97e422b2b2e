package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/uae-home-services/service-booking/internal/common/config"
)

// BookingPolicy holds the business rules that vary per deployment.
type BookingPolicy struct {
	MaxReschedules    int
	NumberRetries     int
	CommissionBPS     int64
	PlatformFeeBPS    int64
	VatBPS            int64
	OptimisticLocking bool
	Location          *time.Location
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DBConfig        config.DatabaseConfig
	JWTConfig       config.JWTConfig
	KafkaConfig     config.KafkaConfig
	RedisConfig     config.RedisConfig
	RateLimitConfig config.RateLimitConfig
	LogConfig       config.LogConfig
	Policy          BookingPolicy
}

// Load reads configuration from BOOKING_* environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	setPolicyDefaults(v)

	cfg := &ServiceConfig{
		Port:            config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:          config.GetAppEnv(v),
		DBConfig:        config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:       config.LoadJWTConfig(v),
		KafkaConfig:     config.LoadKafkaConfig(v),
		RedisConfig:     config.LoadRedisConfig(v),
		RateLimitConfig: config.LoadRateLimitConfig(v),
		LogConfig:       config.LoadLogConfig(v),
		Policy:          loadPolicy(v),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setPolicyDefaults(v *viper.Viper) {
	v.SetDefault("DB_NAME", "booking")
	v.SetDefault("MAX_RESCHEDULES", 2)
	v.SetDefault("NUMBER_RETRIES", 3)
	v.SetDefault("COMMISSION_BPS", 1500)
	v.SetDefault("PLATFORM_FEE_BPS", 0)
	v.SetDefault("VAT_BPS", 500)
	v.SetDefault("OPTIMISTIC_LOCKING", true)
	v.SetDefault("TIMEZONE_OFFSET_HOURS", 4)
}

func loadPolicy(v *viper.Viper) BookingPolicy {
	offset := v.GetInt("TIMEZONE_OFFSET_HOURS")
	return BookingPolicy{
		MaxReschedules:    v.GetInt("MAX_RESCHEDULES"),
		NumberRetries:     v.GetInt("NUMBER_RETRIES"),
		CommissionBPS:     v.GetInt64("COMMISSION_BPS"),
		PlatformFeeBPS:    v.GetInt64("PLATFORM_FEE_BPS"),
		VatBPS:            v.GetInt64("VAT_BPS"),
		OptimisticLocking: v.GetBool("OPTIMISTIC_LOCKING"),
		Location:          zoneFor(offset),
	}
}

func zoneFor(offsetHours int) *time.Location {
	if offsetHours == 4 {
		return time.FixedZone("GST", 4*3600)
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

func (c *ServiceConfig) validate() error {
	if c.AppEnv == "production" && c.JWTConfig.Secret == "" {
		return fmt.Errorf("BOOKING_JWT_SECRET is required in production")
	}
	if c.Policy.MaxReschedules < 0 {
		return fmt.Errorf("BOOKING_MAX_RESCHEDULES must not be negative")
	}
	if c.Policy.NumberRetries < 1 {
		return fmt.Errorf("BOOKING_NUMBER_RETRIES must be at least 1")
	}
	for name, bps := range map[string]int64{
		"COMMISSION_BPS":   c.Policy.CommissionBPS,
		"PLATFORM_FEE_BPS": c.Policy.PlatformFeeBPS,
		"VAT_BPS":          c.Policy.VatBPS,
	} {
		if bps < 0 || bps > 10000 {
			return fmt.Errorf("BOOKING_%s must be between 0 and 10000", name)
		}
	}
	return nil
}
