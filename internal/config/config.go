package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"false"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"Duemate"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	SMSGatewayURL  string `env:"SMS_GATEWAY_URL"`
	SMSGatewayUser string `env:"SMS_GATEWAY_USER"`
	SMSGatewayPass string `env:"SMS_GATEWAY_PASS"`

	// DemoMode registra los mensajes en lugar de enviarlos.
	DemoMode bool `env:"DEMO_MODE" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	OTPTTL             time.Duration `env:"OTP_TTL" envDefault:"5m"`
	OTPDeliveryTimeout time.Duration `env:"OTP_DELIVERY_TIMEOUT" envDefault:"5s"`
	OTPStoreTimeout    time.Duration `env:"OTP_STORE_TIMEOUT" envDefault:"3s"`
	OTPVerifyLimit     int           `env:"OTP_VERIFY_LIMIT" envDefault:"3"`
	OTPVerifyWindow    time.Duration `env:"OTP_VERIFY_WINDOW" envDefault:"1m"`

	CORSOrigins      []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://127.0.0.1:5500"`
	ReminderLeadTime time.Duration `env:"REMINDER_LEAD_TIME" envDefault:"48h"`

	// TrustedProxies son los proxies cuyo X-Forwarded-For se acepta. Vacío: ninguno.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction indica si el servicio corre en producción.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.AppEnv), "production")
}
