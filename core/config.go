package core

import (
	"fmt"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridAPIKey   string
		RollbarToken     string
		LogLevel         string

		Server    ServerConfig
		Database  DatabaseConfig
		Billing   BillingConfig
		Scheduler SchedulerConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	BillingConfig struct {
		// DueDay is the day of month monthly payments fall due; values past the month's end mean its last day.
		DueDay   int
		Currency string
		Timezone string
		location *time.Location
	}

	SchedulerConfig struct {
		Enabled      bool
		GenerateSpec string
		RemindSpec   string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// Location returns the time zone billing dates are computed in.
func (bc BillingConfig) Location() *time.Location {
	if bc.location == nil {
		return time.UTC
	}
	return bc.location
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Kelasi")
	v.SetDefault("secretKey", "s3cr3t-k3y-f0r-d3v3l0pm3nt-0nly!")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Kelasi <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("logLevel", "info")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 30*24*time.Hour)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "kelasi")
	v.SetDefault("database.user", "kelasi")
	v.SetDefault("database.password", "kelasi")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("billing.dueDay", 8)
	v.SetDefault("billing.currency", "USD")
	v.SetDefault("billing.timezone", "UTC")

	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.generateSpec", "0 6 1 * *")
	v.SetDefault("scheduler.remindSpec", "0 9 * * *")
}

// NewConfig loads the app configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the current ENV (DEV, TEST, QA, PROD), e.g. DEV_DATABASE_HOST.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}
	v.AutomaticEnv()

	return configFrom(v, env)
}

func configFrom(v *viper.Viper, env string) (*Config, error) {
	conf := &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       v.GetString("secretKey"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		SendgridAPIKey:  v.GetString("sendgridApiKey"),
		RollbarToken:    v.GetString("rollbarToken"),
		LogLevel:        v.GetString("logLevel"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Billing: BillingConfig{
			DueDay:   v.GetInt("billing.dueDay"),
			Currency: v.GetString("billing.currency"),
			Timezone: v.GetString("billing.timezone"),
		},
		Scheduler: SchedulerConfig{
			Enabled:      v.GetBool("scheduler.enabled"),
			GenerateSpec: v.GetString("scheduler.generateSpec"),
			RemindSpec:   v.GetString("scheduler.remindSpec"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}
	conf.DefaultFromEmail = *from

	if conf.Billing.DueDay < 1 || conf.Billing.DueDay > 31 {
		return nil, fmt.Errorf("billing.dueDay must be between 1 and 31 (got %d)", conf.Billing.DueDay)
	}
	loc, err := time.LoadLocation(conf.Billing.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, "loading billing.timezone")
	}
	conf.Billing.location = loc

	if conf.SecretKey == "" {
		return nil, errors.New("secretKey is required")
	}
	return conf, nil
}
