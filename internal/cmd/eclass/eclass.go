// Package eclass parses e-class command flags and launches the runtime.
package eclass

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/eclassroom/eclass/internal/platform/cmd"
	eclassapp "github.com/eclassroom/eclass/internal/services/eclass/app"
)

// Config holds e-class command configuration.
type Config struct {
	HTTPPort   int `env:"ECLASS_HTTP_PORT" envDefault:"8095"`
	HealthPort int `env:"ECLASS_HEALTH_PORT" envDefault:"8096"`

	StorageDriver string `env:"ECLASS_STORAGE_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"ECLASS_DB_PATH" envDefault:"data/eclass.db"`
	PostgresDSN   string `env:"ECLASS_POSTGRES_DSN"`

	BridgeURL   string `env:"ECLASS_BRIDGE_URL"`
	BridgeToken string `env:"ECLASS_BRIDGE_TOKEN"`

	JWTSecret     string `env:"ECLASS_JWT_SECRET"`
	JWTIssuer     string `env:"ECLASS_JWT_ISSUER" envDefault:"eclass"`
	StaffRole     string `env:"ECLASS_STAFF_ROLE" envDefault:"staff"`
	ProfessorRole string `env:"ECLASS_PROFESSOR_ROLE" envDefault:"eprof"`

	Locale   string `env:"ECLASS_LOCALE" envDefault:"fr"`
	Timezone string `env:"ECLASS_TIMEZONE" envDefault:"Europe/Paris"`

	HorizonMonths  int           `env:"ECLASS_HORIZON_MONTHS" envDefault:"2"`
	ReminderLead   time.Duration `env:"ECLASS_REMINDER_LEAD" envDefault:"15m"`
	SubscribeEmoji string        `env:"ECLASS_SUBSCRIBE_EMOJI" envDefault:"✅"`

	SchedulerEnabled  bool          `env:"ECLASS_SCHEDULER_ENABLED" envDefault:"true"`
	SchedulerInterval time.Duration `env:"ECLASS_SCHEDULER_INTERVAL" envDefault:"1m"`

	AnnouncementChannels map[string]string `env:"ECLASS_ANNOUNCEMENT_CHANNELS"`
	AudienceRoles        map[string]string `env:"ECLASS_AUDIENCE_ROLES"`
	UpcomingChannels     map[string]string `env:"ECLASS_UPCOMING_CHANNELS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "The e-class HTTP API port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The e-class health gRPC server port")
	fs.StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Storage driver: sqlite or postgres")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The e-class SQLite database path")
	fs.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "The e-class PostgreSQL DSN")
	fs.StringVar(&cfg.BridgeURL, "bridge-url", cfg.BridgeURL, "The chat bridge websocket URL")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "Locale of chat messages")
	fs.StringVar(&cfg.Timezone, "timezone", cfg.Timezone, "Time zone used to display dates")
	fs.IntVar(&cfg.HorizonMonths, "horizon-months", cfg.HorizonMonths, "How many months ahead e-classes may be planned")
	fs.DurationVar(&cfg.ReminderLead, "reminder-lead", cfg.ReminderLead, "How long before start subscribers are reminded")
	fs.BoolVar(&cfg.SchedulerEnabled, "scheduler", cfg.SchedulerEnabled, "Run the reminder and transition scheduler")
	fs.DurationVar(&cfg.SchedulerInterval, "scheduler-interval", cfg.SchedulerInterval, "Scheduler scan interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the e-class runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEclass, func(ctx context.Context) error {
		return eclassapp.Run(ctx, eclassapp.RuntimeConfig{
			HTTPPort:             cfg.HTTPPort,
			HealthPort:           cfg.HealthPort,
			StorageDriver:        cfg.StorageDriver,
			DBPath:               cfg.DBPath,
			PostgresDSN:          cfg.PostgresDSN,
			BridgeURL:            cfg.BridgeURL,
			BridgeToken:          cfg.BridgeToken,
			JWTSecret:            cfg.JWTSecret,
			JWTIssuer:            cfg.JWTIssuer,
			StaffRole:            cfg.StaffRole,
			ProfessorRole:        cfg.ProfessorRole,
			Locale:               cfg.Locale,
			Timezone:             cfg.Timezone,
			HorizonMonths:        cfg.HorizonMonths,
			ReminderLead:         cfg.ReminderLead,
			SubscribeEmoji:       cfg.SubscribeEmoji,
			SchedulerEnabled:     cfg.SchedulerEnabled,
			SchedulerInterval:    cfg.SchedulerInterval,
			AnnouncementChannels: cfg.AnnouncementChannels,
			AudienceRoles:        cfg.AudienceRoles,
			UpcomingChannels:     cfg.UpcomingChannels,
		})
	})
}
