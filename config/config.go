package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Config carries every knob the service needs. Nothing in the core reads the
// environment on its own; all inputs arrive through here.
type Config struct {
	HTTPAddr    string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr   string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`

	// MinimumAdvance is the smallest accepted advance payment, in whole
	// currency units.
	MinimumAdvance int64 `long:"minimum-advance" env:"MINIMUM_ADVANCE" default:"10000" description:"minimum advance payment"`

	// VenueTimezone decides where "today" ends for the past-date rule.
	VenueTimezone string `long:"venue-timezone" env:"VENUE_TIMEZONE" default:"Asia/Kolkata" description:"IANA timezone of the venue"`

	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint"`
	LogLevel       string `long:"log-level" env:"LOG_LEVEL" default:"info" description:"logrus level"`
}

func Parse(args []string) (Config, error) {
	var cfg Config
	if _, err := flags.ParseArgs(&cfg, args); err != nil {
		return Config{}, fmt.Errorf("could not parse config: %w", err)
	}
	return cfg, nil
}

// Location resolves VenueTimezone. An unknown zone is an error, never a
// silent UTC fallback.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid venue timezone %q: %w", c.VenueTimezone, err)
	}
	return loc, nil
}
