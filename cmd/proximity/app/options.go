package app

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"vessel-proximity/internal/config"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// Options holds the command line flags. Flags override the config file and
// the environment only when set explicitly.
type Options struct {
	ConfigPath string
	Latitude   float64
	Longitude  float64
	RadiusNM   float64
	Collect    time.Duration
	Lookback   int
	APIKey     string
	GFWToken   string
	LogLevel   string
	Port       int
	Output     string
}

func NewOptions() *Options {
	return &Options{Output: OutputTable}
}

func (o *Options) Flags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "Path to a YAML config file")
	fs.Float64Var(&o.Latitude, "lat", 25.82392, "Reference latitude in decimal degrees")
	fs.Float64Var(&o.Longitude, "lon", -15.74592, "Reference longitude in decimal degrees")
	fs.Float64VarP(&o.RadiusNM, "radius", "r", 100, "Radius in nautical miles")
	fs.DurationVar(&o.Collect, "collect", time.Minute, "How long to listen to the live AIS feed")
	fs.IntVar(&o.Lookback, "lookback", 96, "Presence lookback window in hours")
	fs.StringVar(&o.APIKey, "api-key", "", "AIS Stream API key (or set AISSTREAM_API_KEY)")
	fs.StringVar(&o.GFWToken, "gfw-token", "", "Global Fishing Watch API token, optional (or set GFW_API_TOKEN)")
	fs.StringVar(&o.LogLevel, "log-level", "INFO", "Log level: DEBUG, INFO, WARN or ERROR")
	fs.IntVar(&o.Port, "port", 0, "Serve /health and /metrics on this port during the run, 0 disables")
	fs.StringVarP(&o.Output, "output", "o", OutputTable, "Output format: table or json")
}

// Apply copies the explicitly set flags into cfg and revalidates it
func (o *Options) Apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if o.Output != OutputTable && o.Output != OutputJSON {
		return fmt.Errorf("output must be %q or %q", OutputTable, OutputJSON)
	}

	if fs.Changed("lat") {
		cfg.Proximity.Latitude = o.Latitude
	}
	if fs.Changed("lon") {
		cfg.Proximity.Longitude = o.Longitude
	}
	if fs.Changed("radius") {
		cfg.Proximity.RadiusNM = o.RadiusNM
	}
	if fs.Changed("collect") {
		cfg.Proximity.Collect = o.Collect
	}
	if fs.Changed("lookback") {
		cfg.GFW.LookbackHours = o.Lookback
	}
	if fs.Changed("api-key") {
		cfg.AISStream.APIKey = o.APIKey
	}
	if fs.Changed("gfw-token") {
		cfg.GFW.Token = o.GFWToken
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = o.LogLevel
	}
	if fs.Changed("port") {
		cfg.Server.Port = o.Port
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}
