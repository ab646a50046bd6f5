package app

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"vessel-proximity/internal/api"
	"vessel-proximity/internal/config"
	"vessel-proximity/internal/fetcher"
	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/internal/tracker"
	"vessel-proximity/pkg/logger"
)

func NewProximityCommand(ctx context.Context) *cobra.Command {
	opts := NewOptions()
	cmd := &cobra.Command{
		Use:          "proximity",
		Short:        "List vessels near a reference position",
		Long:         "Listens to the live AIS feed for a fixed window, lists the vessels within a radius of the reference position, and reports recent vessel presence from Global Fishing Watch.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := opts.Apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			return run(ctx, cmd, cfg, opts.Output)
		},
	}

	opts.Flags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config, output string) error {
	log := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	m := metrics.NewMetrics()

	dialer := fetcher.NewAISStreamClient(cfg.AISStream.URL, cfg.AISStream.HandshakeTimeout, log.Named("aisstream"))
	presence := fetcher.NewGFWClient(cfg.GFW.BaseURL, cfg.GFW.Dataset, cfg.GFW.Token, cfg.GFW.RequestTimeout, log.Named("gfw"), m)

	tr := tracker.New(dialer, presence, tracker.LiveOptions{
		APIKey:         strings.TrimSpace(cfg.AISStream.APIKey),
		MaxReconnects:  cfg.AISStream.ReconnectAttempts,
		InitialBackoff: cfg.AISStream.ReconnectBackoff,
		MaxBackoff:     cfg.AISStream.MaxBackoff,
	}, log, m)

	if cfg.Server.Port > 0 {
		srvCtx, stop := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := api.NewServer(log.Named("api"), m, tr).Serve(srvCtx, cfg.Server); err != nil {
				log.Error("Status server failed: %v", err)
			}
		}()
		defer func() {
			stop()
			<-done
		}()
	}

	log.Info("Listening for vessels within %.1f NM of %.5f, %.5f for %s",
		cfg.Proximity.RadiusNM, cfg.Proximity.Latitude, cfg.Proximity.Longitude, cfg.Proximity.Collect)

	report, err := tr.Run(ctx, tracker.Params{
		Reference: model.ReferencePoint{
			Latitude:  cfg.Proximity.Latitude,
			Longitude: cfg.Proximity.Longitude,
		},
		RadiusNM:            cfg.Proximity.RadiusNM,
		Duration:            cfg.Proximity.Collect,
		PresenceWindowHours: cfg.GFW.LookbackHours,
	})
	if err != nil {
		switch {
		case errors.Is(err, tracker.ErrInvalidParams) && cfg.AISStream.APIKey == "":
			log.Error("No AIS Stream API key set. Create one at https://aisstream.io/apikeys and pass --api-key or set AISSTREAM_API_KEY")
		case errors.Is(err, fetcher.ErrAuthRejected):
			log.Error("Your AIS Stream API key was not accepted. Create a new one at https://aisstream.io/apikeys")
		}
		return err
	}

	if report.LiveState == model.StateFailed {
		log.Warn("Live feed ended early, the report holds partial results: %s", report.LiveError)
	}

	return Render(cmd.OutOrStdout(), report, output)
}
