package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventme/internal/app"
	"eventme/internal/catalog"
	"eventme/internal/config"
	"eventme/internal/ics"
	appLog "eventme/internal/log"
	"eventme/internal/notify"
	"eventme/internal/reminder"
	"eventme/internal/reservation"
	"eventme/internal/theme"
	"eventme/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	logJSON    bool
}

func main() {
	flags := parseFlags()
	if flags.logJSON {
		appLog.SetOutput(os.Stderr, true)
	}
	appLog.Info("eventme starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	loc, err := conf.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "timezone", conf.Timezone)
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"lead_minutes", conf.Reminders.LeadMinutes,
		"reminders_enabled", conf.Reminders.Enabled,
		"seed_samples", conf.Catalog.SeedSamples,
		"source_count", len(conf.Catalog.Sources),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	bus := notify.NewBus()
	hub := web.NewHub(conf.CORSOrigins)
	hubSub := hub.Attach(bus)
	defer hubSub.Release()

	delivery := reminder.NewCronDelivery(reminder.DeliveryOptions{
		Location: loc,
		Disabled: !conf.Reminders.Enabled,
		OnFire:   hub.DeliverReminder,
	})
	scheduler := reminder.NewScheduler(delivery, reminder.Options{
		Lead:     conf.Lead(),
		Title:    conf.Reminders.Title,
		Location: loc,
	})

	pref, err := theme.Open(conf.StateFile, bus)
	if err != nil {
		appLog.Error("failed to read theme state; using defaults", err, "path", conf.StateFile)
	}

	a, err := app.New(app.Deps{
		Bus:          bus,
		Catalog:      catalog.New(bus),
		Reservations: reservation.New(bus),
		Reminders:    scheduler,
		Theme:        pref,
		Location:     loc,
	})
	if err != nil {
		appLog.Error("failed to build app", err)
		os.Exit(1)
	}

	populateCatalog(ctx, a, conf)

	delivery.Start()

	srv := web.NewServer(conf, a, delivery, hub)
	if err := srv.Run(ctx); err != nil {
		appLog.Error("http server failed", err)
	}

	<-delivery.Stop().Done()
	appLog.Info("eventme exiting")
}

// populateCatalog seeds demo events and imports configured ICS feeds. A
// failing source is logged and skipped.
func populateCatalog(ctx context.Context, a *app.App, conf *config.Config) {
	now := time.Now()
	if conf.Catalog.SeedSamples {
		for _, ev := range catalog.Samples(now) {
			a.Catalog.Add(ev)
		}
	}

	loader := ics.NewLoader()
	rng := ics.ExpandConfig{
		RangeStart: now,
		RangeEnd:   now.AddDate(0, 0, conf.Catalog.HorizonDays),
	}
	for _, src := range conf.Catalog.Sources {
		id := src.ID
		if id == "" {
			id = src.Name
		}
		if _, err := a.ImportFeed(ctx, loader, id, src.URL, rng); err != nil {
			appLog.Error("catalog source failed", err, "id", id)
		}
	}
	appLog.Info("catalog ready", "event_count", a.Catalog.Len())
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./eventme.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.logJSON, "log-json", false, "Write logs as JSON lines")

	flag.Parse()

	return cfg
}
