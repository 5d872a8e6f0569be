package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
	log "github.com/sirupsen/logrus"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"

	"github.com/alepar/switchbot/collector"
	"github.com/alepar/switchbot/config"
	"github.com/alepar/switchbot/delivery"
	"github.com/alepar/switchbot/switchbot/co2meter"
)

const program = "co2relay"

func init() {
	prometheus.MustRegister(version.NewCollector(program))

	// Add Go module build info.
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
	log.SetOutput(os.Stdout)
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("failed to load .env: %s", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}
	log.SetLevel(cfg.LogLevel)

	log.Printf("starting %s %s", program, version.Info())
	log.Printf("target meter: %s", cfg.MeterAddress)
	log.Printf("poll interval: %s", cfg.PollInterval)

	if cfg.MetricsListen != "" {
		go func() {
			// Expose the registered metrics via HTTP.
			http.Handle("/metrics", promhttp.HandlerFor(
				prometheus.DefaultGatherer,
				promhttp.HandlerOpts{
					// Opt into OpenMetrics to support exemplars.
					EnableOpenMetrics: true,
				},
			))
			log.Panic(http.ListenAndServe(cfg.MetricsListen, nil))
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &collector.Collector{
		Scanner: &co2meter.Scanner{
			Discoverer: &co2meter.BleDiscoverer{
				NewDevice: func() (ble.Device, error) {
					return linux.NewDevice(ble.OptDeviceID(cfg.HCIDevice))
				},
			},
			Addr:         cfg.MeterAddress,
			ScanDuration: cfg.ScanDuration,
		},
		Deliverer: &delivery.Client{
			URL:         cfg.PostURL,
			Token:       cfg.PostToken,
			Timeout:     cfg.HTTPTimeout,
			MaxAttempts: cfg.MaxAttempts,
		},
		PollInterval: cfg.PollInterval,
		Metrics:      collector.NewMetrics(prometheus.DefaultRegisterer),
	}

	log.Printf("collecting, press Ctrl+C to stop")
	if err := c.Run(ctx); err != nil {
		log.Fatalf("collector failed: %s", err)
	}
}
