package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/janiskrasemann/forecast/internal/aggregator"
	"github.com/janiskrasemann/forecast/internal/config"
	"github.com/janiskrasemann/forecast/internal/fetcher"
	"github.com/janiskrasemann/forecast/internal/mailer"
	"github.com/janiskrasemann/forecast/internal/metrics"
	"github.com/janiskrasemann/forecast/internal/renderer"
	"github.com/janiskrasemann/forecast/internal/reporter"
)

func main() {
	configPath := flag.String("config", "/etc/forecast/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run once immediately and exit")
	noEmail := flag.Bool("no-email", false, "print reports only, even if an email section is configured")
	templatesDir := flag.String("templates", "templates", "directory containing digest.html and digest.txt")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	opts := []aggregator.Option{
		aggregator.WithTimeout(cfg.Timeout),
		aggregator.WithMaxConcurrency(cfg.MaxConcurrency),
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		m := metrics.New(prometheus.NewRegistry())
		opts = append(opts, aggregator.WithObserver(m))

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("Serving metrics on %s/metrics", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	// No client-level timeout: per-source bounds come from the config.
	agg := aggregator.New(fetcher.New(&http.Client{}), reporter.New(os.Stdout), opts...)

	var (
		rend *renderer.Renderer
		mail *mailer.Mailer
	)
	if cfg.Email != nil && !*noEmail {
		rend, err = loadRenderer(*templatesDir)
		if err != nil {
			log.Fatalf("Failed to initialize renderer: %v", err)
		}
		mail = mailer.New(cfg.Email.From, cfg.Email.To, cfg.Email.ResendAPIKey)
	}

	runForecast := func() error {
		// Reload config to pick up the current edition and source list
		latestCfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		sources, err := latestCfg.BuildSources()
		if err != nil {
			return err
		}

		run, err := agg.RunAll(context.Background(), sources)
		if err != nil {
			return err
		}
		if mail == nil {
			return nil
		}

		edition := latestCfg.Edition + 1
		email, err := rend.Render(run, edition)
		if err != nil {
			log.Printf("Failed to render digest: %v", err)
			return nil
		}
		if err := mail.Send(email); err != nil {
			log.Printf("Failed to send digest: %v", err)
			return nil
		}
		if err := config.IncrementEdition(*configPath); err != nil {
			log.Printf("Failed to update edition counter: %v", err)
		}
		log.Printf("Digest #%d sent successfully!", edition)
		return nil
	}

	if *once || cfg.Schedule == "" {
		if err := runForecast(); err != nil {
			log.Fatalf("Run failed: %v", err)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Schedule, func() {
		if err := runForecast(); err != nil {
			log.Printf("Run failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Failed to add cron schedule %q: %v", cfg.Schedule, err)
	}
	c.Start()

	log.Printf("Forecast started. Schedule: %s", cfg.Schedule)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	<-c.Stop().Done()
	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}
}

func loadRenderer(dir string) (*renderer.Renderer, error) {
	htmlTpl, err := os.ReadFile(filepath.Join(dir, "digest.html"))
	if err != nil {
		return nil, err
	}
	textTpl, err := os.ReadFile(filepath.Join(dir, "digest.txt"))
	if err != nil {
		return nil, err
	}
	return renderer.New(string(htmlTpl), string(textTpl))
}
