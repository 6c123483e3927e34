package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artmarket/config"
	"artmarket/database"
	adminapi "artmarket/internal/api/admin"
	collectorsapi "artmarket/internal/api/collectors"
	stripewebhooks "artmarket/internal/api/stripewebhook"
	usersapi "artmarket/internal/api/users"
	worksapi "artmarket/internal/api/works"
	routes "artmarket/internal/app/http"
	"artmarket/internal/app/http/middleware"
	"artmarket/internal/app/inventory"
	"artmarket/internal/app/regen"
	"artmarket/internal/infra/compositor"
	"artmarket/internal/infra/events"
	"artmarket/internal/infra/payments"
	"artmarket/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var cfg config.Config

	app := &cli.App{
		Name:  "artmarket",
		Usage: "artwork inventory, catalogues and collector storefront",
		Before: func(*cli.Context) error {
			var err error
			if cfg, err = config.Load(); err != nil {
				return err
			}
			return cfg.ConfigureLogging()
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "migrate the database and run the HTTP API with the regeneration worker",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "no-worker", Usage: "serve HTTP only; run the worker elsewhere"},
				},
				Action: func(c *cli.Context) error {
					return serve(c.Context, cfg, !c.Bool("no-worker"))
				},
			},
			{
				Name:  "worker",
				Usage: "run only the regeneration worker",
				Action: func(c *cli.Context) error {
					return work(c.Context, cfg)
				},
			},
			{
				Name:  "migrate",
				Usage: "create or update the database schema",
				Action: func(*cli.Context) error {
					db, err := database.Open(cfg.DBURL)
					if err != nil {
						return err
					}
					return database.Migrate(db)
				},
			},
			{
				Name:  "reconcile",
				Usage: "repair available-work catalogue membership for every artist",
				Action: func(c *cli.Context) error {
					db, err := database.Open(cfg.DBURL)
					if err != nil {
						return err
					}
					svc := inventory.NewService(store.New(db), events.LogDispatcher{}, cfg.Regen.MaxAttempts)
					n, err := svc.ReconcileAll(c.Context)
					log.WithField("repaired", n).Info("reconcile finished")
					return err
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("artmarket")
	}
}

func serve(parent context.Context, cfg config.Config, runWorker bool) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	dispatcher, closeEvents := newDispatcher(cfg)
	defer closeEvents()

	st := store.New(db)
	svc := inventory.NewService(st, dispatcher, cfg.Regen.MaxAttempts)
	gateway := payments.NewGateway(payments.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	})

	reg := newRegistry()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Deps{
		JWTSecret:  cfg.JWTSecret,
		Works:      worksapi.NewHandler(svc),
		Users:      usersapi.NewHandler(st, svc),
		Collectors: collectorsapi.NewHandler(st, svc, gateway, dispatcher),
		Admin:      adminapi.NewHandler(st, svc),
		Webhook:    stripewebhooks.NewHandler(gateway, svc),
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ping:       pinger(db),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	runServer(ctx, g, srv)
	if runWorker {
		if w := newWorker(cfg, st, reg); w != nil {
			g.Go(func() error { return w.Run(ctx) })
		}
	}

	return g.Wait()
}

func work(parent context.Context, cfg config.Config) error {
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	reg := newRegistry()
	w := newWorker(cfg, store.New(db), reg)
	if w == nil {
		return errors.New("COMPOSITOR_URL is required to run the worker")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              ":" + cfg.Regen.MetricsPort,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	runServer(ctx, g, srv)
	g.Go(func() error { return w.Run(ctx) })
	return g.Wait()
}

// runServer serves srv until ctx is done, then drains it.
func runServer(ctx context.Context, g *errgroup.Group, srv *http.Server) {
	g.Go(func() error {
		log.WithField("addr", srv.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Wrap(srv.Shutdown(shutdownCtx), "http shutdown")
	})
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		promcollectors.NewGoCollector(),
		promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newWorker(cfg config.Config, st *store.Store, reg prometheus.Registerer) *regen.Worker {
	if cfg.CompositorURL == "" {
		return nil
	}
	return regen.NewWorker(st, compositor.New(cfg.CompositorURL, cfg.CompositorTimeout), regen.Config{
		PollInterval:   cfg.Regen.PollInterval,
		BatchSize:      cfg.Regen.BatchSize,
		Concurrency:    cfg.Regen.Concurrency,
		BackoffInitial: cfg.Regen.BackoffInitial,
		BackoffMax:     cfg.Regen.BackoffMax,
		StaleAfter:     cfg.Regen.StaleAfter,
	}, reg)
}

func newDispatcher(cfg config.Config) (events.Dispatcher, func()) {
	if cfg.NATSURL == "" {
		return events.LogDispatcher{}, func() {}
	}
	d, err := events.NewNATSDispatcher(cfg.NATSURL, cfg.EventPrefix)
	if err != nil {
		log.WithError(err).Warn("nats unavailable, events will only be logged")
		return events.LogDispatcher{}, func() {}
	}
	return d, d.Close
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
