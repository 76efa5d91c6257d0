package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	identity "github.com/elimuconnect/go-identity"
	"github.com/elimuconnect/go-identity/activitymap"
	"github.com/elimuconnect/go-identity/notify"
	"github.com/elimuconnect/go-identity/repository"
)

type ServerConfig struct {
	HTTPAddr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	Database         repository.Config
	RedisURL         string        `env:"REDIS_URL"`
	NotifyQueueKey   string        `env:"NOTIFY_QUEUE_KEY" envDefault:"elimuconnect:notifications"`
	NotifyBuffer     int           `env:"NOTIFY_BUFFER" envDefault:"256"`
	AdminNotifyEmail string        `env:"ADMIN_NOTIFY_EMAIL" envDefault:"admin@elimuconnect.co.ke"`
	SupportEmail     string        `env:"SUPPORT_EMAIL" envDefault:"support@elimuconnect.co.ke"`
	SupportPhone     string        `env:"SUPPORT_PHONE"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type logger struct {
	name string
}

func (l logger) Debug(format string, args ...any) { l.print("DBG", format, args...) }
func (l logger) Info(format string, args ...any)  { l.print("INF", format, args...) }
func (l logger) Warn(format string, args ...any)  { l.print("WRN", format, args...) }
func (l logger) Error(format string, args ...any) { l.print("ERR", format, args...) }

func (l logger) print(level, format string, args ...any) {
	fmt.Printf("%s [%s] %s: %s\n", time.Now().Format(time.RFC3339), level, l.name, fmt.Sprintf(format, args...))
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "identity-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvCfg, err := env.ParseAs[ServerConfig]()
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse server config")
	}

	cfg, err := identity.LoadConfig()
	if err != nil {
		return err
	}

	db, err := repository.OpenConfig(ctx, srvCfg.Database)
	if err != nil {
		return err
	}

	manager := repository.NewManager(db)
	manager.MustValidate()
	defer manager.Close()

	sender, err := newSender(srvCfg)
	if err != nil {
		return err
	}

	dispatcher := notify.NewDispatcher(sender, notify.Composer{
		AdminEmail:   srvCfg.AdminNotifyEmail,
		SupportEmail: srvCfg.SupportEmail,
		SupportPhone: srvCfg.SupportPhone,
	}, notify.Config{
		BufferSize: srvCfg.NotifyBuffer,
	}, logger{name: "notify"})
	defer dispatcher.Close()

	opts := []identity.Option{
		identity.WithLogger(logger{name: "identity"}),
		identity.WithActivitySink(activitymap.LogSink(logger{name: "audit"})),
	}

	tokens := identity.NewTokenService(cfg, logger{name: "tokens"})
	hasher := identity.NewPasswordHasher(cfg)
	accounts := manager.Accounts()

	controller := identity.NewHTTPController(
		identity.NewRegistrar(accounts, hasher, dispatcher, cfg, opts...),
		identity.NewApprovals(accounts, dispatcher, opts...),
		identity.NewAuthenticator(accounts, hasher, tokens, cfg, opts...),
		identity.NewGate(tokens, opts...),
		cfg,
		identity.WithControllerLogger(logger{name: "http"}),
	)

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "ElimuConnect Identity",
			DisableStartupMessage: true,
		}))
	})
	identity.RegisterRoutes(srv.Router(), controller)

	errCh := make(chan error, 1)
	go func() {
		logger{name: "http"}.Info("listening on %s", srvCfg.HTTPAddr)
		errCh <- srv.Serve(srvCfg.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		<-ctx.Done()
	case <-ctx.Done():
	}

	logger{name: "http"}.Info("shutting down")
	if err := srv.WrappedRouter().ShutdownWithTimeout(srvCfg.ShutdownTimeout); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to shut down http server")
	}

	return nil
}

func newSender(cfg ServerConfig) (notify.Sender, error) {
	if cfg.RedisURL == "" {
		return notify.LogSender{Logger: logger{name: "mail"}}, nil
	}

	client, err := notify.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	return notify.NewRedisSender(client, cfg.NotifyQueueKey), nil
}
