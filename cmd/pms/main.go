package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/pmsworks/pms"
	"github.com/pmsworks/pms/social"
	"github.com/pmsworks/pms/social/google"
	"github.com/pmsworks/pms/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	stateTTL        = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := pms.LoadConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.GetDebug() {
		level = slog.LevelDebug
		fmt.Println("============")
		fmt.Println(print.MaybePrettyJSON(cfg))
		fmt.Println("============")
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	db, err := pms.OpenDB(ctx, cfg.GetDSN())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "open account store")
	}
	defer db.Close()

	dir := pms.NewDirectory(
		pms.NewAccountsRepository(db),
		pms.WithDirectoryLogger(logger),
		pms.WithHashidIDs(true),
	)
	tokens := pms.NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenExpiration(), logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lang, _ := pms.ParseLanguage(cfg.GetDefaultLang())

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithMetrics(web.NewMetrics(reg)),
		web.WithProviderTimeout(cfg.GetProviderTimeout()),
		web.WithSecureCookies(cfg.GetSecureCookies()),
		web.WithDefaultLanguage(lang),
		web.WithDebug(cfg.GetDebug()),
	}

	if cfg.Google.ClientID != "" {
		provider := google.New(google.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			CallbackURL:  cfg.Google.CallbackURL,
		})
		states := social.NewEncryptedStateManager([]byte(cfg.GetStateKey()), []byte(cfg.GetStateHMACKey()), stateTTL)
		opts = append(opts, web.WithFlow(social.NewFlow(provider, states)))
		logger.Info("google sign-in enabled", "callback", cfg.Google.CallbackURL)
	}

	srv, err := web.New(dir, tokens, opts...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.GetAddr())
		errCh <- srv.Listen(cfg.GetAddr())
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("shutting down", "signal", s.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
