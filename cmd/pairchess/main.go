package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pairchess/internal/archive"
	appcfg "pairchess/internal/config"
	"pairchess/internal/identity"
	"pairchess/internal/live"
	"pairchess/internal/msgcat"
	"pairchess/internal/obslog"
	"pairchess/internal/server"
)

const releaseVersion = "0.1.0"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	var messagesDir string

	cmd := &cobra.Command{
		Use:           "pairchess",
		Short:         "Two-player chess over a shareable numeric game code.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), messagesDir)
		},
	}
	cmd.Flags().StringVar(&messagesDir, "messages-dir", "", "directory of YAML files overriding user-facing wording")
	cmd.SetVersionTemplate("pairchess v{{.Version}}\n")
	return cmd
}

func serve(parent context.Context, messagesDir string) error {
	cfg, err := appcfg.Load()
	if err != nil {
		return err
	}
	if err := obslog.InitFromEnv(); err != nil {
		return err
	}
	log := obslog.L()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := live.NewStore(cfg.RedisURL, cfg.GameTTL)
	if err != nil {
		return err
	}
	defer store.Close()

	var repo archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			return err
		}
	} else {
		log.Warn("no DATABASE_URL, archive is in-memory only")
		repo = archive.NewMemoryRepository()
	}
	defer repo.Close()

	catalog, err := msgcat.New(messagesDir)
	if err != nil {
		return err
	}

	srv := &server.Server{
		Store:          store,
		Repo:           repo,
		Identity:       identity.NewManager(cfg.IdentityCookie, cfg.IdentityMaxAge),
		Messages:       catalog,
		BaseURL:        cfg.BaseURL,
		CodeLength:     cfg.CodeLength,
		CreateAttempts: cfg.CreateAttempts,
	}

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("base_url", cfg.BaseURL))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
