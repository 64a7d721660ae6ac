package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/prepdeck/prepdeck/internal/ai"
	"github.com/prepdeck/prepdeck/internal/config"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/server"
	"github.com/prepdeck/prepdeck/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:   "interviewd",
		Short: "mock-interview practice server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Optional .env for local development; missing file is fine.
			godotenv.Load()

			cfgPath, _ := cmd.Flags().GetString("config")
			var cfg *config.Config
			var err error
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
				if err != nil {
					return err
				}
			} else {
				cfg = config.Default()
			}

			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
				cfg.Database.Path = dbPath
			}

			if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cfg.Gemini.APIKey == "" {
				logger.Warn("no Gemini API key configured, interviews will use fallback lines only")
			}

			st, err := store.Open(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			model := ai.NewGemini(ai.GeminiConfig{
				APIKey:         cfg.Gemini.APIKey,
				BaseURL:        cfg.Gemini.BaseURL,
				ResponderModel: cfg.Gemini.ResponderModel,
				EvaluatorModel: cfg.Gemini.EvaluatorModel,
				Timeout:        cfg.Gemini.Timeout,
			})

			srv := server.NewServer(st, model)

			httpSrv := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: srv,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("interviewd listening", "addr", cfg.Server.Addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return httpSrv.Close()
			case err := <-errCh:
				return err
			}
		},
	}

	root.Flags().String("addr", "", "listen address (overrides config)")
	root.Flags().String("db", "", "database path (overrides config)")
	root.Flags().String("config", "", "path to yaml config file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
