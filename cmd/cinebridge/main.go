// cmd/cinebridge/main.go
// ----------------------
// The cinebridge binary: loads a yaml config, wires the chosen provider
// into a gateway, and serves the HTTP API until interrupted.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	cinebridge "github.com/cinebridge/cine-bridge"
	"github.com/cinebridge/cine-bridge/adapters"
	"github.com/cinebridge/cine-bridge/cache"
	"github.com/cinebridge/cine-bridge/httpapi"
	"github.com/cinebridge/cine-bridge/internal/logging"
)

func main() {
	root := &cobra.Command{
		Use:          "cinebridge",
		Short:        "Resilient recommendation gateway",
		SilenceUsage: true,
	}
	root.AddCommand(serveCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cinebridge.LoadServerConfig(configPath)
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel)
			defer logging.Sync()

			provider, err := buildProvider(cfg.Provider)
			if err != nil {
				return err
			}

			store, err := cache.NewStore(cfg.CacheConfig())
			if err != nil {
				return err
			}

			gateway := cinebridge.NewGateway(provider, cinebridge.GatewayConfig{
				Limiter:  cfg.LimiterConfig(),
				Retry:    cfg.RetryPolicy(),
				Cache:    store,
				CacheTTL: cfg.CacheConfig().TTL,
			})
			defer gateway.Close()

			server := httpapi.NewServer(gateway, cfg)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if err != nil && err != http.ErrServerClosed {
					return err
				}
			case sig := <-stop:
				logging.Infof("received %s, shutting down", sig)
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cinebridge.yaml", "path to yaml config file")
	return cmd
}

func buildProvider(settings cinebridge.ProviderSettings) (cinebridge.RecommendationProvider, error) {
	switch settings.Type {
	case "catalog":
		return adapters.NewCatalogProvider(nil), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if settings.APIKeyEnv != "" {
			apiKey = os.Getenv(settings.APIKeyEnv)
		}
		cfg := adapters.OpenAIConfig{
			APIKey:            apiKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			RequestsPerMinute: settings.RequestsPerMinute,
		}
		if settings.OAuthTokenURL != "" {
			cfg.OAuth = &adapters.OAuthSettings{
				TokenURL:     settings.OAuthTokenURL,
				ClientID:     settings.OAuthClientID,
				ClientSecret: settings.OAuthClientSecret,
			}
		}
		return adapters.NewOpenAIProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", settings.Type)
	}
}
