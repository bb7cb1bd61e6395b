package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/opendoor-marketplace/matchengine/internal/config"
	"github.com/opendoor-marketplace/matchengine/internal/feedcache"
	httpapi "github.com/opendoor-marketplace/matchengine/internal/interfaces/http"
)

// serveCmd runs the admin/demo HTTP server until interrupted.
func serveCmd() *cobra.Command {
	var f bootstrapFlags
	var host string
	var port int
	var overlayPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin/demo HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if overlayPath != "" {
				overlay, err := config.LoadOverlay(overlayPath)
				if err != nil {
					return err
				}
				cfg = cfg.Apply(overlay)
			}

			eng, _, err := buildEngineWithConfig(f, cfg)
			if err != nil {
				return err
			}

			srvCfg := httpapi.DefaultServerConfig()
			srvCfg.Host = host
			srvCfg.Port = port
			srvCfg.CORSOrigins = cfg.CORSOrigins

			var cache *feedcache.Cache
			if cfg.FeedCacheAddr != "" {
				cache = feedcache.New(feedcache.Config{Addr: cfg.FeedCacheAddr, TTL: 10 * time.Second})
			}

			srv, err := httpapi.NewServer(eng, srvCfg, cache)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	addBootstrapFlags(cmd, &f)
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "bind address")
	cmd.Flags().IntVar(&port, "port", 8090, "bind port")
	cmd.Flags().StringVar(&overlayPath, "config", "", "optional YAML tuning overlay")
	return cmd
}
