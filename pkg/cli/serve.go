package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
	server "github.com/m-mizutani/newsdesk/pkg/controller/http"
	"github.com/m-mizutani/newsdesk/pkg/service/mcp"
	"github.com/m-mizutani/newsdesk/pkg/service/session"
	"github.com/m-mizutani/newsdesk/pkg/usecase/auth"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

// serverConfig holds flags of the HTTP server
type serverConfig struct {
	addr          string
	basePath      string
	allowOrigins  []string
	sessionSecret string
	sessionTTL    time.Duration
	redisURL      string
	loginLimit    int64
	enableMCP     bool
}

// serverFlags returns flags for the HTTP server with destination config
func serverFlags(cfg *serverConfig) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address",
			Value:       ":8080",
			Sources:     cli.EnvVars("NEWSDESK_ADDR"),
			Destination: &cfg.addr,
		},
		&cli.StringFlag{
			Name:        "base-path",
			Usage:       "Path prefix of the API routes",
			Value:       "/api",
			Sources:     cli.EnvVars("NEWSDESK_BASE_PATH"),
			Destination: &cfg.basePath,
		},
		&cli.StringSliceFlag{
			Name:        "allow-origin",
			Usage:       "Origin allowed by CORS, repeatable. \"*\" allows any origin",
			Sources:     cli.EnvVars("NEWSDESK_ALLOW_ORIGINS"),
			Destination: &cfg.allowOrigins,
		},
		&cli.StringFlag{
			Name:        "session-secret",
			Usage:       "Secret signing session tokens. When set, article routes require a bearer token",
			Sources:     cli.EnvVars("NEWSDESK_SESSION_SECRET"),
			Destination: &cfg.sessionSecret,
		},
		&cli.DurationFlag{
			Name:        "session-ttl",
			Usage:       "Lifetime of session tokens",
			Value:       session.DefaultTTL,
			Sources:     cli.EnvVars("NEWSDESK_SESSION_TTL"),
			Destination: &cfg.sessionTTL,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "Redis URL (redis://host:6379/0) enabling login rate limiting",
			Sources:     cli.EnvVars("NEWSDESK_REDIS_URL"),
			Destination: &cfg.redisURL,
		},
		&cli.IntFlag{
			Name:        "login-limit",
			Usage:       "Login attempts allowed per client IP and minute",
			Value:       server.DefaultLoginLimit,
			Sources:     cli.EnvVars("NEWSDESK_LOGIN_LIMIT"),
			Destination: &cfg.loginLimit,
		},
		&cli.BoolFlag{
			Name:        "mcp",
			Usage:       "Serve the MCP endpoint at /mcp",
			Sources:     cli.EnvVars("NEWSDESK_MCP"),
			Destination: &cfg.enableMCP,
		},
	}
}

func serveCommand(logCfg *logConfig) *cli.Command {
	var (
		cfg    config
		srvCfg serverConfig
	)

	flags := serverFlags(&srvCfg)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, geminiFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: flags,
		Action: withLogger(logCfg, func(ctx context.Context, c *cli.Command) error {
			// Initialize dependencies
			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			articleUC, err := cfg.newArticleUseCase(ctx, repo)
			if err != nil {
				return err
			}

			opts := []server.Option{
				server.WithBasePath(srvCfg.basePath),
				server.WithAllowOrigins(srvCfg.allowOrigins...),
			}

			if srvCfg.sessionSecret != "" {
				issuer, err := session.NewIssuer(srvCfg.sessionSecret, session.WithTTL(srvCfg.sessionTTL))
				if err != nil {
					return err
				}
				opts = append(opts, server.WithSession(issuer))
			}

			if srvCfg.redisURL != "" {
				counter, err := adapter.NewRedisCounter(ctx, srvCfg.redisURL, "newsdesk:ratelimit:")
				if err != nil {
					return err
				}
				defer counter.Close()
				opts = append(opts, server.WithLoginRateLimit(counter, int(srvCfg.loginLimit), server.DefaultLoginWindow))
			}

			if srvCfg.enableMCP {
				opts = append(opts, server.WithMCP(mcp.NewHTTPHandler(mcp.NewServer(articleUC))))
			}

			handler := server.New(articleUC, auth.New(repo), opts...)
			return serve(ctx, srvCfg.addr, handler)
		}),
	}
}

// serve runs handler on addr until SIGINT or SIGTERM, then shuts down gracefully
func serve(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.From(ctx)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return goerr.Wrap(err, "server failed", goerr.V("addr", addr))
		}
		return nil
	case <-sigCtx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shut down server")
	}
	return nil
}
