package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/TwigBush/jwks-issuer/internal/config"
	"github.com/TwigBush/jwks-issuer/internal/handlers"
	"github.com/TwigBush/jwks-issuer/internal/keys"
	"github.com/TwigBush/jwks-issuer/internal/payload"
	"github.com/TwigBush/jwks-issuer/internal/server"
	"github.com/TwigBush/jwks-issuer/internal/token"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func cmdServe() *cobra.Command {
	var addr string

	c := &cobra.Command{
		Use:   "serve",
		Short: "Serve /.well-known/jwks.json and /get-jwt",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			setupLogging(cfg.LogLevel, cfg.LogJSON)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			return serve(ctx, ln, cfg)
		},
	}
	c.Flags().StringVar(&addr, "addr", "", "listen address, overrides the config file")
	return c
}

// app is everything a running server needs, built once from the config.
type app struct {
	state    *keys.State
	provider keys.Provider
	issuer   *token.Issuer
	payload  *payload.Hasher // nil unless the token profile needs it
	handler  http.Handler
}

func buildApp(cfg *config.Config) (*app, error) {
	provider, err := keys.NewProvider(cfg.KeyOptions())
	if err != nil {
		return nil, err
	}
	issuer, err := token.NewIssuer(cfg.TokenConfig())
	if err != nil {
		return nil, err
	}

	a := &app{state: &keys.State{}, provider: provider, issuer: issuer}

	var digester handlers.Digester
	if issuer.NeedsData() {
		h, err := payload.Load(cfg.Payload.File, cfg.Payload.Dump)
		if err != nil {
			return nil, err
		}
		a.payload = h
		digester = h
	}

	a.handler = server.BuildRouter(server.Deps{
		State:   a.state,
		Issuer:  issuer,
		Payload: digester,
	}, server.Options{CORSOrigins: cfg.CORSOrigins})
	return a, nil
}

func (a *app) initKeys(ctx context.Context) error {
	m, err := a.provider.Provide(ctx)
	if err != nil {
		return fmt.Errorf("initialize keys: %w", err)
	}
	a.state.Set(m)
	slog.Info("keys ready", "kid", m.KID, "alg", keys.Algorithm)
	return nil
}

// serve runs until ctx is done or key initialization fails. With
// keys.wait_ready the key is loaded before ln accepts requests; otherwise the
// two race and handlers answer 503 until the key is in place.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config) error {
	a, err := buildApp(cfg)
	if err != nil {
		ln.Close()
		return err
	}

	if cfg.Keys.WaitReady {
		if err := a.initKeys(ctx); err != nil {
			ln.Close()
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if !cfg.Keys.WaitReady {
		g.Go(func() error { return a.initKeys(gctx) })
	}
	g.Go(func() error { return run(gctx, ln, a.handler) })

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func run(ctx context.Context, ln net.Listener, h http.Handler) error {
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", ln.Addr().String())
		errc <- srv.Serve(ln)
	}()
	select {
	case <-ctx.Done():
		ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx2)
	case err := <-errc:
		return err
	}
}
