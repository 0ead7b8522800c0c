package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-line-login/authstate"
	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/internal/logging"
	"github.com/jrsteele09/go-line-login/internal/metrics"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/server"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/jrsteele09/go-line-login/token"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Err(err).Msg("Error running server")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "line-login",
		Short:         "Login with LINE web server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is normal in deployed environments
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("loading .env: %w", err)
			}
			return nil
		},
	}

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newMintTokenCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.New()
			if err != nil {
				return err
			}
			logging.Setup(c.GetEnv(), c.GetLogLevel(), c.IsDevelopment())
			displayAppname(c.GetAppName())

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, c)
		},
	}
}

func run(ctx context.Context, c config.Config) error {
	m := metrics.New()

	backends, err := openBackends(ctx, c)
	if err != nil {
		return err
	}
	defer backends.Close()

	idp, err := provider.New(provider.Config{
		ClientID:     c.GetChannelID(),
		ClientSecret: c.GetChannelSecret(),
		RedirectURL:  c.GetCallbackURL(),
		Scopes:       c.GetScopes(),
		AuthorizeURL: c.GetAuthorizeURL(),
		TokenURL:     c.GetTokenURL(),
		ProfileURL:   c.GetProfileURL(),
		Issuer:       c.GetIssuer(),
		JWKSURL:      c.GetJWKSURL(),
		Timeout:      c.GetUpstreamTimeout(),
	}, provider.WithObserver(m.ObserveProvider))
	if err != nil {
		return err
	}

	manager, err := sessions.NewManager(backends.store, sessions.ManagerConfig{
		Secret: c.GetSessionSecret(),
		TTL:    c.GetSessionTTL(),
		Secure: !c.IsDevelopment(),
	})
	if err != nil {
		return err
	}

	signer := token.NewHMACSigner(c.GetJWTSecret())
	handler, err := server.New(c, server.Dependencies{
		Provider:      idp,
		States:        authstate.New(),
		Sessions:      manager,
		Verifier:      token.NewVerifier(signer, token.WithRevocationList(backends.revocations)),
		Revocations:   backends.revocations,
		Signer:        signer,
		GlobalLimiter: backends.globalLimiter,
		AuthLimiter:   backends.authLimiter,
		Metrics:       m,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return listenAndServe(httpServer)
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(httpServer)
	})
	if backends.cleanup != nil {
		g.Go(func() error {
			return backends.cleanup(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
