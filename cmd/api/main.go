package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/hirokiuemura2/GDGTeamF1/internal/config"
	"github.com/hirokiuemura2/GDGTeamF1/internal/currencyapi"
	"github.com/hirokiuemura2/GDGTeamF1/internal/googleai"
	"github.com/hirokiuemura2/GDGTeamF1/internal/hash"
	httptransport "github.com/hirokiuemura2/GDGTeamF1/internal/http"
	"github.com/hirokiuemura2/GDGTeamF1/internal/http/handler"
	httpmiddleware "github.com/hirokiuemura2/GDGTeamF1/internal/http/middleware"
	apimiddleware "github.com/hirokiuemura2/GDGTeamF1/internal/middleware"
	"github.com/hirokiuemura2/GDGTeamF1/internal/oauth"
	"github.com/hirokiuemura2/GDGTeamF1/internal/repository"
	"github.com/hirokiuemura2/GDGTeamF1/internal/server"
	"github.com/hirokiuemura2/GDGTeamF1/internal/service"
	"github.com/hirokiuemura2/GDGTeamF1/internal/telemetry"
	"github.com/hirokiuemura2/GDGTeamF1/internal/token"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newPGXPool,
			newUserRepository,
			newExpenseRepository,
			newHasher,
			newTokenCodec,
			newGoogleClient,
			oauth.NewStateStore,
			newRateLimiter,
			newCurrencyClient,
			newGoogleAIClient,
			newCurrencyService,
			service.NewAuthService,
			service.NewExpenseService,
			newAuthHandler,
			handler.NewExpenseHandler,
			handler.NewCurrencyHandler,
			handler.NewAdviceHandler,
			newAuthMiddleware,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return repository.NewPostgresUserRepo(pool)
}

func newExpenseRepository(pool *pgxpool.Pool) repository.ExpenseRepository {
	return repository.NewPostgresExpenseRepo(pool)
}

func newHasher(cfg config.Config) *hash.Hasher {
	return hash.New(cfg.HashWorkers)
}

func newTokenCodec(cfg config.Config) (*token.Codec, error) {
	return token.New(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTAlgorithm,
		token.WithLifetimes(cfg.AccessTokenTTL, cfg.RefreshTokenTTL))
}

func newGoogleClient(cfg config.Config) *oauth.Client {
	return oauth.NewClient(oauth.DefaultGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret))
}

func newRateLimiter(cfg config.Config) *apimiddleware.RateLimiter {
	return apimiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newCurrencyClient(cfg config.Config) *currencyapi.Client {
	return currencyapi.New(cfg.CurrencyAPIURL, cfg.CurrencyAPIKey)
}

func newGoogleAIClient(cfg config.Config) *googleai.Client {
	return googleai.New(cfg.GoogleAIURL, cfg.GoogleAIAPIKey, cfg.GoogleAIModel)
}

func newCurrencyService(client *currencyapi.Client) *service.CurrencyService {
	return service.NewCurrencyService(client)
}

func newAuthHandler(auth *service.AuthService, google *oauth.Client, states *oauth.StateStore, cfg config.Config) *handler.AuthHandler {
	return handler.NewAuthHandler(auth, google, states, cfg)
}

func newAuthMiddleware(authService *service.AuthService) *httpmiddleware.Auth {
	return &httpmiddleware.Auth{AuthService: authService}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
