package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v4/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/manzanit0/geosearch/cmd/addressd/api"
	"github.com/manzanit0/geosearch/pkg/addrsearch"
	"github.com/manzanit0/geosearch/pkg/env"
	"github.com/manzanit0/geosearch/pkg/geocache"
	"github.com/manzanit0/geosearch/pkg/logger"
	"github.com/manzanit0/geosearch/pkg/middleware"
)

const ServiceName = "addressd"

const sweepInterval = time.Minute

func init() {
	if err := env.LoadDotEnv(); err != nil {
		panic(err)
	}

	logger.InitGlobalSlog(ServiceName, env.Debug())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := env.LoadGeocodeConfig()
	if err != nil {
		panic(err)
	}

	idle, err := env.SessionIdleTimeout()
	if err != nil {
		panic(err)
	}

	resolver := cfg.NewResolver()
	if !resolver.PrimaryAvailable() {
		slog.Warn("MAPBOX_ACCESS_TOKEN not set, every lookup goes to Nominatim")
	}

	store, closeStore, err := newCacheStore(ctx)
	if err != nil {
		panic(err)
	}
	defer closeStore()

	var cacheOpts []geocache.Option
	if store != nil {
		cacheOpts = append(cacheOpts, geocache.WithStore(store))
	}

	lookup := addrsearch.NewLookup(resolver, geocache.New(cacheOpts...))
	sessions := addrsearch.NewRegistry(func(id string, opts ...addrsearch.SessionOption) *addrsearch.Session {
		base := []addrsearch.SessionOption{
			addrsearch.WithLogger(slog.Default().With(string(middleware.CtxKeySessionID), id)),
		}
		return addrsearch.NewSession(lookup, append(base, opts...)...)
	}, addrsearch.WithIdleTimeout(idle))

	if !env.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.TraceID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(env.Debug()))

	api.Register(r, resolver, lookup, sessions)

	port := env.Port()
	srv := &http.Server{Addr: fmt.Sprintf(":%s", port), Handler: r}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info(fmt.Sprintf("serving HTTP on :%s", port))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}

		slog.Info("server shutdown gracefully")
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				sessions.Sweep()
				if p, ok := store.(*geocache.PostgresStore); ok {
					if _, err := p.Purge(ctx); err != nil {
						slog.Warn("purge expired cache entries", "error", err.Error())
					}
				}
			}
		}
	})

	g.Go(func() error {
		// Listen for OS interrupt or a failing sibling.
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err.Error())
		}

		sessions.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server shutdown abruptly", "error", err.Error())
	}

	slog.Info("server exited")
}

// newCacheStore picks the shared cache tier: Redis when REDIS_URL is set,
// Postgres when DATABASE_URL is set, none otherwise.
func newCacheStore(ctx context.Context) (geocache.Store, func(), error) {
	if u := env.RedisURL(); u != "" {
		rs, err := geocache.NewRedisStoreFromURL(ctx, u)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to connect to redis: %w", err)
		}

		slog.Info("connected to redis successfully")
		return rs, func() {
			if err := rs.Close(); err != nil {
				slog.Error("error closing redis connection", "error", err.Error())
			}
		}, nil
	}

	if u := env.DatabaseURL(); u != "" {
		db, err := sql.Open("pgx", u)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open db conn: %w", err)
		}

		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("unable to ping database: %w", err)
		}

		ps := geocache.NewPostgresStore(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("unable to create cache schema: %w", err)
		}

		slog.Info("connected to the database successfully")
		return ps, func() {
			if err := db.Close(); err != nil {
				slog.Error("error closing db connection", "error", err.Error())
			}
		}, nil
	}

	return nil, func() {}, nil
}
