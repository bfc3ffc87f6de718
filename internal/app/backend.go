// Package app assembles the runtime backend from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fixit/internal/config"
	"fixit/internal/database"
	"fixit/internal/events"
	"fixit/internal/repository/postgres"
	"fixit/internal/repository/sqlite"
	"fixit/internal/router"
	"fixit/internal/tokencache"
)

// Runtime is an opened backend plus whatever must be released on shutdown.
type Runtime struct {
	Backend router.Backend
	closers []func()
}

func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// Open connects storage, migrates it, and attaches the optional NATS and
// Redis collaborators.
func Open(ctx context.Context, cfg config.Config, l zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{}
	if err := rt.openStore(ctx, cfg, l); err != nil {
		rt.Close()
		return nil, err
	}

	pubs := events.Multi{events.NewLogPublisher(l)}
	if cfg.NATSURL != "" {
		nc, err := events.DialNATS(cfg.NATSURL, "fixit-api")
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = nc.Drain() })
		pubs = append(pubs, events.NewNATSPublisher(nc, cfg.NATSSubjectPrefix))
		l.Info().Str("url", nc.ConnectedUrlRedacted()).Str("prefix", cfg.NATSSubjectPrefix).Msg("nats events enabled")
	}
	rt.Backend.Events = pubs

	if cfg.RedisAddr != "" {
		rdb, err := tokencache.DialRedis(ctx, tokencache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
		rt.Backend.Links = tokencache.NewRedis(rdb)
		l.Info().Str("addr", cfg.RedisAddr).Msg("redis link cache enabled")
	} else {
		rt.Backend.Links = tokencache.NewMemory()
	}
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context, cfg config.Config, l zerolog.Logger) error {
	switch cfg.DBDriver {
	case "postgres":
		pool, err := database.Open(ctx, cfg)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, pool.Close)
		applied, err := database.MigratePostgres(ctx, pool)
		if err != nil {
			return err
		}
		l.Info().Strs("applied", applied).Msg("postgres migrations")
		rt.Backend.Requests = postgres.NewRequestRepo(pool)
		rt.Backend.Users = postgres.NewUserRepo(pool)
		rt.Backend.Vendors = postgres.NewVendorRepo(pool)
		rt.Backend.DB = pool
	case "sqlite":
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		rt.closers = append(rt.closers, func() { _ = st.Close() })
		l.Info().Str("path", cfg.SQLitePath).Msg("sqlite store")
		rt.Backend.Requests = st.Requests
		rt.Backend.Users = st.Users
		rt.Backend.Vendors = st.Vendors
		rt.Backend.DB = st
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return nil
}
