package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/mgbpm/clingen-ai-tools/internal/config"
	"github.com/mgbpm/clingen-ai-tools/internal/store"
)

// initStore opens the configured output store and migrates its run log.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case config.DriverCSV:
		return store.NewCSV(sc.OutputDir)
	case config.DriverSQLite:
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "clingen.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case config.DriverPostgres:
		st, err := store.NewPostgres(ctx, sc.DatabaseURL, sc.Schema, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
