package main

import (
	"time"

	"github.com/sells-group/censusview/internal/catalog"
	"github.com/sells-group/censusview/internal/census"
	"github.com/sells-group/censusview/internal/geostore"
	"github.com/sells-group/censusview/internal/viewer"
)

// env holds the initialized application components shared by commands.
type env struct {
	Store  *geostore.Store
	Viewer *viewer.Viewer
}

func (e *env) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// newClient builds the ACS API client from config.
func newClient() *census.Client {
	return census.NewClient(census.ClientOptions{
		BaseURL:     cfg.Census.BaseURL,
		Key:         cfg.Census.Key,
		Source:      cfg.Census.Source,
		Year:        cfg.Census.Year,
		Timeout:     time.Duration(cfg.Census.TimeoutSecs) * time.Second,
		MaxAttempts: cfg.Census.MaxAttempts,
		RatePerSec:  cfg.Census.RatePerSec,
	})
}

// initEnv opens the geography snapshot and loads the variable catalog. Both
// are fatal on failure; the process cannot serve without them.
func initEnv() (*env, error) {
	store, err := geostore.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	engine := census.NewEngine(store, newClient(), cfg.Census.Workers)
	return &env{
		Store:  store,
		Viewer: viewer.New(cat, engine),
	}, nil
}
