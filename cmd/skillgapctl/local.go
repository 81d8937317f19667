package main

import (
	"context"
	"fmt"
	"strings"

	"skillgap-backend/internal/catalog"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/shared/config"
)

// localEngine builds an in-process engine over the catalog named by --catalog.
func localEngine(ctx context.Context) (*engine.Engine, *catalog.Registry, error) {
	cfg := config.Load()
	provider := engine.NewModelProvider(engine.ModelConfigFromConfig(cfg))
	reg := catalog.NewRegistry(catalogStore(catalogSource), provider.PrepareCatalog)
	if _, err := reg.Refresh(ctx); err != nil {
		return nil, nil, fmt.Errorf("load catalog: %w", err)
	}
	return engine.New(reg, provider, engine.PolicyFromConfig(cfg.Engine)), reg, nil
}

func catalogStore(src string) catalog.Store {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return catalog.EmbeddedStore{}
	case strings.HasPrefix(src, "legacy:"):
		return catalog.NewLegacyDirStore(strings.TrimPrefix(src, "legacy:"))
	default:
		return &catalog.FileStore{Path: src}
	}
}
