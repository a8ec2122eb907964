package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/gesture"
)

// RefreshCatalog stages the catalog file merged with the calibrated poses.
// Calibrated poses replace file poses with the same id.
func (a *App) RefreshCatalog() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.mergedCatalog()
	if err != nil {
		return err
	}
	return a.engine.StageCatalog(c)
}

// onCatalogFile is the watcher callback for a changed catalog file.
func (a *App) onCatalogFile(c gesture.Catalog) {
	a.mu.Lock()
	prev := a.base
	a.base = c
	merged, err := a.mergedCatalog()
	if err == nil {
		err = a.engine.StageCatalog(merged)
	}
	if err != nil {
		a.base = prev
	}
	a.mu.Unlock()

	if err != nil {
		a.logger.Warn("catalog with calibrated poses rejected", zap.Error(err))
		return
	}
	a.logger.Info("catalog staged", zap.Int("poses", len(merged.Poses)), zap.Int("motions", len(merged.Motions)))
}

// mergedCatalog must be called with a.mu held or before the App is shared.
func (a *App) mergedCatalog() (gesture.Catalog, error) {
	poses, err := a.store.Poses().Definitions()
	if err != nil {
		return gesture.Catalog{}, fmt.Errorf("load calibrated poses: %w", err)
	}
	return a.base.WithPoses(poses...), nil
}
