package library

import (
	"context"
	"fmt"

	"github.com/llehouerou/deckcast/internal/config"
)

// SyncSources registers every configured source.
func (l *Library) SyncSources(ctx context.Context, sources []config.SourceConfig) error {
	for _, s := range sources {
		err := l.AddSource(ctx, Source{Name: s.Name, Path: s.Path, AutoAdvance: s.IsAutoAdvance()})
		if err != nil {
			return fmt.Errorf("source %q: %w", s.Name, err)
		}
	}
	return nil
}
