package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/likesync/internal/models"
)

// Linker creates join rows between persisted entities.
//
// Linking never aborts the caller: every outcome is reported through [models.LinkResult].
type Linker struct {
	store  models.RelationStore
	logger *log.Logger
}

// NewLinker creates a Linker writing to store.
func NewLinker(store models.RelationStore, logger *log.Logger) *Linker {
	return &Linker{store: store, logger: logger}
}

// Link inserts the (leftID, rightID) relation. display names the pair in log output.
func (l *Linker) Link(ctx context.Context, kind models.RelationKind, leftID, rightID, display string) models.LinkResult {
	res := l.store.CreateRelation(ctx, kind, leftID, rightID)

	switch res.Status {
	case models.LinkCreated:
		l.logger.Debug("relation created", "kind", kind, "pair", display)
	case models.LinkExists:
		l.logger.Debug("relation already exists", "kind", kind, "pair", display)
	case models.LinkFailed:
		l.logger.Warn("relation not created", "kind", kind, "pair", display, "err", res.Err)
	}
	return res
}
