package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// RelationRepository implements models.RelationStore over the two join tables.
//
// A repeated insert hits the composite primary key and is reported as [models.LinkExists].
type RelationRepository struct {
	db *sql.DB
}

// NewRelationRepository creates a new RelationRepository with the given database connection
func NewRelationRepository(db *sql.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

// CreateRelation inserts the (leftID, rightID) pair into the table for kind.
func (r *RelationRepository) CreateRelation(ctx context.Context, kind models.RelationKind, leftID, rightID string) models.LinkResult {
	if !kind.Valid() {
		return models.LinkResult{Status: models.LinkFailed, Err: fmt.Errorf("%w: relation kind %q", shared.ErrInvalidArgument, kind)}
	}

	left, right := kind.Columns()
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", kind.Table(), left, right)

	if _, err := r.db.ExecContext(ctx, query, leftID, rightID); err != nil {
		if isUniqueViolation(err) {
			return models.LinkResult{Status: models.LinkExists}
		}
		return models.LinkResult{Status: models.LinkFailed, Err: shared.WriteError(kind.Table(), err)}
	}
	return models.LinkResult{Status: models.LinkCreated}
}

// ListRelations returns the right-hand IDs linked to leftID, in link order.
func (r *RelationRepository) ListRelations(ctx context.Context, kind models.RelationKind, leftID string) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: relation kind %q", shared.ErrInvalidArgument, kind)
	}

	left, right := kind.Columns()
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ? ORDER BY rowid ASC", right, kind.Table(), left)

	rows, err := r.db.QueryContext(ctx, query, leftID)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind.Table(), err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}
