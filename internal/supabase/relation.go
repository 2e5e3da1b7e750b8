package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

// RelationStore is a [models.RelationStore] over the spotify_*_artists join tables.
type RelationStore struct {
	client *Client
}

// NewRelationStore returns a relation store using c.
func NewRelationStore(c *Client) *RelationStore {
	return &RelationStore{client: c}
}

// CreateRelation inserts one join row with both IDs in canonical form. A uniqueness violation on the composite primary key is [models.LinkExists].
func (s *RelationStore) CreateRelation(ctx context.Context, kind models.RelationKind, leftID, rightID string) models.LinkResult {
	if !kind.Valid() {
		return models.LinkResult{Status: models.LinkFailed, Err: fmt.Errorf("%w: relation kind %q", shared.ErrInvalidArgument, kind)}
	}

	leftID, err := shared.CanonicalID(leftID)
	if err != nil {
		return models.LinkResult{Status: models.LinkFailed, Err: err}
	}
	rightID, err = shared.CanonicalID(rightID)
	if err != nil {
		return models.LinkResult{Status: models.LinkFailed, Err: err}
	}

	left, right := kind.Columns()
	body := map[string]string{left: leftID, right: rightID}

	resp, err := s.client.do(ctx, http.MethodPost, kind.Table(), nil, body, "return=minimal")
	if err != nil {
		return models.LinkResult{Status: models.LinkFailed, Err: shared.WriteError(kind.Table(), err)}
	}

	switch {
	case resp.conflict():
		return models.LinkResult{Status: models.LinkExists}
	case !resp.ok():
		return models.LinkResult{Status: models.LinkFailed, Err: shared.WriteError(kind.Table(), resp.apiError())}
	default:
		return models.LinkResult{Status: models.LinkCreated}
	}
}

// ListRelations returns the right-hand IDs linked to leftID.
func (s *RelationStore) ListRelations(ctx context.Context, kind models.RelationKind, leftID string) ([]string, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: relation kind %q", shared.ErrInvalidArgument, kind)
	}

	filter, err := idFilter(leftID)
	if err != nil {
		return nil, err
	}

	left, right := kind.Columns()
	query := url.Values{}
	query.Set("select", right)
	query.Set(left, filter)

	resp, err := s.client.do(ctx, http.MethodGet, kind.Table(), query, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %s list: %w", shared.ErrServiceUnavailable, kind.Table(), err)
	}
	if !resp.ok() {
		return nil, fmt.Errorf("%w: %s list: %w", shared.ErrAPIRequest, kind.Table(), resp.apiError())
	}

	var rows []map[string]string
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s rows: %w", kind.Table(), err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row[right])
	}
	return ids, nil
}
