package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/likesync/internal/models"
	"github.com/desertthunder/likesync/internal/shared"
)

func TestArtistRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			_, err := repo.Create(ctx, &models.Artist{Name: "No Key"})
			if !errors.Is(err, shared.ErrInvalidInput) || !errors.Is(err, shared.ErrStoreWrite) {
				t.Fatalf("expected invalid input store write error, got %v", err)
			}
		})

		t.Run("DuplicateNaturalKey", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			if _, err := repo.Create(ctx, &models.Artist{SpotifyID: "a1", Name: "Alice"}); err != nil {
				t.Fatalf("failed to create first artist: %v", err)
			}

			second := &models.Artist{SpotifyID: "a1", Name: "Alice Again"}
			_, err := repo.Create(ctx, second)
			if !errors.Is(err, shared.ErrDuplicateKey) {
				t.Fatalf("expected ErrDuplicateKey, got %v", err)
			}
			if !errors.Is(err, shared.ErrStoreWrite) {
				t.Errorf("duplicate should also be a store write error: %v", err)
			}
			if second.ID != "" {
				t.Errorf("failed create should not assign an ID, got %s", second.ID)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			if _, err := repo.Get(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if _, err := repo.FindByNaturalKey(ctx, "nope"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			err := repo.Update(ctx, &models.Artist{ID: "nonexistent-id", SpotifyID: "a1", Name: "Alice"})
			if !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			if err := repo.Delete(ctx, "nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	})

	t.Run("CreateMany", func(t *testing.T) {
		t.Run("RollsBackOnDuplicate", func(t *testing.T) {
			repo := NewArtistRepository(setupTestDB(t))

			artists := []*models.Artist{
				{SpotifyID: "a1", Name: "Alice"},
				{SpotifyID: "a2", Name: "Bob"},
				{SpotifyID: "a1", Name: "Alice Twice"},
			}
			if _, err := repo.CreateMany(ctx, artists); !errors.Is(err, shared.ErrDuplicateKey) {
				t.Fatalf("expected ErrDuplicateKey, got %v", err)
			}

			listed, _ := repo.List(ctx, 0, 0)
			if len(listed) != 0 {
				t.Errorf("expected no artists after rollback, got %d", len(listed))
			}
			if artists[0].ID != "" {
				t.Error("inputs should not be mutated when the batch fails")
			}
		})
	})
}

func TestTrackRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownAlbum", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))

		_, err := repo.Create(ctx, &models.Track{SpotifyTrackID: "t1", Name: "Song", AlbumID: "missing-album"})
		if !errors.Is(err, shared.ErrStoreWrite) {
			t.Fatalf("expected ErrStoreWrite, got %v", err)
		}
		if errors.Is(err, shared.ErrDuplicateKey) {
			t.Error("foreign key failure should not be reported as duplicate")
		}
	})

	t.Run("MissingAlbumReference", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))

		_, err := repo.Create(ctx, &models.Track{SpotifyTrackID: "t1", Name: "Song"})
		if !errors.Is(err, shared.ErrInvalidInput) || !errors.Is(err, shared.ErrStoreWrite) {
			t.Fatalf("expected invalid input store write error, got %v", err)
		}
	})

	t.Run("DuplicateNaturalKey", func(t *testing.T) {
		db := setupTestDB(t)
		album := createAlbum(t, db, "al1")
		repo := NewTrackRepository(db)

		_, _ = repo.Create(ctx, &models.Track{SpotifyTrackID: "t1", Name: "Song", AlbumID: album.ID})
		if _, err := repo.Create(ctx, &models.Track{SpotifyTrackID: "t1", Name: "Song", AlbumID: album.ID}); !errors.Is(err, shared.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})
}

func TestRelationRepositoryErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownKind", func(t *testing.T) {
		repo := NewRelationRepository(setupTestDB(t))

		res := repo.CreateRelation(ctx, models.RelationKind("bogus"), "l", "r")
		if res.Status != models.LinkFailed || !errors.Is(res.Err, shared.ErrInvalidArgument) {
			t.Errorf("expected failed link with ErrInvalidArgument, got %v (%v)", res.Status, res.Err)
		}
		if _, err := repo.ListRelations(ctx, models.RelationKind("bogus"), "l"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("MissingEntities", func(t *testing.T) {
		repo := NewRelationRepository(setupTestDB(t))

		res := repo.CreateRelation(ctx, models.TrackArtists, "no-track", "no-artist")
		if res.Status != models.LinkFailed {
			t.Fatalf("expected failed link, got %v", res.Status)
		}
		if !errors.Is(res.Err, shared.ErrStoreWrite) {
			t.Errorf("expected ErrStoreWrite, got %v", res.Err)
		}
	})
}
