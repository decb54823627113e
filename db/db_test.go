package db_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/db"
)

func openDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestInsertAndGetArtist(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()

	artist := &data.Artist{
		SpotifyID: "spot-1",
		Name:      "IU",
		LocalName: "아이유",
		Type:      data.TypeSolo,
	}
	require.NoError(t, database.InsertArtist(ctx, artist))
	require.NotZero(t, artist.ID)

	got, err := database.GetArtist(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, "IU", got.Name)
	assert.Equal(t, "아이유", got.LocalName)

	bySpotify, err := database.GetArtistBySpotifyID(ctx, "spot-1")
	require.NoError(t, err)
	assert.Equal(t, artist.ID, bySpotify.ID)
}

func TestGetArtistNotFound(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()

	_, err := database.GetArtist(ctx, 999)
	assert.ErrorIs(t, err, db.ErrNotFound)

	_, err = database.GetArtistBySpotifyID(ctx, "absent")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestInsertArtistIgnoresDuplicateSpotifyID(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()

	require.NoError(t, database.InsertArtist(ctx, &data.Artist{SpotifyID: "dup", Name: "first", Type: data.TypeSolo}))
	require.NoError(t, database.InsertArtist(ctx, &data.Artist{SpotifyID: "dup", Name: "second", Type: data.TypeSolo}))

	got, err := database.GetArtistBySpotifyID(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	count, err := database.CountArtists(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnsureGenreIsIdempotent(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()

	first, err := database.EnsureGenre(ctx, "k-pop", "KOREAN")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	second, err := database.EnsureGenre(ctx, "k-pop", "KOREAN")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := database.CountGenres(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSetArtistLikes(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()

	artist := &data.Artist{SpotifyID: "spot-1", Name: "IU", Type: data.TypeSolo}
	require.NoError(t, database.InsertArtist(ctx, artist))
	require.NoError(t, database.SetArtistLikes(ctx, artist.ID, 42))

	got, err := database.GetArtist(ctx, artist.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.LikeCount)
}

func seedCandidates(t *testing.T, database *db.DB) (genreID int64) {
	t.Helper()
	ctx := context.Background()

	genre, err := database.EnsureGenre(ctx, "k-pop", "KOREAN")
	require.NoError(t, err)

	for i := 0; i < 6; i++ {
		artist := &data.Artist{
			SpotifyID: fmt.Sprintf("spot-%d", i),
			Name:      fmt.Sprintf("artist-%d", i),
			GroupName: "newjeans",
			Type:      data.TypeSolo,
			GenreID:   &genre.ID,
			LikeCount: int64(i % 3),
		}
		require.NoError(t, database.InsertArtist(ctx, artist))
	}
	return genre.ID
}

func TestArtistsByGenreExcludesAndOrders(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()
	genreID := seedCandidates(t, database)

	all, err := database.ArtistsByGenre(ctx, genreID, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 6)

	// Likes descending, then ID ascending.
	for i := 1; i < len(all); i++ {
		if all[i-1].LikeCount == all[i].LikeCount {
			assert.Less(t, all[i-1].ID, all[i].ID)
		} else {
			assert.Greater(t, all[i-1].LikeCount, all[i].LikeCount)
		}
	}

	excluded, err := database.ArtistsByGenre(ctx, genreID, all[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, excluded, 5)
	for _, artist := range excluded {
		assert.NotEqual(t, all[0].ID, artist.ID)
	}

	capped, err := database.ArtistsByGenre(ctx, genreID, 0, 3)
	require.NoError(t, err)
	assert.Len(t, capped, 3)
}

func TestArtistsByGroupAndType(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()
	seedCandidates(t, database)

	byGroup, err := database.ArtistsByGroup(ctx, "newjeans", 0, 10)
	require.NoError(t, err)
	assert.Len(t, byGroup, 6)

	byType, err := database.ArtistsByType(ctx, data.TypeSolo, 0, 10)
	require.NoError(t, err)
	assert.Len(t, byType, 6)

	none, err := database.ArtistsByGroup(ctx, "other-group", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTopArtists(t *testing.T) {
	database := openDB(t)
	ctx := context.Background()
	seedCandidates(t, database)

	top, err := database.TopArtists(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.GreaterOrEqual(t, top[0].LikeCount, top[1].LikeCount)
}

func TestOpenIsIdempotent(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "test.db")

	first, err := db.Open(filename)
	require.NoError(t, err)
	require.NoError(t, first.InsertArtist(context.Background(),
		&data.Artist{SpotifyID: "spot-1", Name: "IU", Type: data.TypeSolo}))
	require.NoError(t, first.Close())

	// Reopening an existing file must not disturb its rows.
	second, err := db.Open(filename)
	require.NoError(t, err)
	defer second.Close()

	count, err := second.CountArtists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
