package db

import (
	"context"
	"fmt"

	"github.com/soriapp/soria/data"
)

// Candidate queries for the recommender. Each excludes one artist and is
// capped; ordering is by like count then ID so a fixed dataset always
// yields the same page.

func (db *DB) ArtistsByGenre(ctx context.Context, genreID, excludeID int64, limit int) ([]data.Artist, error) {
	var artists []data.Artist
	if err := db.WithContext(ctx).
		Table("artists").
		Where("genre_id = ? and id <> ?", genreID, excludeID).
		Order("like_count desc, id asc").
		Limit(limit).
		Find(&artists).
		Error; err != nil {
		return nil, fmt.Errorf("error finding artists in genre %d: %w", genreID, err)
	}
	return artists, nil
}

func (db *DB) ArtistsByGroup(ctx context.Context, group string, excludeID int64, limit int) ([]data.Artist, error) {
	var artists []data.Artist
	if err := db.WithContext(ctx).
		Table("artists").
		Where("group_name = ? and id <> ?", group, excludeID).
		Order("like_count desc, id asc").
		Limit(limit).
		Find(&artists).
		Error; err != nil {
		return nil, fmt.Errorf("error finding artists in group '%s': %w", group, err)
	}
	return artists, nil
}

func (db *DB) ArtistsByType(ctx context.Context, typ string, excludeID int64, limit int) ([]data.Artist, error) {
	var artists []data.Artist
	if err := db.WithContext(ctx).
		Table("artists").
		Where("type = ? and id <> ?", typ, excludeID).
		Order("like_count desc, id asc").
		Limit(limit).
		Find(&artists).
		Error; err != nil {
		return nil, fmt.Errorf("error finding artists of type '%s': %w", typ, err)
	}
	return artists, nil
}

// TopArtists returns the most-liked artists, for cache warming.
func (db *DB) TopArtists(ctx context.Context, limit int) ([]data.Artist, error) {
	var artists []data.Artist
	if err := db.WithContext(ctx).
		Table("artists").
		Order("like_count desc, id asc").
		Limit(limit).
		Find(&artists).
		Error; err != nil {
		return nil, fmt.Errorf("error finding top artists: %w", err)
	}
	return artists, nil
}

func (db *DB) CountArtists(ctx context.Context) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("artists").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting artists: %w", err)
	}
	return count, nil
}

func (db *DB) CountGenres(ctx context.Context) (int64, error) {
	var count int64
	if err := db.WithContext(ctx).
		Table("genres").
		Count(&count).
		Error; err != nil {
		return 0, fmt.Errorf("error counting genres: %w", err)
	}
	return count, nil
}
