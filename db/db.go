package db

import (
	_ "embed"
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/soriapp/soria/data"
)

// DB represents our sqlite3 database file.
type DB struct{ *gorm.DB }

//go:embed schema.sql
var schema string

// Open returns a connection to a migrated sqlite3 database file on disk,
// creating the file and running migrations if necessary.
func Open(filename string) (*DB, error) {
	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening db file at '%s': %w", filename, err)
	}

	db := &DB{gdb}

	if err := db.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("error migrating db at '%s': %w", filename, err)
	}

	return db, nil
}

func (db *DB) Close() error {
	pool, err := db.DB.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// InsertGenre inserts a genre, doing nothing if a genre with its name
// already exists.
func (db *DB) InsertGenre(ctx context.Context, genre *data.Genre) error {
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(genre).
		Error; err != nil {
		return fmt.Errorf("error inserting genre '%s': %w", genre.Name, err)
	}
	return nil
}

// EnsureGenre returns the genre with the given name, creating it with the
// given category if it does not exist yet.
func (db *DB) EnsureGenre(ctx context.Context, name, category string) (*data.Genre, error) {
	genre := data.Genre{Name: name, Category: category}
	if err := db.WithContext(ctx).
		Table("genres").
		Where("name = ?", name).
		FirstOrCreate(&genre).
		Error; err != nil {
		return nil, fmt.Errorf("error ensuring genre '%s': %w", name, err)
	}
	return &genre, nil
}

// InsertArtist inserts an artist, doing nothing if an artist with its
// spotify ID already exists.
func (db *DB) InsertArtist(ctx context.Context, artist *data.Artist) error {
	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(artist).
		Error; err != nil {
		return fmt.Errorf("error inserting artist '%s': %w", artist.Name, err)
	}
	return nil
}

// SetArtistLikes updates an artist's like count.
func (db *DB) SetArtistLikes(ctx context.Context, artistID, likes int64) error {
	if err := db.WithContext(ctx).
		Table("artists").
		Where("id = ?", artistID).
		Update("like_count", likes).
		Error; err != nil {
		return fmt.Errorf("error updating likes for artist %d: %w", artistID, err)
	}
	return nil
}

var ErrNotFound = errors.New("not found")

// GetArtist fetches one artist by internal ID.
func (db *DB) GetArtist(ctx context.Context, id int64) (*data.Artist, error) {
	var artist data.Artist
	err := db.WithContext(ctx).
		Table("artists").
		Where("id = ?", id).
		Take(&artist).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("artist %d: %w", id, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("error getting artist %d: %w", id, err)
	}
	return &artist, nil
}

// GetArtistBySpotifyID fetches one artist by its upstream ID.
func (db *DB) GetArtistBySpotifyID(ctx context.Context, spotifyID string) (*data.Artist, error) {
	var artist data.Artist
	err := db.WithContext(ctx).
		Table("artists").
		Where("spotify_id = ?", spotifyID).
		Take(&artist).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("artist '%s': %w", spotifyID, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("error getting artist '%s': %w", spotifyID, err)
	}
	return &artist, nil
}
