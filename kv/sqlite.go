package kv

import (
	_ "embed"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed schema.sql
var schema string

// Open returns a Store backed by a migrated sqlite3 database file on disk,
// creating the file and running migrations if necessary.
func Open(filename string) (*SQLite, error) {
	gdb, err := gorm.Open(sqlite.Open(filename), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening kv db file at '%s': %w", filename, err)
	}

	store := &SQLite{gdb}

	if err := store.db.Exec(schema).Error; err != nil {
		return nil, fmt.Errorf("error migrating kv db at '%s': %w", filename, err)
	}

	return store, nil
}

// SQLite implements Store on a sqlite3 file.
type SQLite struct {
	db *gorm.DB
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var row struct {
		Value []byte
	}
	err := s.db.WithContext(ctx).
		Table("kv_entries").
		Select("value").
		Where("key = ? and expires_at > ?", key, time.Now().UnixNano()).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("key '%s': %w", key, ErrMiss)
	} else if err != nil {
		return nil, fmt.Errorf("error reading key '%s': %w", key, err)
	}
	return row.Value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := s.db.WithContext(ctx).Exec(`
		insert into kv_entries (key, value, expires_at) values (?, ?, ?)
		on conflict (key) do update set
			value = excluded.value,
			expires_at = excluded.expires_at`,
		key, value, time.Now().Add(ttl).UnixNano(),
	).Error
	if err != nil {
		return fmt.Errorf("error writing key '%s': %w", key, err)
	}
	return nil
}

// SetIfAbsent is one conditional upsert: the insert wins when no row
// exists, and the update clause only fires when the existing row is dead.
func (s *SQLite) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).Exec(`
		insert into kv_entries (key, value, expires_at) values (?, ?, ?)
		on conflict (key) do update set
			value = excluded.value,
			expires_at = excluded.expires_at
		where kv_entries.expires_at <= ?`,
		key, value, now.Add(ttl).UnixNano(), now.UnixNano(),
	)
	if result.Error != nil {
		return false, fmt.Errorf("error conditionally writing key '%s': %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).
		Exec(`delete from kv_entries where key = ?`, key).
		Error
	if err != nil {
		return fmt.Errorf("error deleting key '%s': %w", key, err)
	}
	return nil
}

func (s *SQLite) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("kv_entries").
		Where("key = ? and expires_at > ?", key, time.Now().UnixNano()).
		Count(&count).
		Error
	if err != nil {
		return false, fmt.Errorf("error checking key '%s': %w", key, err)
	}
	return count > 0, nil
}

// Sweep deletes dead rows and returns how many were removed. Expiry is
// enforced on every read, so sweeping is housekeeping, not correctness.
func (s *SQLite) Sweep(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Exec(`delete from kv_entries where expires_at <= ?`, time.Now().UnixNano())
	if result.Error != nil {
		return 0, fmt.Errorf("error sweeping expired keys: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the number of live entries.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("kv_entries").
		Where("expires_at > ?", time.Now().UnixNano()).
		Count(&count).
		Error
	if err != nil {
		return 0, fmt.Errorf("error counting live keys: %w", err)
	}
	return count, nil
}

func (s *SQLite) Close() error {
	pool, err := s.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}
