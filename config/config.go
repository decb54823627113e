package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Spotify Spotify

	// Paths to the relational database and the snapshot cache database.
	DBPath    string
	CachePath string

	// Listen address for the API server.
	Addr string

	Warm Warm
}

type Spotify struct {
	ClientID     string
	ClientSecret string

	// Country code for the country-scoped endpoints.
	Country string

	// Minimum spacing between calls to the Spotify family.
	MinInterval time.Duration
}

type Warm struct {
	// How often the warm worker refreshes snapshots, and how many of the
	// most-liked artists it touches per round.
	Interval time.Duration
	Batch    int
}

// Load reads a .env file if one is present, then assembles configuration
// from the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Spotify: Spotify{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			Country:      getString("SPOTIFY_COUNTRY", "KR"),
			MinInterval:  getMillis("SPOTIFY_MIN_INTERVAL_MS", 100*time.Millisecond),
		},
		DBPath:    getString("SORIA_DB", "soria.db"),
		CachePath: getString("SORIA_CACHE_DB", "cache.db"),
		Addr:      getString("SORIA_ADDR", ":9999"),
		Warm: Warm{
			Interval: getMillis("SORIA_WARM_INTERVAL_MS", 30*time.Minute),
			Batch:    getInt("SORIA_WARM_BATCH", 20),
		},
	}
}

func getString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	str := os.Getenv(key)
	if str == "" {
		return fallback
	}
	value, err := strconv.Atoi(str)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getMillis(key string, fallback time.Duration) time.Duration {
	str := os.Getenv(key)
	if str == "" {
		return fallback
	}
	ms, err := strconv.Atoi(str)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}
