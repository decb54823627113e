// Package seed fills the local database: genre tags scraped from the
// everynoise listing, artists from a JSON file.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/db"
	"github.com/soriapp/soria/genre"
	"github.com/soriapp/soria/request"
)

const genreListURL = "https://everynoise.com"

// Genres scrapes the everynoise listing and inserts each tag under its
// normalized category, returning how many tags were found.
func Genres(ctx context.Context, database *db.DB) (int, error) {
	doc, err := request.FetchHTML(genreListURL)
	if err != nil {
		return 0, fmt.Errorf("error fetching genre listing: %w", err)
	}

	names := GenreNames(doc)
	if len(names) == 0 {
		return 0, fmt.Errorf("no genres found at '%s'", genreListURL)
	}

	for _, name := range names {
		category, ok := genre.Normalize(name)
		if !ok {
			continue
		}
		if err := database.InsertGenre(ctx, &data.Genre{Name: name, Category: category}); err != nil {
			return 0, err
		}
	}

	log.Infof("seeded %d genres", len(names))
	return len(names), nil
}

// GenreNames extracts genre tags from the everynoise listing page. Each
// genre is a div in the canvas; its text carries a trailing play marker.
func GenreNames(doc *goquery.Document) []string {
	var names []string
	doc.Find("div.canvas > div").Each(func(i int, sel *goquery.Selection) {
		name := strings.TrimSpace(strings.TrimSuffix(sel.Text(), "» "))
		if name != "" {
			names = append(names, name)
		}
	})
	return names
}

// A seedArtist is one row of the artist seed file.
type seedArtist struct {
	SpotifyID string `json:"spotify_id"`
	Name      string `json:"name"`
	LocalName string `json:"local_name"`
	GroupName string `json:"group_name"`
	Type      string `json:"type"`
	Genre     string `json:"genre"`
	LikeCount int64  `json:"like_count"`
}

// Artists reads a JSON seed file and inserts its artists, resolving each
// raw genre tag to a genre row (created on first sight). Artists whose
// seed row carries no genre are inserted with a null genre reference.
func Artists(ctx context.Context, database *db.DB, filename string) (int, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("error reading seed file '%s': %w", filename, err)
	}

	var rows []seedArtist
	if err := json.Unmarshal(bs, &rows); err != nil {
		return 0, fmt.Errorf("error parsing seed file '%s': %w", filename, err)
	}

	for _, row := range rows {
		artist := data.Artist{
			SpotifyID: row.SpotifyID,
			Name:      row.Name,
			LocalName: row.LocalName,
			GroupName: row.GroupName,
			Type:      row.Type,
			LikeCount: row.LikeCount,
		}
		if artist.Type == "" {
			artist.Type = data.TypeSolo
		}

		if category, ok := genre.Normalize(row.Genre); ok {
			genreRow, err := database.EnsureGenre(ctx, row.Genre, category)
			if err != nil {
				return 0, err
			}
			artist.GenreID = &genreRow.ID
		}

		if err := database.InsertArtist(ctx, &artist); err != nil {
			return 0, err
		}
	}

	log.Infof("seeded %d artists from '%s'", len(rows), filename)
	return len(rows), nil
}
