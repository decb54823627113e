package fetcher

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/limiter"
	"github.com/soriapp/soria/retry"
	"github.com/soriapp/soria/spotify"
)

const (
	maxTopTracks = 10
	maxAlbums    = 20
)

// A Client is the slice of the upstream API the fetcher needs.
type Client interface {
	GetArtist(ctx context.Context, artistID string) (*spotify.ArtistProfile, error)
	GetTopTracks(ctx context.Context, artistID, country string) ([]spotify.Track, error)
	GetAlbums(ctx context.Context, artistID, country string, limit int) (*spotify.AlbumsPage, error)
}

func New(spo Client, lim *limiter.Limiter, handler *retry.Handler, country string) *Fetcher {
	return &Fetcher{
		spo:     spo,
		lim:     lim,
		handler: handler,
		country: country,
	}
}

type Fetcher struct {
	spo     Client
	lim     *limiter.Limiter
	handler *retry.Handler
	country string
}

// FetchDetail builds a fresh artist detail snapshot from three upstream
// calls, each behind a rate-limit slot and the retry policy. The profile
// call is the only hard failure path; top tracks and albums degrade to
// empty rather than failing the snapshot.
func (f *Fetcher) FetchDetail(ctx context.Context, artistID string) (*data.ArtistDetail, error) {
	if err := f.lim.Wait(ctx); err != nil {
		return nil, err
	}
	profile, err := retry.Execute(ctx, f.handler, fmt.Sprintf("get artist %s", artistID),
		func(ctx context.Context) (*spotify.ArtistProfile, error) {
			return f.spo.GetArtist(ctx, artistID)
		})
	if err != nil {
		return nil, fmt.Errorf("error fetching artist '%s': %w", artistID, err)
	}

	detail := &data.ArtistDetail{
		SpotifyID:  artistID,
		Name:       profile.Name,
		ImageURL:   firstImage(profile.ImageURLs),
		Popularity: profile.Popularity,
	}

	if err := f.lim.Wait(ctx); err != nil {
		return nil, err
	}
	tracks, err := retry.Execute(ctx, f.handler, fmt.Sprintf("get top tracks %s", artistID),
		func(ctx context.Context) ([]spotify.Track, error) {
			return f.spo.GetTopTracks(ctx, artistID, f.country)
		})
	if err != nil {
		log.Warnf("no top tracks for artist '%s': %s", artistID, err)
	} else {
		for _, track := range tracks {
			if len(detail.TopTracks) == maxTopTracks {
				break
			}
			detail.TopTracks = append(detail.TopTracks, data.TopTrack{
				Name:        track.Name,
				ExternalURL: track.ExternalURL,
			})
		}
	}

	if err := f.lim.Wait(ctx); err != nil {
		return nil, err
	}
	page, err := retry.Execute(ctx, f.handler, fmt.Sprintf("get albums %s", artistID),
		func(ctx context.Context) (*spotify.AlbumsPage, error) {
			return f.spo.GetAlbums(ctx, artistID, f.country, maxAlbums)
		})
	if err != nil {
		log.Warnf("no albums for artist '%s': %s", artistID, err)
	} else {
		detail.TotalAlbums = page.Total
		for _, album := range page.Items {
			if len(detail.Albums) == maxAlbums {
				break
			}
			if !keepAlbum(album, artistID) {
				continue
			}
			detail.Albums = append(detail.Albums, data.Album{
				Name:        album.Name,
				ReleaseDate: album.ReleaseDate,
				Type:        album.Type,
				ImageURL:    album.ImageURL,
				ExternalURL: album.ExternalURL,
			})
		}
	}

	return detail, nil
}

// keepAlbum keeps proper releases the artist is actually credited on,
// filtering out appearances-only entries.
func keepAlbum(album spotify.AlbumItem, artistID string) bool {
	switch album.Type {
	case "album", "single", "compilation":
	default:
		return false
	}
	for _, id := range album.ArtistIDs {
		if id == artistID {
			return true
		}
	}
	return false
}

func firstImage(urls []string) string {
	for _, url := range urls {
		if url != "" {
			return url
		}
	}
	return ""
}
