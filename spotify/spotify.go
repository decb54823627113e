package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2/clientcredentials"
)

const (
	apiBase  = "https://api.spotify.com/v1"
	tokenURL = "https://accounts.spotify.com/api/token"
)

// New creates a new Spotify client with the given clientID and
// clientSecret. Tokens are fetched lazily through the client-credentials
// flow and cached until shortly before expiry.
func New(clientID, clientSecret string) *Client {
	return &Client{
		conf: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
		},
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    apiBase,
	}
}

type Client struct {
	mu sync.Mutex

	conf       *clientcredentials.Config
	httpClient *http.Client
	baseURL    string

	accessToken string
	expiresAt   time.Time
}

// A StatusError is returned for any non-2xx upstream response, so callers
// can branch on the status code instead of matching message strings.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify: status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err wraps a StatusError with the given code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

// ForceRefreshToken drops the cached access token and fetches a new one.
// The retry layer calls this when an upstream response comes back 401.
func (spo *Client) ForceRefreshToken(ctx context.Context) error {
	spo.mu.Lock()
	spo.accessToken = ""
	spo.expiresAt = time.Time{}
	spo.mu.Unlock()

	_, err := spo.token(ctx)
	return err
}

// An ArtistProfile is one artist's upstream profile.
type ArtistProfile struct {
	ID         string
	Name       string
	Popularity int64
	ImageURLs  []string
	Genres     []string
	Followers  int64
}

func (spo *Client) GetArtist(ctx context.Context, artistID string) (*ArtistProfile, error) {
	var result struct {
		ID     string
		Name   string
		Genres []string
		Images []struct {
			URL string
		}
		Popularity int64
		Followers  struct {
			Total int64
		}
	}
	if err := spo.get(ctx, "/artists/"+artistID, nil, &result); err != nil {
		return nil, err
	}

	profile := &ArtistProfile{
		ID:         result.ID,
		Name:       result.Name,
		Popularity: result.Popularity,
		Genres:     result.Genres,
		Followers:  result.Followers.Total,
	}
	for _, image := range result.Images {
		profile.ImageURLs = append(profile.ImageURLs, image.URL)
	}
	return profile, nil
}

type Track struct {
	ID          string
	Name        string
	ExternalURL string
	Popularity  int64
}

// GetTopTracks fetches an artist's top tracks, scoped to the given country
// code.
func (spo *Client) GetTopTracks(ctx context.Context, artistID, country string) ([]Track, error) {
	query := url.Values{}
	query.Set("market", country)

	var result struct {
		Tracks []struct {
			ID           string
			Name         string
			Popularity   int64
			ExternalURLs struct {
				Spotify string
			} `json:"external_urls"`
		}
	}
	if err := spo.get(ctx, fmt.Sprintf("/artists/%s/top-tracks", artistID), query, &result); err != nil {
		return nil, err
	}

	tracks := make([]Track, len(result.Tracks))
	for i, track := range result.Tracks {
		tracks[i] = Track{
			ID:          track.ID,
			Name:        track.Name,
			ExternalURL: track.ExternalURLs.Spotify,
			Popularity:  track.Popularity,
		}
	}
	return tracks, nil
}

type AlbumsPage struct {
	Total int64
	Items []AlbumItem
}

type AlbumItem struct {
	ID          string
	Name        string
	Type        string
	ReleaseDate string
	ImageURL    string
	ExternalURL string

	// IDs of every artist credited on the album.
	ArtistIDs []string
}

// GetAlbums fetches one page of an artist's albums, scoped to the given
// country code and capped at limit items.
func (spo *Client) GetAlbums(ctx context.Context, artistID, country string, limit int) (*AlbumsPage, error) {
	query := url.Values{}
	query.Set("market", country)
	query.Set("limit", fmt.Sprintf("%d", limit))

	var result struct {
		Total int64
		Items []struct {
			ID          string
			Name        string
			AlbumType   string `json:"album_type"`
			ReleaseDate string `json:"release_date"`
			Images      []struct {
				URL string
			}
			ExternalURLs struct {
				Spotify string
			} `json:"external_urls"`
			Artists []struct {
				ID   string
				Name string
			}
		}
	}
	if err := spo.get(ctx, fmt.Sprintf("/artists/%s/albums", artistID), query, &result); err != nil {
		return nil, err
	}

	page := &AlbumsPage{Total: result.Total}
	for _, item := range result.Items {
		album := AlbumItem{
			ID:          item.ID,
			Name:        item.Name,
			Type:        item.AlbumType,
			ReleaseDate: item.ReleaseDate,
			ExternalURL: item.ExternalURLs.Spotify,
		}
		for _, image := range item.Images {
			if image.URL != "" {
				album.ImageURL = image.URL
				break
			}
		}
		for _, artist := range item.Artists {
			album.ArtistIDs = append(album.ArtistIDs, artist.ID)
		}
		page.Items = append(page.Items, album)
	}
	return page, nil
}

func (spo *Client) get(ctx context.Context, path string, query url.Values, into any) error {
	u := spo.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}

	token, err := spo.token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := spo.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bs, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StatusError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(bs)),
		}
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("decode error for '%s': %w", path, err)
	}
	return nil
}

func (spo *Client) token(ctx context.Context) (string, error) {
	spo.mu.Lock()
	defer spo.mu.Unlock()

	if spo.accessToken != "" && spo.expiresAt.After(time.Now().Add(time.Second)) {
		return spo.accessToken, nil
	}

	tok, err := spo.conf.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("token fetch error: %w", err)
	}

	spo.accessToken = tok.AccessToken
	spo.expiresAt = tok.Expiry
	return spo.accessToken, nil
}
