package data

// Artist types. Groups carry a group name shared by their members; solo
// acts leave it blank.
const (
	TypeSolo  = "SOLO"
	TypeGroup = "GROUP"
)

// Artists holds the acts we know about locally. Artists reference a single
// primary genre; the reference may be null only while seeding is still
// filling the genres table.
type Artist struct {
	ID int64

	// like "3Nrfpe0tUJi4K4DXYWgMUX"
	SpotifyID string

	Name string

	// Localized display name, like "방탄소년단". May be blank.
	LocalName string

	// Shared by every member of a group, blank for solo acts that
	// belong to no group.
	GroupName string

	// TypeSolo or TypeGroup.
	Type string

	GenreID *int64

	LikeCount int64
}

// DisplayName prefers the localized name, falling back to the primary one.
func (a Artist) DisplayName() string {
	if a.LocalName != "" {
		return a.LocalName
	}
	return a.Name
}

// Genres holds raw genre tags together with the taxonomy category they
// normalize into.
type Genre struct {
	ID int64

	// like "k-pop"
	Name string

	// like "KOREAN"
	Category string
}

// ArtistDetail is the snapshot of one artist's upstream profile that we
// keep in the cache. It is built fresh on every upstream fetch, never
// mutated afterward, and superseded wholesale when its TTL lapses.
type ArtistDetail struct {
	SpotifyID  string     `json:"spotify_id"`
	Name       string     `json:"name"`
	ImageURL   string     `json:"image_url"`
	Popularity int64      `json:"popularity"`
	TopTracks  []TopTrack `json:"top_tracks"`
	Albums     []Album    `json:"albums"`

	// Upstream's count of the artist's albums, which may exceed
	// len(Albums).
	TotalAlbums int64 `json:"total_albums"`
}

type TopTrack struct {
	Name        string `json:"name"`
	ExternalURL string `json:"external_url"`
}

type Album struct {
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	Type        string `json:"type"`
	ImageURL    string `json:"image_url"`
	ExternalURL string `json:"external_url"`
}
