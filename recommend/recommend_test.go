package recommend_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/recommend"
)

// fakeLookup serves candidate queries from an in-memory artist list.
type fakeLookup struct {
	artists []data.Artist
	fail    bool

	typeQueries int
}

func (f *fakeLookup) ArtistsByGenre(ctx context.Context, genreID, excludeID int64, limit int) ([]data.Artist, error) {
	if f.fail {
		return nil, errors.New("db down")
	}
	return f.filter(limit, func(a data.Artist) bool {
		return a.GenreID != nil && *a.GenreID == genreID && a.ID != excludeID
	}), nil
}

func (f *fakeLookup) ArtistsByGroup(ctx context.Context, group string, excludeID int64, limit int) ([]data.Artist, error) {
	if f.fail {
		return nil, errors.New("db down")
	}
	return f.filter(limit, func(a data.Artist) bool {
		return a.GroupName == group && a.ID != excludeID
	}), nil
}

func (f *fakeLookup) ArtistsByType(ctx context.Context, typ string, excludeID int64, limit int) ([]data.Artist, error) {
	f.typeQueries++
	if f.fail {
		return nil, errors.New("db down")
	}
	return f.filter(limit, func(a data.Artist) bool {
		return a.Type == typ && a.ID != excludeID
	}), nil
}

func (f *fakeLookup) filter(limit int, keep func(data.Artist) bool) []data.Artist {
	var out []data.Artist
	for _, a := range f.artists {
		if keep(a) {
			out = append(out, a)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func genreID(id int64) *int64 { return &id }

func TestRelatedIsDeterministic(t *testing.T) {
	lookup := &fakeLookup{}
	for i := int64(1); i <= 30; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID:        i,
			SpotifyID: fmt.Sprintf("spot-%03d", i),
			Name:      fmt.Sprintf("artist-%03d", i),
			Type:      data.TypeSolo,
			GenreID:   genreID(7),
			LikeCount: i % 5,
		})
	}
	rec := recommend.New(lookup)
	base := data.Artist{ID: 100, Type: data.TypeSolo, GenreID: genreID(7)}

	first := rec.Related(context.Background(), base)
	second := rec.Related(context.Background(), base)

	require.NotEmpty(t, first)
	assert.LessOrEqual(t, len(first), 5)
	assert.Equal(t, first, second)
}

func TestRelatedCapsGroupAndGenre(t *testing.T) {
	lookup := &fakeLookup{}
	// Plenty of groupmates and genre-mates, plus others, so the caps
	// bind: at most 2 from the group, 3 from the genre.
	for i := int64(1); i <= 5; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID:        i,
			SpotifyID: fmt.Sprintf("grp-%d", i),
			Name:      fmt.Sprintf("member-%d", i),
			GroupName: "newjeans",
			Type:      data.TypeSolo,
			GenreID:   genreID(7),
			LikeCount: 100,
		})
	}
	for i := int64(10); i <= 30; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID:        i,
			SpotifyID: fmt.Sprintf("gen-%d", i),
			Name:      fmt.Sprintf("genremate-%d", i),
			Type:      data.TypeSolo,
			GenreID:   genreID(7),
			LikeCount: 50,
		})
	}
	for i := int64(40); i <= 60; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID:        i,
			SpotifyID: fmt.Sprintf("oth-%d", i),
			Name:      fmt.Sprintf("other-%d", i),
			Type:      data.TypeSolo,
			GenreID:   genreID(9),
			LikeCount: 10,
		})
	}
	rec := recommend.New(lookup)
	base := data.Artist{ID: 100, GroupName: "newjeans", Type: data.TypeSolo, GenreID: genreID(7)}

	related := rec.Related(context.Background(), base)
	require.Len(t, related, 5)

	sameGroup, sameGenre := 0, 0
	for _, artist := range related {
		if artist.GroupName == base.GroupName {
			sameGroup++
		} else if artist.GenreID != nil && *artist.GenreID == *base.GenreID {
			sameGenre++
		}
	}
	assert.Equal(t, 2, sameGroup)
	assert.Equal(t, 3, sameGenre)
}

func TestRelatedBackfillsWhenOthersRunOut(t *testing.T) {
	lookup := &fakeLookup{}
	// Only genre-mates exist; the genre cap relaxes to fill the list.
	for i := int64(1); i <= 20; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID:        i,
			SpotifyID: fmt.Sprintf("gen-%d", i),
			Name:      fmt.Sprintf("genremate-%d", i),
			Type:      data.TypeGroup,
			GenreID:   genreID(7),
			LikeCount: 10,
		})
	}
	rec := recommend.New(lookup)
	base := data.Artist{ID: 100, Type: data.TypeGroup, GenreID: genreID(7)}

	related := rec.Related(context.Background(), base)
	assert.Len(t, related, 5)
}

func TestGroupOutranksGenreOnly(t *testing.T) {
	lookup := &fakeLookup{
		artists: []data.Artist{
			{ID: 1, SpotifyID: "a", Name: "groupmate", GroupName: "g", Type: data.TypeSolo, GenreID: genreID(9)},
			{ID: 2, SpotifyID: "b", Name: "genremate", Type: data.TypeSolo, GenreID: genreID(7)},
		},
	}
	rec := recommend.New(lookup)
	base := data.Artist{ID: 100, GroupName: "g", Type: data.TypeGroup, GenreID: genreID(7)}

	// Base scores 80 (group) vs 60 (genre); the bounded tie term can
	// never flip a 20-point margin.
	related := rec.Related(context.Background(), base)
	require.Len(t, related, 2)
	assert.Equal(t, "groupmate", related[0].Name)
	assert.Equal(t, "genremate", related[1].Name)
}

func TestTypeFallbackOnlyWhenPoolIsThin(t *testing.T) {
	thin := &fakeLookup{}
	for i := int64(1); i <= 3; i++ {
		thin.artists = append(thin.artists, data.Artist{
			ID: i, SpotifyID: fmt.Sprintf("s-%d", i), Name: fmt.Sprintf("a-%d", i),
			Type: data.TypeSolo, GenreID: genreID(7),
		})
	}
	recommend.New(thin).Related(context.Background(),
		data.Artist{ID: 100, Type: data.TypeSolo, GenreID: genreID(7)})
	assert.Equal(t, 1, thin.typeQueries, "a thin pool should fall back to same-type recall")

	rich := &fakeLookup{}
	for i := int64(1); i <= 15; i++ {
		rich.artists = append(rich.artists, data.Artist{
			ID: i, SpotifyID: fmt.Sprintf("s-%d", i), Name: fmt.Sprintf("a-%d", i),
			Type: data.TypeSolo, GenreID: genreID(7),
		})
	}
	recommend.New(rich).Related(context.Background(),
		data.Artist{ID: 100, Type: data.TypeSolo, GenreID: genreID(7)})
	assert.Equal(t, 0, rich.typeQueries, "a full pool should skip same-type recall")
}

func TestExcludesSelf(t *testing.T) {
	lookup := &fakeLookup{
		artists: []data.Artist{
			{ID: 100, SpotifyID: "self", Name: "self", Type: data.TypeSolo, GenreID: genreID(7)},
			{ID: 2, SpotifyID: "peer", Name: "peer", Type: data.TypeSolo, GenreID: genreID(7)},
		},
	}
	rec := recommend.New(lookup)
	base := data.Artist{ID: 100, SpotifyID: "self", Type: data.TypeSolo, GenreID: genreID(7)}

	related := rec.Related(context.Background(), base)
	for _, artist := range related {
		assert.NotEqual(t, base.ID, artist.ID)
	}
}

func TestPipelineFailureYieldsEmptyList(t *testing.T) {
	rec := recommend.New(&fakeLookup{fail: true})
	base := data.Artist{ID: 100, Type: data.TypeSolo, GenreID: genreID(7)}

	related := rec.Related(context.Background(), base)
	assert.Empty(t, related)
}

func TestNoGenreNoGroupStillRecommends(t *testing.T) {
	lookup := &fakeLookup{}
	for i := int64(1); i <= 8; i++ {
		lookup.artists = append(lookup.artists, data.Artist{
			ID: i, SpotifyID: fmt.Sprintf("s-%d", i), Name: fmt.Sprintf("a-%d", i),
			Type: data.TypeGroup,
		})
	}
	rec := recommend.New(lookup)

	related := rec.Related(context.Background(), data.Artist{ID: 100, Type: data.TypeGroup})
	assert.NotEmpty(t, related)
	assert.LessOrEqual(t, len(related), 5)
}
