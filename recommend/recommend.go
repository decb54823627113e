package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/soriapp/soria/data"
)

const (
	maxResults = 5

	genrePoolCap   = 200
	groupPoolCap   = 5
	typePoolCap    = 50
	typeFallbackAt = 10

	groupBonus          = 80.0
	genreBonus          = 60.0
	genreBonusWithGroup = 30.0
	typeBonus           = 15.0
	likeBonusCap        = 15.0
	likeBonusThreshold  = 30.0

	tieBuckets = 10000
)

// A Lookup provides the candidate queries the recommender recalls from.
// Each excludes the base artist and is capped by the limit parameter.
type Lookup interface {
	ArtistsByGenre(ctx context.Context, genreID, excludeID int64, limit int) ([]data.Artist, error)
	ArtistsByGroup(ctx context.Context, group string, excludeID int64, limit int) ([]data.Artist, error)
	ArtistsByType(ctx context.Context, typ string, excludeID int64, limit int) ([]data.Artist, error)
}

func New(lookup Lookup) *Recommender {
	return &Recommender{lookup: lookup}
}

type Recommender struct {
	lookup Lookup
}

// Related returns up to five artists related to base, deterministic for a
// fixed dataset. Recommendations are presentation, not critical path:
// any pipeline failure yields an empty list, never an error.
func (rec *Recommender) Related(ctx context.Context, base data.Artist) []data.Artist {
	related, err := rec.related(ctx, base)
	if err != nil {
		log.Warnf("error recommending related artists for %d: %s", base.ID, err)
		return nil
	}
	return related
}

func (rec *Recommender) related(ctx context.Context, base data.Artist) ([]data.Artist, error) {
	candidates, err := rec.recall(ctx, base)
	if err != nil {
		return nil, err
	}

	scored := scoreAll(base, candidates)
	sortScored(scored)

	return diversify(base, scored), nil
}

// recall unions three candidate pools: same genre, same group, and, only
// when the pool is still thin, same type. Candidates are deduplicated by
// ID; the base artist is excluded in the queries.
func (rec *Recommender) recall(ctx context.Context, base data.Artist) ([]data.Artist, error) {
	var pool []data.Artist
	seen := map[int64]struct{}{base.ID: {}}

	add := func(artists []data.Artist) {
		for _, artist := range artists {
			if _, dup := seen[artist.ID]; dup {
				continue
			}
			seen[artist.ID] = struct{}{}
			pool = append(pool, artist)
		}
	}

	if base.GenreID != nil {
		artists, err := rec.lookup.ArtistsByGenre(ctx, *base.GenreID, base.ID, genrePoolCap)
		if err != nil {
			return nil, fmt.Errorf("error recalling genre candidates: %w", err)
		}
		add(artists)
	}

	if strings.TrimSpace(base.GroupName) != "" {
		artists, err := rec.lookup.ArtistsByGroup(ctx, base.GroupName, base.ID, groupPoolCap)
		if err != nil {
			return nil, fmt.Errorf("error recalling group candidates: %w", err)
		}
		add(artists)
	}

	if len(pool) < typeFallbackAt {
		artists, err := rec.lookup.ArtistsByType(ctx, base.Type, base.ID, typePoolCap)
		if err != nil {
			return nil, fmt.Errorf("error recalling type candidates: %w", err)
		}
		add(artists)
	}

	return pool, nil
}

type scoredCandidate struct {
	artist data.Artist
	score  float64

	sameGroup bool
	sameGenre bool
}

func scoreAll(base data.Artist, candidates []data.Artist) []scoredCandidate {
	scored := make([]scoredCandidate, len(candidates))
	for i, candidate := range candidates {
		scored[i] = score(base, candidate)
	}
	return scored
}

func score(base, candidate data.Artist) scoredCandidate {
	sc := scoredCandidate{artist: candidate}

	sc.sameGroup = base.GroupName != "" && candidate.GroupName == base.GroupName
	sc.sameGenre = base.GenreID != nil && candidate.GenreID != nil &&
		*candidate.GenreID == *base.GenreID

	total := 0.0
	if sc.sameGroup {
		total += groupBonus
	}
	if sc.sameGenre {
		// Halved when the group bonus already applied, so one shared
		// attribute cannot dominate twice over.
		if sc.sameGroup {
			total += genreBonusWithGroup
		} else {
			total += genreBonus
		}
	}
	if candidate.Type != "" && candidate.Type == base.Type {
		total += typeBonus
	}

	// Popularity only boosts candidates that already earned relevance.
	if total >= likeBonusThreshold {
		total += math.Min(likeBonusCap, 5*math.Log(float64(candidate.LikeCount)+1))
	}

	sc.score = total + tieBreak(base.ID, candidate.ID)
	return sc
}

// tieBreak spreads equal scores deterministically: stable for one base
// artist across repeated calls, different between base artists. FNV-1a is
// pinned so the ordering is reproducible across platforms. The term is
// bounded below 1.0 and can never reorder scores a full point apart.
func tieBreak(baseID, candidateID int64) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d-%d", baseID, candidateID)
	return float64(h.Sum32()%tieBuckets) / tieBuckets
}

// sortScored orders by score, then by a fully deterministic chain: like
// count, localized display name, upstream ID, internal ID.
func sortScored(scored []scoredCandidate) {
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.artist.LikeCount != b.artist.LikeCount {
			return a.artist.LikeCount > b.artist.LikeCount
		}
		if an, bn := a.artist.DisplayName(), b.artist.DisplayName(); an != bn {
			return an < bn
		}
		if a.artist.SpotifyID != b.artist.SpotifyID {
			return a.artist.SpotifyID < b.artist.SpotifyID
		}
		return a.artist.ID < b.artist.ID
	})
}

// diversify allocates the final five slots: at most two from the base
// artist's group and three from its genre, the rest from everything else,
// backfilling genre then group leftovers only when the other pool runs
// dry. Score order is preserved within each slot.
func diversify(base data.Artist, scored []scoredCandidate) []data.Artist {
	var groupPool, genrePool, otherPool []scoredCandidate
	for _, sc := range scored {
		switch {
		case sc.sameGroup:
			groupPool = append(groupPool, sc)
		case sc.sameGenre:
			genrePool = append(genrePool, sc)
		default:
			otherPool = append(otherPool, sc)
		}
	}

	const (
		groupSlots = 2
		genreSlots = 3
	)

	var result []data.Artist
	take := func(pool []scoredCandidate, n int) []scoredCandidate {
		for len(pool) > 0 && n > 0 && len(result) < maxResults {
			result = append(result, pool[0].artist)
			pool = pool[1:]
			n--
		}
		return pool
	}

	groupPool = take(groupPool, groupSlots)
	genrePool = take(genrePool, genreSlots)
	take(otherPool, maxResults)
	take(genrePool, maxResults)
	take(groupPool, maxResults)

	return result
}
