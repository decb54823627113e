package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/soriapp/soria/data"
	"github.com/soriapp/soria/db"
	"github.com/soriapp/soria/fetcher"
	"github.com/soriapp/soria/readthrough"
	"github.com/soriapp/soria/recommend"
)

func New(database *db.DB, guard *readthrough.Guard[*data.ArtistDetail], fetch *fetcher.Fetcher, rec *recommend.Recommender) *Server {
	return &Server{
		db:    database,
		guard: guard,
		fetch: fetch,
		rec:   rec,
	}
}

type Server struct {
	db    *db.DB
	guard *readthrough.Guard[*data.ArtistDetail]
	fetch *fetcher.Fetcher
	rec   *recommend.Recommender
}

// Run serves the API until ctx is canceled.
func (srv *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}

	errs := make(chan error)
	go func() { errs <- httpServer.ListenAndServe() }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		if err := httpServer.Shutdown(context.Background()); err != nil {
			return err
		}
		return <-errs
	}
}

func (srv *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	api.GET("/artists/:id", srv.getArtistDetail)
	api.GET("/artists/:id/related", srv.getRelatedArtists)

	return router
}

func (srv *Server) getArtistDetail(c *gin.Context) {
	artist, ok := srv.artistParam(c)
	if !ok {
		return
	}

	key := "artist:detail:" + artist.SpotifyID
	detail, err := srv.guard.GetOrFetch(c.Request.Context(), key,
		func(ctx context.Context) (*data.ArtistDetail, error) {
			return srv.fetch.FetchDetail(ctx, artist.SpotifyID)
		})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream fetch failed"})
		return
	}

	c.JSON(http.StatusOK, detail)
}

type relatedArtist struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	LocalName string `json:"local_name,omitempty"`
	GroupName string `json:"group_name,omitempty"`
	Type      string `json:"type"`
	LikeCount int64  `json:"like_count"`
}

// getRelatedArtists never reports pipeline failures outward; the worst
// case is an empty list.
func (srv *Server) getRelatedArtists(c *gin.Context) {
	artist, ok := srv.artistParam(c)
	if !ok {
		return
	}

	related := srv.rec.Related(c.Request.Context(), *artist)

	artists := make([]relatedArtist, len(related))
	for i, artist := range related {
		artists[i] = relatedArtist{
			ID:        artist.ID,
			Name:      artist.Name,
			LocalName: artist.LocalName,
			GroupName: artist.GroupName,
			Type:      artist.Type,
			LikeCount: artist.LikeCount,
		}
	}

	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

func (srv *Server) artistParam(c *gin.Context) (*data.Artist, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid artist id"})
		return nil, false
	}

	artist, err := srv.db.GetArtist(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown artist"})
		return nil, false
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, false
	}

	return artist, true
}
