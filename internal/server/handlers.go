package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/opera-events/internal/event"
	"github.com/pfrederiksen/opera-events/internal/scraper"
)

// SearchRequest is the POST /search body
type SearchRequest struct {
	WorkID     *int    `json:"work_id"`
	SearchTerm *string `json:"search_term"`
}

// SearchResponse wraps search results with the echoed query
type SearchResponse struct {
	Query        string         `json:"query"`
	TotalResults int            `json:"total_results"`
	Results      []*event.Event `json:"results"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) searchGet(c *gin.Context) {
	var req SearchRequest
	if raw, ok := c.GetQuery("work_id"); ok {
		id, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(c, &scraper.InvalidQueryError{Reason: fmt.Sprintf("work_id must be an integer, got %q", raw)})
			return
		}
		req.WorkID = &id
	}
	if q, ok := c.GetQuery("q"); ok {
		req.SearchTerm = &q
	}
	s.search(c, req)
}

func (s *Server) searchPost(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Detail: "invalid request body: " + err.Error()})
		return
	}
	s.search(c, req)
}

func (s *Server) search(c *gin.Context, req SearchRequest) {
	q, err := req.query()
	if err != nil {
		s.writeError(c, err)
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, SearchResponse{
		Query:        q.String(),
		TotalResults: len(results),
		Results:      results,
	})
}

// query converts the request into a validated Query. Presence is what
// counts: {"work_id": 0} is a bad work id, not a missing one.
func (r SearchRequest) query() (scraper.Query, error) {
	if r.WorkID != nil && r.SearchTerm != nil {
		return scraper.Query{}, &scraper.InvalidQueryError{Reason: "provide either work_id or search term, not both"}
	}
	if r.WorkID != nil && *r.WorkID <= 0 {
		return scraper.Query{}, &scraper.InvalidQueryError{Reason: fmt.Sprintf("work_id must be positive, got %d", *r.WorkID)}
	}

	var q scraper.Query
	if r.WorkID != nil {
		q.WorkID = *r.WorkID
	}
	if r.SearchTerm != nil {
		q.Term = *r.SearchTerm
	}
	if err := q.Validate(); err != nil {
		return scraper.Query{}, err
	}
	return q, nil
}

func (s *Server) getOperas(c *gin.Context) {
	raw := c.Query("q")
	if raw == "" || utf8.RuneCountInString(raw) > scraper.MaxTermLength {
		s.writeError(c, &scraper.InvalidQueryError{
			Reason: fmt.Sprintf("q must be between 1 and %d characters", scraper.MaxTermLength),
		})
		return
	}

	q := scraper.ParseQuery(raw)
	if q.Term == "" && q.WorkID <= 0 && strings.TrimSpace(raw) != "" {
		s.writeError(c, &scraper.InvalidQueryError{Reason: fmt.Sprintf("work id must be positive, got %d", q.WorkID)})
		return
	}
	if err := q.Validate(); err != nil {
		s.writeError(c, err)
		return
	}

	results, err := s.searcher.Search(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func (s *Server) detail(c *gin.Context) {
	raw := c.Query("url")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		s.writeError(c, &scraper.InvalidQueryError{Reason: fmt.Sprintf("url must be an absolute http(s) address, got %q", raw)})
		return
	}
	if s.detailHost != "" && !strings.EqualFold(u.Host, s.detailHost) {
		s.writeError(c, &scraper.InvalidQueryError{Reason: fmt.Sprintf("url must be on %s, got %q", s.detailHost, u.Host)})
		return
	}

	info, err := s.searcher.Detail(c.Request.Context(), u.String())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// writeError maps rejected input to 400 and everything else, fetch
// failures included, to 500.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var qerr *scraper.InvalidQueryError
	if errors.As(err, &qerr) {
		status = http.StatusBadRequest
	}

	c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Detail: err.Error()})
}
