package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pfrederiksen/opera-events/internal/config"
	"github.com/pfrederiksen/opera-events/internal/event"
	"github.com/pfrederiksen/opera-events/internal/metrics"
	"github.com/pfrederiksen/opera-events/internal/scraper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockSearcher is a mock implementation of Searcher
type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q scraper.Query) ([]*event.Event, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

func (m *MockSearcher) Detail(ctx context.Context, detailURL string) (*event.DetailInfo, error) {
	args := m.Called(ctx, detailURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.DetailInfo), args.Error(1)
}

func setupTestServer(searcher Searcher) *Server {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	return New(searcher, Options{
		Logger:   zap.NewNop(),
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	})
}

func sampleEvents() []*event.Event {
	return []*event.Event{
		event.NewEvent("Gianni Schicchi", "Berlin", "Deutsche Oper Berlin",
			time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC),
			"https://bachtrack.com/opera-event/gianni-schicchi/428220"),
		event.NewEvent("Gianni Schicchi", "Berlin", "Deutsche Oper Berlin",
			time.Date(2026, time.April, 10, 0, 0, 0, 0, time.UTC), ""),
	}
}

func doRequest(s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Detail
}

func TestHealth(t *testing.T) {
	s := setupTestServer(new(MockSearcher))

	w := doRequest(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSearchGet_WorkID(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, scraper.Query{WorkID: 12285}).Return(sampleEvents(), nil)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/search?work_id=12285", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"query": "12285",
		"total_results": 2,
		"results": [
			{"title":"Gianni Schicchi","city":"Berlin","date":"2026-04-05T00:00:00Z","venue":"Deutsche Oper Berlin","detail_url":"https://bachtrack.com/opera-event/gianni-schicchi/428220"},
			{"title":"Gianni Schicchi","city":"Berlin","date":"2026-04-10T00:00:00Z","venue":"Deutsche Oper Berlin","detail_url":null}
		]
	}`, w.Body.String())
	mockSearcher.AssertExpectations(t)
}

func TestSearchGet_Freetext(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, scraper.Query{Term: "Il barbiere di Siviglia"}).Return([]*event.Event{}, nil)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/search?q=Il+barbiere+di+Siviglia", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"query":"Il barbiere di Siviglia","total_results":0,"results":[]}`, w.Body.String())
	mockSearcher.AssertExpectations(t)
}

func TestSearchGet_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"neither", "/api/v1/events/search"},
		{"both", "/api/v1/events/search?work_id=1&q=tosca"},
		{"non-integer work id", "/api/v1/events/search?work_id=abc"},
		{"zero work id", "/api/v1/events/search?work_id=0"},
		{"negative work id", "/api/v1/events/search?work_id=-4"},
		{"empty term", "/api/v1/events/search?q="},
		{"term too long", "/api/v1/events/search?q=" + strings.Repeat("a", 201)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSearcher := new(MockSearcher)
			s := setupTestServer(mockSearcher)

			w := doRequest(s, http.MethodGet, tt.target, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decodeDetail(t, w))
			mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestSearchPost(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, scraper.Query{Term: "tosca"}).Return(sampleEvents()[:1], nil)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodPost, "/api/v1/events/search", []byte(`{"search_term":"tosca"}`))

	require.Equal(t, http.StatusOK, w.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "tosca", resp.Query)
	assert.Equal(t, 1, resp.TotalResults)
	assert.Len(t, resp.Results, 1)
}

func TestSearchPost_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"both", `{"work_id": 3, "search_term": "tosca"}`},
		{"zero work id", `{"work_id": 0}`},
		{"malformed json", `{"work_id":`},
		{"wrong type", `{"work_id": "twelve"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSearcher := new(MockSearcher)
			s := setupTestServer(mockSearcher)

			w := doRequest(s, http.MethodPost, "/api/v1/events/search", []byte(tt.body))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestSearch_FetchErrorIs500(t *testing.T) {
	mockSearcher := new(MockSearcher)
	fetchErr := &scraper.FetchError{URL: "https://bachtrack.com/search-opera/work=1", StatusCode: http.StatusBadGateway}
	mockSearcher.On("Search", mock.Anything, scraper.Query{WorkID: 1}).Return(nil, fetchErr)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/search?work_id=1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, fetchErr.Error(), decodeDetail(t, w))
}

func TestGetOperas(t *testing.T) {
	tests := []struct {
		name  string
		q     string
		query scraper.Query
	}{
		{"numeric is work id", "12285", scraper.Query{WorkID: 12285}},
		{"text is freetext", "gianni%20schicchi", scraper.Query{Term: "gianni schicchi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSearcher := new(MockSearcher)
			mockSearcher.On("Search", mock.Anything, tt.query).Return(sampleEvents(), nil)
			s := setupTestServer(mockSearcher)

			w := doRequest(s, http.MethodGet, "/api/v1/events/get_operas?q="+tt.q, nil)

			require.Equal(t, http.StatusOK, w.Code)
			var results []map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
			assert.Len(t, results, 2)
			mockSearcher.AssertExpectations(t)
		})
	}
}

func TestGetOperas_EmptyListIsArray(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, scraper.Query{Term: "nothing"}).Return([]*event.Event{}, nil)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/get_operas?q=nothing", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestGetOperas_MissingQuery(t *testing.T) {
	s := setupTestServer(new(MockSearcher))

	w := doRequest(s, http.MethodGet, "/api/v1/events/get_operas", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetOperas_NonPositiveWorkID(t *testing.T) {
	for _, q := range []string{"0", "-3"} {
		mockSearcher := new(MockSearcher)
		s := setupTestServer(mockSearcher)

		w := doRequest(s, http.MethodGet, "/api/v1/events/get_operas?q="+q, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code, "q=%s", q)
		assert.Contains(t, decodeDetail(t, w), "work id must be positive")
		mockSearcher.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	}
}

func TestDetail(t *testing.T) {
	address := "Bismarckstraße 35, 10627 Berlin"
	info := event.NewDetailInfo()
	info.Address = &address
	info.Metadata["conductor"] = "Donald Runnicles"

	target := "https://bachtrack.com/opera-event/gianni-schicchi/428220"
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Detail", mock.Anything, target).Return(info, nil)
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/detail?url="+target, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"address":"Bismarckstraße 35, 10627 Berlin","conductor":"Donald Runnicles"}`, w.Body.String())
}

func TestDetail_InvalidURL(t *testing.T) {
	for _, target := range []string{"", "/opera-event/x/1", "ftp://bachtrack.com/x"} {
		mockSearcher := new(MockSearcher)
		s := setupTestServer(mockSearcher)

		w := doRequest(s, http.MethodGet, "/api/v1/events/detail?url="+target, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code, "url %q", target)
		mockSearcher.AssertNotCalled(t, "Detail", mock.Anything, mock.Anything)
	}
}

func TestDetail_RestrictedHost(t *testing.T) {
	target := "https://bachtrack.com/opera-event/tosca/1"
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Detail", mock.Anything, target).Return(event.NewDetailInfo(), nil)

	gin.SetMode(gin.TestMode)
	s := New(mockSearcher, Options{Logger: zap.NewNop(), DetailHost: "bachtrack.com"})

	for _, other := range []string{"http://169.254.169.254/latest/meta-data", "http://localhost:8080/admin", "https://bachtrack.com.evil.org/x"} {
		w := doRequest(s, http.MethodGet, "/api/v1/events/detail?url="+other, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "url %q", other)
	}
	mockSearcher.AssertNotCalled(t, "Detail", mock.Anything, mock.Anything)

	w := doRequest(s, http.MethodGet, "/api/v1/events/detail?url="+target, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mockSearcher.AssertExpectations(t)
}

func TestDetail_FetchError(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Detail", mock.Anything, "https://bachtrack.com/x").
		Return(nil, &scraper.FetchError{URL: "https://bachtrack.com/x", Err: errors.New("timeout")})
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/detail?url=https://bachtrack.com/x", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, mock.Anything).Return([]*event.Event{}, nil)
	s := setupTestServer(mockSearcher)

	doRequest(s, http.MethodGet, "/api/v1/events/search?q=tosca", nil)
	w := doRequest(s, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `opera_events_http_requests_total{method="GET",route="/api/v1/events/search",status="200"} 1`)
}

func TestRecovery(t *testing.T) {
	mockSearcher := new(MockSearcher)
	mockSearcher.On("Search", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	})
	s := setupTestServer(mockSearcher)

	w := doRequest(s, http.MethodGet, "/api/v1/events/search?q=tosca", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeDetail(t, w))
}

func TestServe_GracefulShutdown(t *testing.T) {
	s := setupTestServer(new(MockSearcher))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, ln, config.ServerConfig{ReadTimeout: time.Second, WriteTimeout: time.Second})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
