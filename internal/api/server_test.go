package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/narabid/bid-crawler/internal/bid"
	"github.com/narabid/bid-crawler/internal/filter"
	"github.com/narabid/bid-crawler/internal/job"
	"github.com/narabid/bid-crawler/internal/sink"
)

type navGate struct{ gate chan struct{} }

func (n navGate) EnsureAtSearchForm(ctx context.Context) bool {
	if n.gate != nil {
		<-n.gate
	}
	return false
}

type noSearch struct{}

func (noSearch) ConfigureOptions(ctx context.Context) bool               { return true }
func (noSearch) SubmitKeyword(ctx context.Context, keyword string) bool { return false }

type noRows struct{}

func (noRows) Extract(ctx context.Context) []bid.CandidateRecord { return nil }

type admitNone struct{}

func (admitNone) Accept(c bid.CandidateRecord, seen *filter.SeenSet) bool { return false }

type clockNow struct{}

func (clockNow) Now() time.Time { return time.Now().UTC() }

type staticIDs struct{}

func (staticIDs) NewID() (string, error) { return "job-test", nil }

func testServer(t *testing.T, gate chan struct{}) (*Server, *job.Runner) {
	t.Helper()
	runner := job.NewRunner(job.Deps{
		Navigator: navGate{gate},
		Searcher:  noSearch{},
		Rows:      noRows{},
		Admitter:  admitNone{},
		Sink:      sink.NewMemory(),
		Clock:     clockNow{},
		IDs:       staticIDs{},
	}, job.Config{
		MinDelay:           time.Millisecond,
		MaxDelay:           time.Millisecond,
		CheckpointInterval: time.Hour,
	}, nil)
	return NewServer(runner, nil), runner
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t, nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestStartCrawlAccepted(t *testing.T) {
	t.Parallel()
	srv, runner := testServer(t, nil)

	body := strings.NewReader(`{"keywords": ["AI", "소프트웨어"]}`)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/crawl", body))

	require.Equal(t, http.StatusAccepted, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "job-test", resp["job_id"])
	runner.Wait()
}

func TestStartCrawlValidation(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t, nil)

	for name, body := range map[string]string{
		"empty keywords": `{"keywords": []}`,
		"malformed json": `{keywords}`,
	} {
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rr.Code, name)
	}
}

func TestStartCrawlConflictWhileRunning(t *testing.T) {
	t.Parallel()
	gate := make(chan struct{})
	srv, runner := testServer(t, gate)

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(`{"keywords": ["AI"]}`)))
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/crawl", strings.NewReader(`{"keywords": ["other"]}`)))
	require.Equal(t, http.StatusConflict, rr.Code)

	close(gate)
	runner.Wait()
}

func TestStatusAndResults(t *testing.T) {
	t.Parallel()
	srv, runner := testServer(t, nil)

	_, err := runner.Start(context.Background(), []string{"AI"})
	require.NoError(t, err)
	runner.Wait()

	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var state bid.JobState
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	require.Equal(t, "job-test", state.JobID)
	require.False(t, state.IsRunning)
	require.Equal(t, 1, state.ProcessedCount)

	rr = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/results", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var results bid.ResultSet
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Equal(t, 1, results.ProcessedKeywords)
	require.Empty(t, results.Results)
}

func TestStopEndpoint(t *testing.T) {
	t.Parallel()
	srv, _ := testServer(t, nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/stop", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
}
