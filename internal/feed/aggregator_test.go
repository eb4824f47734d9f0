package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"jobfeed-engine/internal/config"
	"jobfeed-engine/internal/domain"
	"jobfeed-engine/internal/feed/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func jsonServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"down"}`, http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func source(t *testing.T, name, kind, url string) Source {
	t.Helper()
	k, ok := LookupKind(kind)
	require.True(t, ok, kind)
	return Source{Name: name, Kind: kind, URL: url, Fallback: k.Fallback, Normalize: k.Normalize}
}

func newTestAggregator(timeout time.Duration, sources ...Source) *Aggregator {
	return New(NewClient(&http.Client{}, timeout, nil, ""), sources, discardLogger())
}

func slugs(jobs []domain.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Slug)
	}
	return out
}

func TestAggregate_PartialFailure(t *testing.T) {
	a := jsonServer(t, `{"data":[{"slug":"x","title":"Engineer","company_name":"Acme","tags":["go"]}]}`)
	b := jsonServer(t, `{"jobs":[{"id":7,"title":"PM","company_name":"Beta","candidate_required_location":"EU"}]}`)
	c := failingServer(t)

	agg := newTestAggregator(time.Second,
		source(t, "sourceA", config.KindArbeitnow, a.URL),
		source(t, "sourceB", config.KindRemotive, b.URL),
		source(t, "sourceC", config.KindJobicy, c.URL),
	)

	jobs, rep, err := agg.AggregateWithReport(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, []string{"x", "sourceB-7"}, slugs(jobs))
	assert.Equal(t, "Engineer", jobs[0].Title)
	assert.Equal(t, "EU", jobs[1].Location)

	assert.Equal(t, 2, rep.Total)
	assert.Equal(t, 1, rep.Failed())
	assert.Equal(t, http.StatusBadGateway, rep.Sources[2].Status)
	assert.Equal(t, 1, rep.Sources[0].Records)

	last, ok := agg.Last()
	require.True(t, ok)
	assert.Equal(t, rep.Total, last.Total)
}

func TestAggregate_FirstSourceWinsCollision(t *testing.T) {
	a := jsonServer(t, `{"data":[{"slug":"sourceB-7","title":"First"}]}`)
	b := jsonServer(t, `{"jobs":[{"id":7,"title":"Second"},{"id":8,"title":"Other"}]}`)

	agg := newTestAggregator(time.Second,
		source(t, "sourceA", config.KindArbeitnow, a.URL),
		source(t, "sourceB", config.KindRemotive, b.URL),
	)

	jobs, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "First", jobs[0].Title)
	assert.Equal(t, "sourceA", jobs[0].Source)
	assert.Equal(t, "sourceB-8", jobs[1].Slug)
}

func TestAggregate_AllSourcesTimeOut(t *testing.T) {
	agg := newTestAggregator(50*time.Millisecond,
		source(t, "sourceA", config.KindArbeitnow, blockingServer(t).URL),
		source(t, "sourceB", config.KindRemotive, blockingServer(t).URL),
		source(t, "sourceC", config.KindJobicy, blockingServer(t).URL),
	)

	start := time.Now()
	jobs, rep, err := agg.AggregateWithReport(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
	assert.Less(t, time.Since(start), 2*time.Second, "sources must time out concurrently")

	for _, s := range rep.Sources {
		assert.True(t, s.TimedOut, s.Name)
	}

	b, err := json.Marshal(map[string]any{"data": jobs})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[]}`, string(b))
}

func TestAggregate_SlowSourceDoesNotBlockOthers(t *testing.T) {
	a := jsonServer(t, `{"data":[{"slug":"fast"}]}`)

	agg := newTestAggregator(100*time.Millisecond,
		source(t, "slow", config.KindArbeitnow, blockingServer(t).URL),
		source(t, "fast", config.KindArbeitnow, a.URL),
	)

	jobs, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"fast"}, slugs(jobs))
}

func TestAggregate_DropsRecordWithoutSlug(t *testing.T) {
	a := jsonServer(t, `{"data":[{"title":"No slug"},{"slug":"kept","title":"Kept"},"not an object"]}`)

	agg := newTestAggregator(time.Second, source(t, "sourceA", config.KindArbeitnow, a.URL))

	jobs, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, slugs(jobs))
}

func TestAggregate_RandomFallbackDiffersPerCall(t *testing.T) {
	c := jsonServer(t, `{"jobs":[{"jobTitle":"Anonymous","companyName":"Nobody"}]}`)

	agg := newTestAggregator(time.Second, source(t, "sourceC", config.KindJobicy, c.URL))

	first, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background())
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	re := regexp.MustCompile(`^sourceC-[0-9a-f-]{36}$`)
	assert.Regexp(t, re, first[0].Slug)
	assert.Regexp(t, re, second[0].Slug)
	assert.NotEqual(t, first[0].Slug, second[0].Slug)
}

func TestAggregate_HashFallbackIsStable(t *testing.T) {
	c := jsonServer(t, `{"jobs":[{"jobTitle":"Anonymous","companyName":"Nobody","url":"https://c.example/1"}]}`)

	src := source(t, "sourceC", config.KindJobicy, c.URL)
	src.Fallback = util.FallbackHash
	agg := newTestAggregator(time.Second, src)

	first, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, slugs(first), slugs(second))
}

func TestAggregate_CallerCancellation(t *testing.T) {
	agg := newTestAggregator(5*time.Second,
		source(t, "sourceA", config.KindArbeitnow, blockingServer(t).URL),
		source(t, "sourceB", config.KindRemotive, blockingServer(t).URL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	jobs, rep, err := agg.AggregateWithReport(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrAggregation))
	assert.Nil(t, jobs)
	assert.True(t, rep.Cancelled)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, ok := agg.Last()
	assert.False(t, ok, "a cancelled call is not recorded")
}

type stubFetcher map[string]string

func (s stubFetcher) Fetch(_ context.Context, url string, _ string) (json.RawMessage, error) {
	body, ok := s[url]
	if !ok {
		return nil, &FetchError{URL: url, Status: http.StatusNotFound}
	}
	return json.RawMessage(body), nil
}

func TestAggregate_NormalizerPanicIsIsolated(t *testing.T) {
	fetcher := stubFetcher{
		"a": `{"data":[{"slug":"a-1"}]}`,
		"b": `{"jobs":[]}`,
	}
	an, _ := LookupKind(config.KindArbeitnow)

	agg := New(fetcher, []Source{
		{Name: "a", Kind: config.KindArbeitnow, URL: "a", Normalize: an.Normalize},
		{Name: "b", Kind: "broken", URL: "b", Normalize: func(string, json.RawMessage, util.Fallback) []domain.Job {
			panic("nil map")
		}},
		{Name: "c", Kind: "none", URL: "b"},
	}, discardLogger())

	jobs, rep, err := agg.AggregateWithReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a-1"}, slugs(jobs))
	assert.Contains(t, rep.Sources[1].Error, "panic: nil map")
	assert.Contains(t, rep.Sources[2].Error, "no normalizer")
	assert.Equal(t, 2, rep.Failed())
}

func TestAggregate_NoSources(t *testing.T) {
	jobs, err := New(stubFetcher{}, nil, nil).Aggregate(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, jobs)
	assert.Empty(t, jobs)
}

func TestAggregate_Idempotent(t *testing.T) {
	a := jsonServer(t, `{"data":[{"slug":"x","title":"Engineer","salary":"100k"}]}`)
	b := jsonServer(t, `{"jobs":[{"id":7,"title":"PM","salary":""}]}`)

	agg := newTestAggregator(time.Second,
		source(t, "sourceA", config.KindArbeitnow, a.URL),
		source(t, "sourceB", config.KindRemotive, b.URL),
	)

	first, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	second, err := agg.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Nil(t, first[1].Salary)
}
