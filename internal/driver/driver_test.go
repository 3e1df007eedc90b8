package driver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-geoparser/internal/analyzer"
	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/geometry"
	"github.com/couchcryptid/tweet-geoparser/internal/observability"
	"github.com/couchcryptid/tweet-geoparser/internal/resolver"
	"github.com/couchcryptid/tweet-geoparser/internal/timezone"
)

var start = time.Date(2016, 1, 15, 0, 0, 0, 0, time.UTC)

const (
	idTokyo = 1850147
	idJapan = 1861060
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore serves messages from a slice.
type fakeStore struct {
	messages []domain.Message
}

func (f *fakeStore) EachMessage(_ context.Context, start, end time.Time, fn func(domain.Message) error) error {
	for _, msg := range f.messages {
		if msg.Timestamp.Before(start) || msg.Timestamp.After(end) {
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

// fakeSink records committed assignments and can fail a number of times.
type fakeSink struct {
	mu       sync.Mutex
	failures int
	commits  []map[string][]domain.ResolvedLocation
}

func (f *fakeSink) CommitAssignments(_ context.Context, assignments map[string][]domain.ResolvedLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("sink unavailable")
	}
	copied := make(map[string][]domain.ResolvedLocation, len(assignments))
	for id, locations := range assignments {
		copied[id] = append([]domain.ResolvedLocation(nil), locations...)
	}
	f.commits = append(f.commits, copied)
	return nil
}

func (f *fakeSink) commitsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, commit := range f.commits {
		if _, ok := commit[id]; ok {
			count++
		}
	}
	return count
}

// fakeExporter records exported tables and signals the first export.
type fakeExporter struct {
	mu       sync.Mutex
	tables   []map[string]int64
	onExport func()
}

func (f *fakeExporter) ExportResolutionTable(_ context.Context, table map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := make(map[string]int64, len(table))
	for k, v := range table {
		copied[k] = v
	}
	f.tables = append(f.tables, copied)
	if f.onExport != nil {
		f.onExport()
	}
	return nil
}

type fakeIndex struct {
	docs map[string][]domain.Entry
}

func (f *fakeIndex) Lookup(_ context.Context, names []string) (map[string][]domain.Entry, error) {
	found := make(map[string][]domain.Entry)
	for _, name := range names {
		if entries, ok := f.docs[name]; ok {
			found[name] = append([]domain.Entry(nil), entries...)
		}
	}
	return found, nil
}

func testAnalyzer(t *testing.T) *analyzer.Analyzer {
	t.Helper()
	index := &fakeIndex{docs: map[string][]domain.Entry{
		"tokyo": {{
			GeonameID: idTokyo, Name: "tokyo", FeatureCode: "PPLC",
			Population: 8_336_599, Coordinate: &domain.Coordinate{Lon: 139.6917, Lat: 35.6895},
			CountryGeonameID: idJapan, Timezone: "Asia/Tokyo",
			Languages: []string{"general"}, Translations: 120,
		}},
	}}
	ref := gazetteer.NewReference()
	ref.SetTags("en", []string{"storm"})
	zones, err := timezone.NewResolver()
	require.NoError(t, err)
	a, err := analyzer.New(index, ref, geometry.NewIndex(discardLogger()), zones, analyzer.DefaultConfig(), discardLogger())
	require.NoError(t, err)
	return a
}

func tokyoMessage(id string, at time.Time) domain.Message {
	return domain.Message{
		ID:         id,
		Text:       "Big storm in Tokyo",
		Language:   "en",
		Timestamp:  at,
		User:       domain.User{ID: "user-" + id},
		Coordinate: &domain.Coordinate{Lon: 139.77, Lat: 35.68},
	}
}

func newDriver(t *testing.T, store MessageStore, sink CommitSink, exporter ResolutionExporter, clock clockwork.Clock, cfg Config) *Driver {
	t.Helper()
	return New(
		testAnalyzer(t),
		resolver.New(0.2, discardLogger()),
		store,
		sink,
		exporter,
		clock,
		cfg,
		discardLogger(),
		observability.NewMetricsForTesting(),
	)
}

func historicalConfig() Config {
	return Config{
		Start:          start,
		End:            start.Add(25 * time.Minute),
		TimestepLength: 10 * time.Minute,
		AnalysisLength: time.Hour,
	}
}

func TestRun_HistoricalWindow(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{
		tokyoMessage("m1", start.Add(5*time.Minute)),
		tokyoMessage("m2", start.Add(15*time.Minute)),
	}}
	sink := &fakeSink{}
	d := newDriver(t, store, sink, nil, clockwork.NewRealClock(), historicalConfig())

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, 1, sink.commitsFor("m1"))
	assert.Equal(t, 1, sink.commitsFor("m2"))
	require.NotEmpty(t, sink.commits)
	first := sink.commits[0]["m1"]
	require.Len(t, first, 1)
	assert.Equal(t, "tokyo", first[0].Toponym)
	assert.Equal(t, int64(idTokyo), first[0].GeonameID)
	assert.NoError(t, d.CheckReadiness(context.Background()))
}

func TestRun_Deterministic(t *testing.T) {
	messages := []domain.Message{
		tokyoMessage("m1", start.Add(5*time.Minute)),
		tokyoMessage("m2", start.Add(15*time.Minute)),
	}

	run := func() []map[string][]domain.ResolvedLocation {
		sink := &fakeSink{}
		d := newDriver(t, &fakeStore{messages: messages}, sink, nil, clockwork.NewRealClock(), historicalConfig())
		require.NoError(t, d.Run(context.Background()))
		return sink.commits
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		for id, locations := range first[i] {
			assert.Equal(t, locations, second[i][id], "commit %d message %s", i, id)
		}
	}
}

func TestRun_UnchangedAssignmentsNotRecommitted(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{
		tokyoMessage("m1", start.Add(5*time.Minute)),
	}}
	sink := &fakeSink{}
	d := newDriver(t, store, sink, nil, clockwork.NewRealClock(), historicalConfig())

	require.NoError(t, d.Run(context.Background()))

	// m1 is in every window of the run, but its assignment never changes
	// after the first commit.
	assert.Equal(t, 1, sink.commitsFor("m1"))
}

func TestRun_RetriesFailedCommit(t *testing.T) {
	store := &fakeStore{messages: []domain.Message{
		tokyoMessage("m1", start.Add(5*time.Minute)),
	}}
	sink := &fakeSink{failures: 1}
	d := newDriver(t, store, sink, nil, clockwork.NewRealClock(), historicalConfig())

	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, 1, sink.commitsFor("m1"))
}

func TestRun_RealtimeExportsResolutionTable(t *testing.T) {
	clock := clockwork.NewFakeClockAt(start.Add(25 * time.Minute))
	store := &fakeStore{messages: []domain.Message{
		tokyoMessage("m1", start.Add(5*time.Minute)),
	}}
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	exporter := &fakeExporter{onExport: cancel}

	cfg := Config{
		Start:           start,
		TimestepLength:  10 * time.Minute,
		AnalysisLength:  time.Hour,
		Realtime:        true,
		RealtimeRefresh: 300 * time.Second,
	}
	d := newDriver(t, store, sink, exporter, clock, cfg)

	require.NoError(t, d.Run(ctx))

	require.NotEmpty(t, exporter.tables)
	assert.Equal(t, map[string]int64{"tokyo": idTokyo}, exporter.tables[0])
}

func TestCheckReadiness_NotReadyBeforeFirstTimestep(t *testing.T) {
	d := newDriver(t, &fakeStore{}, &fakeSink{}, nil, clockwork.NewRealClock(), historicalConfig())
	assert.Error(t, d.CheckReadiness(context.Background()))
}
