package storage

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite("file::memory:?cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := InitSchema(db); err != nil {
		t.Fatal(err)
	}
	return NewStore(db)
}

func TestRecordAndSummarize(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	records := []RequestRecord{
		{ID: "a", Section: "gains", Sector: "12電力", Status: 200, Duration: 40 * time.Millisecond, At: now},
		{ID: "b", Section: "gains", Status: 503, Duration: 10 * time.Millisecond, At: now},
		{ID: "c", Section: "trend", Tickers: []string{"9531.T"}, Status: 200, Duration: 80 * time.Millisecond, At: now},
	}
	for _, r := range records {
		if err := s.RecordRequest(r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.UsageBySection(now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 {
		t.Fatalf("sections = %d, want 2", len(stats))
	}
	// busiest first
	if stats[0].Section != "gains" || stats[0].Count != 2 || stats[0].Errors != 1 {
		t.Fatalf("gains stats = %+v", stats[0])
	}
	if stats[1].Section != "trend" || stats[1].Errors != 0 {
		t.Fatalf("trend stats = %+v", stats[1])
	}
}

func TestUsageBySectionCutoff(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	old := RequestRecord{ID: "old", Section: "gains", Status: 200, At: now.AddDate(0, 0, -30)}
	fresh := RequestRecord{ID: "new", Section: "gains", Status: 200, At: now}
	for _, r := range []RequestRecord{old, fresh} {
		if err := s.RecordRequest(r); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.UsageBySection(now.AddDate(0, 0, -7))
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 || stats[0].Count != 1 {
		t.Fatalf("stats = %+v, cutoff must exclude old rows", stats)
	}
}

func TestUsageTimeSeries(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	for i, sec := range []string{"gains", "gains", "trend"} {
		r := RequestRecord{ID: string(rune('a' + i)), Section: sec, Status: 200, At: now}
		if err := s.RecordRequest(r); err != nil {
			t.Fatal(err)
		}
	}

	series, err := s.UsageTimeSeries(now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(series["gains"]) != 1 || series["gains"][0].Count != 2 {
		t.Fatalf("gains series = %+v", series["gains"])
	}
	if len(series["trend"]) != 1 {
		t.Fatalf("trend series = %+v", series["trend"])
	}
}
