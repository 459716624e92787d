package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	start := time.Unix(1727770000, 0)

	first := BatchRun{
		StartedAt:  start,
		FinishedAt: start.Add(10 * time.Second),
		Total:      3,
		Succeeded:  1,
		NoData:     1,
		Failed:     1,
		Queries: []QueryRun{
			{Label: "Top Gainers", Outcome: OutcomeSucceeded, Rows: 12, Duration: 1500 * time.Millisecond},
			{Label: "Empty", Outcome: OutcomeNoData, Duration: 200 * time.Millisecond},
			{Label: "Broken", Outcome: OutcomeFailed, Error: "status 500"},
		},
		WorkbookPath: "market_health_data.xlsx",
		PublishedUrl: "https://raw.githubusercontent.com/o/r/main/market_health_data.xlsx",
	}
	second := BatchRun{
		StartedAt:  start.Add(2 * time.Minute),
		FinishedAt: start.Add(2 * time.Minute),
		Total:      3,
		Error:      "token not found",
	}

	firstId, err := store.Record(ctx, first)
	require.NoError(t, err)
	secondId, err := store.Record(ctx, second)
	require.NoError(t, err)
	require.Greater(t, secondId, firstId)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	first.Id = firstId
	second.Id = secondId
	diff := cmp.Diff([]BatchRun{second, first}, runs)
	if diff != "" {
		t.Fatal(diff)
	}

	runs, err = store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, secondId, runs[0].Id)
}

func TestStoreDuplicateLabelRollsBack(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	_, err = store.Record(ctx, BatchRun{
		StartedAt:  time.Unix(1, 0),
		FinishedAt: time.Unix(2, 0),
		Queries: []QueryRun{
			{Label: "a", Outcome: OutcomeSucceeded},
			{Label: "a", Outcome: OutcomeFailed},
		},
	})
	require.Error(t, err)

	runs, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}
