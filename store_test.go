package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 10, 16, 15, 30, 0, 0, time.UTC)
	at := func(d time.Duration) { store.now = func() time.Time { return now.Add(-d) } }

	at(10 * 24 * time.Hour)
	require.NoError(t, store.RecordVisit(ctx, "aaaa", "ua", "/"))
	at(3 * 24 * time.Hour)
	require.NoError(t, store.RecordVisit(ctx, "bbbb", "ua", "/"))
	at(time.Hour)
	require.NoError(t, store.RecordVisit(ctx, "aaaa", "ua", "/"))

	at(2 * 24 * time.Hour)
	require.NoError(t, store.RecordAIRequest(ctx, AIRequestLog{RequestID: "r1", HashedIP: "aaaa", Endpoint: "/api/ai", Project: "Terminal Mail", Status: statusOK}))
	at(time.Minute)
	require.NoError(t, store.RecordAIRequest(ctx, AIRequestLog{RequestID: "r2", HashedIP: "aaaa", Endpoint: "/api/ai", Project: "Terminal Mail", Status: statusError, Error: "quota exceeded"}))
	require.NoError(t, store.RecordAIRequest(ctx, AIRequestLog{RequestID: "r3", HashedIP: "bbbb", Endpoint: "/projects/case-study", Project: "This Portfolio", Status: statusOK, LatencyMS: 812}))
	require.NoError(t, store.RecordAIRequest(ctx, AIRequestLog{RequestID: "r4", HashedIP: "bbbb", Endpoint: "/api/ai", Status: statusOK}))

	store.now = func() time.Time { return now }
	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 3, stats.TotalVisitors)
	assert.EqualValues(t, 2, stats.UniqueVisitors)
	assert.EqualValues(t, 1, stats.VisitorsToday)
	assert.EqualValues(t, 2, stats.VisitorsThisWeek)
	assert.EqualValues(t, 4, stats.TotalAIRequests)
	assert.EqualValues(t, 1, stats.FailedAIRequests)
	assert.EqualValues(t, 3, stats.AIRequestsToday)
	assert.Equal(t, []ProjectStat{
		{Project: "Terminal Mail", Requests: 2},
		{Project: "This Portfolio", Requests: 1},
	}, stats.TopProjects)

	require.Len(t, stats.RecentVisitors, 3)
	assert.True(t, now.Add(-time.Hour).Equal(stats.RecentVisitors[0].Timestamp))

	require.Len(t, stats.RecentAIRequests, 4)
	assert.Equal(t, "r4", stats.RecentAIRequests[0].RequestID)
	assert.Equal(t, "r1", stats.RecentAIRequests[3].RequestID)
	assert.Equal(t, "quota exceeded", stats.RecentAIRequests[2].Error)
	assert.EqualValues(t, 812, stats.RecentAIRequests[1].LatencyMS)
}

func TestStoreStats_Empty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVisitors)
	assert.Empty(t, stats.TopProjects)
	assert.Empty(t, stats.RecentVisitors)
	assert.Empty(t, stats.RecentAIRequests)
}

func TestStoreCleanupVisitors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return now.AddDate(-1, 0, -1) }
	require.NoError(t, store.RecordVisit(ctx, "old", "", "/"))
	store.now = func() time.Time { return now.AddDate(0, -11, 0) }
	require.NoError(t, store.RecordVisit(ctx, "recent", "", "/"))

	store.now = func() time.Time { return now }
	n, err := store.CleanupVisitors(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.CleanupVisitors(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreInitIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Init(context.Background()))
}
