package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memRepo struct {
	entries []Entry
}

func (m *memRepo) Timeline(_ context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	var matched []Entry
	for _, e := range m.entries {
		if filters.Entity != "" && e.Entity != filters.Entity {
			continue
		}
		if filters.Action != "" && e.Action != filters.Action {
			continue
		}
		matched = append(matched, e)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func seedEntries(n int) []Entry {
	entries := make([]Entry, 0, n)
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		entries = append(entries, Entry{
			ID:         int64(n - i),
			ActorID:    7,
			Action:     "invoice.create",
			Entity:     "invoice",
			EntityID:   fmt.Sprintf("%d", n-i),
			OccurredAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return entries
}

func TestTimelinePaging(t *testing.T) {
	svc := NewService(&memRepo{entries: seedEntries(25)})

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 20)
	require.True(t, result.Paging.HasMore)
	require.Equal(t, 1, result.Paging.Page)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 5)
	require.False(t, result.Paging.HasMore)
}

func TestTimelineClampsPageSize(t *testing.T) {
	svc := NewService(&memRepo{entries: seedEntries(80)})

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Entries, 50)
	require.Equal(t, 50, result.Paging.PageSize)
}

func TestTimelineEmptyPageReturnsEmptySlice(t *testing.T) {
	svc := NewService(&memRepo{})

	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.NotNil(t, result.Entries)
	require.Empty(t, result.Entries)
}
