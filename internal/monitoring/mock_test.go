package monitoring

import (
	"context"
	"time"

	"github.com/sells-group/road-crawl-cli/internal/model"
	"github.com/sells-group/road-crawl-cli/internal/store"
)

// mockSource serves canned sessions and API call counts. Calls are
// attributed to the lookback window or to today by the since argument.
type mockSource struct {
	sessions  []model.CrawlSession
	window    map[string]int
	today     map[string]int
	todayFrom time.Time
	listErr   error
	countErr  error
}

func (m *mockSource) ListSessions(_ context.Context, filter store.SessionFilter) ([]model.CrawlSession, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.CrawlSession
	for _, s := range m.sessions {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *mockSource) CountAPICallsByTier(_ context.Context, since time.Time) (map[string]int, error) {
	if m.countErr != nil {
		return nil, m.countErr
	}
	if !m.todayFrom.IsZero() && since.Equal(m.todayFrom) {
		return m.today, nil
	}
	return m.window, nil
}
