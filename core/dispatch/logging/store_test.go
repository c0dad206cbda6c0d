package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/model"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func sampleTrail() []LogRecord {
	return []LogRecord{
		{
			Timestamp: t0, PassID: "p1", Method: model.MethodAutoAssign,
			Assignments: map[string][]string{"d1": {"TRK-1", "TRK-2"}, "d2": {"TRK-3"}},
			Unassigned:  []string{"TRK-4"},
			Result:      &Result{Score: 82.5, AssignmentRate: 0.75},
		},
		{
			Timestamp: t0.Add(time.Hour), PassID: "p2", Method: model.MethodBatchAssign,
			Assignments: map[string][]string{"d2": {"TRK-4"}},
		},
		{
			Timestamp: t0.Add(2 * time.Hour), PassID: "p3", Method: model.MethodAutoAssign,
			Unassigned: []string{"TRK-5"},
		},
	}
}

func TestLogRecord_Helpers(t *testing.T) {
	rec := sampleTrail()[0]
	assert.Equal(t, []string{"d1", "d2"}, rec.Drivers())
	assert.True(t, rec.Mentions("TRK-3"))
	assert.True(t, rec.Mentions("TRK-4"))
	assert.False(t, rec.Mentions("TRK-9"))
	assert.Empty(t, LogRecord{}.Drivers())
}

func TestLogRecord_Matches(t *testing.T) {
	rec := sampleTrail()[0]
	tests := []struct {
		name string
		q    LogQuery
		want bool
	}{
		{"empty", LogQuery{}, true},
		{"driver", LogQuery{DriverID: "d1"}, true},
		{"other driver", LogQuery{DriverID: "d9"}, false},
		{"tracking assigned", LogQuery{TrackingID: "TRK-2"}, true},
		{"tracking unassigned", LogQuery{TrackingID: "TRK-4"}, true},
		{"tracking missing", LogQuery{TrackingID: "TRK-9"}, false},
		{"driver and tracking", LogQuery{DriverID: "d2", TrackingID: "TRK-1"}, true},
		{"method", LogQuery{Method: model.MethodBatchAssign}, false},
		{"before start", LogQuery{Start: t0.Add(time.Minute)}, false},
		{"after end", LogQuery{End: t0.Add(-time.Minute)}, false},
		{"in range", LogQuery{Start: t0.Add(-time.Minute), End: t0.Add(time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rec.Matches(tt.q))
		})
	}
}

// backends returns a fresh instance of every LogStore implementation.
func backends(t *testing.T) map[string]LogStore {
	t.Helper()
	dir := t.TempDir()
	j, err := NewJSONLStore(filepath.Join(dir, "plain", "audit.jsonl"))
	require.NoError(t, err)
	r, err := NewRotatingJSONLStore(filepath.Join(dir, "rot", "audit.jsonl"), Rotation{MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	s, err := NewSQLiteStore(filepath.Join(dir, "audit.db"))
	require.NoError(t, err)
	out := map[string]LogStore{"jsonl": j, "rotating": r, "sqlite": s}
	t.Cleanup(func() {
		for _, st := range out {
			_ = st.Close()
		}
	})
	return out
}

func passIDs(recs []LogRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.PassID
	}
	return out
}

func TestLogStores_Query(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		q    LogQuery
		want []string
	}{
		{"all", LogQuery{}, []string{"p1", "p2", "p3"}},
		{"driver", LogQuery{DriverID: "d2"}, []string{"p1", "p2"}},
		{"tracking unassigned then assigned", LogQuery{TrackingID: "TRK-4"}, []string{"p1", "p2"}},
		{"method", LogQuery{Method: model.MethodAutoAssign}, []string{"p1", "p3"}},
		{"window", LogQuery{Start: t0.Add(30 * time.Minute), End: t0.Add(90 * time.Minute)}, []string{"p2"}},
		{"limit keeps newest", LogQuery{Limit: 2}, []string{"p2", "p3"}},
		{"no match", LogQuery{DriverID: "d1", Method: model.MethodBatchAssign}, []string{}},
	}
	for name, st := range backends(t) {
		for _, rec := range sampleTrail() {
			require.NoError(t, st.Append(ctx, rec), name)
		}
		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := st.Query(ctx, tt.q)
				require.NoError(t, err)
				assert.Equal(t, tt.want, passIDs(got))
			})
		}
	}
}

func TestLogStores_RoundTripResult(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		require.NoError(t, st.Append(ctx, sampleTrail()[0]))
		got, err := st.Query(ctx, LogQuery{})
		require.NoError(t, err, name)
		require.Len(t, got, 1, name)
		require.NotNil(t, got[0].Result, name)
		assert.Equal(t, 82.5, got[0].Result.Score, name)
		assert.True(t, got[0].Timestamp.Equal(t0), name)
	}
}
