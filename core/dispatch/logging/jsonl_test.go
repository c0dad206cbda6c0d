package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLStore_SkipsTornLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	st, err := NewJSONLStore(path)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, sampleTrail()[0]))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"pass_id":"torn`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := st.Query(ctx, LogQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, passIDs(got))
}

func TestJSONLStore_AppendAfterClose(t *testing.T) {
	st, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	assert.ErrorIs(t, st.Append(context.Background(), sampleTrail()[0]), os.ErrClosed)
}

func TestJSONLStore_CanceledQuery(t *testing.T) {
	st, err := NewJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	require.NoError(t, st.Append(context.Background(), sampleTrail()[0]))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = st.Query(ctx, LogQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func bigRecord(i int) LogRecord {
	ids := make([]string, 200)
	for j := range ids {
		ids[j] = strings.Repeat("T", 40)
	}
	rec := sampleTrail()[1]
	rec.PassID = "big"
	rec.Timestamp = t0.Add(time.Duration(i) * time.Second)
	rec.Assignments = map[string][]string{"d1": ids}
	return rec
}

func TestRotatingJSONLStore_ReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.jsonl")
	st, err := NewRotatingJSONLStore(path, Rotation{MaxSizeMB: 1, MaxBackups: 3})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	const n = 150
	for i := 0; i < n; i++ {
		require.NoError(t, st.Append(ctx, bigRecord(i)))
	}
	files, err := st.files()
	require.NoError(t, err)
	assert.Greater(t, len(files), 1, "expected at least one backup")
	assert.Equal(t, path, files[len(files)-1])

	got, err := st.Query(ctx, LogQuery{DriverID: "d1"})
	require.NoError(t, err)
	assert.Len(t, got, n)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp), "records out of order at %d", i)
	}

	last, err := st.Query(ctx, LogQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.True(t, last[0].Timestamp.Equal(t0.Add((n-1)*time.Second)))
}

func TestRotatingJSONLStore_EmptyBeforeFirstWrite(t *testing.T) {
	st, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "audit.jsonl"), Rotation{})
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	got, err := st.Query(context.Background(), LogQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}
