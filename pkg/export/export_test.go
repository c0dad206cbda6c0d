package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dispatchlog "github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/dispatch/logging"
)

func sampleRecords() []dispatchlog.LogRecord {
	ts := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return []dispatchlog.LogRecord{
		{
			Timestamp:   ts,
			PassID:      "p1",
			Method:      "auto-assign",
			Assignments: map[string][]string{"d2": {"T3"}, "d1": {"T1", "T2"}},
			Unassigned:  []string{"T4"},
			Result:      &dispatchlog.Result{Score: 87},
		},
		{
			Timestamp:   ts.Add(time.Minute),
			PassID:      "p2",
			Method:      "batch-assign",
			Assignments: map[string][]string{"d1": {"T5"}},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"timestamp,pass_id,method,driver_id,tracking_id,score",
		"2025-03-01T08:00:00Z,p1,auto-assign,d1,T1,87",
		"2025-03-01T08:00:00Z,p1,auto-assign,d1,T2,87",
		"2025-03-01T08:00:00Z,p1,auto-assign,d2,T3,87",
		"2025-03-01T08:00:00Z,p1,auto-assign,,T4,87",
		"2025-03-01T08:01:00Z,p2,batch-assign,d1,T5,",
	}
	assert.Equal(t, want, lines)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "json", sampleRecords()))
	var out []dispatchlog.LogRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Len(t, out, 2)

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, "xml", nil))
}
