package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	data := "store:\n  backend: sqlite\n  dsn: " + filepath.Join(dir, "wh.db") +
		"\nlogging:\n  path: " + filepath.Join(dir, "audit.jsonl") + "\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSLASweepCommand(t *testing.T) {
	out, err := execute(t, "-c", writeConfig(t), "sla", "sweep")
	if err != nil {
		t.Fatalf("sweep: %v (%s)", err, out)
	}
	var res map[string]int
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res["escalated"] != 0 {
		t.Fatalf("unexpected result %v", res)
	}
}

func TestInventoryConflictsCommand(t *testing.T) {
	out, err := execute(t, "-c", writeConfig(t), "inventory", "conflicts")
	if err != nil {
		t.Fatalf("conflicts: %v (%s)", err, out)
	}
	if out != "null\n" && out != "[]\n" {
		t.Fatalf("expected no conflicts, got %q", out)
	}
}

func TestDispatchRunNothingToDo(t *testing.T) {
	if _, err := execute(t, "-c", writeConfig(t), "dispatch", "run"); err == nil {
		t.Fatal("expected an error when no shipment is waiting")
	}
}

func TestDispatchBatchArgs(t *testing.T) {
	if _, err := execute(t, "-c", writeConfig(t), "dispatch", "batch", "only-one"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestDispatchLogsCommand(t *testing.T) {
	cfg := writeConfig(t)
	out, err := execute(t, "-c", cfg, "dispatch", "logs", "--format", "csv")
	if err != nil {
		t.Fatalf("logs: %v (%s)", err, out)
	}
	if out != "timestamp,pass_id,method,driver_id,tracking_id,score\n" {
		t.Fatalf("expected only the csv header, got %q", out)
	}
	if _, err := execute(t, "-c", cfg, "dispatch", "logs", "--format", "xml"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
	logsFlags.format = "json"
}
