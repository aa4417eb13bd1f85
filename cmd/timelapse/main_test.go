package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wipash/northgrove-timelapse/internal/catalog"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[source]
folder_id = "root-folder"
api_token = "token"

[remote]
enabled = false

[paths]
videos_dir = %q
log_dir = %q
catalog_path = %q
`,
		filepath.Join(base, "videos"),
		filepath.Join(base, "logs"),
		filepath.Join(base, "logs", "catalog.db"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output: %s", out)
	}
	raw, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("sample missing: %v", err)
	}
	if !strings.Contains(string(raw), "[source]") {
		t.Fatalf("sample content unexpected: %s", raw)
	}

	// Second init without --overwrite refuses.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestHistoryEmptyCatalog(t *testing.T) {
	cfgPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", cfgPath, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded yet.") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestStatusShowsLatestRun(t *testing.T) {
	cfgPath := writeTestConfig(t)

	// Seed the catalog the same way a run would.
	catalogPath := filepath.Join(filepath.Dir(cfgPath), "logs", "catalog.db")
	store, err := catalog.Open(catalogPath)
	if err != nil {
		t.Fatal(err)
	}
	started := time.Date(2025, time.July, 17, 6, 0, 0, 0, time.UTC)
	run := catalog.Run{
		ID:         "run-abc",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Artifacts: []catalog.Artifact{
			{Key: "daily/TLST04A00879_250717070000", Outcome: catalog.OutcomeBuilt},
			{Key: "weekly/250714", Outcome: catalog.OutcomeFailed, Detail: "encode aborted"},
		},
	}
	if err := store.RecordRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := runCommand(t, "--config", cfgPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"run-abc", "built: 1", "failed: 1", "encode aborted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusJSONOutput(t *testing.T) {
	cfgPath := writeTestConfig(t)
	catalogPath := filepath.Join(filepath.Dir(cfgPath), "logs", "catalog.db")
	store, err := catalog.Open(catalogPath)
	if err != nil {
		t.Fatal(err)
	}
	started := time.Date(2025, time.July, 17, 6, 0, 0, 0, time.UTC)
	run := catalog.Run{
		ID:         "run-json",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Artifacts: []catalog.Artifact{
			{Key: "daily/TLST04A00879_250717070000", Outcome: catalog.OutcomeBuilt},
		},
	}
	if err := store.RecordRun(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	out, err := runCommand(t, "--config", cfgPath, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var doc runJSON
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decode status JSON: %v\n%s", err, out)
	}
	if doc.ID != "run-json" || doc.Built != 1 {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Artifacts) != 1 || doc.Artifacts[0].Outcome != "built" {
		t.Fatalf("unexpected artifacts: %+v", doc.Artifacts)
	}
}

func TestHistoryListsRuns(t *testing.T) {
	cfgPath := writeTestConfig(t)
	catalogPath := filepath.Join(filepath.Dir(cfgPath), "logs", "catalog.db")
	store, err := catalog.Open(catalogPath)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		started := time.Date(2025, time.July, 14+i, 6, 0, 0, 0, time.UTC)
		run := catalog.Run{
			ID:         fmt.Sprintf("run-%d", i),
			StartedAt:  started,
			FinishedAt: started.Add(time.Minute),
		}
		if err := store.RecordRun(context.Background(), run); err != nil {
			t.Fatal(err)
		}
	}
	_ = store.Close()

	out, err := runCommand(t, "--config", cfgPath, "history", "-n", "2")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "run-2") || !strings.Contains(out, "run-1") {
		t.Fatalf("expected two newest runs:\n%s", out)
	}
	if strings.Contains(out, "run-0") {
		t.Fatalf("limit not applied:\n%s", out)
	}
}

func TestRunCommandRequiresValidConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.toml")
	if _, err := runCommand(t, "--config", missing, "run"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
