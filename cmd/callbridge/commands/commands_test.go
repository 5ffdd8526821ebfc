package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/callbridge/pkg/acceptor"
	"github.com/haivivi/callbridge/pkg/bridge"
	"github.com/haivivi/callbridge/pkg/jsontime"
	"github.com/haivivi/callbridge/pkg/kv"
	"github.com/haivivi/callbridge/pkg/tracker"
)

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	verbose = false
	formatOutput = ""
	outputFile = ""

	var outBuf, errBuf bytes.Buffer
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		if stderr == "" {
			stderr = err.Error()
		}
	}

	resetFlags(rootCmd)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// writeTestYAML writes a YAML file to a temp dir and returns its path.
func writeTestYAML(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

type testEnv struct {
	config     string
	trackerDir string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{trackerDir: filepath.Join(dir, "tracker")}
	env.config = writeTestYAML(t, "config.yaml", `
profiles:
  backend: local
  dir: `+filepath.Join(dir, "profiles")+`
tracker:
  backend: badger
  dir: `+env.trackerDir+`
`)
	return env
}

func TestVersion(t *testing.T) {
	stdout, stderr, code := runCmd(t, "version")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "callbridge ") {
		t.Errorf("stdout = %q", stdout)
	}

	stdout, stderr, code = runCmd(t, "version", "-o", "json")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if info["version"] == "" || info["go"] == "" {
		t.Errorf("info = %v", info)
	}
}

func TestProfileLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	file := writeTestYAML(t, "support.yaml", `
id: support
name: Support line
provider: openai
instructions: Be brief.
voice: verse
temperature: 0.7
`)

	stdout, stderr, code := runCmd(t, "--config", env.config, "profile", "put", "-f", file)
	if code != 0 {
		t.Fatalf("put: exit %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "profile support saved") {
		t.Errorf("put stdout = %q", stdout)
	}

	stdout, stderr, code = runCmd(t, "--config", env.config, "profile", "get", "support", "-o", "json")
	if code != 0 {
		t.Fatalf("get: exit %d: %s", code, stderr)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if got["instructions"] != "Be brief." || got["voice"] != "verse" || got["temperature"] != 0.7 {
		t.Errorf("get = %v", got)
	}

	stdout, stderr, code = runCmd(t, "--config", env.config, "profile", "list")
	if code != 0 {
		t.Fatalf("list: exit %d: %s", code, stderr)
	}
	for _, want := range []string{"ID", "TEMPERATURE", "support", "Support line", "verse", "0.7"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, stdout)
		}
	}

	_, _, code = runCmd(t, "--config", env.config, "profile", "delete", "support")
	if code != 0 {
		t.Fatal("delete failed")
	}
	_, stderr, code = runCmd(t, "--config", env.config, "profile", "get", "support")
	if code == 0 || !strings.Contains(stderr, "not found") {
		t.Errorf("get after delete: exit %d, stderr %q", code, stderr)
	}
}

func TestProfilePutInvalid(t *testing.T) {
	env := setupTestEnv(t)
	file := writeTestYAML(t, "bad.yaml", "id: bad\nprovider: openai\n")

	_, _, code := runCmd(t, "--config", env.config, "profile", "put", "-f", file)
	if code == 0 {
		t.Error("profile without instructions was accepted")
	}
	_, stderr, code := runCmd(t, "--config", env.config, "profile", "put")
	if code == 0 || !strings.Contains(stderr, "--file") {
		t.Errorf("put without file: exit %d, stderr %q", code, stderr)
	}
}

func TestCalls(t *testing.T) {
	env := setupTestEnv(t)

	db, err := kv.NewBadger(kv.BadgerOptions{Dir: env.trackerDir})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	tr := tracker.NewKV(db)
	if err := tr.RecordConnected(ctx, "CA1", "MZ1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.RecordDisconnected(ctx, "CA1", time.Now().Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := tr.RecordConnected(ctx, "CA2", "MZ2"); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runCmd(t, "--config", env.config, "calls", "list")
	if code != 0 {
		t.Fatalf("list: exit %d: %s", code, stderr)
	}
	for _, want := range []string{"CALL", "CA1", "MZ1", "disconnected", "CA2", "connected"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("list output missing %q:\n%s", want, stdout)
		}
	}

	stdout, stderr, code = runCmd(t, "--config", env.config, "calls", "get", "CA1", "-o", "json")
	if code != 0 {
		t.Fatalf("get: exit %d: %s", code, stderr)
	}
	var view callView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if view.Status != tracker.StatusDisconnected || view.StreamID != "MZ1" {
		t.Errorf("view = %+v", view)
	}
	if d := view.Duration.Duration(); d < 59*time.Second || d > 61*time.Second {
		t.Errorf("duration = %v", d)
	}

	_, _, code = runCmd(t, "--config", env.config, "calls", "get", "CA9")
	if code == 0 {
		t.Error("unknown call succeeded")
	}
}

func TestCallsWithoutTracker(t *testing.T) {
	cfg := writeTestYAML(t, "config.yaml", `
profiles:
  dir: `+t.TempDir()+`
tracker:
  backend: none
`)
	_, stderr, code := runCmd(t, "--config", cfg, "calls", "list")
	if code == 0 || !strings.Contains(stderr, "disabled") {
		t.Errorf("exit %d, stderr %q", code, stderr)
	}
}

func TestSessions(t *testing.T) {
	views := []acceptor.SessionView{{
		ID:        "s-1",
		CallID:    "CA1",
		AgentID:   "support",
		State:     bridge.StateActive.String(),
		Lifecycle: bridge.StateActive.Lifecycle(),
		CreatedAt: jsontime.NowEpochMilli(),
		Age:       jsontime.Duration(1500 * time.Millisecond),
		Stats:     bridge.Stats{InboundBytes: 2048, OutboundBytes: 100, Dropped: 2},
	}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(views)
	}))
	t.Cleanup(srv.Close)

	stdout, stderr, code := runCmd(t, "sessions", "--server", srv.URL)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr)
	}
	for _, want := range []string{"SESSION", "s-1", "CA1", "support", "ACTIVE", "1.5s", "2.00 KB", "100 B"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}

	_, _, code = runCmd(t, "sessions", "--server", srv.URL+"/nope")
	if code == 0 {
		t.Error("bad server path succeeded")
	}
}
