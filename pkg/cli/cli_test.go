package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type agent struct {
	ID    string `yaml:"id" json:"id"`
	Voice string `yaml:"voice" json:"voice"`
}

func TestOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(agent{ID: "a1", Voice: "alloy"}, OutputOptions{Format: FormatJSON, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	var got agent
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if got.ID != "a1" {
		t.Errorf("id = %q, want a1", got.ID)
	}
}

func TestOutput_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(agent{ID: "a1"}, OutputOptions{Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	if !strings.Contains(buf.String(), "id: a1") {
		t.Errorf("Output should contain 'id: a1', got: %s", buf.String())
	}
}

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	rows := Rows{
		Columns: []string{"CALL", "STATUS"},
		Data:    [][]string{{"call-1", "connected"}, {"call-2", "disconnected"}},
	}
	if err := Output(rows, OutputOptions{Format: FormatTable, Writer: &buf}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	for _, want := range []string{"CALL", "STATUS", "call-1", "disconnected"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table missing %q:\n%s", want, buf.String())
		}
	}
}

func TestOutput_TableNeedsTabular(t *testing.T) {
	var buf bytes.Buffer
	if err := Output(agent{}, OutputOptions{Format: FormatTable, Writer: &buf}); err == nil {
		t.Error("expected error for non-tabular result")
	}
}

func TestOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := Output(map[string]string{"key": "value"}, OutputOptions{Format: FormatJSON, File: path}); err != nil {
		t.Fatalf("Output error: %v", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), `"key": "value"`) {
		t.Errorf("file = %s", content)
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatYAML, "yaml": FormatYAML, "json": FormatJSON, "table": FormatTable} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutputFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
}

func TestLoadRequest(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": "id: a1\nvoice: verse\n",
		"a.json": `{"id":"a1","voice":"verse"}`,
		"a.txt":  "id: a1\nvoice: verse\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		var got agent
		if err := LoadRequest(path, &got); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != (agent{ID: "a1", Voice: "verse"}) {
			t.Errorf("%s: got %+v", name, got)
		}
	}
}

func TestLoadRequestErrors(t *testing.T) {
	var got agent
	if err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml"), &got); err == nil {
		t.Error("expected error for missing file")
	}
	if err := ParseRequest([]byte("{not json"), "x.json", &got); err == nil {
		t.Error("expected JSON parse error")
	}
}

func TestReadRequest(t *testing.T) {
	var got agent
	if err := ReadRequest(strings.NewReader(`{"id":"a2"}`), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != "a2" {
		t.Errorf("id = %q", got.ID)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0ms"},
		{999 * time.Millisecond, "999ms"},
		{1500 * time.Millisecond, "1.5s"},
		{59 * time.Second, "59.0s"},
		{60 * time.Second, "1m0.0s"},
		{125500 * time.Millisecond, "2m5.5s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.bytes); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func TestFormatTime(t *testing.T) {
	if got := FormatTime(time.Time{}); got != "-" {
		t.Errorf("zero time = %q", got)
	}
	if got := FormatTime(time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)); got != "2026-01-02 03:04:05" {
		t.Errorf("FormatTime = %q", got)
	}
}

func TestPaths(t *testing.T) {
	home := t.TempDir()
	p := &Paths{HomeDir: home}
	if want := filepath.Join(home, ".callbridge", "config.yaml"); p.ConfigFile() != want {
		t.Errorf("ConfigFile() = %q, want %q", p.ConfigFile(), want)
	}
	if want := filepath.Join(home, ".callbridge", "data", "tracker"); p.DataPath("tracker") != want {
		t.Errorf("DataPath() = %q, want %q", p.DataPath("tracker"), want)
	}
	if err := p.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(p.DataDir()); err != nil || !fi.IsDir() {
		t.Fatalf("data dir not created: %v", err)
	}
}
