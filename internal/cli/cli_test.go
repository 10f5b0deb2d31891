package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/chatrail/internal/config"
	"github.com/Dicklesworthstone/chatrail/internal/transcript"
)

// resetFlags resets global flags to default values between tests
func resetFlags() {
	cfgFile = ""
	jsonOutput = false
	debug = false
	cfg = nil
}

func writeConversation(t *testing.T, dir, token string, turns int) string {
	t.Helper()
	var b strings.Builder
	for i := 0; i < turns; i++ {
		fmt.Fprintf(&b, `{"role":"user","content":"question %d about %s"}`+"\n", i, token)
		fmt.Fprintf(&b, `{"role":"assistant","content":"answer %d"}`+"\n", i)
	}
	path := filepath.Join(dir, token+".jsonl")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// setupCLI points every path at a temp dir and returns the conversations dir
// and the config file.
func setupCLI(t *testing.T) (string, string) {
	t.Helper()
	resetFlags()
	root := t.TempDir()
	conv := filepath.Join(root, "conversations")
	if err := os.MkdirAll(conv, 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	for _, k := range []string{"CHATRAIL_CONFIG", "CHATRAIL_CONVERSATIONS_DIR", "CHATRAIL_STORAGE", "CHATRAIL_REDIS_URL", "CHATRAIL_LOG_LEVEL", "CHATRAIL_DEBOUNCE_MS"} {
		t.Setenv(k, "")
	}

	cfgPath := filepath.Join(root, "config.toml")
	body := fmt.Sprintf(`conversations_dir = %q
theme = "dark"

[storage]
backend = "file"
path = %q

[log]
file = ""
`, conv, filepath.Join(root, "state", "bookmarks"))
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return conv, cfgPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	jsonOutput = false
	t.Logf("CLI_TEST: chatrail %s", strings.Join(args, " "))
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	_, cfgPath := setupCLI(t)

	out, err := runCLI(t, "--config", cfgPath, "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != Version {
		t.Errorf("short version = %q, want %q", out, Version)
	}

	out, err = runCLI(t, "--config", cfgPath, "version", "--short=false", "--json")
	if err != nil {
		t.Fatalf("version --json: %v", err)
	}
	var info VersionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if info.Version != Version || info.GoVersion == "" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestListCmd(t *testing.T) {
	conv, cfgPath := setupCLI(t)
	writeConversation(t, conv, "alpha", 4)
	writeConversation(t, conv, "beta", 2)

	out, err := runCLI(t, "--config", cfgPath, "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var infos []ConversationInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d conversations, want 2", len(infos))
	}
	turns := map[string]int{}
	for _, c := range infos {
		turns[c.Token] = c.Turns
		if c.Route != "/chat/"+c.Token {
			t.Errorf("route = %q", c.Route)
		}
		if c.Format != string(transcript.FormatGeneric) {
			t.Errorf("format = %q, want generic", c.Format)
		}
	}
	if turns["alpha"] != 4 || turns["beta"] != 2 {
		t.Errorf("turns = %v", turns)
	}

	out, err = runCLI(t, "--config", cfgPath, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "alpha") || !strings.Contains(out, "2 conversation(s)") {
		t.Errorf("table output missing rows:\n%s", out)
	}
}

func TestRailCmd(t *testing.T) {
	conv, cfgPath := setupCLI(t)
	writeConversation(t, conv, "alpha", 8)

	out, err := runCLI(t, "--config", cfgPath, "rail", "alpha", "--width", "80", "--height", "20", "--scroll", "0", "--turn", "0", "--json")
	if err != nil {
		t.Fatalf("rail: %v", err)
	}
	var info RailInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if info.Conversation != "alpha" || info.Turns != 8 {
		t.Errorf("info = %+v", info)
	}
	if info.Height != 19 {
		t.Errorf("height = %d, want 19", info.Height)
	}
	if len(info.Items) != 8 {
		t.Errorf("items = %d, want 8", len(info.Items))
	}
	for i := 1; i < len(info.Items); i++ {
		if info.Items[i].Offset < info.Items[i-1].Offset {
			t.Errorf("items out of order at %d", i)
		}
	}

	out, err = runCLI(t, "--config", cfgPath, "rail", "/chat/alpha", "--width", "80", "--height", "20", "--scroll", "0", "--turn", "0")
	if err != nil {
		t.Fatalf("rail text: %v", err)
	}
	if !strings.Contains(out, "question 0 about alpha") {
		t.Errorf("rail text should label marks:\n%s", out)
	}
	if !strings.Contains(out, "turn 1/8") {
		t.Errorf("rail text should show the active turn:\n%s", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "rail", "alpha", "--width", "80", "--height", "20", "--scroll", "0", "--turn", "6", "--json")
	if err != nil {
		t.Fatalf("rail --turn: %v", err)
	}
	info = RailInfo{}
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatal(err)
	}
	if info.ScrollRow == 0 {
		t.Error("jumping to turn 6 should scroll")
	}

	_, err = runCLI(t, "--config", cfgPath, "rail", "nope", "--turn", "0")
	if !errors.Is(err, transcript.ErrNotFound) {
		t.Errorf("unknown conversation err = %v, want ErrNotFound", err)
	}
}

func TestBookmarksCmd(t *testing.T) {
	conv, cfgPath := setupCLI(t)
	writeConversation(t, conv, "alpha", 5)

	out, err := runCLI(t, "--config", cfgPath, "bookmarks", "toggle", "alpha", "2")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !strings.Contains(out, "Starred turn 2") {
		t.Errorf("toggle output = %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "bookmarks", "list", "alpha", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var turns []StarredTurn
	if err := json.Unmarshal([]byte(out), &turns); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(turns) != 1 || turns[0].Turn != 2 || turns[0].Summary != "question 1 about alpha" {
		t.Fatalf("starred = %+v", turns)
	}

	out, err = runCLI(t, "--config", cfgPath, "bookmarks", "export", "--format", "yaml")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var sets []BookmarkSet
	if err := yaml.Unmarshal([]byte(out), &sets); err != nil {
		t.Fatalf("yaml: %v\n%s", err, out)
	}
	if len(sets) != 1 || sets[0].Conversation != "alpha" || len(sets[0].IDs) != 1 || sets[0].IDs[0] != turns[0].ID {
		t.Errorf("export = %+v", sets)
	}

	if _, err := runCLI(t, "--config", cfgPath, "bookmarks", "export", "--format", "xml"); err == nil {
		t.Error("unknown export format should fail")
	}

	out, err = runCLI(t, "--config", cfgPath, "bookmarks", "toggle", "alpha", "2")
	if err != nil {
		t.Fatalf("toggle again: %v", err)
	}
	if !strings.Contains(out, "Unstarred") {
		t.Errorf("second toggle output = %q", out)
	}

	if _, err := runCLI(t, "--config", cfgPath, "bookmarks", "toggle", "alpha", "9"); err == nil {
		t.Error("out of range turn should fail")
	}
}

func TestFlagsCmd(t *testing.T) {
	_, cfgPath := setupCLI(t)

	if _, err := runCLI(t, "--config", cfgPath, "flags", "disable", "--provider", "codex"); err != nil {
		t.Fatalf("disable codex: %v", err)
	}
	f, err := config.LoadFlags(config.FlagsPath())
	if err != nil {
		t.Fatal(err)
	}
	if !f.Enabled || f.ProviderEnabled("codex") || !f.ProviderEnabled("claude") {
		t.Errorf("flags after provider disable = %+v", f)
	}

	if _, err := runCLI(t, "--config", cfgPath, "flags", "disable", "--provider", ""); err != nil {
		t.Fatalf("disable: %v", err)
	}
	out, err := runCLI(t, "--config", cfgPath, "flags", "show", "--json")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var shown config.Flags
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if shown.Enabled || shown.Providers["codex"] {
		t.Errorf("shown = %+v", shown)
	}

	if _, err := runCLI(t, "--config", cfgPath, "flags", "enable", "--provider", ""); err != nil {
		t.Fatalf("enable: %v", err)
	}
	f, _ = config.LoadFlags(config.FlagsPath())
	if !f.Enabled {
		t.Error("enable should turn the rail back on")
	}
}

func TestConfigCmd(t *testing.T) {
	_, cfgPath := setupCLI(t)

	out, err := runCLI(t, "--config", cfgPath, "config", "path")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[0] != cfgPath || !strings.HasSuffix(lines[1], "flags.toml") {
		t.Errorf("config path output = %q", out)
	}

	out, err = runCLI(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"[rail]", "[storage]", `backend = "file"`} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q", want)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	_, cfgPath := setupCLI(t)
	if err := os.WriteFile(cfgPath, []byte("[tracking]\nreading_line = 2.5\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, "--config", cfgPath, "list"); err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("err = %v, want invalid config", err)
	}
}

func TestResolveEntries(t *testing.T) {
	conv, cfgPath := setupCLI(t)
	c, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg = c

	if _, _, err := resolveEntries(""); !errors.Is(err, errEmptyLibrary) {
		t.Errorf("empty library err = %v", err)
	}

	writeConversation(t, conv, "alpha", 1)
	outside := writeConversation(t, t.TempDir(), "elsewhere", 1)

	entries, i, err := resolveEntries("alpha")
	if err != nil || entries[i].Token != "alpha" {
		t.Errorf("alpha = %v %v", entries, err)
	}
	entries, i, err = resolveEntries(outside)
	if err != nil {
		t.Fatal(err)
	}
	if i != 0 || entries[0].Token != "elsewhere" || len(entries) != 2 {
		t.Errorf("outside file should lead the ring, got %d %+v", i, entries)
	}
}
