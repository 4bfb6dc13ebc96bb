package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/pollen/pkg/model"
)

type fakeAPI struct {
	mu     sync.Mutex
	models []string
	heads  int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/generate":
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.models = append(f.models, body.Model)
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "reply: " + body.Prompt})

	case r.Method == http.MethodPost && r.URL.Path == "/fail":
		w.WriteHeader(http.StatusInternalServerError)

	case r.Method == http.MethodHead:
		f.mu.Lock()
		f.heads++
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	api     *fakeAPI
	baseURL string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	return &testEnv{
		api:     api,
		baseURL: srv.URL,
		dataDir: t.TempDir(),
	}
}

func (e *testEnv) flags() []string {
	return []string{
		"--backend", "file",
		"--data-dir", e.dataDir,
		"--text-endpoint", e.baseURL + "/generate",
		"--image-endpoint", e.baseURL + "/",
		"--log-level", "error",
	}
}

// run executes one command against the environment and returns its stdout
func (e *testEnv) run(t *testing.T, stdin string, command string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.Writer = &stdout
	cmd.ErrWriter = &stderr
	cmd.Reader = strings.NewReader(stdin)

	argv := append([]string{"pollen", command}, e.flags()...)
	argv = append(argv, args...)
	err := cmd.Run(context.Background(), argv)
	return stdout.String(), err
}

func (e *testEnv) history(t *testing.T, args ...string) []model.Record {
	t.Helper()
	out, err := e.run(t, "", "history", append([]string{"--json"}, args...)...)
	gt.NoError(t, err)

	var records []model.Record
	gt.NoError(t, json.Unmarshal([]byte(out), &records))
	return records
}

func TestTextCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "text", "hello", "world")
	gt.NoError(t, err)
	gt.Equal(t, out, "reply: hello world\n")

	records := env.history(t)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Kind, model.KindText)
	gt.Equal(t, records[0].Prompt, "hello world")
	gt.Equal(t, records[0].Result, "reply: hello world")
	gt.Equal(t, records[0].Model, "openai")
}

func TestTextCommandModel(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "--model", "mistral", "hi")
	gt.NoError(t, err)

	env.api.mu.Lock()
	defer env.api.mu.Unlock()
	gt.Equal(t, env.api.models, []string{"mistral"})
}

func TestTextCommandAPIError(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "text", "--text-endpoint", env.baseURL+"/fail", "hello")
	gt.Error(t, err)
	gt.True(t, strings.HasPrefix(out, "Error: "))
	gt.S(t, out).Contains("500")

	gt.A(t, env.history(t)).Length(0)
}

func TestTextCommandEmptyPrompt(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "   ")
	gt.Error(t, err)
	gt.A(t, env.history(t)).Length(0)
}

func TestImageCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "image", "--width", "640", "--seed", "7", "a", "cat")
	gt.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	gt.A(t, lines).Length(2)
	gt.True(t, strings.HasPrefix(lines[1], env.baseURL+"/?"))
	gt.S(t, lines[1]).Contains("width=640")
	gt.S(t, lines[1]).Contains("height=512")
	gt.S(t, lines[1]).Contains("seed=7")
	gt.S(t, lines[1]).Contains("prompt=a+cat")

	env.api.mu.Lock()
	gt.Equal(t, env.api.heads, 1)
	env.api.mu.Unlock()

	id := lines[0]
	shown, err := env.run(t, "", "show", id)
	gt.NoError(t, err)
	var rec model.Record
	gt.NoError(t, json.Unmarshal([]byte(shown), &rec))
	gt.Equal(t, rec.Prompt, "a cat")
	gt.Equal(t, rec.Seed, "7")

	tab, err := env.run(t, "", "tab")
	gt.NoError(t, err)
	gt.Equal(t, tab, "image\n")
}

func TestImageCommandDemoNoProbe(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "image", "--demo", "--no-probe", "--random-seed")
	gt.NoError(t, err)

	records := env.history(t)
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Prompt, "A neon pink-purple robot portrait, 1980s synthwave, cinematic lighting")
	gt.True(t, records[0].Seed != "")

	env.api.mu.Lock()
	gt.Equal(t, env.api.heads, 0)
	env.api.mu.Unlock()
}

func TestImageCommandSeedConflict(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "image", "--seed", "1", "--random-seed", "x")
	gt.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	env := newTestEnv(t)

	for _, p := range []string{"one", "two"} {
		_, err := env.run(t, "", "text", p)
		gt.NoError(t, err)
	}
	_, err := env.run(t, "", "image", "--no-probe", "three")
	gt.NoError(t, err)

	all := env.history(t)
	gt.A(t, all).Length(3)
	gt.Equal(t, all[0].Prompt, "three")
	gt.Equal(t, all[2].Prompt, "one")

	texts := env.history(t, "--kind", "text", "--limit", "1")
	gt.A(t, texts).Length(1)
	gt.Equal(t, texts[0].Prompt, "two")

	table, err := env.run(t, "", "history")
	gt.NoError(t, err)
	gt.S(t, table).Contains("KIND")
	gt.S(t, table).Contains("three")

	_, err = env.run(t, "", "history", "--kind", "video")
	gt.Error(t, err)
}

func TestHistoryCommandEmpty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "history")
	gt.NoError(t, err)
	gt.Equal(t, out, "No history\n")
}

func TestShowCommandNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "show", "missing")
	gt.Error(t, err)

	_, err = env.run(t, "", "show")
	gt.Error(t, err)
}

func TestOpenCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "write a haiku")
	gt.NoError(t, err)
	_, err = env.run(t, "", "tab", "audio")
	gt.NoError(t, err)

	id := env.history(t)[0].ID
	out, err := env.run(t, "", "open", string(id))
	gt.NoError(t, err)
	gt.S(t, out).Contains("Tab: text")
	gt.S(t, out).Contains("Prompt: write a haiku")

	tab, err := env.run(t, "", "tab")
	gt.NoError(t, err)
	gt.Equal(t, tab, "text\n")
}

func TestTabCommandInvalid(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "tab", "video")
	gt.Error(t, err)

	out, err := env.run(t, "", "tab")
	gt.NoError(t, err)
	gt.Equal(t, out, "text\n")
}

func TestClearCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "hello")
	gt.NoError(t, err)

	out, err := env.run(t, "n\n", "clear")
	gt.NoError(t, err)
	gt.S(t, out).Contains("Canceled")
	gt.A(t, env.history(t)).Length(1)

	out, err = env.run(t, "y\n", "clear")
	gt.NoError(t, err)
	gt.S(t, out).Contains("History cleared")
	gt.A(t, env.history(t)).Length(0)

	_, err = env.run(t, "", "text", "again")
	gt.NoError(t, err)
	_, err = env.run(t, "", "clear", "--yes")
	gt.NoError(t, err)
	gt.A(t, env.history(t)).Length(0)
}

func TestStatsCommand(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "a")
	gt.NoError(t, err)
	_, err = env.run(t, "", "image", "--no-probe", "b")
	gt.NoError(t, err)

	out, err := env.run(t, "", "stats")
	gt.NoError(t, err)
	gt.Equal(t, out, "text   1\nimage  1\naudio  0\ntotal  2\n")
}

func TestAudioCommand(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "", "audio")
	gt.NoError(t, err)
	gt.S(t, out).Contains("exp-1")
	gt.S(t, out).Contains("Dreamy Loop (demo)")
}

func TestChatCommand(t *testing.T) {
	env := newTestEnv(t)

	stdin := strings.Join([]string{
		"hello",
		"/save",
		"/model mistral",
		"again",
		"/save 2",
		"/save 9",
		"/unknown",
		"/exit",
		"never sent",
	}, "\n") + "\n"

	out, err := env.run(t, stdin, "chat")
	gt.NoError(t, err)
	gt.S(t, out).Contains("reply: hello")
	gt.S(t, out).Contains("reply: again")
	gt.S(t, out).Contains("Saved: ")
	gt.S(t, out).Contains("Model: mistral")
	gt.S(t, out).Contains("no reply to save")
	gt.S(t, out).Contains("unknown command /unknown")
	gt.S(t, out).NotContains("never sent")

	env.api.mu.Lock()
	gt.Equal(t, env.api.models, []string{"openai", "mistral"})
	env.api.mu.Unlock()

	records := env.history(t)
	gt.A(t, records).Length(4)
	// "/save 2" stores the reply before the latest one
	gt.Equal(t, records[0].Result, "reply: hello")
	gt.Equal(t, records[0].Model, "mistral")
	gt.Equal(t, records[1].Prompt, "again")
}

func TestChatCommandEOF(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "hello\n", "chat")
	gt.NoError(t, err)
	gt.S(t, out).Contains("Chat session completed")
}

func TestUnknownBackend(t *testing.T) {
	cmd := newRootCommand()
	cmd.Writer = &bytes.Buffer{}
	cmd.ErrWriter = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"pollen", "stats", "--backend", "tape"})
	gt.Error(t, err)
}

func TestMemoryBackend(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.Writer = &out
	cmd.ErrWriter = &bytes.Buffer{}

	err := cmd.Run(context.Background(), []string{"pollen", "stats", "--backend", "memory"})
	gt.NoError(t, err)
	gt.S(t, out.String()).Contains("total  0")
}

func TestSQLiteBackend(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "--backend", "sqlite", "stored in sqlite")
	gt.NoError(t, err)

	records := env.history(t, "--backend", "sqlite")
	gt.A(t, records).Length(1)
	gt.Equal(t, records[0].Prompt, "stored in sqlite")

	// the file backend of the same data dir is a different store
	gt.A(t, env.history(t)).Length(0)
}

func TestNamespace(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "--namespace", "work", "private")
	gt.NoError(t, err)

	gt.A(t, env.history(t, "--namespace", "work")).Length(1)
	gt.A(t, env.history(t, "--namespace", "home")).Length(0)
}

func TestPolicyDir(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	policy := `package prompt

deny contains "secrets are not allowed" if {
	contains(input.prompt, "password")
}
`
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.rego"), []byte(policy), 0o600))

	_, err := env.run(t, "", "text", "--policy-dir", dir, "what is the admin password")
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("secrets are not allowed")

	_, err = env.run(t, "", "image", "--policy-dir", dir, "--no-probe", "a password on a sticky note")
	gt.Error(t, err)

	out, err := env.run(t, "", "text", "--policy-dir", dir, "hello")
	gt.NoError(t, err)
	gt.Equal(t, out, "reply: hello\n")

	gt.A(t, env.history(t)).Length(1)
}

func TestPolicyDirMissing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "text", "--policy-dir", filepath.Join(t.TempDir(), "no-such-dir"), "hello")
	gt.Error(t, err)
	gt.A(t, env.history(t)).Length(0)
}

func TestChatCommandPolicyDenied(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	policy := `package prompt

deny contains "secrets are not allowed" if {
	contains(input.prompt, "password")
}
`
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.rego"), []byte(policy), 0o600))

	out, err := env.run(t, "the password\nhello\n", "chat", "--policy-dir", dir)
	gt.NoError(t, err)
	gt.S(t, out).Contains("failed to generate: ")
	gt.S(t, out).Contains("secrets are not allowed")
	gt.S(t, out).Contains("reply: hello")
}

type recordingProvider struct {
	models []string
}

func (p *recordingProvider) DefaultModel() string {
	return "provider-default"
}

func (p *recordingProvider) GenerateText(ctx context.Context, prompt, modelName string) (string, error) {
	p.models = append(p.models, modelName)
	return "ok", nil
}

func TestStudioModelSelection(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name      string
		textModel string
		expect    string
	}{
		{"provider default", "", "provider-default"},
		{"model flag", "mistral", "mistral"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &recordingProvider{}
			cfg := &config{backend: backendMemory, textModel: tc.textModel}

			uc, closeFn, err := cfg.newStudioWith(ctx, provider)
			gt.NoError(t, err)
			defer closeFn()

			_, err = uc.GenerateText(ctx, "hi", "")
			gt.NoError(t, err)
			gt.Equal(t, provider.models, []string{tc.expect})
			gt.Equal(t, uc.History()[0].Model, tc.expect)
		})
	}
}
