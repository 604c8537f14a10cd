package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/beanbase/internal/paths"
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

const blogConfig = `backend: sqlite
models:
  - type: post
    relations:
      user: belongs_to
      tag: have_many
    post_fields: [title]
    unique_fields: [title]
`

type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T, configYAML string) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		configDir: filepath.Join(dir, "config"),
		dataDir:   filepath.Join(dir, "data"),
	}
	if configYAML != "" {
		require.NoError(t, os.MkdirAll(env.configDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt), []byte(configYAML), 0o644))
	}
	t.Setenv(paths.EnvDataDir, "")
	t.Setenv(paths.EnvConfigDir, "")
	t.Setenv("BEANBASE_BACKEND", "")
	t.Setenv("BEANBASE_DEBUG", "")
	return env
}

func (e testEnv) run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	full := append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...)
	code := run(newRootCmd(&app{now: func() time.Time { return fixedNow }}), full, &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

// mustRun runs a command that is expected to succeed.
func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, errOut, code := e.run(t, args...)
	require.Equal(t, exitSuccess, code, "stderr: %s", errOut)
	return out
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "")
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "beanbase v"+Version)
	assert.Contains(t, out, modulePath)
}

func TestInit(t *testing.T) {
	env := newTestEnv(t, "")

	out := env.mustRun(t, "init")
	assert.Contains(t, out, "wrote ")
	assert.Contains(t, out, "BeanBase initialized in "+env.dataDir)

	assert.FileExists(t, filepath.Join(env.configDir, configFileExt))
	assert.FileExists(t, filepath.Join(env.dataDir, "beanbase.db"))

	cfg, err := loadConfig(env.configDir)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Backend)
	assert.Equal(t, env.dataDir, cfg.DataDir)

	// A second init keeps the existing config.
	out = env.mustRun(t, "init")
	assert.NotContains(t, out, "wrote ")
}

func TestPostGetList_Golden(t *testing.T) {
	env := newTestEnv(t, blogConfig)
	g := golden(t)

	env.mustRun(t, "post", "user", `{"name":"Ada"}`)

	out := env.mustRun(t, "--json", "post", "post", `{"title":"hello","pages":3,"relation":{"user_id":1}}`)
	g.Assert(t, "post_json", []byte(out))

	out = env.mustRun(t, "get", "post", "1")
	g.Assert(t, "get_text", []byte(out))

	out = env.mustRun(t, "--json", "list", "post")
	g.Assert(t, "list_json", []byte(out))
}

func TestRelateAndRelated(t *testing.T) {
	env := newTestEnv(t, blogConfig)

	env.mustRun(t, "post", "tag", `{"label":"go"}`)
	env.mustRun(t, "post", "tag", `{"label":"db"}`)
	env.mustRun(t, "post", "post", `{"title":"hello"}`)

	env.mustRun(t, "relate", "post", "1", `{"tag_id":[2,1]}`)

	out := env.mustRun(t, "--json", "related", "post", "1", "tag")
	assert.JSONEq(t, `[{"id":2,"label":"db","created":"2024-01-02 03:04:05"},{"id":1,"label":"go","created":"2024-01-02 03:04:05"}]`, out)

	_, errOut, code := env.run(t, "relate", "post", "1", `{"tag_id":1}`)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "relation already exists")
}

func TestDeleteRecoverCount(t *testing.T) {
	env := newTestEnv(t, blogConfig)

	env.mustRun(t, "post", "post", `{"title":"a"}`)
	env.mustRun(t, "post", "post", `{"title":"b"}`)

	out := env.mustRun(t, "--json", "delete", "--soft", "post", "1")
	assert.Contains(t, out, `"deleted": true`)

	assert.Equal(t, "1\n", env.mustRun(t, "count", "post", "deleted=true"))
	assert.Equal(t, "2\n", env.mustRun(t, "count", "post"))

	env.mustRun(t, "recover", "post", "1")
	assert.Equal(t, "0\n", env.mustRun(t, "count", "post", "deleted=true"))

	assert.Equal(t, "deleted post#2\n", env.mustRun(t, "delete", "post", "2"))
	assert.JSONEq(t, `{"count":1}`, env.mustRun(t, "--json", "count", "post"))
}

func TestPut(t *testing.T) {
	env := newTestEnv(t, blogConfig)
	env.mustRun(t, "post", "post", `{"title":"a","pages":1}`)

	out := env.mustRun(t, "put", "post", "1", `{"pages":2}`)
	assert.Contains(t, out, "  pages: 2\n")
	assert.Contains(t, out, "  updated: 2024-01-02 03:04:05\n")
}

func TestExportImport(t *testing.T) {
	src := newTestEnv(t, blogConfig)
	src.mustRun(t, "post", "tag", `{"label":"go"}`)
	src.mustRun(t, "post", "post", `{"title":"hello","relation":{"tag_id":1}}`)

	dir := t.TempDir()
	src.mustRun(t, "export", dir)
	assert.FileExists(t, filepath.Join(dir, "beans.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "links.jsonl"))

	dst := newTestEnv(t, blogConfig)
	out := dst.mustRun(t, "import", dir)
	assert.Equal(t, "imported 2 beans and 1 links\n", out)

	out = dst.mustRun(t, "--json", "related", "post", "1", "tag")
	assert.JSONEq(t, `[{"id":1,"label":"go","created":"2024-01-02 03:04:05"}]`, out)
}

func TestLargeIntegersSurvive(t *testing.T) {
	env := newTestEnv(t, blogConfig)

	// 2^53 + 1 has no exact float64 form.
	env.mustRun(t, "post", "order", `{"ext_ref":9007199254740993}`)
	assert.JSONEq(t, `{"id":1,"ext_ref":9007199254740993,"created":"2024-01-02 03:04:05"}`,
		env.mustRun(t, "--json", "get", "order", "1"))
	assert.Equal(t, "1\n", env.mustRun(t, "count", "order", "ext_ref=9007199254740993"))
	assert.Equal(t, "0\n", env.mustRun(t, "count", "order", "ext_ref=9007199254740992"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "beans.jsonl"),
		[]byte(`{"type":"user","id":9007199254740993,"fields":{"name":"Ada"}}`+"\n"), 0o644))
	env.mustRun(t, "import", dir)

	out := env.mustRun(t, "--json", "post", "post", `{"title":"big","relation":{"user_id":9007199254740993}}`)
	assert.Contains(t, out, `"user_id": 9007199254740993`)
}

func TestFieldsFlag(t *testing.T) {
	env := newTestEnv(t, blogConfig)
	env.mustRun(t, "post", "post", `{"title":"a","pages":4}`)

	assert.Equal(t, "post#1\n  pages: 4\n", env.mustRun(t, "get", "post", "1", "--fields", "pages,missing"))
	assert.JSONEq(t, `[{"id":1,"title":"a"}]`, env.mustRun(t, "--json", "list", "post", "--fields", "title"))
}

func TestModels(t *testing.T) {
	env := newTestEnv(t, blogConfig)

	out := env.mustRun(t, "models")
	assert.Equal(t, "post\n  relations: user belongs_to, tag have_many\n  post_fields: title\n  unique_fields: title\n", out)

	out = env.mustRun(t, "--json", "models")
	assert.JSONEq(t, `[{
		"type": "post",
		"relations": [{"type":"user","kind":"belongs_to"},{"type":"tag","kind":"have_many"}],
		"post_fields": ["title"],
		"put_fields": [],
		"unique_fields": ["title"],
		"reserved": ["deleted","created","updated","relation"]
	}]`, out)
}

func TestExitCodes(t *testing.T) {
	env := newTestEnv(t, blogConfig)
	env.mustRun(t, "post", "post", `{"title":"taken"}`)

	tests := []struct {
		name string
		args []string
		want int
	}{
		{name: "missing bean", args: []string{"get", "post", "9"}, want: exitUserError},
		{name: "bad id", args: []string{"get", "post", "x"}, want: exitUserError},
		{name: "incomplete", args: []string{"post", "post", `{"body":"no title"}`}, want: exitUserError},
		{name: "not unique", args: []string{"post", "post", `{"title":"taken"}`}, want: exitUserError},
		{name: "invalid json", args: []string{"post", "post", `{"title":`}, want: exitUserError},
		{name: "not an object", args: []string{"post", "post", `[1,2]`}, want: exitUserError},
		{name: "relation not an object", args: []string{"post", "post", `{"title":"x","relation":[1]}`}, want: exitUserError},
		{name: "related bean missing", args: []string{"post", "post", `{"title":"y","relation":{"user_id":7}}`}, want: exitUserError},
		{name: "wrong arg count", args: []string{"get", "post"}, want: exitUserError},
		{name: "unknown flag", args: []string{"get", "--bogus", "post", "1"}, want: exitUserError},
		{name: "unknown command", args: []string{"frobnicate"}, want: exitUserError},
		{name: "bad match", args: []string{"count", "post", "title"}, want: exitUserError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := env.run(t, tt.args...)
			assert.Equal(t, tt.want, code, "stderr: %s", errOut)
			assert.Contains(t, errOut, "Error:")
		})
	}
}

func TestSystemErrorExitCode(t *testing.T) {
	env := newTestEnv(t, blogConfig)
	// A file where the data directory should be makes the store unopenable.
	require.NoError(t, os.MkdirAll(filepath.Dir(env.dataDir), 0o755))
	require.NoError(t, os.WriteFile(env.dataDir, []byte("x"), 0o644))

	_, _, code := env.run(t, "count", "post")
	assert.Equal(t, exitSysError, code)
}

func TestMemoryBackend(t *testing.T) {
	env := newTestEnv(t, "backend: memory\n")

	out := env.mustRun(t, "--json", "post", "note", `{"text":"hi"}`)
	assert.Contains(t, out, `"id": 1`)

	// Nothing survives the process.
	assert.Equal(t, "0\n", env.mustRun(t, "count", "note"))

	_, _, code := env.run(t, "export", t.TempDir())
	assert.Equal(t, exitUserError, code)
}

func TestBackendFromEnv(t *testing.T) {
	env := newTestEnv(t, "")
	t.Setenv("BEANBASE_BACKEND", "postgres")

	_, errOut, code := env.run(t, "count", "note")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, errOut, "unknown backend")
}
