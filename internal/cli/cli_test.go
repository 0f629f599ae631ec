package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/auth"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/query"
	"github.com/Makepad-fr/tada/internal/store/remote/remotetest"
)

func init() { color.NoColor = true }

type harness struct {
	srv         *remotetest.Server
	env         map[string]string
	out, errOut bytes.Buffer
	tuiRuns     int
}

func newHarness(t *testing.T, items ...model.Item) *harness {
	t.Helper()
	srv := remotetest.New(items...)
	srv.Token = "secret"
	t.Cleanup(srv.Close)
	return &harness{
		srv: srv,
		env: map[string]string{
			"TADA_HOME":     t.TempDir(),
			"TADA_BASE_URL": srv.URL,
			"TADA_TOKEN":    "secret",
		},
	}
}

func (h *harness) run(stdin string, args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	a := newApp()
	a.getenv = func(k string) string { return h.env[k] }
	a.in = strings.NewReader(stdin)
	a.out = &h.out
	a.errOut = &h.errOut
	a.runTUI = func(_ query.Store, logger *log.Logger) error {
		h.tuiRuns++
		logger.Warn("refetch failed", "err", "boom")
		return nil
	}
	return run(context.Background(), args, a)
}

func TestCommandTree(t *testing.T) {
	root := newRootCmd(newApp())
	assert.Equal(t, "todo", root.Use)
	assert.NotEmpty(t, root.Short)
	for _, f := range []string{"base-url", "verbose", "theme", "color"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(f), f)
	}
	assert.Contains(t, root.PersistentFlags().Lookup("theme").Usage, "neon")

	cases := map[string][]string{
		"ls":      {"plain", "group"},
		"add":     {"content"},
		"edit":    {"title", "content"},
		"done":    nil,
		"rm":      nil,
		"refresh": nil,
	}
	for name, flags := range cases {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
		for _, f := range flags {
			assert.NotNil(t, cmd.Flags().Lookup(f), name+" --"+f)
		}
	}

	for _, sub := range []string{"login", "logout", "status", "whoami"} {
		cmd, _, err := root.Find([]string{"auth", sub})
		require.NoError(t, err)
		assert.Equal(t, sub, cmd.Name())
	}
	for _, sub := range []string{"show", "set"} {
		cmd, _, err := root.Find([]string{"config", sub})
		require.NoError(t, err)
		assert.Equal(t, sub, cmd.Name())
	}
}

func TestAddPrintsNotificationAndSummary(t *testing.T) {
	h := newHarness(t)

	code := h.run("", "add", "Buy", "milk", "--content", "2L")
	require.Equal(t, 0, code, h.errOut.String())
	assert.Contains(t, h.out.String(), "✔ Todo added")
	assert.Contains(t, h.out.String(), "Total 1")

	items := h.srv.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)
	assert.Equal(t, "2L", items[0].Content)
	// create, then one refetch for the summary
	assert.Equal(t, 1, h.srv.Count(http.MethodGet))
}

func TestAddBlankTitle(t *testing.T) {
	h := newHarness(t)

	code := h.run("", "add", "   ")
	assert.Equal(t, 2, code)
	assert.Equal(t, 1, strings.Count(h.errOut.String(), "title is required"))
	assert.Equal(t, 0, h.srv.Count(http.MethodPost))
}

func TestMissingToken(t *testing.T) {
	h := newHarness(t)
	delete(h.env, "TADA_TOKEN")

	code := h.run("", "ls", "--plain")
	assert.Equal(t, 2, code)
	assert.Contains(t, h.errOut.String(), "no token found")
	assert.Empty(t, h.srv.Requests())
}

func TestDoneTogglesFromCurrentState(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A"}, model.Item{ID: "2", Title: "B", IsCompleted: true})

	require.Equal(t, 0, h.run("", "done", "1"), h.errOut.String())
	assert.Contains(t, h.out.String(), "✔ Todo status updated")

	require.Equal(t, 0, h.run("", "done", "#2"), h.errOut.String())

	var patches []string
	for _, r := range h.srv.Requests() {
		if r.Method == http.MethodPatch {
			patches = append(patches, r.Body)
		}
	}
	require.Len(t, patches, 2)
	assert.JSONEq(t, `{"is_completed":true}`, patches[0])
	assert.JSONEq(t, `{"is_completed":false}`, patches[1])
}

func TestDoneUnknownID(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A"})

	assert.Equal(t, 2, h.run("", "done", "9"))
	assert.Contains(t, h.errOut.String(), "no item with id 9")
	assert.Contains(t, h.errOut.String(), "todo ls --plain")
	assert.Equal(t, 0, h.srv.Count(http.MethodPatch))
}

func TestEditSendsOnlyChangedFields(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A", Content: "keep"})

	require.Equal(t, 0, h.run("", "edit", "1", "--title", "A2"), h.errOut.String())
	assert.Contains(t, h.out.String(), "✔ Todo updated")

	reqs := h.srv.Requests()
	var body string
	for _, r := range reqs {
		if r.Method == http.MethodPatch {
			body = r.Body
		}
	}
	assert.JSONEq(t, `{"title":"A2"}`, body)
	assert.Equal(t, "keep", h.srv.Items()[0].Content)

	assert.Equal(t, 2, h.run("", "edit", "1"))
	assert.Contains(t, h.errOut.String(), "nothing to change")
}

func TestRemoveServerErrorPrintedOnce(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A"})
	h.srv.FailNext(http.MethodDelete, http.StatusInternalServerError)

	assert.Equal(t, 1, h.run("", "rm", "1"))
	assert.Equal(t, 1, strings.Count(h.errOut.String(), "error deleting todo: 500"))
	assert.Len(t, h.srv.Items(), 1)

	require.Equal(t, 0, h.run("", "rm", "1"), h.errOut.String())
	assert.Contains(t, h.out.String(), "✔ Todo deleted")
	assert.Empty(t, h.srv.Items())
}

func TestListPlain(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A"}, model.Item{ID: "2", Title: "B", IsCompleted: true})

	require.Equal(t, 0, h.run("", "ls", "--plain", "--group"), h.errOut.String())
	out := h.out.String()
	assert.Contains(t, out, "Pending")
	assert.Contains(t, out, "Done")
	assert.Contains(t, out, "#1")
	assert.Contains(t, out, "Total 2")
	assert.Equal(t, 0, h.tuiRuns)
}

func TestListFetchError(t *testing.T) {
	h := newHarness(t)
	h.srv.FailNext(http.MethodGet, http.StatusUnauthorized)

	assert.Equal(t, 1, h.run("", "ls", "--plain"))
	assert.Contains(t, h.errOut.String(), "error fetching todos: 401")
}

func TestListInteractive(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "ls", "--verbose"))
	assert.Equal(t, 1, h.tuiRuns)
	// nothing may be written under the alternate screen
	assert.NotContains(t, h.errOut.String(), "refetch failed")
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, model.Item{ID: "1", Title: "A"})
	require.Equal(t, 0, h.run("", "refresh"), h.errOut.String())
	assert.Contains(t, h.out.String(), "Total 1")
	assert.Equal(t, 1, h.srv.Count(http.MethodGet))
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run(""))
	assert.Equal(t, 2, h.run("", "bogus"))
	assert.Contains(t, h.errOut.String(), "unknown subcommand: bogus")
	assert.Equal(t, 2, h.run("", "done"))
	assert.Contains(t, h.errOut.String(), "usage: todo done <id>")
	assert.Equal(t, 2, h.run("", "ls", "--nope"))
	assert.Empty(t, h.srv.Requests())
}

func TestAuthLifecycle(t *testing.T) {
	h := newHarness(t)
	delete(h.env, "TADA_TOKEN")

	require.Equal(t, 0, h.run("", "auth", "status"))
	assert.Contains(t, h.out.String(), "not logged in")

	require.Equal(t, 0, h.run("Bearer secret\n", "auth", "login"))
	assert.Contains(t, h.out.String(), "logged in")
	_, err := os.Stat(filepath.Join(h.env["TADA_HOME"], "credentials.json"))
	require.NoError(t, err)

	require.Equal(t, 0, h.run("", "auth", "status"))
	assert.Contains(t, h.out.String(), "source: file")
	assert.Contains(t, h.out.String(), "expires: (unknown)")

	require.Equal(t, 0, h.run("", "auth", "whoami"))
	assert.Contains(t, h.out.String(), "Opaque token")

	// the saved token is the one sent
	require.Equal(t, 0, h.run("", "ls", "--plain"), h.errOut.String())

	require.Equal(t, 0, h.run("", "auth", "logout"))
	assert.Equal(t, 2, h.run("", "auth", "whoami"))
}

func TestAuthLogoutWithEnvToken(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "auth", "logout"))
	assert.Contains(t, h.out.String(), "nothing to delete")
}

func TestAuthWhoAmIJWT(t *testing.T) {
	h := newHarness(t)
	enc := base64.RawURLEncoding.EncodeToString
	h.env["TADA_TOKEN"] = enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(`{"sub":"ada","exp":4102444800}`)) + ".sig"

	require.Equal(t, 0, h.run("", "auth", "whoami"))
	assert.Contains(t, h.out.String(), "JWT payload:")
	assert.Contains(t, h.out.String(), `"sub": "ada"`)
}

func TestConfigSetAndShow(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("", "config", "set", "collection", "chores"), h.errOut.String())
	require.Equal(t, 0, h.run("", "config", "show"))
	assert.Contains(t, h.out.String(), `collection = "chores"`)

	assert.Equal(t, 2, h.run("", "config", "set", "colour", "red"))
	assert.Contains(t, h.errOut.String(), "unknown key")

	// env is not written back to the file
	data, err := os.ReadFile(filepath.Join(h.env["TADA_HOME"], "config.toml"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), h.srv.URL)
}

func TestBadLogLevelCanBeRepaired(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, 2, h.run("", "config", "set", "log_level", "loud"))
	assert.Contains(t, h.errOut.String(), "log_level")

	// a bad value written by hand still leaves config usable
	path := filepath.Join(h.env["TADA_HOME"], "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`log_level = "loud"`+"\n"), 0o644))

	assert.Equal(t, 2, h.run("", "ls", "--plain"))
	assert.Contains(t, h.errOut.String(), "todo config set log_level warn")

	require.Equal(t, 0, h.run("", "config", "set", "log_level", "warn"), h.errOut.String())
	require.Equal(t, 0, h.run("", "ls", "--plain"), h.errOut.String())
}

func TestBaseURLFlagOverridesEnv(t *testing.T) {
	h := newHarness(t)
	real := h.env["TADA_BASE_URL"]
	h.env["TADA_BASE_URL"] = "http://127.0.0.1:1"

	require.Equal(t, 0, h.run("", "ls", "--plain", "--base-url", real), h.errOut.String())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(usagef("x")))
	assert.Equal(t, 2, exitCode(&reportedError{err: &model.ValidationError{Field: "title", Reason: "is required"}}))
	assert.Equal(t, 2, exitCode(auth.ErrNoToken))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
