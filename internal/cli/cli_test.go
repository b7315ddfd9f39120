package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/config"
	"github.com/dukerupert/shoplist/internal/database"
	"github.com/dukerupert/shoplist/internal/store"
)

// backend stands in for the remote shopping-list API.
type backend struct {
	mu           sync.Mutex
	otp          bool
	valid        bool
	totpAttempts int
	nextID       int64
	created      []int64
	items        []map[string]any
}

func (b *backend) reply(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"code": status, "message": "ok", "data": data})
}

func (b *backend) token() string {
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "a@b.co",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	return tok
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth":
		if b.otp {
			b.reply(w, 200, map[string]any{"otp": "true", "success": "true"})
			return
		}
		b.valid = true
		b.reply(w, 200, map[string]any{"token": b.token(), "otp": "false", "success": "true"})
	case r.Method == http.MethodPost && r.URL.Path == "/totp":
		var req struct {
			OTP string `json:"otp"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.totpAttempts++
		if req.OTP != "123456" {
			b.reply(w, 200, map[string]any{"verified": "false", "error": "Invalid code"})
			return
		}
		b.valid = true
		b.reply(w, 200, map[string]any{"verified": "true", "success": "true", "token": b.token()})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/check":
		if !b.valid {
			b.reply(w, 401, map[string]any{"success": "false"})
			return
		}
		b.reply(w, 200, map[string]any{"success": "true"})
	case r.Method == http.MethodPost && r.URL.Path == "/auth/logout":
		b.valid = false
		b.reply(w, 200, nil)
	case r.Method == http.MethodGet && r.URL.Path == "/lists":
		b.reply(w, 200, []map[string]any{{"id": 7, "title": "Groceries"}, {"id": 9, "title": "Hardware"}})
	case r.Method == http.MethodGet && r.URL.Path == "/list/7":
		b.reply(w, 200, map[string]any{"id": 7, "title": "Groceries", "items": b.items})
	case r.Method == http.MethodPost && r.URL.Path == "/list/items":
		var req struct {
			Title    string `json:"title"`
			Position int64  `json:"position"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.nextID++
		it := map[string]any{"id": b.nextID, "title": req.Title, "position": req.Position, "bought": false}
		b.items = append(b.items, it)
		b.created = append(b.created, req.Position)
		b.reply(w, 200, it)
	case r.Method == http.MethodPut && r.URL.Path == "/items":
		var req struct {
			Items []struct {
				ID       int64 `json:"id"`
				Position int64 `json:"position"`
			} `json:"items"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		for _, u := range req.Items {
			for _, it := range b.items {
				if it["id"] == u.ID {
					it["position"] = u.Position
				}
			}
		}
		b.reply(w, 200, map[string]any{"success": true})
	default:
		b.reply(w, 404, nil)
	}
}

type harness struct {
	backend *backend
	remote  *httptest.Server
	store   *store.CredentialStore
}

func setupHarness(t *testing.T) *harness {
	t.Helper()
	be := &backend{nextID: 3, items: []map[string]any{
		{"id": int64(1), "title": "Milk", "position": int64(1), "bought": false},
		{"id": int64(2), "title": "Eggs", "position": int64(2), "bought": true},
		{"id": int64(3), "title": "Bread", "position": int64(3), "bought": false},
	}}
	remote := httptest.NewServer(be)
	t.Cleanup(remote.Close)

	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &harness{backend: be, remote: remote, store: store.NewCredentialStore(db, nil)}
}

// open mirrors OpenApp against the fake backend and a shared store, so
// a session survives from one command to the next.
func (h *harness) open(ctx context.Context, opts *RootOptions) (*App, error) {
	cfg := &config.Config{APIURL: h.remote.URL, Timeout: 5 * time.Second}
	app, err := NewApp(cfg, h.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return nil, err
	}
	if err := app.Machine.Restore(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func (h *harness) execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(&RootOptions{open: h.open, stderr: io.Discard})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.execute(t, "", "login", "--email", "a@b.co", "--password", "hunter22")
	require.NoError(t, err)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"login", "logout", "status", "lists", "list", "item", "participants", "invitations", "notifications", "backupcodes", "serve"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestInvalidFormat(t *testing.T) {
	h := setupHarness(t)

	_, err := h.execute(t, "", "--format", "xml", "status")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestLoginThenStatus(t *testing.T) {
	h := setupHarness(t)

	out, err := h.execute(t, "", "login", "--email", "a@b.co", "--password", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "logged in as a@b.co\n", out)

	out, err = h.execute(t, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "status: authenticated")
	assert.Contains(t, out, "email: a@b.co")
	assert.Contains(t, out, "check: success")
}

func TestLoginPromptsForCredentials(t *testing.T) {
	h := setupHarness(t)

	out, err := h.execute(t, "a@b.co\nhunter22\n", "login")
	require.NoError(t, err)
	assert.Equal(t, "logged in as a@b.co\n", out)
}

func TestLoginSecondFactorRetries(t *testing.T) {
	h := setupHarness(t)
	h.backend.otp = true

	out, err := h.execute(t, "000000\n123 456\n", "login", "--email", "a@b.co", "--password", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "logged in as a@b.co\n", out)
	assert.Equal(t, 2, h.backend.totpAttempts)
}

func TestLoginSecondFactorInputEnds(t *testing.T) {
	h := setupHarness(t)
	h.backend.otp = true

	_, err := h.execute(t, "000000\n", "login", "--email", "a@b.co", "--password", "hunter22")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestLoginRejectsBadEmail(t *testing.T) {
	h := setupHarness(t)

	_, err := h.execute(t, "", "login", "--email", "nope", "--password", "hunter22")
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestLoginWhenAlreadyAuthenticated(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	_, err := h.execute(t, "", "login", "--email", "a@b.co", "--password", "hunter22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already logged in")
}

func TestCommandsRequireSession(t *testing.T) {
	h := setupHarness(t)

	_, err := h.execute(t, "", "lists")
	require.Error(t, err)
	assert.Equal(t, ExitUnauthorized, ExitCode(err))
}

func TestLogoutForgetsSession(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	out, err := h.execute(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "logged out\n", out)

	_, err = h.execute(t, "", "lists")
	assert.Equal(t, ExitUnauthorized, ExitCode(err))
}

func TestLists(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	out, err := h.execute(t, "", "lists")
	require.NoError(t, err)
	assert.Equal(t, "     7  owner   Groceries\n     9  owner   Hardware\n", out)
}

func TestListShowGolden(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	out, err := h.execute(t, "", "list", "show", "7")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "list_show", []byte(out))
}

func TestItemMoveJSON(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	out, err := h.execute(t, "", "--format", "json", "item", "move", "7", "1", "3")
	require.NoError(t, err)

	var resp struct {
		Status string   `json:"status"`
		Data   listView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	var titles []string
	for _, it := range resp.Data.Items {
		titles = append(titles, it.Title)
	}
	assert.Equal(t, []string{"Eggs", "Bread", "Milk"}, titles)
}

func TestItemMoveOutOfRange(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	_, err := h.execute(t, "", "item", "move", "7", "1", "4")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestItemAddAppends(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	out, err := h.execute(t, "", "item", "add", "7", "Oat", "milk")
	require.NoError(t, err)
	assert.Contains(t, out, "  4. [ ] Oat milk  (id 4)")
	assert.Equal(t, []int64{4}, h.backend.created)
}

func TestParseIDRejectsGarbage(t *testing.T) {
	h := setupHarness(t)
	h.login(t)

	_, err := h.execute(t, "", "list", "show", "seven")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit error", NewExitError(ExitCommandError, "bad"), ExitCommandError},
		{"unauthorized", api.Errorf(api.KindUnauthorized, "op", "no"), ExitUnauthorized},
		{"network", api.Errorf(api.KindNetwork, "op", "down"), ExitUnavailable},
		{"validation", api.Errorf(api.KindValidation, "op", "bad"), ExitCommandError},
		{"conflict", api.Errorf(api.KindConflict, "op", "taken"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
