package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/api", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"code":    status,
		"message": message,
		"data":    data,
	})
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	if _, err := NewClient(Config{BaseURL: "ftp://example.com"}); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}

func TestRequestHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/check" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}
		if got := r.Header.Get("User-Agent"); got != "shoplist" {
			t.Errorf("user agent = %q", got)
		}
		writeEnvelope(w, 200, "ok", map[string]any{"success": "true"})
	})
	c.SetToken("tok")

	ok, err := c.CheckSession(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok {
		t.Error("expected session valid")
	}
}

func TestNetworkErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Logger: discardLogger()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.CheckSession(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want network error", err)
	}
}

func TestServerErrorIsNetwork(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.GetList(context.Background(), 1)
	if KindOf(err) != KindNetwork {
		t.Errorf("kind = %v, want NetworkError", KindOf(err))
	}
}

func TestTooManyRequests(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := c.Login(context.Background(), "a@b.co", "secret")
	if !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("err = %v, want too many attempts", err)
	}
}

func TestMalformedBodyIsProtocol(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>oops</html>")
	})
	_, err := c.GetList(context.Background(), 1)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("err = %v, want protocol error", err)
	}
}

func TestNotAuthorizedMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "not authorized to access this route", nil)
	})
	_, err := c.Lists(context.Background())
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

func TestSetTokenEmptyClearsCookies(t *testing.T) {
	var sawCookie atomic.Bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("session"); err == nil {
			sawCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeEnvelope(w, 200, "ok", map[string]any{"success": true})
	})
	ctx := context.Background()

	c.CheckSession(ctx)
	c.CheckSession(ctx)
	if !sawCookie.Load() {
		t.Fatal("expected cookie to be replayed")
	}

	sawCookie.Store(false)
	c.SetToken("")
	c.CheckSession(ctx)
	if sawCookie.Load() {
		t.Error("expected cookie jar to be reset")
	}
}

func TestMetricsObserved(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/list/2") {
			writeEnvelope(w, 404, "fail", map[string]any{"error": "no such list"})
			return
		}
		writeEnvelope(w, 200, "ok", map[string]any{"id": 1, "title": "Groceries"})
	}))
	t.Cleanup(srv.Close)

	m := NewMetrics(reg)
	c, err := NewClient(Config{BaseURL: srv.URL, Logger: discardLogger(), Metrics: m})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	c.GetList(ctx, 1)
	c.GetList(ctx, 2)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var count float64
	for _, mf := range families {
		if mf.GetName() != "shoplist_api_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			count += metric.GetCounter().GetValue()
		}
	}
	if count != 2 {
		t.Errorf("request count = %v, want 2", count)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExpectPayloadShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"array", `[1,2]`, nil},
		{"scalar", `"done"`, nil},
		{"null", `null`, nil},
		{"success object", `{"success":"true"}`, nil},
		{"rejected object", `{"success":"false","error":"nope"}`, ErrConflict},
		{"malformed object", `{"success":"maybe"}`, ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":200,"message":"ok","data":` + tt.data + `}`))
			})
			err := c.AddParticipant(context.Background(), 4, "b@c.co")
			if tt.want == nil {
				if err != nil {
					t.Errorf("err = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
