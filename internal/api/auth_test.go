package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestLoginReturnsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.co" || req.Password != "hunter22" {
			t.Errorf("unexpected request: %+v", req)
		}
		writeEnvelope(w, 200, "ok", map[string]any{"token": "jwt", "otp": "false", "success": "true"})
	})

	res, err := c.Login(context.Background(), "a@b.co", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.SecondFactor || res.Token != "jwt" {
		t.Errorf("result = %+v", res)
	}
}

func TestLoginRequiresSecondFactor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "ok", map[string]any{"otp": true, "success": true})
	})

	res, err := c.Login(context.Background(), "a@b.co", "hunter22")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.SecondFactor {
		t.Error("expected second factor")
	}
}

func TestLoginRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "fail", map[string]any{"success": "false", "error": "wrong password"})
	})

	_, err := c.Login(context.Background(), "a@b.co", "nope")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want invalid credentials", err)
	}
	if Message(err) != "Email or password is incorrect." {
		t.Errorf("message = %q", Message(err))
	}
}

func TestLoginWithoutTokenIsProtocolError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "ok", map[string]any{"success": true})
	})

	_, err := c.Login(context.Background(), "a@b.co", "hunter22")
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("err = %v, want protocol error", err)
	}
}

func TestVerifySecondFactor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req totpRequest
		json.NewDecoder(r.Body).Decode(&req)
		if !req.LoginAfter || req.EnableAfter {
			t.Errorf("unexpected flags: %+v", req)
		}
		if req.OTP == "123456" {
			writeEnvelope(w, 200, "ok", map[string]any{"token": "jwt", "success": true, "verified": true})
			return
		}
		if req.OTP == "999999" {
			writeEnvelope(w, 200, "fail", map[string]any{"success": false, "error": "too many attempts"})
			return
		}
		writeEnvelope(w, 200, "ok", map[string]any{"success": true, "verified": "false"})
	})
	ctx := context.Background()

	tok, err := c.VerifySecondFactor(ctx, "a@b.co", "123456")
	if err != nil || tok != "jwt" {
		t.Fatalf("verify = %q, %v", tok, err)
	}
	if _, err := c.VerifySecondFactor(ctx, "a@b.co", "000000"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("err = %v, want invalid code", err)
	}
	if _, err := c.VerifySecondFactor(ctx, "a@b.co", "999999"); !errors.Is(err, ErrTooManyAttempts) {
		t.Errorf("err = %v, want too many attempts", err)
	}
}

func TestVerifySecondFactorNeedsBothFlags(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want error
	}{
		{"token only", map[string]any{"token": "jwt"}, ErrProtocol},
		{"verified without success", map[string]any{"token": "jwt", "verified": "true"}, ErrProtocol},
		{"success without verified", map[string]any{"token": "jwt", "success": "true"}, ErrProtocol},
		{"not verified", map[string]any{"token": "jwt", "success": "true", "verified": "false"}, ErrInvalidCode},
		{"not successful", map[string]any{"token": "jwt", "success": "false", "verified": "true"}, ErrInvalidCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, 200, "ok", tt.data)
			})
			tok, err := c.VerifySecondFactor(context.Background(), "a@b.co", "123456")
			if !errors.Is(err, tt.want) {
				t.Errorf("verify = %q, %v; want %v", tok, err, tt.want)
			}
		})
	}
}

func TestCheckSessionFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "fail", nil)
	})
	ok, err := c.CheckSession(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if ok {
		t.Error("expected rejected session")
	}
}

func TestUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "ok", map[string]any{
			"id":                        3,
			"e_mail":                    "a@b.co",
			"username":                  "ann",
			"two_factor_authentication": "true",
			"created_on":                1700000000,
		})
	})
	u, err := c.User(context.Background())
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	if u.Email != "a@b.co" || !u.TwoFactor || u.Username != "ann" {
		t.Errorf("user = %+v", u)
	}
}
