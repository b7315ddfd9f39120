package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/dukerupert/shoplist/internal/model"
)

// LoginResult is the outcome of an accepted login. Exactly one of Token
// and SecondFactor is meaningful.
type LoginResult struct {
	Token        string
	SecondFactor bool
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login submits credentials to the authenticator.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const op = "login"
	resp, err := c.do(ctx, op, http.MethodPost, "auth", loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		e := resp.rejection(op, KindInvalidCredentials)
		e.Kind = KindInvalidCredentials
		return nil, e
	}

	var data loginData
	if err := resp.decode(op, &data); err != nil {
		return nil, err
	}
	if data.rejected() {
		return nil, &Error{Kind: KindInvalidCredentials, Op: op, Message: data.Error}
	}
	if data.OTP {
		return &LoginResult{SecondFactor: true}, nil
	}
	if data.Token == "" {
		return nil, Errorf(KindProtocol, op, "response carries neither token nor otp flag")
	}
	return &LoginResult{Token: data.Token}, nil
}

type totpRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	LoginAfter  bool   `json:"login_after"`
	EnableAfter bool   `json:"enable_after"`
}

// VerifySecondFactor submits a TOTP code for a login in progress and
// returns the session token.
func (c *Client) VerifySecondFactor(ctx context.Context, email, code string) (string, error) {
	const op = "verify second factor"
	resp, err := c.do(ctx, op, http.MethodPost, "totp", totpRequest{
		Email:      email,
		OTP:        code,
		LoginAfter: true,
	})
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		e := resp.rejection(op, KindInvalidCode)
		e.Kind = codeFailureKind(e.Message)
		return "", e
	}

	var data totpData
	if err := resp.decode(op, &data); err != nil {
		return "", err
	}
	if data.rejected() || (data.Verified != nil && !bool(*data.Verified)) {
		msg := data.Error
		if msg == "" {
			msg = data.Message
		}
		return "", &Error{Kind: codeFailureKind(msg), Op: op, Message: msg}
	}
	// Acceptance is explicit: both flags present and true.
	if data.Success == nil || data.Verified == nil {
		return "", Errorf(KindProtocol, op, "response does not confirm the code")
	}
	if data.Token == "" {
		return "", Errorf(KindProtocol, op, "verified response has no token")
	}
	return data.Token, nil
}

// codeFailureKind separates backend rate limiting from a wrong code.
func codeFailureKind(msg string) Kind {
	m := strings.ToLower(msg)
	if strings.Contains(m, "too many") || strings.Contains(m, "rate limit") {
		return KindTooManyAttempts
	}
	return KindInvalidCode
}

// CheckSession asks the backend whether the current credential is still
// valid. A false result with a nil error is a definitive rejection.
func (c *Client) CheckSession(ctx context.Context) (bool, error) {
	const op = "check session"
	resp, err := c.do(ctx, op, http.MethodPost, "auth/check", nil)
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, nil
	}
	var data checkData
	if err := resp.decode(op, &data); err != nil {
		return false, err
	}
	return data.Success != nil && bool(*data.Success), nil
}

// Logout invalidates the credential server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.expect(ctx, "logout", http.MethodPost, "auth/logout", nil, KindUnauthorized)
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, username, password string) error {
	return c.expect(ctx, "register", http.MethodPost, "auth/register",
		registerRequest{Email: email, Username: username, Password: password}, KindValidation)
}

// User returns the account behind the current session.
func (c *Client) User(ctx context.Context) (*model.User, error) {
	const op = "get user"
	resp, err := c.do(ctx, op, http.MethodGet, "auth/user", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindUnauthorized)
	}
	var w userWire
	if err := resp.decode(op, &w); err != nil {
		return nil, err
	}
	u := w.model()
	return &u, nil
}
