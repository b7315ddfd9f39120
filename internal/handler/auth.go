package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/model"
)

type AuthHandler struct {
	machine *auth.Machine
	logger  *slog.Logger
}

func NewAuthHandler(m *auth.Machine, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{machine: m, logger: logger}
}

type sessionResponse struct {
	model.Session
	Redirect string `json:"redirect,omitempty"`
}

func (h *AuthHandler) respond(w http.ResponseWriter) {
	s := h.machine.Session()
	resp := sessionResponse{Session: s}
	switch s.Status {
	case model.StatusPendingTwoFactor:
		resp.Redirect = auth.RedirectSecondFactor
	case model.StatusAuthenticated:
		resp.Redirect = auth.RedirectDashboard
	default:
		resp.Redirect = auth.RedirectLogin
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	h.respond(w)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.machine.SubmitCredentials(r.Context(), req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w)
}

type codeRequest struct {
	Code string `json:"code"`
}

func (h *AuthHandler) SecondFactor(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.machine.SubmitSecondFactor(r.Context(), req.Code); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w)
}

func (h *AuthHandler) CancelSecondFactor(w http.ResponseWriter, r *http.Request) {
	if err := h.machine.CancelSecondFactor(); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.machine.Logout(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w)
}

type checkResponse struct {
	Result   auth.CheckResult `json:"result"`
	Error    string           `json:"error,omitempty"`
	Redirect string           `json:"redirect,omitempty"`
}

func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	res, err := h.machine.CheckSession(r.Context())
	resp := checkResponse{Result: res}
	if err != nil {
		h.logger.Warn("session check inconclusive", "error", err)
		resp.Error = err.Error()
	}
	if res == auth.CheckFail {
		resp.Redirect = auth.RedirectLogin
	}
	writeJSON(w, http.StatusOK, resp)
}
