package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/auth"
)

type errorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to the HTTP status the shell answers with.
func statusFor(kind api.Kind) int {
	switch kind {
	case api.KindValidation:
		return http.StatusBadRequest
	case api.KindInvalidCredentials, api.KindInvalidCode, api.KindUnauthorized:
		return http.StatusUnauthorized
	case api.KindTooManyAttempts:
		return http.StatusTooManyRequests
	case api.KindNotFound:
		return http.StatusNotFound
	case api.KindConflict:
		return http.StatusConflict
	case api.KindNetwork, api.KindProtocol, api.KindCorruptCredential:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrWrongState) {
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "WrongState"})
		return
	}
	kind := api.KindOf(err)
	resp := errorResponse{Error: api.Message(err), Kind: kind.String()}
	if kind == api.KindUnauthorized {
		resp.Redirect = auth.RedirectLogin
	}
	writeJSON(w, statusFor(kind), resp)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return api.Errorf(api.KindValidation, "decode request", "invalid JSON")
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.Errorf(api.KindValidation, "parse path", "invalid %s", name)
	}
	return id, nil
}
