package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/reconcile"
)

type ListHandler struct {
	screens *Screens
	logger  *slog.Logger
}

func NewListHandler(screens *Screens, logger *slog.Logger) *ListHandler {
	return &ListHandler{screens: screens, logger: logger}
}

type listResponse struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	IsParticipant bool         `json:"is_participant"`
	Syncing       bool         `json:"syncing"`
	Items         []model.Item `json:"items"`
	ServerItems   []model.Item `json:"server_items"`
}

func (h *ListHandler) respond(w http.ResponseWriter, status int, l *reconcile.List) {
	resp := listResponse{
		ID:            l.ListID(),
		Title:         l.Title(),
		IsParticipant: l.IsParticipant(),
		Syncing:       l.Syncing(),
		Items:         l.Items(),
		ServerItems:   l.ServerItems(),
	}
	if resp.Items == nil {
		resp.Items = []model.Item{}
	}
	if resp.ServerItems == nil {
		resp.ServerItems = []model.Item{}
	}
	writeJSON(w, status, resp)
}

// screen resolves the open view named by the {id} path parameter.
func (h *ListHandler) screen(w http.ResponseWriter, r *http.Request) (*reconcile.List, bool) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	l, ok := h.screens.Lookup(id)
	if !ok {
		writeError(w, api.Errorf(api.KindNotFound, "open list", "list %d is not open", id))
		return nil, false
	}
	return l, true
}

// Open loads a list into a screen, or re-loads an open one.
func (h *ListHandler) Open(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	l, created := h.screens.Get(id)
	if err := l.Load(r.Context(), id); err != nil {
		if created {
			h.screens.Close(id)
		}
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, l)
}

func (h *ListHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	h.screens.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

type moveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (h *ListHandler) Move(w http.ResponseWriter, r *http.Request) {
	l, ok := h.screen(w, r)
	if !ok {
		return
	}
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := l.Move(r.Context(), req.From, req.To); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, l)
}

type titleRequest struct {
	Title string `json:"title"`
}

func (h *ListHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	l, ok := h.screen(w, r)
	if !ok {
		return
	}
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := l.CreateItem(r.Context(), req.Title); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusCreated, l)
}

func (h *ListHandler) RenameItem(w http.ResponseWriter, r *http.Request) {
	l, ok := h.screen(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "itemId")
	if err != nil {
		writeError(w, err)
		return
	}
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := l.RenameItem(r.Context(), itemID, req.Title); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, l)
}

func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	l, ok := h.screen(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "itemId")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := l.ToggleBought(r.Context(), itemID); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, l)
}

func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	l, ok := h.screen(w, r)
	if !ok {
		return
	}
	itemID, err := parseIDParam(r, "itemId")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := l.DeleteItem(r.Context(), itemID); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK, l)
}
