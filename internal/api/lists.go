package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/shoplist/internal/model"
)

// GetList fetches a list with its items.
func (c *Client) GetList(ctx context.Context, id int64) (*model.ShoppingList, error) {
	const op = "get list"
	resp, err := c.do(ctx, op, http.MethodGet, fmt.Sprintf("list/%d", id), nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindNotFound)
	}

	var w listWire
	if err := resp.decode(op, &w); err != nil {
		return nil, err
	}
	if w.rejected() {
		return nil, &Error{Kind: KindNotFound, Op: op, Message: w.Error}
	}
	if w.ID == 0 {
		w.ID = id
	}
	l := w.model()
	l.IsParticipant = bool(resp.env.IsParticipant)
	return &l, nil
}

// Lists returns every list the user owns or participates in.
func (c *Client) Lists(ctx context.Context) ([]model.ShoppingList, error) {
	const op = "list lists"
	resp, err := c.do(ctx, op, http.MethodGet, "lists", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindUnauthorized)
	}

	var ws []listWire
	if err := resp.decodeOptional(op, &ws); err != nil {
		return nil, err
	}
	lists := make([]model.ShoppingList, 0, len(ws))
	for _, w := range ws {
		lists = append(lists, w.model())
	}
	return lists, nil
}

type createListRequest struct {
	Title string `json:"title"`
}

// CreateList creates an empty list owned by the current user.
func (c *Client) CreateList(ctx context.Context, title string) (*model.ShoppingList, error) {
	const op = "create list"
	resp, err := c.do(ctx, op, http.MethodPost, "list", createListRequest{Title: title})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindValidation)
	}

	var w listWire
	if err := resp.decodeOptional(op, &w); err != nil {
		return nil, err
	}
	if w.rejected() {
		return nil, &Error{Kind: KindValidation, Op: op, Message: w.Error}
	}
	if w.Title == "" {
		w.Title = title
	}
	l := w.model()
	return &l, nil
}

// DeleteList removes a list the user owns.
func (c *Client) DeleteList(ctx context.Context, id int64) error {
	return c.expect(ctx, "delete list", http.MethodDelete, fmt.Sprintf("list/%d", id), nil, KindNotFound)
}
