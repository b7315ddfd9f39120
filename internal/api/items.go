package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/shoplist/internal/model"
)

type createItemRequest struct {
	ListID   int64  `json:"id"`
	Title    string `json:"title"`
	Position int64  `json:"position"`
}

// CreateItem adds an item to a list at the given position.
func (c *Client) CreateItem(ctx context.Context, listID int64, title string, position int64) (*model.Item, error) {
	const op = "create item"
	resp, err := c.do(ctx, op, http.MethodPost, "list/items", createItemRequest{
		ListID:   listID,
		Title:    title,
		Position: position,
	})
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindConflict)
	}

	var w itemWire
	if err := resp.decode(op, &w); err != nil {
		return nil, err
	}
	item := w.model()
	if item.ParentListID == 0 {
		item.ParentListID = listID
	}
	return &item, nil
}

type positionUpdate struct {
	ParentListID int64      `json:"parent_list_id"`
	Items        []itemWire `json:"items"`
}

func toWire(item model.Item) itemWire {
	return itemWire{
		ID:           item.ID,
		ParentListID: item.ParentListID,
		Title:        item.Title,
		Position:     item.Position,
		Bought:       Flag(item.Bought),
	}
}

// UpdatePositions persists new positions for a batch of items in one
// request.
func (c *Client) UpdatePositions(ctx context.Context, listID int64, items []model.Item) error {
	req := positionUpdate{ParentListID: listID, Items: make([]itemWire, 0, len(items))}
	for _, it := range items {
		req.Items = append(req.Items, toWire(it))
	}
	return c.expect(ctx, "update positions", http.MethodPut, "items", req, KindConflict)
}

type deleteItemRequest struct {
	ID           int64 `json:"id"`
	ParentListID int64 `json:"parent_list_id"`
}

// DeleteItem removes an item from a list.
func (c *Client) DeleteItem(ctx context.Context, listID, itemID int64) error {
	return c.expect(ctx, "delete item", http.MethodDelete, "item",
		deleteItemRequest{ID: itemID, ParentListID: listID}, KindConflict)
}

// UpdateItem persists every field of item.
func (c *Client) UpdateItem(ctx context.Context, item model.Item) error {
	return c.expect(ctx, "update item", http.MethodPut, fmt.Sprintf("item/%d", item.ID), toWire(item), KindConflict)
}
