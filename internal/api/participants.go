package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dukerupert/shoplist/internal/model"
)

func (c *Client) participants(ctx context.Context, op, path string) ([]model.Participant, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindNotFound)
	}
	var ws []participantWire
	if err := resp.decodeOptional(op, &ws); err != nil {
		return nil, err
	}
	out := make([]model.Participant, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.model())
	}
	return out, nil
}

// Participants lists who has been invited to a list.
func (c *Client) Participants(ctx context.Context, listID int64) ([]model.Participant, error) {
	return c.participants(ctx, "list participants", fmt.Sprintf("participants/%d", listID))
}

// Invitations lists pending invitations addressed to the current user.
func (c *Client) Invitations(ctx context.Context) ([]model.Participant, error) {
	return c.participants(ctx, "list invitations", "participant/requests")
}

type addParticipantRequest struct {
	ParentListID int64  `json:"parentListId"`
	Email        string `json:"email"`
}

// AddParticipant invites email to a list.
func (c *Client) AddParticipant(ctx context.Context, listID int64, email string) error {
	return c.expect(ctx, "add participant", http.MethodPost, "participant",
		addParticipantRequest{ParentListID: listID, Email: email}, KindConflict)
}

// RemoveParticipant withdraws an invitation or removes a participant.
func (c *Client) RemoveParticipant(ctx context.Context, listID, participantID int64) error {
	return c.expect(ctx, "remove participant", http.MethodDelete,
		fmt.Sprintf("participant/%d/%d", listID, participantID), nil, KindNotFound)
}

type acceptInvitationRequest struct {
	ID int64 `json:"id"`
}

// AcceptInvitation accepts the invitation with the given participant id.
func (c *Client) AcceptInvitation(ctx context.Context, id int64) error {
	return c.expect(ctx, "accept invitation", http.MethodPost, "participant/requests",
		acceptInvitationRequest{ID: id}, KindNotFound)
}

// Notifications returns the current user's notifications.
func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	const op = "list notifications"
	resp, err := c.do(ctx, op, http.MethodGet, "notifications", nil)
	if err != nil {
		return nil, err
	}
	if !resp.ok() {
		return nil, resp.rejection(op, KindUnauthorized)
	}
	var ws []notificationWire
	if err := resp.decodeOptional(op, &ws); err != nil {
		return nil, err
	}
	out := make([]model.Notification, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.model())
	}
	return out, nil
}

type hasUnreadData struct {
	status
	Has Flag `json:"has"`
}

// HasUnreadNotifications reports whether any notification is unread.
func (c *Client) HasUnreadNotifications(ctx context.Context) (bool, error) {
	const op = "has unread notifications"
	resp, err := c.do(ctx, op, http.MethodGet, "notifications/n/hasunread", nil)
	if err != nil {
		return false, err
	}
	if !resp.ok() {
		return false, resp.rejection(op, KindUnauthorized)
	}
	var data hasUnreadData
	if err := resp.decode(op, &data); err != nil {
		return false, err
	}
	if data.rejected() {
		return false, &Error{Kind: KindProtocol, Op: op, Message: data.Error}
	}
	return bool(data.Has), nil
}
