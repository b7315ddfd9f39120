package model

import "time"

type ShoppingList struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Items         []Item        `json:"items"`
	Owner         string        `json:"owner"`
	Participants  []Participant `json:"participants"`
	IsParticipant bool          `json:"is_participant"`
	CreatedAt     time.Time     `json:"created_at"`
	ModifiedAt    time.Time     `json:"modified_at"`
}

type Item struct {
	ID           int64  `json:"id"`
	ParentListID int64  `json:"parent_list_id"`
	Title        string `json:"title"`
	Position     int64  `json:"position"`
	Bought       bool   `json:"bought"`
}

type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantAccepted ParticipantStatus = "accepted"
)

type Participant struct {
	ID           int64             `json:"id"`
	ParentListID int64             `json:"parent_list_id"`
	Email        string            `json:"email"`
	Status       ParticipantStatus `json:"status"`
	RequestFrom  string            `json:"request_from,omitempty"`
	CreatedAt    *time.Time        `json:"created_at,omitempty"`
}
