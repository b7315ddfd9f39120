package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/shoplist/internal/model"
)

// Flag decodes the backend's booleans, which arrive either as JSON
// booleans or as the strings "true"/"false".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = false
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			*f = true
		case "false", "0", "":
			*f = false
		default:
			return fmt.Errorf("invalid boolean string %q", s)
		}
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid boolean %s", b)
	}
	*f = Flag(v)
	return nil
}

func (f Flag) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(f))
}

// Code is the application-level status code of an envelope. The backend
// sends it as a number on some routes and as a string on others.
type Code int

func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*c = 0
			return nil
		}
		*c = Code(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid code %s", b)
	}
	*c = Code(n)
	return nil
}

const (
	messageOK   = "ok"
	messageFail = "fail"

	messageNotAuthorized = "not authorized to access this route"
)

type envelope struct {
	Code          Code            `json:"code"`
	Message       string          `json:"message"`
	Data          json.RawMessage `json:"data"`
	IsParticipant Flag            `json:"is_participant"`
}

func (e *envelope) failed() bool {
	m := strings.ToLower(strings.TrimSpace(e.Message))
	return m == messageFail || m == messageNotAuthorized
}

// status is the common {success, error} payload most routes return.
type status struct {
	Success *Flag  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// rejected reports an explicit success:"false" in the payload. A missing
// success field is not a rejection.
func (s status) rejected() bool {
	return s.Success != nil && !bool(*s.Success)
}

type loginData struct {
	status
	Token string `json:"token"`
	OTP   Flag   `json:"otp"`
}

type totpData struct {
	status
	Token    string `json:"token"`
	Verified *Flag  `json:"verified"`
}

type checkData struct {
	status
	Token string `json:"token"`
}

type itemWire struct {
	ID           int64  `json:"id"`
	ParentListID int64  `json:"parentListId"`
	Title        string `json:"title"`
	Position     int64  `json:"position"`
	Bought       Flag   `json:"bought"`
}

func (w itemWire) model() model.Item {
	return model.Item{
		ID:           w.ID,
		ParentListID: w.ParentListID,
		Title:        w.Title,
		Position:     w.Position,
		Bought:       bool(w.Bought),
	}
}

type participantWire struct {
	ID           int64  `json:"id"`
	ParentListID int64  `json:"parentListId"`
	Email        string `json:"email"`
	Status       string `json:"status"`
	RequestFrom  string `json:"request_from"`
	CreatedOn    int64  `json:"created_on"`
}

func (w participantWire) model() model.Participant {
	p := model.Participant{
		ID:           w.ID,
		ParentListID: w.ParentListID,
		Email:        w.Email,
		Status:       model.ParticipantStatus(strings.ToLower(w.Status)),
		RequestFrom:  w.RequestFrom,
	}
	if p.Status == "" {
		p.Status = model.ParticipantPending
	}
	if w.CreatedOn > 0 {
		t := time.Unix(w.CreatedOn, 0).UTC()
		p.CreatedAt = &t
	}
	return p
}

type listWire struct {
	status
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Items        []itemWire      `json:"items"`
	Owner        string          `json:"owner"`
	Participants json.RawMessage `json:"participants"`
	CreatedOn    int64           `json:"created_on"`
	ModifiedOn   int64           `json:"modified_on"`
}

func (w listWire) model() model.ShoppingList {
	l := model.ShoppingList{
		ID:    w.ID,
		Title: w.Title,
		Owner: w.Owner,
		Items: make([]model.Item, 0, len(w.Items)),
	}
	for _, it := range w.Items {
		item := it.model()
		if item.ParentListID == 0 {
			item.ParentListID = w.ID
		}
		l.Items = append(l.Items, item)
	}
	// Older backends send participants as a comma-separated string; only
	// the structured form is kept.
	var ps []participantWire
	if len(w.Participants) > 0 && json.Unmarshal(w.Participants, &ps) == nil {
		for _, p := range ps {
			l.Participants = append(l.Participants, p.model())
		}
	}
	if w.CreatedOn > 0 {
		l.CreatedAt = time.Unix(w.CreatedOn, 0).UTC()
	}
	if w.ModifiedOn > 0 {
		l.ModifiedAt = time.Unix(w.ModifiedOn, 0).UTC()
	}
	return l
}

type userWire struct {
	ID            int64  `json:"id"`
	Email         string `json:"e_mail"`
	EmailVerified Flag   `json:"email_verified"`
	Username      string `json:"username"`
	Rank          string `json:"rank"`
	TwoFactor     Flag   `json:"two_factor_authentication"`
	CreatedOn     int64  `json:"created_on"`
}

func (w userWire) model() model.User {
	u := model.User{
		ID:            w.ID,
		Email:         w.Email,
		EmailVerified: bool(w.EmailVerified),
		Username:      w.Username,
		Rank:          w.Rank,
		TwoFactor:     bool(w.TwoFactor),
	}
	if w.CreatedOn > 0 {
		u.CreatedAt = time.Unix(w.CreatedOn, 0).UTC()
	}
	return u
}

type notificationWire struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Type   string `json:"notification_type"`
	Title  string `json:"title"`
	Text   string `json:"text"`
	Read   Flag   `json:"read"`
}

func (w notificationWire) model() model.Notification {
	return model.Notification{
		ID:     w.ID,
		UserID: w.UserID,
		Type:   w.Type,
		Title:  w.Title,
		Text:   w.Text,
		Read:   bool(w.Read),
	}
}

type backupCodesData struct {
	status
	Codes string `json:"codes"`
	Has   *Flag  `json:"has"`
	OK    *Flag  `json:"ok"`
}

func splitCodes(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
