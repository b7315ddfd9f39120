package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The backend rejected the operation
	ExitCommandError = 2 // Bad arguments or local setup failure
	ExitUnauthorized = 3 // No live session
	ExitUnavailable  = 4 // Backend unreachable
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, auth.ErrWrongState) {
		return ExitCommandError
	}
	switch api.KindOf(err) {
	case api.KindUnauthorized:
		return ExitUnauthorized
	case api.KindNetwork:
		return ExitUnavailable
	case api.KindValidation:
		return ExitCommandError
	}
	return ExitFailure
}

// Formatter writes command results as text or as a JSON envelope.
type Formatter struct {
	w      io.Writer
	format string
}

func NewFormatter(w io.Writer, format string) *Formatter {
	return &Formatter{w: w, format: format}
}

type response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// Print writes data as JSON, or calls text for the text format.
func (f *Formatter) Print(data any, text func(w io.Writer)) error {
	if f.format == "json" {
		enc := json.NewEncoder(f.w)
		enc.SetIndent("", "  ")
		return enc.Encode(response{Status: "ok", Data: data})
	}
	text(f.w)
	return nil
}

// Done reports a completed action that has no payload.
func (f *Formatter) Done(message string) error {
	return f.Print(map[string]string{"message": message}, func(w io.Writer) {
		fmt.Fprintln(w, message)
	})
}

type sessionView struct {
	model.Session
	Check auth.CheckResult `json:"check,omitempty"`
}

func renderSession(w io.Writer, v sessionView) {
	fmt.Fprintf(w, "status: %s\n", v.Status)
	if v.Email != "" {
		fmt.Fprintf(w, "email: %s\n", v.Email)
	}
	if v.PendingEmail != "" {
		fmt.Fprintf(w, "pending: %s\n", v.PendingEmail)
	}
	if v.ExpiresAt != nil {
		fmt.Fprintf(w, "expires: %s\n", v.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if v.Check != "" {
		fmt.Fprintf(w, "check: %s\n", v.Check)
	}
}

type listView struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	IsParticipant bool         `json:"is_participant"`
	Items         []model.Item `json:"items"`
}

func renderList(w io.Writer, v listView) {
	fmt.Fprintf(w, "%s (list %d)\n", v.Title, v.ID)
	if len(v.Items) == 0 {
		fmt.Fprintln(w, "  (no items)")
		return
	}
	for i, it := range v.Items {
		mark := " "
		if it.Bought {
			mark = "x"
		}
		fmt.Fprintf(w, "%3d. [%s] %s  (id %d)\n", i+1, mark, it.Title, it.ID)
	}
}

func renderLists(w io.Writer, lists []model.ShoppingList) {
	if len(lists) == 0 {
		fmt.Fprintln(w, "no lists")
		return
	}
	for _, l := range lists {
		role := "owner"
		if l.IsParticipant {
			role = "shared"
		}
		fmt.Fprintf(w, "%6d  %-6s  %s\n", l.ID, role, l.Title)
	}
}

func renderParticipants(w io.Writer, ps []model.Participant) {
	if len(ps) == 0 {
		fmt.Fprintln(w, "none")
		return
	}
	for _, p := range ps {
		line := fmt.Sprintf("%6d  %-8s  %s", p.ID, p.Status, p.Email)
		if p.RequestFrom != "" {
			line += "  from " + p.RequestFrom
		}
		fmt.Fprintln(w, line)
	}
}

func renderNotifications(w io.Writer, ns []model.Notification) {
	if len(ns) == 0 {
		fmt.Fprintln(w, "no notifications")
		return
	}
	for _, n := range ns {
		mark := "*"
		if n.Read {
			mark = " "
		}
		fmt.Fprintf(w, "%s %s: %s\n", mark, n.Title, n.Text)
	}
}

func renderCodes(w io.Writer, codes *model.BackupCodes) {
	if !codes.Has {
		fmt.Fprintln(w, "no backup codes; run 'shoplist backupcodes --generate'")
		return
	}
	fmt.Fprintln(w, strings.Join(codes.Codes, "\n"))
}
