package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/auth"
	"github.com/dukerupert/shoplist/internal/model"
)

// prompter reads answers line by line from the command's input. Secrets
// are read without echo when that input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int // -1 unless input is a terminal
}

func newPrompter(cmd *cobra.Command) *prompter {
	p := &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.ErrOrStderr(), fd: -1}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
	}
	return p
}

func (p *prompter) ask(label string) (string, error) {
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// value returns v, or asks for it when v is empty.
func (p *prompter) value(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	return p.ask(label)
}

// secret is value for passwords.
func (p *prompter) secret(v, label string) (string, error) {
	if v != "" {
		return v, nil
	}
	if p.fd < 0 {
		return p.ask(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email, password, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in, answering a two-factor prompt if the account requires it",
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			if s := app.Machine.Session(); s.Status == model.StatusAuthenticated {
				return NewExitError(ExitCommandError, fmt.Sprintf("already logged in as %s; run 'shoplist logout' first", s.Email))
			}

			p := newPrompter(cmd)
			var err error
			if email, err = p.value(email, "Email: "); err != nil {
				return WrapExitError(ExitCommandError, "read email", err)
			}
			if password, err = p.secret(password, "Password: "); err != nil {
				return WrapExitError(ExitCommandError, "read password", err)
			}

			if err := app.Machine.SubmitCredentials(ctx, email, password); err != nil {
				return err
			}

			for app.Machine.Status() == model.StatusPendingTwoFactor {
				if code == "" {
					if code, err = p.ask("Two-factor code: "); err != nil {
						return WrapExitError(ExitCommandError, "second factor required", err)
					}
				}
				err := app.Machine.SubmitSecondFactor(ctx, code)
				code = ""
				if api.KindOf(err) == api.KindInvalidCode {
					fmt.Fprintln(p.out, api.Message(err))
					continue
				}
				if err != nil {
					return err
				}
			}

			s := app.Machine.Session()
			return out.Print(sessionView{Session: s}, func(w io.Writer) {
				fmt.Fprintf(w, "logged in as %s\n", s.Email)
			})
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when empty)")
	cmd.Flags().StringVar(&code, "code", "", "two-factor code (prompted when required)")
	return cmd
}

func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credential",
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			if err := app.Machine.Logout(ctx); err != nil {
				return err
			}
			return out.Done("logged out")
		}),
	}
}

func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and whether the backend still accepts it",
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			res, err := app.Machine.CheckSession(ctx)
			if err != nil && api.KindOf(err) != api.KindNetwork {
				return err
			}
			v := sessionView{Session: app.Machine.Session(), Check: res}
			return out.Print(v, func(w io.Writer) { renderSession(w, v) })
		}),
	}
}

func NewWhoamiCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			u, err := app.Client.User(ctx)
			if err != nil {
				return err
			}
			return out.Print(u, func(w io.Writer) {
				fmt.Fprintf(w, "%s <%s>\n", u.Username, u.Email)
				if u.TwoFactor {
					fmt.Fprintln(w, "two-factor: enabled")
				}
			})
		}),
	}
}

func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "register <email> <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			policy := auth.DefaultPolicy()
			email, err := policy.NormalizeEmail(cmd.Flags().Arg(0))
			if err != nil {
				return err
			}
			if password, err = newPrompter(cmd).secret(password, "Password: "); err != nil {
				return WrapExitError(ExitCommandError, "read password", err)
			}
			if err := policy.CheckNewPassword(password); err != nil {
				return err
			}
			if err := app.Client.Register(ctx, email, cmd.Flags().Arg(1), password); err != nil {
				return err
			}
			return out.Done("registered " + email)
		}),
	}

	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when empty)")
	return cmd
}

func NewRecoverCommand(opts *RootOptions) *cobra.Command {
	var password string
	var verifyOnly bool

	cmd := &cobra.Command{
		Use:   "recover <email> <backup-code>",
		Short: "Reset a password with a backup code",
		Args:  cobra.ExactArgs(2),
		RunE: run(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			policy := auth.DefaultPolicy()
			email, err := policy.NormalizeEmail(cmd.Flags().Arg(0))
			if err != nil {
				return err
			}
			code := auth.NormalizeCode(cmd.Flags().Arg(1))

			if verifyOnly {
				if err := app.Client.VerifyBackupCode(ctx, email, code); err != nil {
					return err
				}
				return out.Done("backup code accepted")
			}

			if password, err = newPrompter(cmd).secret(password, "New password: "); err != nil {
				return WrapExitError(ExitCommandError, "read password", err)
			}
			if err := policy.CheckNewPassword(password); err != nil {
				return err
			}
			if err := app.Client.ResetPasswordWithBackupCode(ctx, email, code, password); err != nil {
				return err
			}
			return out.Done("password changed")
		}),
	}

	cmd.Flags().StringVar(&password, "password", "", "new password (prompted when empty)")
	cmd.Flags().BoolVar(&verifyOnly, "verify", false, "only check the code")
	return cmd
}
