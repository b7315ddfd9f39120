package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dukerupert/shoplist/internal/auth"
)

func NewParticipantsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "participants <list-id>",
		Short: "Show or change who shares a list",
		Args:  cobra.ExactArgs(1),
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			id, err := parseID("list id", cmd.Flags().Arg(0))
			if err != nil {
				return err
			}
			ps, err := app.Client.Participants(ctx, id)
			if err != nil {
				return err
			}
			return out.Print(ps, func(w io.Writer) { renderParticipants(w, ps) })
		}),
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <list-id> <email>",
			Short: "Invite someone to a list",
			Args:  cobra.ExactArgs(2),
			RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
				id, err := parseID("list id", cmd.Flags().Arg(0))
				if err != nil {
					return err
				}
				email, err := auth.DefaultPolicy().NormalizeEmail(cmd.Flags().Arg(1))
				if err != nil {
					return err
				}
				if err := app.Client.AddParticipant(ctx, id, email); err != nil {
					return err
				}
				return out.Done(fmt.Sprintf("invited %s to list %d", email, id))
			}),
		},
		&cobra.Command{
			Use:   "rm <list-id> <participant-id>",
			Short: "Remove someone from a list",
			Args:  cobra.ExactArgs(2),
			RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
				listID, err := parseID("list id", cmd.Flags().Arg(0))
				if err != nil {
					return err
				}
				pid, err := parseID("participant id", cmd.Flags().Arg(1))
				if err != nil {
					return err
				}
				if err := app.Client.RemoveParticipant(ctx, listID, pid); err != nil {
					return err
				}
				return out.Done(fmt.Sprintf("removed participant %d from list %d", pid, listID))
			}),
		},
	)
	return cmd
}

func NewInvitationsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invitations",
		Short: "Show pending invitations to other people's lists",
		Args:  cobra.NoArgs,
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			ps, err := app.Client.Invitations(ctx)
			if err != nil {
				return err
			}
			return out.Print(ps, func(w io.Writer) { renderParticipants(w, ps) })
		}),
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "accept <invitation-id>",
		Short: "Join the list an invitation is for",
		Args:  cobra.ExactArgs(1),
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			id, err := parseID("invitation id", cmd.Flags().Arg(0))
			if err != nil {
				return err
			}
			if err := app.Client.AcceptInvitation(ctx, id); err != nil {
				return err
			}
			return out.Done(fmt.Sprintf("accepted invitation %d", id))
		}),
	})
	return cmd
}

func NewNotificationsCommand(opts *RootOptions) *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show notifications",
		Args:  cobra.NoArgs,
		RunE: authed(opts, func(ctx context.Context, cmd *cobra.Command, app *App, out *Formatter) error {
			if unread {
				has, err := app.Client.HasUnreadNotifications(ctx)
				if err != nil {
					return err
				}
				return out.Print(map[string]bool{"unread": has}, func(w io.Writer) {
					if has {
						fmt.Fprintln(w, "you have unread notifications")
					} else {
						fmt.Fprintln(w, "no unread notifications")
					}
				})
			}
			ns, err := app.Client.Notifications(ctx)
			if err != nil {
				return err
			}
			return out.Print(ns, func(w io.Writer) { renderNotifications(w, ns) })
		}),
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "only report whether anything is unread")
	return cmd
}
