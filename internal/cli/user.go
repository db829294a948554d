package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eleven-am/taskflow/internal/app"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/users"
)

// operator is the actor for administrative commands run from the shell.
var operator = &models.User{ID: "operator", Role: models.RoleAdmin, IsActive: true}

func newUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Administer accounts, roles and teams",
	}
	cmd.AddCommand(newUserCreateCommand(), newUserRoleCommand(), newUserTeamCommand())
	return cmd
}

func newUserCreateCommand() *cobra.Command {
	var in users.RegisterInput
	var role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := models.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			in.Role = r
			if in.ConfirmPassword == "" {
				in.ConfirmPassword = in.Password
			}

			return withApp(cmd.Context(), func(a *app.App) error {
				u, err := a.Users.Register(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s) as %s\n", u.Email, u.ID, u.Role)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password, at least 8 characters")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", "user", "Role (admin, manager, user)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newUserRoleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "role <email> <role>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, ok := models.ParseRole(args[1])
			if !ok {
				return fmt.Errorf("unknown role %q", args[1])
			}
			return withApp(cmd.Context(), func(a *app.App) error {
				u, err := byEmail(cmd.Context(), a, args[0])
				if err != nil {
					return err
				}
				if _, err := a.Users.SetRole(cmd.Context(), operator, u.ID, role); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, role)
				return nil
			})
		},
	}
}

func newUserTeamCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "team <manager-email> <member-email>",
		Short: "Add a user to a manager's team, or remove them with --remove",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app.App) error {
				manager, err := byEmail(ctx, a, args[0])
				if err != nil {
					return err
				}
				member, err := byEmail(ctx, a, args[1])
				if err != nil {
					return err
				}

				if remove {
					if err := a.Users.RemoveFromTeam(ctx, manager, member.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s's team\n", member.Email, manager.Email)
					return nil
				}
				if _, err := a.Users.AssignToTeam(ctx, manager, member.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to %s's team\n", member.Email, manager.Email)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the member instead of adding")
	return cmd
}

func byEmail(ctx context.Context, a *app.App, email string) (*models.User, error) {
	u, err := a.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return u, nil
}
