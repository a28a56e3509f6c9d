package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"checkclass/internal/apiclient"
	"checkclass/internal/domain"
	"checkclass/internal/reports"
	"checkclass/internal/store"
)

func loginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Signed in as %s (%s)\n", cur.User.Name, cur.User.Role)
			fmt.Fprintf(a.out, "Home: %s\n", domain.HomeView(cur.User.Role))
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account e-mail")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cur, err := a.session.Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s>\nrole: %s\nsession expires: %s\n",
				cur.User.Name, cur.User.Email, cur.User.Role, cur.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

// viewCmd opens a dashboard. Views the role may not open land on its home view.
func viewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "view [student|teacher|admin]",
		Short:     "Open a dashboard",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.ViewStudent), string(domain.ViewTeacher), string(domain.ViewAdmin)},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			requested := domain.ViewLogin
			if len(args) == 1 {
				requested = domain.View(args[0])
			}
			v := a.session.View(ctx, requested)
			if v == domain.ViewLogin {
				fmt.Fprintln(a.out, "Not signed in. Run: attendctl login --email <e-mail> --password <password>")
				return nil
			}
			cur, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "== %s dashboard (%s) ==\n", v, cur.User.Name)

			switch v {
			case domain.ViewStudent:
				recs, offline, err := a.attendance(ctx, client, cur, apiclient.Query{})
				if err != nil {
					return err
				}
				printStats(a, reports.ComputeStats(recs), offline)
				fmt.Fprintf(a.out, "classes: %v\n", reports.Classes(recs))
			case domain.ViewTeacher:
				classes, err := client.Classes(ctx, cur.User.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "classes: %d\n", len(classes))
				active, err := client.QRTokens(ctx, true)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "open QR sessions: %d\n", len(active))
			case domain.ViewAdmin:
				students, err := client.Users(ctx, domain.RoleStudent, "", "")
				if err != nil {
					return err
				}
				teachers, err := client.Users(ctx, domain.RoleTeacher, "", "")
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "students: %d\nteachers: %d\n", len(students), len(teachers))
			}
			return nil
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var r apiclient.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a student account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := a.api.Register(cmd.Context(), r)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s <%s> as %s\n", u.Name, u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&r.Name, "name", "", "full name")
	cmd.Flags().StringVar(&r.Email, "email", "", "e-mail")
	cmd.Flags().StringVar(&r.Password, "password", "", "password")
	cmd.Flags().StringVar(&r.Enrollment, "enrollment", "", "enrollment number")
	for _, f := range []string{"name", "email", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func seedInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-info",
		Short: "List the demo accounts created with SEED_DEMO",
		RunE: func(*cobra.Command, []string) error {
			tw := a.table("ROLE", "NAME", "E-MAIL", "PASSWORD")
			for _, d := range store.DemoAccounts() {
				row(tw, d.Role, d.Name, d.Email, d.Password)
			}
			return tw.Flush()
		},
	}
}
