package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkclass/internal/apiclient"
	"checkclass/internal/domain"
)

func classesCmd(a *app) *cobra.Command {
	var teacherID string
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List classes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			classes, err := client.Classes(ctx, teacherID)
			if err != nil {
				return err
			}
			tw := a.table("ID", "NAME", "SCHEDULE", "TEACHER")
			for _, c := range classes {
				row(tw, c.ID, c.Name, c.Schedule, c.TeacherID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&teacherID, "teacher", "", "only classes of this teacher id")
	cmd.AddCommand(classCreateCmd(a))
	return cmd
}

func classCreateCmd(a *app) *cobra.Command {
	var c domain.ClassSession
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a class",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.require(ctx, domain.CapCreateClass)
			if err != nil {
				return err
			}
			created, err := client.CreateClass(ctx, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created class %s (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&c.ID, "id", "", "class id, e.g. math101")
	cmd.Flags().StringVar(&c.Name, "name", "", "display name")
	cmd.Flags().StringVar(&c.Schedule, "schedule", "", "schedule description")
	cmd.Flags().StringVar(&c.TeacherID, "teacher", "", "teacher id (admins only)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func usersCmd(a *app) *cobra.Command {
	var role, name, enrollment string
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List students or teachers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			capability := domain.CapListStudents
			if r == domain.RoleTeacher {
				capability = domain.CapListTeachers
			}
			_, client, err := a.require(ctx, capability)
			if err != nil {
				return err
			}
			users, err := client.Users(ctx, r, name, enrollment)
			if apiclient.Offline(err) {
				users, err = a.offlineUsers(cmd, r, name, enrollment)
			}
			if err != nil {
				return err
			}
			tw := a.table("ID", "NAME", "E-MAIL", "ENROLLMENT", "ROLE")
			for _, u := range users {
				row(tw, u.ID, u.Name, u.Email, u.Enrollment, u.Role)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "student or teacher")
	cmd.Flags().StringVar(&name, "name", "", "name contains")
	cmd.Flags().StringVar(&enrollment, "enrollment", "", "enrollment contains")
	return cmd
}

func (a *app) offlineUsers(cmd *cobra.Command, r domain.Role, name, enrollment string) ([]domain.User, error) {
	all, err := a.mirror.Users(cmd.Context())
	if err != nil {
		return nil, domain.Persistence("could not read local mirror", err)
	}
	fmt.Fprintln(a.out, "(offline: showing the local copy)")
	var out []domain.User
	for _, u := range all {
		if u.Role == r && domain.MatchFold(u.Name, name) && domain.MatchFold(u.Enrollment, enrollment) {
			out = append(out, u)
		}
	}
	return out, nil
}

func roleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <user-id> <student|teacher|admin>",
		Short: "Change the role of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, err := domain.ParseRole(args[1])
			if err != nil {
				return err
			}
			_, client, err := a.require(ctx, domain.CapManageRoles)
			if err != nil {
				return err
			}
			u, err := client.UpdateRole(ctx, args[0], r)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s is now %s\n", u.Name, u.Role)
			return nil
		},
	}
}

func notificationsCmd(a *app) *cobra.Command {
	var readID string
	var readAll bool
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show notifications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			if readID != "" || readAll {
				if err := client.MarkRead(ctx, readID); err != nil {
					return err
				}
			}
			inbox, err := client.Notifications(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d unread\n", inbox.Unread)
			tw := a.table("", "ID", "WHEN", "TITLE", "MESSAGE")
			for _, n := range inbox.Notifications {
				mark := "*"
				if n.Read {
					mark = " "
				}
				row(tw, mark, n.ID, n.Timestamp.Local().Format("2006-01-02 15:04"), n.Title, n.Message)
			}
			if err := tw.Flush(); err != nil {
				a.log.Warn("print notifications", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&readID, "read", "", "mark this notification as read first")
	cmd.Flags().BoolVar(&readAll, "read-all", false, "mark every notification as read first")
	return cmd
}
