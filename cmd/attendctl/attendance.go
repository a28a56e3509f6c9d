package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkclass/internal/apiclient"
	"checkclass/internal/domain"
	"checkclass/internal/reports"
	"checkclass/internal/session"
)

// attendance lists records from the API. When the API cannot be reached it answers from the
// local mirror instead and reports offline=true. Unfiltered answers refresh the mirror.
func (a *app) attendance(ctx context.Context, client *apiclient.Client, cur session.Current, q apiclient.Query) (recs []domain.AttendanceRecord, offline bool, err error) {
	if cur.User.Role == domain.RoleStudent {
		q.StudentID = cur.User.ID
	}
	recs, err = client.Attendance(ctx, q)
	switch {
	case err == nil:
		if q.ClassID == "" && q.Start == "" && q.End == "" && q.Status == "" && (q.StudentID == "" || cur.User.Role == domain.RoleStudent) {
			if merr := a.mirror.ReplaceRecords(ctx, recs); merr != nil {
				a.log.Warn("mirror refresh failed", zap.Error(merr))
			}
		}
		return recs, false, nil
	case !apiclient.Offline(err):
		return nil, false, err
	}

	a.log.Info("api unreachable, using local mirror", zap.Error(err))
	c, cerr := reports.ParseCriteria(q.Start, q.End, q.Status, q.ClassID, q.StudentID)
	if cerr != nil {
		return nil, true, cerr
	}
	all, merr := a.mirror.Records(ctx)
	if merr != nil {
		return nil, true, domain.Persistence("could not read local mirror", merr)
	}
	return reports.Filter(all, c), true, nil
}

func queryFlags(cmd *cobra.Command, q *apiclient.Query) {
	cmd.Flags().StringVar(&q.ClassID, "class", "", "class id")
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&q.Start, "start", "", "first date, inclusive (2023-05-10)")
	cmd.Flags().StringVar(&q.End, "end", "", "last date, inclusive (2023-05-10)")
	cmd.Flags().StringVar(&q.Status, "status", "", "Presente, Ausente, Tardanza, Justificado or all")
}

func attendanceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "attendance", Aliases: []string{"att"}, Short: "Browse and edit attendance"}
	cmd.AddCommand(attendanceListCmd(a), attendanceAddCmd(a), attendanceEditCmd(a))
	return cmd
}

func attendanceListCmd(a *app) *cobra.Command {
	var q apiclient.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List attendance records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			recs, offline, err := a.attendance(ctx, client, cur, q)
			if err != nil {
				return err
			}
			if offline {
				fmt.Fprintln(a.out, "(offline: showing the local copy)")
			}
			tw := a.table("ID", "STUDENT", "CLASS", "DATE", "TIME", "STATUS", "REASON")
			for _, r := range recs {
				row(tw, r.ID, r.StudentName, r.ClassName, r.Date, r.Time, r.Status, r.Reason)
			}
			return tw.Flush()
		},
	}
	queryFlags(cmd, &q)
	return cmd
}

func attendanceAddCmd(a *app) *cobra.Command {
	var e apiclient.Entry
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record attendance by hand",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.require(ctx, domain.CapRecordAttendance)
			if err != nil {
				return err
			}
			if _, err := domain.ParseMark(e.Status, e.Reason); err != nil {
				return err
			}
			rec, err := client.RecordAttendance(ctx, e)
			if err != nil {
				return err
			}
			if err := a.mirror.AppendRecord(ctx, rec); err != nil {
				a.log.Warn("mirror append failed", zap.Error(err))
			}
			fmt.Fprintf(a.out, "Recorded %s: %s in %s on %s %s\n", rec.ID, rec.StudentName, rec.ClassName, rec.Date, rec.Time)
			return nil
		},
	}
	cmd.Flags().StringVar(&e.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&e.ClassID, "class", "", "class id")
	cmd.Flags().StringVar(&e.Status, "status", string(domain.StatusPresent), "attendance status")
	cmd.Flags().StringVar(&e.Reason, "reason", "", "reason, required for Ausente")
	cmd.Flags().StringVar(&e.Date, "date", "", "date (2023-05-10), defaults to today")
	cmd.Flags().StringVar(&e.Time, "time", "", "time of day (10:05), defaults to now")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("class")
	return cmd
}

func attendanceEditCmd(a *app) *cobra.Command {
	var status, reason string
	cmd := &cobra.Command{
		Use:   "edit <record-id>",
		Short: "Change the status of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, client, err := a.require(ctx, domain.CapEditAttendance)
			if err != nil {
				return err
			}
			m, err := domain.ParseMark(status, reason)
			if err != nil {
				return err
			}
			rec, err := client.UpdateStatus(ctx, args[0], m)
			if err != nil {
				return err
			}
			if err := a.mirror.UpdateRecord(ctx, rec); err != nil {
				a.log.Warn("mirror update failed", zap.Error(err))
			}
			fmt.Fprintf(a.out, "Record %s is now %s\n", rec.ID, rec.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&reason, "reason", "", "reason, required for Ausente")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}
