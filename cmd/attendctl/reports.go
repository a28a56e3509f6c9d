package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"checkclass/internal/apiclient"
	"checkclass/internal/domain"
	"checkclass/internal/reports"
)

func printStats(a *app, s reports.Stats, offline bool) {
	if offline {
		fmt.Fprintln(a.out, "(offline: computed from the local copy)")
	}
	fmt.Fprintf(a.out, "total %d  present %d  absent %d  late %d  justified %d  attendance %d%%\n",
		s.Total, s.Present, s.Absent, s.Late, s.Justified, s.Percentage)
}

func statsCmd(a *app) *cobra.Command {
	var q apiclient.Query
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Attendance statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			if cur.User.Role == domain.RoleStudent {
				q.StudentID = cur.User.ID
			}
			var (
				stats   reports.Stats
				byClass map[string]reports.ClassStats
				byMonth []reports.MonthBucket
				offline bool
			)
			remote, err := client.Stats(ctx, q)
			switch {
			case err == nil:
				stats, byClass, byMonth = remote.Stats, remote.ByClass, remote.ByMonth
			case apiclient.Offline(err):
				recs, _, ferr := a.attendance(ctx, client, cur, q)
				if ferr != nil {
					return ferr
				}
				stats, byClass, byMonth, offline = reports.ComputeStats(recs), reports.GroupByClass(recs), reports.GroupByMonth(recs), true
			default:
				return err
			}

			printStats(a, stats, offline)
			fmt.Fprintln(a.out)
			ids := make([]string, 0, len(byClass))
			for id := range byClass {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			tw := a.table("CLASS", "TOTAL", "PRESENT", "%")
			for _, id := range ids {
				c := byClass[id]
				row(tw, c.ClassName, c.Total, c.Present, c.Percentage)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(a.out)
			tw = a.table("MONTH", "PRESENT", "ABSENT", "LATE", "JUSTIFIED")
			for _, b := range byMonth {
				row(tw, b.Label, b.Present, b.Absent, b.Late, b.Justified)
			}
			return tw.Flush()
		},
	}
	queryFlags(cmd, &q)
	return cmd
}

func reportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Export attendance reports"}
	cmd.AddCommand(reportExportCmd(a), reportPreviewCmd(a))
	return cmd
}

// reportExportCmd downloads the report from the API. Offline, it renders the local copy.
func reportExportCmd(a *app) *cobra.Command {
	var q apiclient.Query
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a report as xlsx, pdf or csv",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, client, err := a.require(ctx, domain.CapExportReports)
			if err != nil {
				return err
			}
			f, err := reports.ParseFormat(format)
			if err != nil {
				return err
			}

			var buf bytes.Buffer
			name, err := client.ExportReport(ctx, f, q, &buf)
			if apiclient.Offline(err) {
				recs, _, ferr := a.attendance(ctx, client, cur, q)
				if ferr != nil {
					return ferr
				}
				buf.Reset()
				now := time.Now()
				name, err = f.FileName(now), reports.Write(&buf, f, recs, now)
				fmt.Fprintln(a.out, "(offline: exported the local copy)")
			}
			if err != nil {
				return err
			}
			if out != "" {
				name = out
			}
			if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			fmt.Fprintf(a.out, "Report saved to %s\n", name)
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().StringVarP(&format, "format", "f", string(reports.FormatXLSX), "xlsx, pdf or csv")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file, defaults to the server's file name")
	return cmd
}

func reportPreviewCmd(a *app) *cobra.Command {
	var q apiclient.Query
	var n int
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the first rows of a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, client, err := a.require(ctx, domain.CapExportReports)
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
			shown, more := reports.Preview(recs, n)
			tw := a.table(reports.Columns...)
			for _, r := range shown {
				cells := reports.Row(r)
				row(tw, cells[0], cells[1], cells[2], cells[3], cells[4], cells[5], cells[6])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if more > 0 {
				fmt.Fprintf(a.out, "... and %d more\n", more)
			}
			return nil
		},
	}
	queryFlags(cmd, &q)
	cmd.Flags().IntVarP(&n, "rows", "n", 5, "rows to show")
	return cmd
}
