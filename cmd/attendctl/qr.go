package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkclass/internal/domain"
	"checkclass/internal/qrsession"
	"checkclass/internal/scanner"
)

func qrCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "qr", Short: "Generate and list attendance QR codes"}
	cmd.AddCommand(qrCreateCmd(a), qrListCmd(a))
	return cmd
}

func qrCreateCmd(a *app) *cobra.Command {
	var out string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "create <class-id>",
		Short: "Open an attendance window for a class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, client, err := a.require(ctx, domain.CapCreateQR)
			if err != nil {
				return err
			}
			gen, err := client.GenerateQR(ctx, args[0])
			if err != nil {
				return err
			}
			if !quiet {
				art, err := qrsession.Terminal(gen.Code)
				if err != nil {
					return err
				}
				fmt.Fprint(a.out, art)
			}
			fmt.Fprintf(a.out, "code:    %s\nclass:   %s\nexpires: %s\n",
				gen.Code, gen.ClassID, gen.ExpiresAt.Local().Format("15:04:05"))
			if gen.ImageURL != "" {
				fmt.Fprintf(a.out, "image:   %s\n", gen.ImageURL)
			}
			if out == "" {
				return nil
			}
			png, err := qrsession.DecodeDataURL(gen.Image)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(a.out, "saved:   %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the PNG to this file")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not draw the code in the terminal")
	return cmd
}

func qrListCmd(a *app) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List QR codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			tokens, err := client.QRTokens(ctx, active)
			if err != nil {
				return err
			}
			now := time.Now()
			tw := a.table("CODE", "CLASS", "TEACHER", "EXPIRES", "STATE")
			for _, t := range tokens {
				state := "open"
				if !t.ValidAt(now) {
					state = "expired"
				}
				row(tw, t.Code, t.ClassID, t.TeacherName, t.ExpiresAt.Local().Format("2006-01-02 15:04"), state)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "only codes that are still open")
	return cmd
}

// scanCmd decodes a code from an image, or takes the payload as typed, and checks in.
func scanCmd(a *app) *cobra.Command {
	var image, payload string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Register attendance with a class QR code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, client, err := a.require(ctx, domain.CapScanQR)
			if err != nil {
				return err
			}
			switch {
			case image != "" && payload != "":
				return domain.Invalid("use either --image or --payload")
			case image != "":
				s := &scanner.Scanner{Camera: &scanner.FileCamera{Path: image}, Log: a.log}
				if payload, err = s.Scan(ctx); err != nil {
					return err
				}
			case strings.TrimSpace(payload) == "":
				return domain.Invalid("provide --image or --payload")
			}

			res, err := client.Scan(ctx, strings.TrimSpace(payload))
			if err != nil {
				return err
			}
			if err := a.mirror.AppendRecord(ctx, res.Record); err != nil {
				a.log.Warn("mirror append failed", zap.Error(err))
			}
			fmt.Fprintf(a.out, "Asistencia registrada: %s, %s %s (%s)\n",
				res.Record.ClassName, res.Record.Date, res.Record.Time, res.Teacher)
			return nil
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "photo or screenshot of the QR code")
	cmd.Flags().StringVar(&payload, "payload", "", "QR payload, when it was read elsewhere")
	return cmd
}
