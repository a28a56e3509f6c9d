package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"checkclass/internal/apiclient"
	"checkclass/internal/cache"
	"checkclass/internal/config"
	"checkclass/internal/domain"
	"checkclass/internal/logging"
	"checkclass/internal/session"
)

// app holds what every command needs. It is filled in by the root command's pre-run hook.
type app struct {
	out io.Writer

	cfg     config.Client
	log     *zap.Logger
	store   *cache.SQLite
	mirror  *cache.Mirror
	api     *apiclient.Client
	session *session.Manager
}

func (a *app) open(apiURL string) error {
	a.cfg = config.LoadClient()
	if apiURL != "" {
		a.cfg.APIBaseURL = apiURL
	}
	a.log = logging.Must("dev", a.cfg.LogLevel).Named("attendctl")

	st, err := cache.OpenSQLite(a.cfg.CachePath)
	if err != nil {
		return domain.Persistence("could not open local cache", err)
	}
	a.store = st
	a.mirror = cache.NewMirror(st)
	a.api = apiclient.New(a.cfg.APIBaseURL, a.cfg.HTTPTimeout)
	a.session = session.New(st, a.api)
	return nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close local cache", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// signedIn returns the current session and a client authenticated as it.
func (a *app) signedIn(ctx context.Context) (session.Current, *apiclient.Client, error) {
	cur, err := a.session.Current(ctx)
	if err != nil {
		return session.Current{}, nil, err
	}
	return cur, a.api.WithToken(cur.AccessToken), nil
}

// require checks a capability locally before any request is sent.
func (a *app) require(ctx context.Context, c domain.Capability) (session.Current, *apiclient.Client, error) {
	cur, client, err := a.signedIn(ctx)
	if err != nil {
		return cur, nil, err
	}
	if err := domain.Require(cur.User.Role, c); err != nil {
		return cur, nil, err
	}
	return cur, client, nil
}

func (a *app) table(header ...string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for i, h := range header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	return tw
}

func row(w io.Writer, cells ...any) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

func newRootCmd(a *app) *cobra.Command {
	var apiURL string
	root := &cobra.Command{
		Use:           "attendctl",
		Short:         "QR attendance client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(apiURL)
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (defaults to API_BASE_URL)")

	root.AddCommand(
		loginCmd(a), logoutCmd(a), whoamiCmd(a), viewCmd(a), registerCmd(a), seedInfoCmd(a),
		classesCmd(a), qrCmd(a), scanCmd(a),
		attendanceCmd(a), statsCmd(a), reportCmd(a),
		notificationsCmd(a), usersCmd(a), roleCmd(a),
	)
	return root
}
