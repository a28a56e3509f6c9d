// Command attendctl is the command line client of checkclass: sign in, generate and scan QR
// codes, browse attendance and export reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"checkclass/internal/domain"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", domain.Message(err))
		os.Exit(1)
	}
}
