package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"wkfmanager/internal/config"
	"wkfmanager/internal/notify"
)

var (
	listenHost string
	listenPort int
	listenPath string
)

// listenCmd runs the receiver for result notifications.
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print result notifications sent by the engine",
	Long: `Listens for the result notifications the engine posts to the origin of
a workflow request and prints them as they arrive. Run it on the host named
as origin, on the port configured under notifications.port.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	receiver := notify.NewReceiver(func(remote string, msg notify.Message) {
		fmt.Fprintf(out, "%s %s\n", text.FgHiBlue.Sprint(time.Now().Format(time.TimeOnly)), msg.Message)
	})

	srv := &http.Server{
		Addr:              net.JoinHostPort(listenHost, strconv.Itoa(listenPort)),
		Handler:           receiver.Handler(listenPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening for notifications on %s%s\n", srv.Addr, listenPath)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(listenCmd)
	listenCmd.Flags().StringVar(&listenHost, "host", "0.0.0.0", "Address to listen on")
	listenCmd.Flags().IntVar(&listenPort, "port", config.DefaultNotificationPort, "Port to listen on")
	listenCmd.Flags().StringVar(&listenPath, "path", config.DefaultNotificationPath, "Notification path")
}
