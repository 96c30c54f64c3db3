package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wizenheimer/banter/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat over HTTP and WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sess, err := openSession(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer sess.Close()

		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(server.Config{
			Addr:           addr,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}, sess.engine)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "banter server starting on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  Store: %s\n", cfg.Store.Driver)
		fmt.Fprintf(os.Stderr, "  Entries: %d\n", sess.engine.KnowledgeBase().Len())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
