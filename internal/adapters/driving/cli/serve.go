package cli

import (
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/complyline/kbengine/internal/adapters/driving/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the knowledge base over a JSON HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServeCmd,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTP.Addr
	}

	api := httpapi.NewServer(syncService, retrievalService, answerService, cfg.Org)
	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	cmd.Printf("Listening on http://%s\n", addr)
	return server.ListenAndServe()
}
