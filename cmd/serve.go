package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/edadash/internal/server"
	"github.com/KaramelBytes/edadash/internal/session"
)

var (
	srvAddr        string
	srvMaxUploadMB int
	srvNoPDF       bool
	srvMaxSessions int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser dashboard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if cmd.Flags().Changed("addr") && srvAddr != "" {
			c.ListenAddr = srvAddr
		}
		if cmd.Flags().Changed("max-upload-mb") && srvMaxUploadMB > 0 {
			c.MaxUploadMB = srvMaxUploadMB
		}
		dash, err := newDashboard(nil, !srvNoPDF)
		if err != nil {
			return err
		}
		store := session.NewStore()
		store.Max = srvMaxSessions
		srv := server.New(dash, server.Options{
			MaxUploadBytes: c.MaxUploadBytes(),
			PreviewRows:    c.PreviewRows,
			Store:          store,
			Logger:         logrus.StandardLogger(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("✓ Dashboard at http://%s (data: %s, reports: %s)\n", c.ListenAddr, c.DataDir, c.OutputDir)
		return srv.ListenAndServe(ctx, c.ListenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (overrides listen_addr)")
	serveCmd.Flags().IntVar(&srvMaxUploadMB, "max-upload-mb", 0, "upload size limit in MB (overrides max_upload_mb)")
	serveCmd.Flags().BoolVar(&srvNoPDF, "no-pdf", false, "disable PDF export")
	serveCmd.Flags().IntVar(&srvMaxSessions, "max-sessions", session.DefaultMaxSessions, "sessions kept in memory")
}
