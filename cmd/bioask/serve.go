package main

import (
	"fmt"
	"time"

	"bioask/pkg/session"
	"bioask/pkg/web"

	"github.com/spf13/cobra"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(root)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.ListenAddr = addr
			}
			settings, _ := a.settings(cmd.Context())

			srv := web.NewServer(web.Options{
				Service:        a.service,
				Store:          session.NewStore(time.Duration(a.cfg.Server.SessionTTLMinutes) * time.Minute),
				Defaults:       settings,
				Endpoint:       a.cfg.LocalLLMURL,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				Logger:         a.logger,
			})

			fmt.Fprintf(cmd.OutOrStdout(), "BioAsk listening on http://%s (model %s)\n", a.cfg.Server.ListenAddr, settings.Model)
			return srv.ListenAndServe(cmd.Context(), a.cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config: 127.0.0.1:8501)")
	return cmd
}
