package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/mockscope/internal/api"
	"github.com/abhisek/mockscope/internal/graphy"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API for the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		m, err := newMentor(ctx, st)
		if err != nil {
			return err
		}

		sim := graphy.NewSimulator(graphy.WithLatency(cfg.Graphy.Latency))
		srv := api.New(api.Options{
			Repo:           st,
			Source:         graphy.NewClient(cfg.Graphy, sim, graphy.WithLogger(logger)),
			Mentor:         m,
			Logger:         logger,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			DefaultExam:    cfg.Exam,
		})
		return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
