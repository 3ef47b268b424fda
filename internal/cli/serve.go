package cli

import (
	"github.com/spf13/cobra"

	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and meeting-form HTTP service",
	Long: "Serve POST /webhook for GitHub pull_request deliveries and POST /meeting for meeting input. " +
		"Shuts down gracefully on SIGINT or SIGTERM after in-flight reviews finish.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cfg, err := loadConfig(cmd, map[string]string{"addr": flagAddr})
		if err != nil {
			return err
		}
		if err := cfg.Require(config.SectionGitHub, config.SectionConfluence, config.SectionModel); err != nil {
			fail(cmd, err)
			return nil
		}

		reviews, err := newReviewPipeline(cfg, false)
		if err != nil {
			fail(cmd, err)
			return nil
		}
		meetings, err := newMeetingPipeline(cfg, false, "")
		if err != nil {
			fail(cmd, err)
			return nil
		}

		srv := server.New(server.Options{
			Addr:          cfg.Server.Addr,
			WebhookSecret: cfg.Server.WebhookSecret,
			Reviewer:      reviews,
			Meetings:      meetings,
			Context:       ctx,
		})
		if err := srv.ListenAndServe(ctx); err != nil {
			fail(cmd, err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (default :8080)")
}
