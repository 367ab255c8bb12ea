package cli

import (
	"geoquiz-service/internal/config"
	"geoquiz-service/internal/retention"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSweepCmd runs a single retention pass against the configured Redis store.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Archive and delete expired sessions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.Redis.Addr == "" {
				logger.Info("no redis configured, in-memory sessions do not outlive the server")
				return nil
			}
			b, err := openBackends(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			sweeper := retention.NewSweeper(b.sweeper, b.stats,
				config.TTLDuration(cfg.Retention.MaxAge, defaultRetentionMaxAge),
				retention.WithLogger(logger))
			removed, err := sweeper.RunOnce(cmd.Context())
			logger.Info("sweep done", zap.Int("removed", removed))
			return err
		},
	}
}
