package bootstrap

import (
	"log/slog"

	"github.com/helsevakt/vaksineportal/config"
	"github.com/helsevakt/vaksineportal/internal/adapters/notify"
	"github.com/helsevakt/vaksineportal/internal/observability/statsd"
)

// BuildMetrics creates the StatsD metrics sink. Returns nil when metrics
// are disabled; callers treat a nil sink as a no-op.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) statsd.Sink {
	if !cfg.IsEnabled() {
		return nil
	}

	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  "vaksineportal",
		Logger:  logger,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("statsd client disabled", "error", err)
		}
		return nil
	}

	if logger != nil {
		logger.Info("statsd metrics enabled", "addr", cfg.StatsdAddress)
	}
	return client
}

// BuildNotifier creates the notification fan-out used for login and logout
// outcome messages. Always includes the log sink; Slack is added when
// configured.
func BuildNotifier(cfg config.ObservabilityNotificationsConfig, logger *slog.Logger) *notify.Notifier {
	sinks := []notify.Sink{notify.SlogSink{Logger: logger}}

	if cfg.Slack.Enabled {
		slack, err := notify.NewSlackSink(notify.SlackConfig{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			if logger != nil {
				logger.Warn("slack notifications disabled", "error", err)
			}
		} else {
			sinks = append(sinks, slack)
			if logger != nil {
				logger.Info("slack notifications enabled", "channel", cfg.Slack.Channel)
			}
		}
	}

	return notify.NewNotifier(logger, cfg.Timeout, sinks...)
}
