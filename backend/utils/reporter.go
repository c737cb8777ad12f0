package utils

import (
	"log"

	"learning-platform/backend/config"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards server errors to Rollbar and always logs them locally.
type Reporter struct {
	std     *log.Logger
	enabled bool
}

func NewReporter(std *log.Logger, cfg *config.Config) *Reporter {
	enabled := cfg.RollbarToken != ""
	if enabled {
		rollbar.SetToken(cfg.RollbarToken)
		rollbar.SetEnvironment(cfg.Env)
		rollbar.SetServerRoot("learning-platform")
	}
	rollbar.SetEnabled(enabled)
	return &Reporter{std: std, enabled: enabled}
}

// Error logs err with the request context and reports it when Rollbar is on.
func (r *Reporter) Error(err error, extras map[string]interface{}) {
	r.std.Printf("error: %v %v", err, extras)
	if r.enabled {
		rollbar.Error(err, extras)
	}
}

func (r *Reporter) Warn(msg string, extras map[string]interface{}) {
	r.std.Printf("warn: %s %v", msg, extras)
	if r.enabled {
		rollbar.Warning(msg, extras)
	}
}

// Close flushes pending Rollbar items.
func (r *Reporter) Close() {
	if r.enabled {
		rollbar.Close()
	}
}
