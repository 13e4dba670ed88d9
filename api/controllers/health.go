package controllers

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/multierr"

	"github.com/motogo-vn/motogo-payments/api/responses"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MotoGo-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings each registered dependency and reports per-dependency
// status. Any failure flips the response to 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MotoGo-Env", cfg.App.Env)

		statuses := map[string]string{}
		var pingErr error
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				pingErr = multierr.Append(pingErr, fmt.Errorf("%s: %w", name, err))
				statuses[name] = "unavailable"
				if logg != nil {
					logg.Warn(logg.WithFields(r.Context(), map[string]any{"dependency": name}), "health.dependency_down")
				}
				continue
			}
			statuses[name] = "ok"
		}

		if pingErr != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, pingErr, "dependency unavailable").WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
