package controllers

import (
	"context"
	"net/http"

	"github.com/gestiq/gestiq-backend/api/responses"
	"github.com/gestiq/gestiq-backend/pkg/config"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
)

const envHeader = "X-Gestiq-Env"

// Pinger is the readiness surface every wired dependency exposes.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency; a nil pinger is skipped so the
// binary can run without optional infrastructure in dev.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
