package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/rosterhub-backend/api/responses"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

const envHeader = "X-RosterHub-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and fails on the first error.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
