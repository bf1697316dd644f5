package controllers

import (
	"context"
	"net/http"

	"github.com/shopmesh/shopmesh-backend/api/responses"
	"github.com/shopmesh/shopmesh-backend/pkg/config"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopMesh-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// Pinger reports whether a dependency currently answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthReady(cfg *config.Config, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ShopMesh-Env", cfg.App.Env)

		status := map[string]string{"status": "ready"}
		ready := true
		for name, dep := range deps {
			if dep == nil {
				status[name] = "absent"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				status[name] = "down"
				ready = false
				continue
			}
			status[name] = "up"
		}

		if !ready {
			status["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
