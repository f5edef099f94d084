package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"strategic-forecast/backend-go/internal/models"
)

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	deps := []string{}
	missing := []string{}
	depsStatus := map[string]models.DepStatus{}

	if err := a.model.Health(ctx); err != nil {
		missing = append(missing, "model_unreachable")
		depsStatus["model"] = models.DepStatus{Ok: false, Error: err.Error()}
	} else {
		deps = append(deps, "model")
		depsStatus["model"] = models.DepStatus{Ok: true}
	}

	cacheName := "cache:" + a.cache.Backend()
	if err := a.cache.Ping(ctx); err != nil {
		missing = append(missing, "cache_unreachable")
		depsStatus[cacheName] = models.DepStatus{Ok: false, Error: err.Error()}
	} else {
		deps = append(deps, cacheName)
		depsStatus[cacheName] = models.DepStatus{Ok: true}
	}

	chatStatus := a.chat.Status()
	depsStatus["chat"] = models.DepStatus{Ok: chatStatus.Ready, Error: chatStatus.Reason}
	if chatStatus.Ready {
		deps = append(deps, "chat")
	}

	policy := ""
	if a.cfg != nil {
		policy = a.cfg.Bridge.Policy
	}
	resp := models.HealthResponse{
		Ok:          len(missing) == 0,
		TsISO:       nowISO(),
		Service:     "strategic-forecast",
		Version:     os.Getenv("SERVICE_VERSION"),
		Deps:        deps,
		DepsStatus:  depsStatus,
		DataMissing: missing,
		Features: map[string]bool{
			"llm_chat":      chatStatus.Ready,
			"redis_cache":   a.cache.Backend() == "redis",
			"anchor_bridge": policy == "anchor",
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
