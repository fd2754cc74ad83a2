package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// buildRouter constructs the chi mux with all routes wired.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	if len(s.opts.HTTP.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins:   s.opts.HTTP.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}).Handler)
	}

	// Public.
	r.Get("/health", s.handleHealth())

	// Everything else requires auth and is not mounted without it.
	if !s.opts.HTTP.Auth.IsConfigured() {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware(s.opts.HTTP.Auth, s.logger))
		r.Get("/status", s.handleStatus())
		r.Handle("/metrics", s.opts.Metrics.Handler())

		r.Route("/api", func(r chi.Router) {
			r.Use(writeLimit(s.limiter))
			r.Use(s.trackDirty)

			r.Get("/config", s.handleGetConfig())
			r.Post("/config/reload", s.handleReload())
			r.Post("/config/discard", s.handleDiscard())
			r.Post("/config/save", s.handleSave())
			r.Post("/config/apply", s.handleApply())

			r.Put("/providers/{id}", s.handlePutProvider())
			r.Delete("/providers/{id}", s.handleDeleteProvider())
			r.Post("/providers/{id}/rename", s.handleRenameProvider())
			r.Put("/providers/{id}/fields", s.handleSetProviderField())
			r.Post("/providers/{id}/models", s.handleAddModel())
			r.Patch("/providers/{id}/models/{model}", s.handleUpdateModel())
			r.Delete("/providers/{id}/models/{model}", s.handleRemoveModel())

			r.Patch("/channels/{id}", s.handlePatchChannel())
			r.Delete("/channels/{id}", s.handleDeleteChannel())
			r.Put("/channels/{id}/fields", s.handleSetChannelField())
			r.Delete("/channels/{id}/fields", s.handleUnsetChannelField())

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", s.handleListAgents())
				r.Post("/", s.handleAddAgent())
				r.Delete("/{id}", s.handleRemoveAgent())
				r.Patch("/{id}", s.handleSetAgentField())
				r.Post("/{id}/default", s.handleSetDefaultAgent())
				r.Get("/{id}/identity", s.handleGetIdentity())
				r.Patch("/{id}/identity", s.handlePatchIdentity())
				r.Get("/{id}/tools", s.handleAgentTools())
				r.Delete("/{id}/tools", s.handleClearAgentTools())
				r.Put("/{id}/tools/profile", s.handleSetAgentProfile())
				r.Post("/{id}/tools/{tool}", s.handleToggleTool())
				r.Post("/{id}/groups/{group}", s.handleToggleGroup())
			})

			r.Route("/tools", func(r chi.Router) {
				r.Get("/", s.handleGlobalTools())
				r.Put("/", s.handlePutGlobalTools())
				r.Put("/profile", s.handleSetGlobalProfile())
				r.Post("/groups/{group}", s.handleToggleGlobalGroup())
				r.Post("/{tool}", s.handleToggleGlobalTool())
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", s.handleGetSettings())
				r.Put("/defaults", s.handleSetAgentDefault())
				r.Delete("/defaults", s.handleUnsetAgentDefault())
				r.Put("/model", s.handleSetModelOverride())
				r.Put("/gateway", s.handleSetGatewayField())
				r.Delete("/gateway", s.handleUnsetGatewayField())
			})

			r.Route("/skills", func(r chi.Router) {
				r.Get("/", s.handleGetSkills())
				r.Post("/save", s.handleSaveSkills())
				r.Post("/{name}/enabled", s.handleSetSkillEnabled())
				r.Put("/{name}/fields", s.handleSetSkillField())
			})

			r.Route("/approvals", func(r chi.Router) {
				r.Get("/", s.handleGetApprovals())
				r.Post("/", s.handleSelectApprovals())
				r.Post("/save", s.handleSaveApprovals())
				r.Post("/agents/{agent}", s.handleAddApprovalsAgent())
				r.Delete("/agents/{agent}", s.handleRemoveApprovalsAgent())
				r.Post("/agents/{agent}/allowlist", s.handleAddAllowlist())
				r.Delete("/agents/{agent}/allowlist/{index}", s.handleRemoveAllowlist())
				r.Get("/resolve/{agent}", s.handleResolveApprovals())
				r.Patch("/path", s.handlePatchApprovalsPath())
				r.Delete("/path", s.handleRemoveApprovalsPath())
			})

			if s.opts.Narrow != nil {
				r.Route("/live", func(r chi.Router) {
					r.Post("/skills/{skill}", s.handleLiveSkill())
					r.Post("/agents/{agent}/identity", s.handleLiveIdentity())
					r.Post("/tools/{tool}", s.handleLiveTool())
				})
			}

			if s.opts.Session.Cron != nil {
				r.Route("/cron", func(r chi.Router) {
					r.Get("/", s.handleListCron())
					r.Post("/", s.handleAddCron())
					r.Delete("/{id}", s.handleRemoveCron())
					r.Post("/{id}/run", s.handleRunCron())
					r.Post("/{id}/enabled", s.handleEnableCron())
				})
			}

			if s.opts.History != nil {
				r.Get("/history", s.handleListHistory())
				r.Get("/history/{id}", s.handleGetHistory())
			}
		})
	})

	return r
}
