package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func init() { Register("api", registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r.Route("/api", func(r chi.Router) {
		r.Use(mw.EnforceHost(d.AllowedHosts, d.Logger))
		r.Use(mw.RateLimit(mw.RateLimitConfig{
			PerSecond:  d.RateLimit,
			Burst:      d.RateBurst,
			TrustProxy: d.TrustProxy,
		}))
		r.Use(mw.RequireUser(d.APIKey, d.Logger))

		mountCollection(r, api.KindSpaces, handlers.Collection(d, func(rm api.Remote) api.Collection[domain.Space, domain.SpacePatch] {
			return rm.Spaces
		}))
		mountCollection(r, api.KindGroups, handlers.Collection(d, func(rm api.Remote) api.Collection[domain.Group, domain.GroupPatch] {
			return rm.Groups
		}))
		mountCollection(r, api.KindBookmarks, handlers.Collection(d, func(rm api.Remote) api.Collection[domain.Bookmark, domain.BookmarkPatch] {
			return rm.Bookmarks
		}))
		r.Post("/bookmarks/{id}/move", handlers.MoveBookmark(d))

		r.Route("/sync", func(r chi.Router) {
			r.Post("/user", handlers.EnsureUser(d))
			r.Get("/pull", handlers.Pull(d))
			r.Post("/push", handlers.Push(d))
			r.Get("/status", handlers.Status(d))
		})
	})
}

func mountCollection(r chi.Router, kind string, h handlers.CollectionHandlers) {
	r.Get("/"+kind, h.List)
	r.Post("/"+kind, h.Create)
	r.Post("/"+kind+"/reorder", h.Reorder)
	r.Patch("/"+kind+"/{id}", h.Update)
	r.Delete("/"+kind+"/{id}", h.Delete)
}
