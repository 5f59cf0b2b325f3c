package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

func EnsureUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p domain.Profile
		if err := decode(r, &p); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		u, err := d.Service.For(mw.UserFrom(r.Context())).Sync.EnsureUser(r.Context(), p)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}

func Pull(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := d.Service.For(mw.UserFrom(r.Context())).Sync.Pull(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, ds)
	}
}

func Push(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ds domain.Dataset
		if err := decode(r, &ds); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		if err := d.Service.For(mw.UserFrom(r.Context())).Sync.Push(r.Context(), ds); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Status(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := d.Service.For(mw.UserFrom(r.Context())).Sync.Status(r.Context())
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
