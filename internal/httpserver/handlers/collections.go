package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/marks/internal/api"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/httpserver/mw"
)

// CollectionHandlers serves the CRUD routes of one entity kind.
type CollectionHandlers struct {
	List    http.HandlerFunc
	Create  http.HandlerFunc
	Update  http.HandlerFunc
	Delete  http.HandlerFunc
	Reorder http.HandlerFunc
}

// Collection builds the handlers of the collection pick selects from the
// caller's remote.
func Collection[T any, P any](d deps.Deps, pick func(api.Remote) api.Collection[T, P]) CollectionHandlers {
	collection := func(r *http.Request) api.Collection[T, P] {
		return pick(d.Service.For(mw.UserFrom(r.Context())))
	}

	return CollectionHandlers{
		List: func(w http.ResponseWriter, r *http.Request) {
			items, err := collection(r).List(r.Context())
			if err != nil {
				writeError(w, d.Logger, err)
				return
			}
			if items == nil {
				items = []T{}
			}
			writeJSON(w, http.StatusOK, items)
		},

		Create: func(w http.ResponseWriter, r *http.Request) {
			var item T
			if err := decode(r, &item); err != nil {
				writeError(w, d.Logger, err)
				return
			}
			out, err := collection(r).Create(r.Context(), item)
			if err != nil {
				writeError(w, d.Logger, err)
				return
			}
			writeJSON(w, http.StatusCreated, out)
		},

		Update: func(w http.ResponseWriter, r *http.Request) {
			var patch P
			if err := decode(r, &patch); err != nil {
				writeError(w, d.Logger, err)
				return
			}
			out, err := collection(r).Update(r.Context(), chi.URLParam(r, "id"), patch)
			if err != nil {
				writeError(w, d.Logger, err)
				return
			}
			writeJSON(w, http.StatusOK, out)
		},

		Delete: func(w http.ResponseWriter, r *http.Request) {
			if err := collection(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
				writeError(w, d.Logger, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		},

		Reorder: func(w http.ResponseWriter, r *http.Request) {
			var in api.ReorderRequest
			if err := decode(r, &in); err != nil {
				writeError(w, d.Logger, err)
				return
			}
			if err := collection(r).Reorder(r.Context(), in.ParentID, in.OrderedIDs); err != nil {
				writeError(w, d.Logger, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		},
	}
}

func MoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var to domain.Move
		if err := decode(r, &to); err != nil {
			writeError(w, d.Logger, err)
			return
		}
		remote := d.Service.For(mw.UserFrom(r.Context()))
		out, err := remote.Bookmarks.Move(r.Context(), chi.URLParam(r, "id"), to)
		if err != nil {
			writeError(w, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}
