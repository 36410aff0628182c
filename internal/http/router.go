package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Auth         *AuthHandler
	Users        *UserHandler
	Rooms        *RoomHandler
	Restrictions *RestrictionHandler
	Trackers     *TrackerHandler
	Access       *AccessHandler
	Requests     *RequestHandler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Auth != nil {
		mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Auth.CreateSession(w, r)
		})
		mux.HandleFunc("/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	if cfg.Users != nil {
		mux.HandleFunc("/signup", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Users.Signup(w, r)
		})
		mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Users.List(w, r)
			case http.MethodPost:
				cfg.Users.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/users/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithUserID(r.Context(), segments[0])
			r = r.WithContext(ctx)

			switch {
			case len(segments) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Users.Get(w, r)
				case http.MethodPut:
					cfg.Users.Update(w, r)
				case http.MethodDelete:
					cfg.Users.Deactivate(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case len(segments) == 2 && segments[1] == "requests" && cfg.Requests != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Requests.ListByUser(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Rooms != nil {
		mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.List(w, r)
			case http.MethodPost:
				cfg.Rooms.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/rooms/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/rooms/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithRoomID(r.Context(), segments[0])
			r = r.WithContext(ctx)

			switch {
			case len(segments) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Rooms.Get(w, r)
				case http.MethodPut:
					cfg.Rooms.Update(w, r)
				case http.MethodDelete:
					cfg.Rooms.Delete(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
				}
			case len(segments) == 2 && segments[1] == "members":
				switch r.Method {
				case http.MethodGet:
					cfg.Rooms.ListMembers(w, r)
				case http.MethodPost:
					cfg.Rooms.AddMember(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 3 && segments[1] == "members" && segments[2] != "":
				if r.Method != http.MethodDelete {
					methodNotAllowed(w, http.MethodDelete)
					return
				}
				cfg.Rooms.RemoveMember(w, r, segments[2])
			case len(segments) == 2 && segments[1] == "requests" && cfg.Requests != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Requests.ListByRoom(w, r)
			case len(segments) == 2 && segments[1] == "restrictions" && cfg.Restrictions != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Restrictions.ListByRoom(w, r)
				case http.MethodPost:
					cfg.Restrictions.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 2 && segments[1] == "trackers" && cfg.Trackers != nil:
				switch r.Method {
				case http.MethodGet:
					cfg.Trackers.ListByRoom(w, r)
				case http.MethodPost:
					cfg.Trackers.Create(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPost)
				}
			case len(segments) == 2 && segments[1] == "logs" && cfg.Access != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Access.ListLogs(w, r)
			case len(segments) == 3 && segments[1] == "logs" && segments[2] == "stats" && cfg.Access != nil:
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Access.Stats(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/roles", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Rooms.ListRoles(w, r)
			case http.MethodPost:
				cfg.Rooms.CreateRole(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
	}

	if cfg.Restrictions != nil {
		mux.HandleFunc("/restrictions/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/restrictions/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithRestrictionID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Restrictions.Get(w, r)
			case http.MethodPut:
				cfg.Restrictions.Update(w, r)
			case http.MethodDelete:
				cfg.Restrictions.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete)
			}
		})
	}

	if cfg.Trackers != nil {
		mux.HandleFunc("/trackers/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/trackers/")
			segments := strings.Split(rest, "/")
			if len(segments) == 0 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}

			ctx := ContextWithTrackerID(r.Context(), segments[0])
			r = r.WithContext(ctx)

			switch {
			case len(segments) == 1:
				switch r.Method {
				case http.MethodGet:
					cfg.Trackers.Get(w, r)
				case http.MethodPatch:
					cfg.Trackers.Mutate(w, r)
				case http.MethodDelete:
					cfg.Trackers.Deactivate(w, r)
				default:
					methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
				}
			case len(segments) == 2 && segments[1] == "reset":
				if r.Method != http.MethodPost {
					methodNotAllowed(w, http.MethodPost)
					return
				}
				cfg.Trackers.Reset(w, r)
			case len(segments) == 2 && segments[1] == "lapses":
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				cfg.Trackers.ListLapses(w, r)
			default:
				http.NotFound(w, r)
			}
		})
		mux.HandleFunc("/lapses/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/lapses/")
			segments := strings.Split(rest, "/")
			if len(segments) != 2 || segments[0] == "" || segments[1] != "rollback" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			ctx := ContextWithLapseID(r.Context(), segments[0])
			cfg.Trackers.Rollback(w, r.WithContext(ctx))
		})
	}

	if cfg.Requests != nil {
		mux.HandleFunc("/requests", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Requests.Create(w, r)
		})
		mux.HandleFunc("/requests/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/requests/")
			segments := strings.Split(rest, "/")
			if len(segments) != 2 || segments[0] == "" {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}

			ctx := ContextWithRequestID(r.Context(), segments[0])
			r = r.WithContext(ctx)

			switch segments[1] {
			case "approve":
				cfg.Requests.Approve(w, r)
			case "reject":
				cfg.Requests.Reject(w, r)
			default:
				http.NotFound(w, r)
			}
		})
	}

	if cfg.Access != nil {
		mux.HandleFunc("/access/attempts", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Access.Attempt(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
