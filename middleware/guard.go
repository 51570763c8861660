package middleware

import (
	"errors"
	"net/http"

	"github.com/avetra/orgauth"
	"github.com/avetra/orgauth/policy"
)

// RouteClass describes what a route demands from the caller's session.
type RouteClass int

const (
	// RoutePublic routes admit everyone, including anonymous callers.
	RoutePublic RouteClass = iota

	// RoutePasswordUpdate routes admit any authenticated session. This is
	// the only class a first-login session may reach.
	RoutePasswordUpdate

	// RouteProtected routes require a fully authenticated session.
	RouteProtected
)

// Admit decides whether a session in the given state may reach a route of
// the given class. It is pure: no I/O, no clock, no machine access.
func Admit(state orgauth.AuthState, class RouteClass) error {
	switch class {
	case RoutePublic:
		return nil
	case RoutePasswordUpdate:
		if !state.Authenticated() {
			return orgauth.ErrNotAuthenticated
		}
		return nil
	default:
		if !state.Authenticated() {
			return orgauth.ErrNotAuthenticated
		}
		if state == orgauth.StateAuthenticatedFirstLogin {
			return orgauth.ErrPasswordChangeRequired
		}
		return nil
	}
}

// RequireActive admits only fully authenticated sessions. Anonymous and
// rejected callers get 401; first-login sessions get 403 so clients can
// distinguish "sign in" from "finish your password update".
func RequireActive(machine *orgauth.Machine) func(http.Handler) http.Handler {
	return guard(machine, RouteProtected)
}

// AllowFirstLogin admits any authenticated session, including first-login.
func AllowFirstLogin(machine *orgauth.Machine) func(http.Handler) http.Handler {
	return guard(machine, RoutePasswordUpdate)
}

func guard(machine *orgauth.Machine, class RouteClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if machine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := Admit(machine.State(), class); err != nil {
				reject(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSection is RequireActive plus a visibility check on the selected
// membership. The path addresses nested sections, e.g.
// RequireSection(m, "finance", "budgets"). No membership selected means 403.
func RequireSection(machine *orgauth.Machine, path ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if machine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := Admit(machine.State(), RouteProtected); err != nil {
				reject(w, err)
				return
			}
			visibility, err := machine.Visibility()
			if err != nil {
				reject(w, err)
				return
			}
			if !policy.SectionVisible(visibility, path...) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability is RequireActive plus a named capability check on the
// selected membership. Unknown capability names are denied with 403.
func RequireCapability(machine *orgauth.Machine, name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if machine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := Admit(machine.State(), RouteProtected); err != nil {
				reject(w, err)
				return
			}
			allowed, err := machine.HasCapability(name)
			if err != nil {
				reject(w, err)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orgauth.ErrPasswordChangeRequired),
		errors.Is(err, orgauth.ErrNoMembership),
		errors.Is(err, policy.ErrUnknownCapability):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
}
