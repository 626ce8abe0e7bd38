package authz

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-campus/meridian-campus/internal/shared"
)

// SnapshotSource loads the caller's authorization snapshot: the user record,
// its assignments and the roles they reference.
type SnapshotSource interface {
	AuthorizationSnapshot(ctx context.Context, userID uuid.UUID) (*User, []Assignment, RoleSet, error)
}

// PermissionSource resolves a user's aggregate capability set. The assignment
// service implements it through the versioned permission cache.
type PermissionSource interface {
	UserPermissions(ctx context.Context, userID uuid.UUID) (Permission, error)
}

// Middleware wires requirement-based authorization guards for HTTP handlers.
// Guards made up entirely of permission requirements are answered from
// Permissions when it is set; everything else loads a full snapshot. A cached
// aggregate already resolves to zero for an inactive user, so the cached path
// stays fail-closed.
type Middleware struct {
	Source      SnapshotSource
	Permissions PermissionSource
	Logger      *slog.Logger
	Now         func() time.Time
}

// Require allows the request only when every requirement evaluates to allow.
func (m Middleware) Require(reqs ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if perms, ok := m.permissionOnly(reqs); ok {
				held, ok := m.heldPermissions(r)
				if !ok {
					forbidden(w)
					return
				}
				for _, req := range perms {
					if !req.SatisfiedBy(held) {
						forbidden(w)
						return
					}
				}
				next.ServeHTTP(w, r)
				return
			}
			user, assignments, roles, ok := m.snapshot(r)
			if !ok {
				forbidden(w)
				return
			}
			now := m.now()
			for _, req := range reqs {
				if !Evaluate(req, user, assignments, roles, now) {
					forbidden(w)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny allows the request when at least one requirement evaluates to
// allow.
func (m Middleware) RequireAny(reqs ...Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(reqs) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			if perms, ok := m.permissionOnly(reqs); ok {
				held, ok := m.heldPermissions(r)
				if !ok {
					forbidden(w)
					return
				}
				for _, req := range perms {
					if req.SatisfiedBy(held) {
						next.ServeHTTP(w, r)
						return
					}
				}
				forbidden(w)
				return
			}
			user, assignments, roles, ok := m.snapshot(r)
			if !ok {
				forbidden(w)
				return
			}
			now := m.now()
			for _, req := range reqs {
				if Evaluate(req, user, assignments, roles, now) {
					next.ServeHTTP(w, r)
					return
				}
			}
			forbidden(w)
		})
	}
}

// permissionOnly reports whether the guard can be answered from the cached
// aggregate: a permission source is configured and every requirement is a
// PermissionRequirement.
func (m Middleware) permissionOnly(reqs []Requirement) ([]PermissionRequirement, bool) {
	if m.Permissions == nil || len(reqs) == 0 {
		return nil, false
	}
	out := make([]PermissionRequirement, 0, len(reqs))
	for _, req := range reqs {
		pr, ok := req.(PermissionRequirement)
		if !ok {
			return nil, false
		}
		out = append(out, pr)
	}
	return out, true
}

func (m Middleware) heldPermissions(r *http.Request) (Permission, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return PermNone, false
	}
	held, err := m.Permissions.UserPermissions(r.Context(), principal.UserID)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("authz permissions", slog.Any("error", err))
		}
		return PermNone, false
	}
	return held, true
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func (m Middleware) snapshot(r *http.Request) (*User, []Assignment, RoleSet, bool) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		return nil, nil, nil, false
	}
	user, assignments, roles, err := m.Source.AuthorizationSnapshot(r.Context(), principal.UserID)
	if err != nil {
		// Fail closed: a snapshot we cannot load is a snapshot that grants
		// nothing.
		if m.Logger != nil {
			m.Logger.Error("authz snapshot", slog.Any("error", err))
		}
		return nil, nil, nil, false
	}
	return user, assignments, roles, true
}

func (m Middleware) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
