package authclient

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GuardUserKey is where guards park the current user in request locals.
const GuardUserKey = "auth_user"

// SessionReader is the read-only session view the route guards consume.
type SessionReader interface {
	IsAuthenticated() bool
	UserRole() Role
	CurrentUser() *User
	HasPermission(permission string) bool
	HasAnyPermission(permissions []string) bool
	CanAccess(requiredRole Role) bool
}

// Guards builds route middleware on top of a session. Two distinct semantics
// coexist on purpose: RequireRole is an exact-role page guard (a
// HeadOfDepartment is bounced off a Teacher-only page), while
// RequireMinimumRole is a clearance check using the role hierarchy.
type Guards struct {
	session        SessionReader
	loginRoute     string
	dashboardRoute string
	Logger         Logger
}

func NewGuards(session SessionReader, cfg Config) *Guards {
	loginRoute := cfg.GetLoginRoute()
	if loginRoute == "" {
		loginRoute = "/login"
	}
	return &Guards{
		session:        session,
		loginRoute:     loginRoute,
		dashboardRoute: "/dashboard",
		Logger:         defLogger{},
	}
}

// DashboardRoute maps a role to its landing page.
func DashboardRoute(role Role) string {
	switch role {
	case RoleAdmin:
		return "/admin/overview"
	case RoleTeacher:
		return "/teacher/overview"
	case RoleHeadOfDepartment:
		return "/hod/overview"
	case RoleStudent:
		return "/student/overview"
	default:
		return "/login"
	}
}

// RequireAuth redirects anonymous requests to the login route and parks the
// current user in locals for downstream handlers.
func (g *Guards) RequireAuth() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return ctx.Redirect(g.loginRoute, http.StatusFound)
			}
			ctx.Locals(GuardUserKey, g.session.CurrentUser())
			return next(ctx)
		}
	}
}

// RequireRole is the exact-role page guard. Exact match first, then a
// case-insensitive comparison; anything else lands on the user's own
// dashboard rather than an error page.
func (g *Guards) RequireRole(role Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return ctx.Redirect(g.loginRoute, http.StatusFound)
			}

			userRole := g.session.UserRole()
			if roleMatches(userRole, role) {
				ctx.Locals(GuardUserKey, g.session.CurrentUser())
				return next(ctx)
			}

			g.deny(ctx, "role mismatch", map[string]any{
				"user_role":     string(userRole),
				"required_role": string(role),
			})
			return ctx.Redirect(DashboardRoute(ResolveRole(string(userRole), "")), http.StatusFound)
		}
	}
}

// RequireMinimumRole grants access when the user's clearance meets the
// required rank, e.g. a HeadOfDepartment clears a Teacher requirement.
func (g *Guards) RequireMinimumRole(minRole Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return ctx.Redirect(g.loginRoute, http.StatusFound)
			}
			if !g.session.CanAccess(minRole) {
				g.deny(ctx, "insufficient clearance", map[string]any{
					"user_role":    string(g.session.UserRole()),
					"minimum_role": string(minRole),
				})
				return ctx.Redirect(g.dashboardRoute, http.StatusFound)
			}
			ctx.Locals(GuardUserKey, g.session.CurrentUser())
			return next(ctx)
		}
	}
}

// RequirePermission gates a route on a single permission.
func (g *Guards) RequirePermission(permission string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return ctx.Redirect(g.loginRoute, http.StatusFound)
			}
			if !g.session.HasPermission(permission) {
				g.deny(ctx, "missing permission", map[string]any{
					"permission": permission,
				})
				return ctx.Redirect(g.dashboardRoute, http.StatusFound)
			}
			ctx.Locals(GuardUserKey, g.session.CurrentUser())
			return next(ctx)
		}
	}
}

// RequireAnyPermission gates a route on holding at least one permission.
func (g *Guards) RequireAnyPermission(permissions []string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if !g.session.IsAuthenticated() {
				return ctx.Redirect(g.loginRoute, http.StatusFound)
			}
			if !g.session.HasAnyPermission(permissions) {
				g.deny(ctx, "missing permissions", map[string]any{
					"permissions": permissions,
				})
				return ctx.Redirect(g.dashboardRoute, http.StatusFound)
			}
			ctx.Locals(GuardUserKey, g.session.CurrentUser())
			return next(ctx)
		}
	}
}

// RedirectIfAuthenticated keeps signed-in users away from the login page by
// sending them to their role's dashboard.
func (g *Guards) RedirectIfAuthenticated() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if g.session.IsAuthenticated() {
				return ctx.Redirect(DashboardRoute(g.session.UserRole()), http.StatusFound)
			}
			return next(ctx)
		}
	}
}

func (g *Guards) deny(ctx router.Context, reason string, metadata map[string]any) {
	richErr := goerrors.New(reason, goerrors.CategoryAuthz).
		WithCode(goerrors.CodeForbidden).
		WithMetadata(metadata)

	g.Logger.Info(
		"Route guard denied access",
		"reason", richErr.Message,
		"path", ctx.OriginalURL(),
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)
}

// roleMatches applies the guard matching rules: exact, then case-insensitive.
func roleMatches(userRole, required Role) bool {
	if userRole == required {
		return true
	}
	return strings.EqualFold(
		strings.TrimSpace(string(userRole)),
		strings.TrimSpace(string(required)),
	)
}
