package middleware

import (
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"

	"github.com/kataclub/kataclub_server/internal/user"
)

type AuthMiddleware struct {
	userService *user.UserService
}

func NewAuthMiddleware(userService *user.UserService) *AuthMiddleware {
	return &AuthMiddleware{
		userService: userService,
	}
}

func (am *AuthMiddleware) RequireAuth(handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, err := am.userService.ValidateJWTFromRequest(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Authentication failed")
			ctx.Error("Unauthorized", fasthttp.StatusUnauthorized)
			return
		}

		ctx.SetUserValue("user", authenticatedUser)

		handler(ctx)
	}
}

// RequireRole enforces a minimum role: an admin passes every moderator
// check, a moderator passes none of the admin checks.
func (am *AuthMiddleware) RequireRole(minRole string, handler fasthttp.RequestHandler) fasthttp.RequestHandler {
	return am.RequireAuth(func(ctx *fasthttp.RequestCtx) {
		authenticatedUser, ok := ctx.UserValue("user").(*user.User)
		if !ok || !user.RoleAtLeast(authenticatedUser.Role, minRole) {
			log.Error().Msg("Insufficient permissions")
			ctx.Error("Forbidden", fasthttp.StatusForbidden)
			return
		}

		handler(ctx)
	})
}
