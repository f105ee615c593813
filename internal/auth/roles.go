package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-engine/pkg/util/errorutil"
)

// RequireGuildAccess rejects callers whose token does not list the guild
// named by the route parameter param.
func RequireGuildAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.CanManage(c.Params(param)) {
			return apperrors.NewForbidden("no access to this guild")
		}
		return c.Next()
	}
}
