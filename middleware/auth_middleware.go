package middleware

import (
	"github.com/anjiri1684/career_mentor/auth"
	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
)

const identityKey = "identity"

// TokenCookie carries the JWT for browser navigation, e.g. the accept link
// mailed to mentors, where no Authorization header is sent.
const TokenCookie = "token"

func Protected(secret []byte) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:     secret,
		SigningMethod:  "HS256",
		TokenLookup:    "header:Authorization,cookie:" + TokenCookie,
		Claims:         &auth.Claims{},
		SuccessHandler: storeIdentity,
		ErrorHandler:   jwtError,
	})
}

func storeIdentity(c *fiber.Ctx) error {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok || !claims.Identity().Authenticated() {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
	}
	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

// CurrentIdentity returns the verified caller, or the zero Identity when the
// route is not behind Protected.
func CurrentIdentity(c *fiber.Ctx) auth.Identity {
	id, _ := c.Locals(identityKey).(auth.Identity)
	return id
}

func RoleRequired(roles ...auth.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := CurrentIdentity(c)
		for _, role := range roles {
			if id.Is(role) {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: " + string(roles[0]) + " access required",
		})
	}
}

func AdminRequired() fiber.Handler {
	return RoleRequired(auth.RoleAdmin)
}
