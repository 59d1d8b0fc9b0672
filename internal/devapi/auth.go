package devapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/shopfront/internal/models"
)

const (
	tokenCookie = "token"
	tokenTTL    = 60 * time.Minute
)

func (s *Server) register(c *fiber.Ctx) error {
	var reqBody models.Registration
	if err := c.BodyParser(&reqBody); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if strings.TrimSpace(reqBody.UserName) == "" || strings.TrimSpace(reqBody.Email) == "" || len(reqBody.Password) < 6 {
		return fail(c, fiber.StatusBadRequest, "User name, email and a password of at least 6 characters are required")
	}

	if _, err := s.CreateUser(reqBody.UserName, strings.ToLower(reqBody.Email), reqBody.Password, models.RoleUser); err != nil {
		if e, ok := err.(*fiber.Error); ok {
			return fail(c, e.Code, e.Message)
		}
		return err
	}
	return ok(c, fiber.Map{"message": "Registration successful"})
}

func (s *Server) login(c *fiber.Ctx) error {
	var reqBody models.Credentials
	if err := c.BodyParser(&reqBody); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request format")
	}

	s.mu.Lock()
	rec := s.users[s.byEmail[strings.ToLower(reqBody.Email)]]
	s.mu.Unlock()
	if rec == nil {
		return fail(c, fiber.StatusBadRequest, "User doesn't exists! Please register first")
	}
	if err := bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(reqBody.Password)); err != nil {
		return fail(c, fiber.StatusBadRequest, "Incorrect password! Please try again")
	}

	token, err := s.createJwt(rec.User)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  s.now().Add(tokenTTL),
	})
	u := rec.User
	return ok(c, fiber.Map{"message": "Logged in successfully", "user": u})
}

func (s *Server) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     tokenCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		Expires:  s.now().Add(-time.Hour),
	})
	return ok(c, fiber.Map{"message": "Logged out successfully!"})
}

func (s *Server) checkAuth(c *fiber.Ctx) error {
	u := c.Locals("user").(models.User)
	return ok(c, fiber.Map{"message": "Authenticated user!", "user": u})
}

func (s *Server) createJwt(u models.User) (string, error) {
	claims := jwt.MapClaims{
		"id":       u.ID,
		"role":     u.Role,
		"email":    u.Email,
		"userName": u.UserName,
		"exp":      s.now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	tokenString := c.Cookies(tokenCookie)
	if tokenString == "" {
		return fail(c, fiber.StatusUnauthorized, "Unauthorised user!")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return fail(c, fiber.StatusUnauthorized, "Unauthorised user!")
	}

	userID, _ := claims["id"].(string)
	s.mu.Lock()
	rec := s.users[userID]
	s.mu.Unlock()
	if rec == nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorised user!")
	}

	c.Locals("userId", userID)
	c.Locals("user", rec.User)
	return c.Next()
}

func (s *Server) requireAdmin(c *fiber.Ctx) error {
	u, _ := c.Locals("user").(models.User)
	if u.Role != models.RoleAdmin {
		return fail(c, fiber.StatusForbidden, "Admin access required")
	}
	return c.Next()
}

// owns reports whether the signed-in user is userID.
func owns(c *fiber.Ctx, userID string) bool {
	id, _ := c.Locals("userId").(string)
	return id != "" && id == userID
}

func forbidden(c *fiber.Ctx) error {
	return fail(c, fiber.StatusForbidden, "Not allowed to access another user's data")
}
