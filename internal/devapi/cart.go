package devapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/alextreichler/shopfront/internal/models"
)

type cartLine struct {
	UserID    string `json:"userId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// cartLocked returns a copy of the user's cart with product fields
// refreshed from the catalog. Items whose product is gone are dropped.
func (s *Server) cartLocked(userID string) models.Cart {
	cart := s.carts[userID]
	if cart == nil {
		return models.Cart{UserID: userID, Items: []models.CartItem{}}
	}
	out := models.Cart{ID: cart.ID, UserID: userID, Items: make([]models.CartItem, 0, len(cart.Items))}
	for _, item := range cart.Items {
		p, found := s.products[item.ProductID]
		if !found {
			continue
		}
		out.Items = append(out.Items, models.CartItem{
			ProductID: p.ID,
			Image:     p.Image,
			Title:     p.Title,
			Price:     p.Price,
			SalePrice: p.SalePrice,
			Quantity:  item.Quantity,
		})
	}
	return out
}

func (s *Server) addToCart(c *fiber.Ctx) error {
	var line cartLine
	if err := c.BodyParser(&line); err != nil || line.ProductID == "" || line.Quantity <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}
	if !owns(c, line.UserID) {
		return forbidden(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.products[line.ProductID]; !found {
		return fail(c, fiber.StatusNotFound, "Product not found")
	}

	cart := s.carts[line.UserID]
	if cart == nil {
		cart = &models.Cart{ID: newID(), UserID: line.UserID}
		s.carts[line.UserID] = cart
	}
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == line.ProductID {
			cart.Items[i].Quantity += line.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return ok(c, fiber.Map{"data": s.cartLocked(line.UserID)})
}

func (s *Server) fetchCart(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !owns(c, userID) {
		return forbidden(c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[userID] == nil {
		return fail(c, fiber.StatusNotFound, "Cart not found!")
	}
	return ok(c, fiber.Map{"data": s.cartLocked(userID)})
}

func (s *Server) updateCart(c *fiber.Ctx) error {
	var line cartLine
	if err := c.BodyParser(&line); err != nil || line.ProductID == "" || line.Quantity <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}
	if !owns(c, line.UserID) {
		return forbidden(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[line.UserID]
	if cart == nil {
		return fail(c, fiber.StatusNotFound, "Cart not found!")
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == line.ProductID {
			cart.Items[i].Quantity = line.Quantity
			return ok(c, fiber.Map{"data": s.cartLocked(line.UserID)})
		}
	}
	return fail(c, fiber.StatusNotFound, "Cart item not present !")
}

func (s *Server) deleteCartItem(c *fiber.Ctx) error {
	userID, productID := c.Params("userId"), c.Params("productId")
	if !owns(c, userID) {
		return forbidden(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[userID]
	if cart == nil {
		return fail(c, fiber.StatusNotFound, "Cart not found!")
	}
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	return ok(c, fiber.Map{"data": s.cartLocked(userID)})
}
