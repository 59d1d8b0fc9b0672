package devapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/alextreichler/shopfront/internal/models"
)

func validAddress(in models.AddressInput) bool {
	for _, v := range []string{in.Address, in.City, in.Pincode, in.Phone} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

func (s *Server) addAddress(c *fiber.Ctx) error {
	var in models.AddressInput
	if err := c.BodyParser(&in); err != nil || !validAddress(in) {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}
	if !owns(c, in.UserID) {
		return forbidden(c)
	}

	addr := models.Address{
		ID:      newID(),
		UserID:  in.UserID,
		Address: in.Address,
		City:    in.City,
		Pincode: in.Pincode,
		Phone:   in.Phone,
		Notes:   in.Notes,
	}
	s.mu.Lock()
	s.addresses[in.UserID] = append(s.addresses[in.UserID], addr)
	s.mu.Unlock()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": addr})
}

func (s *Server) fetchAddresses(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !owns(c, userID) {
		return forbidden(c)
	}
	s.mu.Lock()
	list := append([]models.Address{}, s.addresses[userID]...)
	s.mu.Unlock()
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) editAddress(c *fiber.Ctx) error {
	userID, addressID := c.Params("userId"), c.Params("addressId")
	if !owns(c, userID) {
		return forbidden(c)
	}
	var in models.AddressInput
	if err := c.BodyParser(&in); err != nil || !validAddress(in) {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[userID]
	for i := range list {
		if list[i].ID == addressID {
			list[i].Address = in.Address
			list[i].City = in.City
			list[i].Pincode = in.Pincode
			list[i].Phone = in.Phone
			list[i].Notes = in.Notes
			return ok(c, fiber.Map{"data": list[i]})
		}
	}
	return fail(c, fiber.StatusNotFound, "Address not found")
}

func (s *Server) deleteAddress(c *fiber.Ctx) error {
	userID, addressID := c.Params("userId"), c.Params("addressId")
	if !owns(c, userID) {
		return forbidden(c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[userID]
	for i := range list {
		if list[i].ID == addressID {
			s.addresses[userID] = append(list[:i:i], list[i+1:]...)
			return ok(c, fiber.Map{"message": "Address deleted successfully"})
		}
	}
	return fail(c, fiber.StatusNotFound, "Address not found")
}
