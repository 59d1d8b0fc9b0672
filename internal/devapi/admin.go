package devapi

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/alextreichler/shopfront/internal/models"
)

func (s *Server) uploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("my_file")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return fail(c, fiber.StatusBadRequest, "Only image uploads are allowed")
	}

	name := newID() + strings.ToLower(path.Ext(fh.Filename))
	s.mu.Lock()
	s.uploads[name] = upload{contentType: contentType, data: data}
	s.mu.Unlock()

	return ok(c, fiber.Map{"result": fiber.Map{"url": c.BaseURL() + "/uploads/" + name}})
}

func (s *Server) serveUpload(c *fiber.Ctx) error {
	s.mu.Lock()
	u, found := s.uploads[c.Params("name")]
	s.mu.Unlock()
	if !found {
		return fiber.ErrNotFound
	}
	c.Set(fiber.HeaderContentType, u.contentType)
	return c.Send(u.data)
}

func (s *Server) addProduct(c *fiber.Ctx) error {
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil || strings.TrimSpace(in.Title) == "" || in.Price <= 0 {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}
	s.mu.Lock()
	p := s.insertProductLocked(in)
	s.mu.Unlock()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": p})
}

func (s *Server) allProducts(c *fiber.Ctx) error {
	s.mu.Lock()
	list := s.productsLocked()
	s.mu.Unlock()
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) editProduct(c *fiber.Ctx) error {
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid data provided!")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[c.Params("id")]
	if !found {
		return fail(c, fiber.StatusNotFound, "Product not found")
	}
	if in.Title != "" {
		p.Title = in.Title
	}
	if in.Description != "" {
		p.Description = in.Description
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.Brand != "" {
		p.Brand = in.Brand
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	if in.Price > 0 {
		p.Price = in.Price
	}
	p.SalePrice = in.SalePrice
	p.TotalStock = in.TotalStock
	return ok(c, fiber.Map{"data": *p})
}

func (s *Server) deleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.products[id]; !found {
		return fail(c, fiber.StatusNotFound, "Product not found")
	}
	delete(s.products, id)
	for i, pid := range s.prodOrder {
		if pid == id {
			s.prodOrder = append(s.prodOrder[:i:i], s.prodOrder[i+1:]...)
			break
		}
	}
	return ok(c, fiber.Map{"message": "Product delete successfully"})
}

func (s *Server) allOrders(c *fiber.Ctx) error {
	s.mu.Lock()
	list := s.ordersLocked(func(*models.Order) bool { return true })
	s.mu.Unlock()
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) adminOrderDetails(c *fiber.Ctx) error {
	s.mu.Lock()
	o, found := s.orders[c.Params("id")]
	var order models.Order
	if found {
		order = *o
	}
	s.mu.Unlock()
	if !found {
		return fail(c, fiber.StatusNotFound, "Order not found!")
	}
	return ok(c, fiber.Map{"data": order})
}

var orderStatuses = map[string]bool{
	models.OrderPending:    true,
	models.OrderConfirmed:  true,
	models.OrderInProcess:  true,
	models.OrderInShipping: true,
	models.OrderDelivered:  true,
	models.OrderRejected:   true,
}

func (s *Server) updateOrderStatus(c *fiber.Ctx) error {
	var body struct {
		OrderStatus string `json:"orderStatus"`
	}
	if err := c.BodyParser(&body); err != nil || !orderStatuses[body.OrderStatus] {
		return fail(c, fiber.StatusBadRequest, "Invalid order status")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, found := s.orders[c.Params("id")]
	if !found {
		return fail(c, fiber.StatusNotFound, "Order not found!")
	}
	o.OrderStatus = body.OrderStatus
	o.OrderUpdateDate = s.now()
	return ok(c, fiber.Map{"message": "Order status is updated successfully!"})
}

func (s *Server) featureImages(c *fiber.Ctx) error {
	s.mu.Lock()
	list := append([]models.FeatureImage{}, s.features...)
	s.mu.Unlock()
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) addFeatureImage(c *fiber.Ctx) error {
	var body struct {
		Image string `json:"image"`
	}
	if err := c.BodyParser(&body); err != nil || strings.TrimSpace(body.Image) == "" {
		return fail(c, fiber.StatusBadRequest, "Image is required")
	}
	img := models.FeatureImage{ID: newID(), Image: body.Image}
	s.mu.Lock()
	s.features = append(s.features, img)
	s.mu.Unlock()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": img})
}

func (s *Server) deleteFeatureImage(c *fiber.Ctx) error {
	id := c.Params("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, img := range s.features {
		if img.ID == id {
			s.features = append(s.features[:i:i], s.features[i+1:]...)
			return ok(c, fiber.Map{"message": "Feature image deleted successfully"})
		}
	}
	return fail(c, fiber.StatusNotFound, "Feature image not found")
}
