package devapi

import (
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/shopfront/internal/models"
)

func splitList(raw string) map[string]bool {
	set := make(map[string]bool)
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}

// productsLocked returns products in insertion order.
func (s *Server) productsLocked() []models.Product {
	list := make([]models.Product, 0, len(s.prodOrder))
	for _, id := range s.prodOrder {
		if p, ok := s.products[id]; ok {
			list = append(list, *p)
		}
	}
	return list
}

func sortProducts(list []models.Product, sortBy string) {
	var less func(a, b models.Product) bool
	switch sortBy {
	case "price-hightolow":
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case "title-atoz":
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	case "title-ztoa":
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) > strings.ToLower(b.Title) }
	default:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	}
	sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
}

func (s *Server) filteredProducts(c *fiber.Ctx) error {
	categories := splitList(c.Query("category"))
	brands := splitList(c.Query("brand"))

	s.mu.Lock()
	all := s.productsLocked()
	s.mu.Unlock()

	list := make([]models.Product, 0, len(all))
	for _, p := range all {
		if len(categories) > 0 && !categories[p.Category] {
			continue
		}
		if len(brands) > 0 && !brands[p.Brand] {
			continue
		}
		list = append(list, p)
	}
	sortProducts(list, c.Query("sortBy", "price-lowtohigh"))
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) productDetails(c *fiber.Ctx) error {
	s.mu.Lock()
	p, found := s.products[c.Params("id")]
	var prod models.Product
	if found {
		prod = *p
	}
	s.mu.Unlock()
	if !found {
		return fail(c, fiber.StatusNotFound, "Product not found!")
	}
	return ok(c, fiber.Map{"data": prod})
}

func (s *Server) search(c *fiber.Ctx) error {
	keyword := strings.ToLower(strings.TrimSpace(c.Params("keyword")))
	if keyword == "" {
		return fail(c, fiber.StatusBadRequest, "Keyword is required and must be in string format")
	}

	s.mu.Lock()
	all := s.productsLocked()
	s.mu.Unlock()

	results := make([]models.Product, 0)
	for _, p := range all {
		for _, field := range []string{p.Title, p.Description, p.Category, p.Brand} {
			if strings.Contains(strings.ToLower(field), keyword) {
				results = append(results, p)
				break
			}
		}
	}
	return ok(c, fiber.Map{"data": results})
}

func (s *Server) productReviews(c *fiber.Ctx) error {
	s.mu.Lock()
	list := append([]models.Review(nil), s.reviews[c.Params("productId")]...)
	s.mu.Unlock()
	if list == nil {
		list = []models.Review{}
	}
	return ok(c, fiber.Map{"data": list})
}

// addReview requires a confirmed order containing the product and at most
// one review per user and product.
func (s *Server) addReview(c *fiber.Ctx) error {
	var in models.ReviewInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request format")
	}
	if !owns(c, in.UserID) {
		return forbidden(c)
	}
	if in.ReviewValue < 1 || in.ReviewValue > 5 {
		return fail(c, fiber.StatusBadRequest, "Review value must be between 1 and 5")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.products[in.ProductID]
	if !found {
		return fail(c, fiber.StatusNotFound, "Product not found!")
	}
	if !s.purchasedLocked(in.UserID, in.ProductID) {
		return fail(c, fiber.StatusForbidden, "You need to purchase product to review it.")
	}
	for _, r := range s.reviews[in.ProductID] {
		if r.UserID == in.UserID {
			return fail(c, fiber.StatusBadRequest, "You already reviewed this product!")
		}
	}

	review := models.Review{
		ID:            newID(),
		ProductID:     in.ProductID,
		UserID:        in.UserID,
		UserName:      in.UserName,
		ReviewMessage: in.ReviewMessage,
		ReviewValue:   in.ReviewValue,
		CreatedAt:     s.now(),
	}
	s.reviews[in.ProductID] = append(s.reviews[in.ProductID], review)

	sum := decimal.Zero
	for _, r := range s.reviews[in.ProductID] {
		sum = sum.Add(decimal.NewFromInt(int64(r.ReviewValue)))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(s.reviews[in.ProductID])))).Round(2)
	p.AverageReview = avg.InexactFloat64()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": review})
}

func (s *Server) purchasedLocked(userID, productID string) bool {
	for _, o := range s.orders {
		if o.UserID != userID || o.PaymentStatus != models.PaymentCaptured {
			continue
		}
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true
			}
		}
	}
	return false
}
