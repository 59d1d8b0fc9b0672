package devapi

import (
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/alextreichler/shopfront/internal/models"
)

const currency = "INR"

// toMinorUnits converts a rupee amount to paise.
func toMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *Server) createOrder(c *fiber.Ctx) error {
	var draft models.OrderDraft
	if err := c.BodyParser(&draft); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if !owns(c, draft.UserID) {
		return forbidden(c)
	}
	if len(draft.Items) == 0 {
		return fail(c, fiber.StatusBadRequest, "Cart is empty")
	}
	amount := toMinorUnits(draft.TotalAmount)
	if amount <= 0 {
		return fail(c, fiber.StatusBadRequest, "Order total must be positive")
	}

	orderID := newID()
	providerOrder, err := s.provider.CreateOrder(amount, currency, "receipt_"+orderID)
	if err != nil {
		s.logger.Error("creating provider order", "error", err)
		return fail(c, fiber.StatusInternalServerError, "Error while creating razorpay payment")
	}

	now := s.now()
	order := &models.Order{
		ID:              orderID,
		UserID:          draft.UserID,
		CartID:          draft.CartID,
		Items:           draft.Items,
		AddressInfo:     draft.AddressInfo,
		OrderStatus:     models.OrderPending,
		PaymentMethod:   models.PaymentMethodRazorpay,
		PaymentStatus:   models.PaymentPending,
		TotalAmount:     draft.TotalAmount,
		OrderDate:       now,
		OrderUpdateDate: now,
		ProviderOrderID: providerOrder.ID,
	}
	created := *order
	s.mu.Lock()
	s.orders[order.ID] = order
	s.ordOrder = append(s.ordOrder, order.ID)
	s.mu.Unlock()

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":       true,
		"order":         created,
		"razorpayOrder": providerOrder,
		"razorpayKeyId": s.provider.KeyID(),
	})
}

// capturePayment verifies the provider signature, marks the order paid,
// takes the items out of stock and empties the cart. Capturing an order a
// second time with the same payment succeeds without side effects.
func (s *Server) capturePayment(c *fiber.Ctx) error {
	var req models.CaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, found := s.orders[req.OrderID]
	if !found {
		return fail(c, fiber.StatusNotFound, "Order can not be found")
	}
	if !owns(c, order.UserID) {
		return forbidden(c)
	}
	if order.PaymentStatus == models.PaymentCaptured {
		if order.PaymentID == req.PaymentID {
			return ok(c, fiber.Map{"message": "Order confirmed", "data": order})
		}
		return fail(c, fiber.StatusConflict, "Order is already paid")
	}
	if req.PaymentProof.OrderID != order.ProviderOrderID {
		return fail(c, fiber.StatusBadRequest, "Payment does not belong to this order")
	}
	if !s.provider.VerifyPayment(req.PaymentProof.OrderID, req.PaymentID, req.Signature) {
		order.PaymentStatus = models.PaymentFailed
		order.OrderUpdateDate = s.now()
		return fail(c, fiber.StatusBadRequest, "Payment verification failed")
	}

	for _, item := range order.Items {
		p, found := s.products[item.ProductID]
		if !found {
			return fail(c, fiber.StatusNotFound, "Product not found: "+item.Title)
		}
		if p.TotalStock < item.Quantity {
			return fail(c, fiber.StatusBadRequest, "Not enough stock for this product "+p.Title)
		}
	}
	for _, item := range order.Items {
		s.products[item.ProductID].TotalStock -= item.Quantity
	}

	order.PaymentStatus = models.PaymentCaptured
	order.OrderStatus = models.OrderConfirmed
	order.PaymentID = req.PaymentID
	order.OrderUpdateDate = s.now()
	delete(s.carts, order.UserID)

	s.logger.Info("payment captured", "order", order.ID, "payment", req.PaymentID)
	return ok(c, fiber.Map{"message": "Order confirmed", "data": order})
}

func (s *Server) ordersLocked(match func(*models.Order) bool) []models.Order {
	list := make([]models.Order, 0)
	for _, id := range s.ordOrder {
		if o := s.orders[id]; o != nil && match(o) {
			list = append(list, *o)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].OrderDate.After(list[j].OrderDate) })
	return list
}

func (s *Server) ordersByUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !owns(c, userID) {
		return forbidden(c)
	}
	s.mu.Lock()
	list := s.ordersLocked(func(o *models.Order) bool { return o.UserID == userID })
	s.mu.Unlock()
	if len(list) == 0 {
		return fail(c, fiber.StatusNotFound, "No orders found!")
	}
	return ok(c, fiber.Map{"data": list})
}

func (s *Server) orderDetails(c *fiber.Ctx) error {
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
	if !owns(c, order.UserID) {
		return forbidden(c)
	}
	return ok(c, fiber.Map{"data": order})
}

// fakePay stands in for the hosted widget when running on the fake
// provider, answering with the proof a successful payment would produce.
func (s *Server) fakePay(c *fiber.Ctx) error {
	fake := s.provider.(*FakeProvider)
	id := c.Params("providerOrderId")
	fake.mu.Lock()
	_, known := fake.orders[id]
	fake.mu.Unlock()
	if !known {
		return fail(c, fiber.StatusNotFound, "Provider order not found")
	}
	return ok(c, fiber.Map{"data": fake.Pay(id)})
}
