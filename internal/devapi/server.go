// Package devapi is an in-memory development backend speaking the
// storefront's REST contract.
package devapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/alextreichler/shopfront/internal/models"
)

type userRecord struct {
	models.User
	PasswordHash []byte
}

type upload struct {
	contentType string
	data        []byte
}

// Server holds all backend data in memory behind one mutex.
type Server struct {
	provider  Provider
	jwtSecret []byte
	origin    string
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	users     map[string]*userRecord
	byEmail   map[string]string
	products  map[string]*models.Product
	prodOrder []string
	carts     map[string]*models.Cart
	addresses map[string][]models.Address
	orders    map[string]*models.Order
	ordOrder  []string
	reviews   map[string][]models.Review
	features  []models.FeatureImage
	uploads   map[string]upload
}

type Options struct {
	Provider  Provider
	JWTSecret []byte
	// FrontendOrigin, when set, is allowed credentialed CORS requests.
	FrontendOrigin string
	Logger         *slog.Logger
}

func New(opts Options) *Server {
	if opts.Provider == nil {
		opts.Provider = NewFakeProvider("", "")
	}
	if len(opts.JWTSecret) == 0 {
		opts.JWTSecret = []byte(uuid.NewString())
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		provider:  opts.Provider,
		jwtSecret: opts.JWTSecret,
		origin:    opts.FrontendOrigin,
		logger:    opts.Logger,
		now:       time.Now,
		users:     make(map[string]*userRecord),
		byEmail:   make(map[string]string),
		products:  make(map[string]*models.Product),
		carts:     make(map[string]*models.Cart),
		addresses: make(map[string][]models.Address),
		orders:    make(map[string]*models.Order),
		reviews:   make(map[string][]models.Review),
		uploads:   make(map[string]upload),
	}
}

func (s *Server) Provider() Provider { return s.provider }

// App builds the fiber application with every route mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit:    10 << 20,
		ErrorHandler: s.errorHandler,
	})
	app.Use(recover.New())
	if s.origin != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     s.origin,
			AllowCredentials: true,
			AllowHeaders:     "Content-Type, Cache-Control, Expires, Pragma",
			AllowMethods:     "GET, POST, PUT, DELETE",
		}))
	}
	s.routes(app)
	return app
}

// Handler exposes the fiber app as a net/http handler.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.App())
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error("devapi request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return fail(c, code, "Some error occured")
	}
	return fail(c, code, err.Error())
}

func ok(c *fiber.Ctx, body fiber.Map) error {
	body["success"] = true
	return c.Status(fiber.StatusOK).JSON(body)
}

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": message})
}

func newID() string { return uuid.NewString() }

// CreateUser adds an account directly, bypassing registration. Used for
// seeding admins.
func (s *Server) CreateUser(userName, email, password, role string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return nil, fiber.NewError(fiber.StatusBadRequest, "User Already exists with the same email! Please try again")
	}
	rec := &userRecord{
		User:         models.User{ID: newID(), UserName: userName, Email: email, Role: role},
		PasswordHash: hash,
	}
	s.users[rec.ID] = rec
	s.byEmail[email] = rec.ID
	u := rec.User
	return &u, nil
}

// AddProduct inserts a catalog product directly.
func (s *Server) AddProduct(in models.ProductInput) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertProductLocked(in)
}

func (s *Server) insertProductLocked(in models.ProductInput) models.Product {
	p := &models.Product{
		ID:          newID(),
		Image:       in.Image,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Brand:       in.Brand,
		Price:       in.Price,
		SalePrice:   in.SalePrice,
		TotalStock:  in.TotalStock,
	}
	s.products[p.ID] = p
	s.prodOrder = append(s.prodOrder, p.ID)
	return *p
}

// SeedDemo loads an admin account and a handful of products.
func (s *Server) SeedDemo() error {
	if _, err := s.CreateUser("admin", "admin@shopfront.local", "admin123", models.RoleAdmin); err != nil {
		return err
	}
	for _, p := range []models.ProductInput{
		{Title: "Canvas Sneakers", Description: "Everyday low tops", Category: "footwear", Brand: "nike", Price: 2499, SalePrice: 1999, TotalStock: 25},
		{Title: "Denim Jacket", Description: "Washed blue denim", Category: "men", Brand: "levi", Price: 3999, TotalStock: 10},
		{Title: "Summer Dress", Description: "Light cotton dress", Category: "women", Brand: "zara", Price: 1799, SalePrice: 1499, TotalStock: 15},
		{Title: "Kids Hoodie", Description: "Fleece lined", Category: "kids", Brand: "h&m", Price: 999, TotalStock: 30},
		{Title: "Leather Wallet", Description: "Bifold, six slots", Category: "accessories", Brand: "puma", Price: 1299, TotalStock: 40},
	} {
		s.AddProduct(p)
	}
	return nil
}
