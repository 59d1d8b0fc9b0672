package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alextreichler/shopfront/internal/checkout"
	"github.com/alextreichler/shopfront/internal/config"
	"github.com/alextreichler/shopfront/internal/gateway"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/session"
	"github.com/alextreichler/shopfront/internal/store"
	"github.com/alextreichler/shopfront/internal/storefront"
)

const usage = "expected one of 'register', 'products', 'search', 'reviews', 'cart', 'addresses', 'orders', 'checkout', 'admin-orders', 'stats' subcommands"

func main() {
	config.LoadDotEnv()
	apiDefault := os.Getenv("API_BASE_URL")
	if apiDefault == "" {
		apiDefault = "http://localhost:5000"
	}

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "register":
		cmd := flag.NewFlagSet("register", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		name := cmd.String("name", "", "User name")
		email := cmd.String("email", "", "Email address")
		password := cmd.String("password", "", "Password")
		cmd.Parse(os.Args[2:])
		if *name == "" || *email == "" || *password == "" {
			fmt.Println("name, email and password are required")
			cmd.PrintDefaults()
			os.Exit(1)
		}
		shop := newShop(*api)
		if err := shop.Auth.Register(ctx, models.Registration{UserName: *name, Email: *email, Password: *password}); err != nil {
			log.Fatalf("Failed to register: %v", err)
		}
		fmt.Printf("User '%s' registered successfully.\n", *email)

	case "products":
		cmd := flag.NewFlagSet("products", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		category := cmd.String("category", "", "Comma separated categories")
		brand := cmd.String("brand", "", "Comma separated brands")
		sortBy := cmd.String("sort", "price-lowtohigh", "Sort order")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		list, err := shop.Products.FetchFiltered(ctx, models.ProductFilter{
			Category: splitList(*category),
			Brand:    splitList(*brand),
			SortBy:   *sortBy,
		})
		if err != nil {
			log.Fatalf("Failed to fetch products: %v", err)
		}
		printProducts(list)

	case "search":
		cmd := flag.NewFlagSet("search", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		q := cmd.String("q", "", "Keyword")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		list, err := shop.Search.Search(ctx, *q)
		if err != nil {
			log.Fatalf("Failed to search: %v", err)
		}
		printProducts(list)

	case "reviews":
		cmd := flag.NewFlagSet("reviews", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		product := cmd.String("product", "", "Product id")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		list, err := shop.Reviews.FetchByProduct(ctx, *product)
		if err != nil {
			log.Fatalf("Failed to fetch reviews: %v", err)
		}
		for _, rv := range list {
			fmt.Printf("%d/5  %-16s %s\n", rv.ReviewValue, rv.UserName, rv.ReviewMessage)
		}

	case "cart":
		cmd := flag.NewFlagSet("cart", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		email := cmd.String("email", "", "Email address")
		password := cmd.String("password", "", "Password")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		user := login(ctx, shop, *email, *password)
		cart, err := shop.Cart.Fetch(ctx, user.ID)
		if err != nil {
			log.Fatalf("Failed to fetch cart: %v", err)
		}
		for _, item := range cart.Items {
			fmt.Printf("%s  %-24s %3d x %10.2f\n", item.ProductID, item.Title, item.Quantity, item.UnitPrice())
		}
		fmt.Printf("Total: %s\n", cart.Total().StringFixed(2))

	case "addresses":
		cmd := flag.NewFlagSet("addresses", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		email := cmd.String("email", "", "Email address")
		password := cmd.String("password", "", "Password")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		user := login(ctx, shop, *email, *password)
		list, err := shop.Addresses.FetchAll(ctx, user.ID)
		if err != nil {
			log.Fatalf("Failed to fetch addresses: %v", err)
		}
		for _, a := range list {
			fmt.Printf("%s  %s, %s %s  %s\n", a.ID, a.Address, a.City, a.Pincode, a.Phone)
		}

	case "admin-orders":
		cmd := flag.NewFlagSet("admin-orders", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		email := cmd.String("email", "", "Admin email address")
		password := cmd.String("password", "", "Admin password")
		id := cmd.String("id", "", "Order id to update")
		status := cmd.String("status", "", "New order status")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		login(ctx, shop, *email, *password)
		if *id != "" && *status != "" {
			if err := shop.AdminOrders.UpdateStatus(ctx, *id, *status); err != nil {
				log.Fatalf("Failed to update order: %v", err)
			}
		}
		list, err := shop.AdminOrders.FetchAll(ctx)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		for _, o := range list {
			fmt.Printf("%s  %s  %-10s %-9s %10.2f\n", o.ID, o.UserID, o.OrderStatus, o.PaymentStatus, o.TotalAmount)
		}

	case "orders":
		cmd := flag.NewFlagSet("orders", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		email := cmd.String("email", "", "Email address")
		password := cmd.String("password", "", "Password")
		cmd.Parse(os.Args[2:])
		shop := newShop(*api)
		user := login(ctx, shop, *email, *password)
		list, err := shop.Orders.ListByUser(ctx, user.ID)
		if err != nil {
			log.Fatalf("Failed to list orders: %v", err)
		}
		for _, o := range list {
			fmt.Printf("%s  %s  %-10s %-9s %10.2f\n", o.ID, o.OrderDate.Format("2006-01-02"), o.OrderStatus, o.PaymentStatus, o.TotalAmount)
		}

	case "checkout":
		cmd := flag.NewFlagSet("checkout", flag.ExitOnError)
		api := cmd.String("api", apiDefault, "Backend base URL")
		email := cmd.String("email", "", "Email address")
		password := cmd.String("password", "", "Password")
		product := cmd.String("product", "", "Product id to buy")
		qty := cmd.Int("qty", 1, "Quantity")
		address := cmd.String("address", "221B Baker Street", "Shipping address, used when the account has none")
		city := cmd.String("city", "Mumbai", "City")
		pincode := cmd.String("pincode", "400001", "Pincode")
		phone := cmd.String("phone", "9999999999", "Phone")
		cmd.Parse(os.Args[2:])
		if *product == "" {
			fmt.Println("product is required")
			cmd.PrintDefaults()
			os.Exit(1)
		}
		runCheckout(ctx, *api, *email, *password, *product, *qty, models.AddressInput{
			Address: *address, City: *city, Pincode: *pincode, Phone: *phone,
		})

	case "stats":
		cmd := flag.NewFlagSet("stats", flag.ExitOnError)
		dbPath := cmd.String("db", envOr("DB_PATH", "./shopfront.db"), "Database path")
		limit := cmd.Int("limit", 10, "Recent attempts to show")
		cmd.Parse(os.Args[2:])
		printStats(ctx, *dbPath, *limit)

	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

func newShop(api string) *storefront.Store {
	return storefront.New(gateway.New(api), session.NewToken(session.NewMemory(), uuid.NewString()))
}

func login(ctx context.Context, shop *storefront.Store, email, password string) *models.User {
	if email == "" || password == "" {
		log.Fatal("email and password are required")
	}
	user, err := shop.Auth.Login(ctx, models.Credentials{Email: email, Password: password})
	if err != nil {
		log.Fatalf("Failed to log in: %v", err)
	}
	return user
}

// runCheckout drives one checkout against a backend running the fake
// payment provider, paying through its /dev/pay endpoint.
func runCheckout(ctx context.Context, api, email, password, productID string, qty int, addr models.AddressInput) {
	client := gateway.New(api)
	token := session.NewToken(session.NewMemory(), uuid.NewString())
	shop := storefront.New(client, token)
	orch := checkout.New(shop.Orders, token, checkout.WithShopName("Shopfront CLI"))

	user := login(ctx, shop, email, password)

	cart, err := shop.Cart.Add(ctx, user.ID, productID, qty)
	if err != nil {
		log.Fatalf("Failed to add to cart: %v", err)
	}

	addresses, err := shop.Addresses.FetchAll(ctx, user.ID)
	if err != nil || len(addresses) == 0 {
		addr.UserID = user.ID
		if _, err := shop.Addresses.Add(ctx, addr); err != nil {
			log.Fatalf("Failed to add address: %v", err)
		}
		if addresses, err = shop.Addresses.FetchAll(ctx, user.ID); err != nil {
			log.Fatalf("Failed to fetch addresses: %v", err)
		}
	}

	opts, err := orch.HandleCheckout(ctx, checkout.Input{User: user, Cart: cart, Address: &addresses[0]})
	if err != nil {
		log.Fatalf("Checkout failed: %v", err)
	}
	fmt.Printf("Order %s created, provider order %s for %d paise.\n", opts.InternalOrderID, opts.OrderID, opts.Amount)

	proof, err := fakePay(ctx, api, opts.OrderID)
	if err != nil {
		log.Fatalf("Failed to pay: %v", err)
	}
	res, err := orch.Capture(ctx, proof)
	if err != nil {
		log.Fatalf("Capture failed (%s): %v", res.Route, err)
	}
	fmt.Printf("Payment %s captured, order is %s.\n", proof.PaymentID, res.Order.OrderStatus)
}

// fakePay asks the development backend for a signed payment proof. It is
// not part of the storefront contract, hence the plain HTTP call.
func fakePay(ctx context.Context, api, providerOrderID string) (models.PaymentProof, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(api, "/")+"/dev/pay/"+providerOrderID, nil)
	if err != nil {
		return models.PaymentProof{}, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return models.PaymentProof{}, err
	}
	defer res.Body.Close()
	var body struct {
		Success bool                `json:"success"`
		Message string              `json:"message"`
		Data    models.PaymentProof `json:"data"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return models.PaymentProof{}, err
	}
	if !body.Success {
		return models.PaymentProof{}, fmt.Errorf("dev pay: %s", body.Message)
	}
	return body.Data, nil
}

func printStats(ctx context.Context, dbPath string, limit int) {
	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	// Ensure tables exist if running cli before server
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	stats, err := db.GetCheckoutStats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("Attempts: %d  Captured revenue: %s\n", stats.TotalAttempts, stats.CapturedRevenue.StringFixed(2))
	for phase, n := range stats.AttemptsByPhase {
		fmt.Printf("  %-17s %d\n", phase, n)
	}
	for kind, n := range stats.FailuresByKind {
		fmt.Printf("  failed/%-10s %d\n", kind, n)
	}

	attempts, err := db.GetRecentAttempts(ctx, limit)
	if err != nil {
		log.Fatalf("Failed to read attempts: %v", err)
	}
	for _, a := range attempts {
		fmt.Printf("%s  %-17s %-36s %10.2f  %s\n", a.StartedAt.Format(time.RFC3339), a.Phase, a.OrderID, a.Amount, a.FailureMessage)
	}
}

func printProducts(list []models.Product) {
	for _, p := range list {
		price := p.Price
		if p.SalePrice > 0 {
			price = p.SalePrice
		}
		fmt.Printf("%s  %-24s %-12s %10.2f  stock %d\n", p.ID, p.Title, p.Brand, price, p.TotalStock)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
