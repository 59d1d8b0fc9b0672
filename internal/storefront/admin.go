package storefront

import (
	"context"
	"errors"
	"io"

	"github.com/alextreichler/shopfront/internal/gateway"
	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type AdminProductsState struct {
	List     []models.Product `json:"productList"`
	ImageURL string           `json:"uploadedImageUrl"`
}

type AdminProducts struct {
	*state.Slice[AdminProductsState]
	api AdminProductAPI
}

func NewAdminProducts(api AdminProductAPI, opts ...state.Option) *AdminProducts {
	return &AdminProducts{Slice: state.New("adminProducts", AdminProductsState{}, opts...), api: api}
}

func (a *AdminProducts) Add(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminProductsState, *models.Product]{
		Name:     "addNewProduct",
		Kind:     state.Mutate,
		Fallback: "Failed to add product.",
		Call: func(ctx context.Context) (*models.Product, error) {
			return a.api.AdminAddProduct(ctx, in)
		},
	})
}

func (a *AdminProducts) FetchAll(ctx context.Context) ([]models.Product, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminProductsState, []models.Product]{
		Name:      "fetchAllProducts",
		Kind:      state.Fetch,
		Fallback:  "Failed to fetch products.",
		Call:      a.api.AdminProducts,
		Fulfilled: func(st *state.State[AdminProductsState], list []models.Product) { st.Data.List = list },
		Clear:     func(st *state.State[AdminProductsState]) { st.Data.List = nil },
	})
}

func (a *AdminProducts) Edit(ctx context.Context, id string, in models.ProductInput) (*models.Product, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminProductsState, *models.Product]{
		Name:     "editProduct",
		Kind:     state.Mutate,
		Fallback: "Failed to edit product.",
		Call: func(ctx context.Context) (*models.Product, error) {
			return a.api.AdminEditProduct(ctx, id, in)
		},
	})
}

func (a *AdminProducts) Delete(ctx context.Context, id string) error {
	_, err := state.Run(ctx, a.Slice, state.Op[AdminProductsState, none]{
		Name:     "deleteProduct",
		Kind:     state.Mutate,
		Fallback: "Failed to delete product.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, a.api.AdminDeleteProduct(ctx, id)
		},
	})
	return err
}

// UploadImage resizes and uploads a product image, keeping the hosted URL
// for the product form.
func (a *AdminProducts) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminProductsState, string]{
		Name:     "uploadProductImage",
		Kind:     state.Mutate,
		Fallback: "Failed to upload image.",
		Call: func(ctx context.Context) (string, error) {
			url, err := a.api.UploadProductImage(ctx, filename, r)
			switch {
			case errors.Is(err, gateway.ErrUnsupportedImage):
				return "", &state.Failure{Kind: state.KindValidation, Message: "Only PNG, JPG and JPEG images are allowed.", Err: err}
			case errors.Is(err, gateway.ErrBadImage):
				return "", &state.Failure{Kind: state.KindValidation, Message: "The image could not be read. Please upload a valid PNG or JPEG.", Err: err}
			}
			return url, err
		},
		Pending:   func(st *state.State[AdminProductsState]) { st.Data.ImageURL = "" },
		Fulfilled: func(st *state.State[AdminProductsState], url string) { st.Data.ImageURL = url },
	})
}

type AdminOrdersState struct {
	List    []models.Order `json:"orderList"`
	Details *models.Order  `json:"orderDetails"`
}

type AdminOrders struct {
	*state.Slice[AdminOrdersState]
	api AdminOrderAPI
}

func NewAdminOrders(api AdminOrderAPI, opts ...state.Option) *AdminOrders {
	return &AdminOrders{Slice: state.New("adminOrder", AdminOrdersState{}, opts...), api: api}
}

func (a *AdminOrders) FetchAll(ctx context.Context) ([]models.Order, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminOrdersState, []models.Order]{
		Name:      "getAllOrdersForAdmin",
		Kind:      state.Fetch,
		Fallback:  "Failed to fetch orders.",
		Call:      a.api.AdminOrders,
		Fulfilled: func(st *state.State[AdminOrdersState], list []models.Order) { st.Data.List = list },
		Clear:     func(st *state.State[AdminOrdersState]) { st.Data.List = nil },
	})
}

func (a *AdminOrders) FetchDetails(ctx context.Context, id string) (*models.Order, error) {
	return state.Run(ctx, a.Slice, state.Op[AdminOrdersState, *models.Order]{
		Name:     "getOrderDetailsForAdmin",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch order details.",
		Call: func(ctx context.Context) (*models.Order, error) {
			return a.api.AdminOrderDetails(ctx, id)
		},
		Fulfilled: func(st *state.State[AdminOrdersState], order *models.Order) { st.Data.Details = order },
		Clear:     func(st *state.State[AdminOrdersState]) { st.Data.Details = nil },
	})
}

var orderStatuses = map[string]bool{
	models.OrderPending:    true,
	models.OrderConfirmed:  true,
	models.OrderInProcess:  true,
	models.OrderInShipping: true,
	models.OrderDelivered:  true,
	models.OrderRejected:   true,
}

// UpdateStatus changes an order's status. Callers refetch the list or the
// details afterwards.
func (a *AdminOrders) UpdateStatus(ctx context.Context, id, orderStatus string) error {
	if !orderStatuses[orderStatus] {
		f := state.Validation("Unknown order status.")
		a.Update(func(st *state.State[AdminOrdersState]) { st.Error = f })
		return f
	}
	_, err := state.Run(ctx, a.Slice, state.Op[AdminOrdersState, none]{
		Name:     "updateOrderStatus",
		Kind:     state.Mutate,
		Fallback: "Failed to update order status.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, a.api.UpdateOrderStatus(ctx, id, orderStatus)
		},
	})
	return err
}

func (a *AdminOrders) ResetDetails() {
	a.Update(func(st *state.State[AdminOrdersState]) {
		st.Data.Details = nil
		st.Error = nil
	})
}

type FeaturesState struct {
	List []models.FeatureImage `json:"featureImageList"`
}

type Features struct {
	*state.Slice[FeaturesState]
	api FeatureAPI
}

func NewFeatures(api FeatureAPI, opts ...state.Option) *Features {
	return &Features{Slice: state.New("commonFeature", FeaturesState{}, opts...), api: api}
}

func (f *Features) Fetch(ctx context.Context) ([]models.FeatureImage, error) {
	return state.Run(ctx, f.Slice, state.Op[FeaturesState, []models.FeatureImage]{
		Name:      "getFeatureImages",
		Kind:      state.Fetch,
		Fallback:  "Failed to fetch feature images.",
		Call:      f.api.FeatureImages,
		Fulfilled: func(st *state.State[FeaturesState], list []models.FeatureImage) { st.Data.List = list },
	})
}

func (f *Features) Add(ctx context.Context, image string) (*models.FeatureImage, error) {
	return state.Run(ctx, f.Slice, state.Op[FeaturesState, *models.FeatureImage]{
		Name:     "addFeatureImage",
		Kind:     state.Mutate,
		Fallback: "Failed to add feature image.",
		Call: func(ctx context.Context) (*models.FeatureImage, error) {
			return f.api.AddFeatureImage(ctx, image)
		},
	})
}

func (f *Features) Delete(ctx context.Context, id string) error {
	_, err := state.Run(ctx, f.Slice, state.Op[FeaturesState, none]{
		Name:     "deleteFeatureImage",
		Kind:     state.Mutate,
		Fallback: "Failed to delete feature image.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, f.api.DeleteFeatureImage(ctx, id)
		},
	})
	return err
}
