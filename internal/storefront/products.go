package storefront

import (
	"context"
	"strings"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type ProductsState struct {
	List    []models.Product `json:"productList"`
	Details *models.Product  `json:"productDetails"`
}

type Products struct {
	*state.Slice[ProductsState]
	api CatalogAPI
}

func NewProducts(api CatalogAPI, opts ...state.Option) *Products {
	return &Products{Slice: state.New("shopProducts", ProductsState{}, opts...), api: api}
}

func (p *Products) FetchFiltered(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	return state.Run(ctx, p.Slice, state.Op[ProductsState, []models.Product]{
		Name:     "fetchAllFilteredProducts",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch products.",
		Call: func(ctx context.Context) ([]models.Product, error) {
			return p.api.FilteredProducts(ctx, f)
		},
		Fulfilled: func(st *state.State[ProductsState], list []models.Product) { st.Data.List = list },
		Clear:     func(st *state.State[ProductsState]) { st.Data.List = nil },
	})
}

func (p *Products) FetchDetails(ctx context.Context, id string) (*models.Product, error) {
	return state.Run(ctx, p.Slice, state.Op[ProductsState, *models.Product]{
		Name:     "fetchProductDetails",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch product details.",
		Call: func(ctx context.Context) (*models.Product, error) {
			return p.api.ProductDetails(ctx, id)
		},
		Fulfilled: func(st *state.State[ProductsState], prod *models.Product) { st.Data.Details = prod },
		Clear:     func(st *state.State[ProductsState]) { st.Data.Details = nil },
	})
}

func (p *Products) ResetDetails() {
	p.Update(func(st *state.State[ProductsState]) {
		st.Data.Details = nil
		st.Error = nil
	})
}

type SearchState struct {
	Results []models.Product `json:"searchResults"`
}

type Search struct {
	*state.Slice[SearchState]
	api SearchAPI
}

func NewSearch(api SearchAPI, opts ...state.Option) *Search {
	return &Search{Slice: state.New("search", SearchState{}, opts...), api: api}
}

// Search looks up keyword. A blank keyword resets the results without a
// backend call.
func (s *Search) Search(ctx context.Context, keyword string) ([]models.Product, error) {
	if strings.TrimSpace(keyword) == "" {
		s.Reset()
		return nil, nil
	}
	return state.Run(ctx, s.Slice, state.Op[SearchState, []models.Product]{
		Name:     "getSearchResults",
		Kind:     state.Fetch,
		Fallback: "Search failed.",
		Call: func(ctx context.Context) ([]models.Product, error) {
			return s.api.Search(ctx, keyword)
		},
		Fulfilled: func(st *state.State[SearchState], res []models.Product) { st.Data.Results = res },
	})
}

func (s *Search) Reset() {
	s.Update(func(st *state.State[SearchState]) {
		st.Data.Results = nil
		st.Error = nil
	})
}

type ReviewsState struct {
	List []models.Review `json:"reviews"`
}

type Reviews struct {
	*state.Slice[ReviewsState]
	api ReviewAPI
}

func NewReviews(api ReviewAPI, opts ...state.Option) *Reviews {
	return &Reviews{Slice: state.New("review", ReviewsState{}, opts...), api: api}
}

// Add posts a review. The list is not touched; callers refetch it.
func (r *Reviews) Add(ctx context.Context, in models.ReviewInput) (*models.Review, error) {
	if in.ReviewValue < 1 || in.ReviewValue > 5 {
		err := state.Validation("Please select a rating between 1 and 5.")
		r.Update(func(st *state.State[ReviewsState]) { st.Error = err })
		return nil, err
	}
	return state.Run(ctx, r.Slice, state.Op[ReviewsState, *models.Review]{
		Name:     "addReview",
		Kind:     state.Mutate,
		Fallback: "Failed to add review.",
		Call: func(ctx context.Context) (*models.Review, error) {
			return r.api.AddReview(ctx, in)
		},
	})
}

func (r *Reviews) FetchByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	return state.Run(ctx, r.Slice, state.Op[ReviewsState, []models.Review]{
		Name:     "getReviews",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch reviews.",
		Call: func(ctx context.Context) ([]models.Review, error) {
			return r.api.Reviews(ctx, productID)
		},
		Fulfilled: func(st *state.State[ReviewsState], list []models.Review) { st.Data.List = list },
	})
}

func (r *Reviews) Reset() {
	r.Update(func(st *state.State[ReviewsState]) {
		st.Data.List = nil
		st.Error = nil
	})
}
