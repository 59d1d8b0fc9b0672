package storefront

import (
	"context"
	"strings"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type AddressState struct {
	List []models.Address `json:"addressList"`
}

// Addresses keeps the user's saved addresses. Add, Edit and Delete return
// the single record and leave the list as is; callers refetch it.
type Addresses struct {
	*state.Slice[AddressState]
	api AddressAPI
}

func NewAddresses(api AddressAPI, opts ...state.Option) *Addresses {
	return &Addresses{Slice: state.New("address", AddressState{}, opts...), api: api}
}

func validateAddress(in models.AddressInput) *state.Failure {
	switch {
	case strings.TrimSpace(in.Address) == "":
		return state.Validation("Address is required.")
	case strings.TrimSpace(in.City) == "":
		return state.Validation("City is required.")
	case strings.TrimSpace(in.Pincode) == "":
		return state.Validation("Pincode is required.")
	case strings.TrimSpace(in.Phone) == "":
		return state.Validation("Phone is required.")
	}
	return nil
}

func (a *Addresses) reject(f *state.Failure) error {
	a.Update(func(st *state.State[AddressState]) { st.Error = f })
	return f
}

func (a *Addresses) Add(ctx context.Context, in models.AddressInput) (*models.Address, error) {
	if f := validateAddress(in); f != nil {
		return nil, a.reject(f)
	}
	return state.Run(ctx, a.Slice, state.Op[AddressState, *models.Address]{
		Name:     "addNewAddress",
		Kind:     state.Mutate,
		Fallback: "Failed to add address.",
		Call: func(ctx context.Context) (*models.Address, error) {
			return a.api.AddAddress(ctx, in)
		},
	})
}

func (a *Addresses) FetchAll(ctx context.Context, userID string) ([]models.Address, error) {
	return state.Run(ctx, a.Slice, state.Op[AddressState, []models.Address]{
		Name:     "fetchAllAddresses",
		Kind:     state.Fetch,
		Fallback: "Failed to fetch addresses.",
		Call: func(ctx context.Context) ([]models.Address, error) {
			return a.api.Addresses(ctx, userID)
		},
		Fulfilled: func(st *state.State[AddressState], list []models.Address) { st.Data.List = list },
	})
}

func (a *Addresses) Edit(ctx context.Context, userID, addressID string, in models.AddressInput) (*models.Address, error) {
	if f := validateAddress(in); f != nil {
		return nil, a.reject(f)
	}
	return state.Run(ctx, a.Slice, state.Op[AddressState, *models.Address]{
		Name:     "editAddress",
		Kind:     state.Mutate,
		Fallback: "Failed to edit address.",
		Call: func(ctx context.Context) (*models.Address, error) {
			return a.api.UpdateAddress(ctx, userID, addressID, in)
		},
	})
}

func (a *Addresses) Delete(ctx context.Context, userID, addressID string) error {
	_, err := state.Run(ctx, a.Slice, state.Op[AddressState, none]{
		Name:     "deleteAddress",
		Kind:     state.Mutate,
		Fallback: "Failed to delete address.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, a.api.DeleteAddress(ctx, userID, addressID)
		},
	})
	return err
}

// Find returns the saved address with id, or nil.
func (a *Addresses) Find(id string) *models.Address {
	for _, addr := range a.State().Data.List {
		if addr.ID == id {
			return &addr
		}
	}
	return nil
}

func (a *Addresses) SetList(list []models.Address) {
	a.Update(func(st *state.State[AddressState]) { st.Data.List = list })
}
