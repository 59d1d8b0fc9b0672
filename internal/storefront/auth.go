package storefront

import (
	"context"

	"github.com/alextreichler/shopfront/internal/models"
	"github.com/alextreichler/shopfront/internal/state"
)

type AuthState struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *models.User `json:"user"`
}

type Auth struct {
	*state.Slice[AuthState]
	api AuthAPI
}

// NewAuth starts in the loading state: nothing is known about the session
// until the first CheckAuth resolves.
func NewAuth(api AuthAPI, opts ...state.Option) *Auth {
	s := state.New("auth", AuthState{}, opts...)
	s.Update(func(st *state.State[AuthState]) { st.IsLoading = true })
	return &Auth{Slice: s, api: api}
}

func clearUser(st *state.State[AuthState]) { st.Data = AuthState{} }

func setUser(st *state.State[AuthState], u *models.User) {
	st.Data = AuthState{IsAuthenticated: u != nil, User: u}
}

// Register creates the account. The user is not signed in afterwards.
func (a *Auth) Register(ctx context.Context, r models.Registration) error {
	_, err := state.Run(ctx, a.Slice, state.Op[AuthState, none]{
		Name:     "register",
		Kind:     state.Fetch,
		Fallback: "Registration failed.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, a.api.Register(ctx, r)
		},
		Fulfilled: func(st *state.State[AuthState], _ none) { clearUser(st) },
		Clear:     clearUser,
	})
	return err
}

func (a *Auth) Login(ctx context.Context, cred models.Credentials) (*models.User, error) {
	return state.Run(ctx, a.Slice, state.Op[AuthState, *models.User]{
		Name:     "login",
		Kind:     state.Fetch,
		Fallback: "Login failed. Please check your credentials.",
		Call: func(ctx context.Context) (*models.User, error) {
			return a.api.Login(ctx, cred)
		},
		Fulfilled: setUser,
		Clear:     clearUser,
	})
}

func (a *Auth) CheckAuth(ctx context.Context) (*models.User, error) {
	return state.Run(ctx, a.Slice, state.Op[AuthState, *models.User]{
		Name:      "checkAuth",
		Kind:      state.Fetch,
		Fallback:  "Authentication check failed.",
		Call:      a.api.CheckAuth,
		Fulfilled: setUser,
		Clear:     clearUser,
	})
}

// Logout clears the local user whether or not the backend call succeeds.
func (a *Auth) Logout(ctx context.Context) error {
	_, err := state.Run(ctx, a.Slice, state.Op[AuthState, none]{
		Name:     "logout",
		Kind:     state.Fetch,
		Fallback: "Logout failed, but user state cleared.",
		Call: func(ctx context.Context) (none, error) {
			return none{}, a.api.Logout(ctx)
		},
		Fulfilled: func(st *state.State[AuthState], _ none) { clearUser(st) },
		Clear:     clearUser,
	})
	return err
}

func (a *Auth) SetUser(u *models.User) {
	a.Update(func(st *state.State[AuthState]) {
		setUser(st, u)
		st.IsLoading = false
	})
}

// User returns the signed-in user, or nil.
func (a *Auth) User() *models.User {
	return a.State().Data.User
}
