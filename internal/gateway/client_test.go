package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alextreichler/shopfront/internal/models"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestLoginCookieCarriesToCheckAuth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var cred models.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cred))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "jwt-" + cred.Email, Path: "/"})
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Logged in successfully",
			"user":    map[string]any{"id": "u1", "email": cred.Email, "userName": "asha", "role": "user"},
		})
	})
	mux.HandleFunc("GET /api/auth/check-auth", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no-cache", r.Header.Get("Pragma"))
		c, err := r.Cookie("token")
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorised user!"})
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"user":    map[string]any{"id": "u1", "email": c.Value[len("jwt-"):], "role": "user"},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL + "/")

	_, err := c.CheckAuth(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Unauthorised user!", apiErr.Message)

	u, err := c.Login(ctx, models.Credentials{Email: "asha@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)

	u, err = c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)

	other := New(srv.URL)
	_, err = other.CheckAuth(ctx)
	assert.Error(t, err, "clients do not share cookie jars")
}

func TestEnvelopeFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shop/search/{kw}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("kw") {
		case "soft":
			writeEnvelope(w, http.StatusOK, map[string]any{"success": false, "message": "Keyword is required"})
		case "html":
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("<html>bad gateway</html>"))
		case "missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("<html>not found</html>"))
		default:
			writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"_id": "p1", "title": "Scarf"}}})
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	products, err := c.Search(ctx, "scarf")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)

	_, err = c.Search(ctx, "soft")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Keyword is required", apiErr.Message)
	assert.False(t, IsUnavailable(err))

	_, err = c.Search(ctx, "missing")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Empty(t, apiErr.Message)
	assert.Contains(t, apiErr.Error(), "status 404")

	_, err = c.Search(ctx, "html")
	assert.True(t, IsUnavailable(err), "a proxy error page is a transport failure")
	assert.False(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "status 502")
}

func TestUnavailable(t *testing.T) {
	ctx := context.Background()

	_, err := New("").FeatureImages(ctx)
	assert.True(t, IsUnavailable(err))

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err = New(url).FeatureImages(ctx)
	assert.True(t, errors.Is(err, ErrUnavailable))

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	_, err = New(slow.URL, WithTimeout(50*time.Millisecond)).FeatureImages(ctx)
	assert.True(t, IsUnavailable(err))
}

func TestFilterQuery(t *testing.T) {
	q := FilterQuery(models.ProductFilter{
		Category: []string{"men", "women"},
		SortBy:   "price-lowtohigh",
	})
	assert.Equal(t, "category=men%2Cwomen&sortBy=price-lowtohigh", q.Encode())
	assert.Empty(t, FilterQuery(models.ProductFilter{}).Encode())
}

func TestFilteredProductsPath(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}))
	defer srv.Close()

	_, err := New(srv.URL).FilteredProducts(context.Background(), models.ProductFilter{Brand: []string{"nike"}})
	require.NoError(t, err)
	assert.Equal(t, "brand=nike", gotQuery)
}
