// Package session holds values scoped to one browsing session that must
// survive a page reload, such as the order id bridging checkout to the
// payment provider's return redirect.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// CurrentOrderKey holds the id of the order awaiting payment capture.
const CurrentOrderKey = "currentOrderId"

var ErrNotFound = errors.New("session: key not found")

// Store is a key-value store partitioned by session id. Get returns
// ErrNotFound for absent or expired keys.
type Store interface {
	Put(ctx context.Context, sessionID, key, value string) error
	Get(ctx context.Context, sessionID, key string) (string, error)
	Delete(ctx context.Context, sessionID, key string) error
}

// Token is the correlation token of one browsing session. It is written on
// order creation and erased when capture resolves or the checkout is reset.
type Token struct {
	store     Store
	sessionID string
}

func NewToken(store Store, sessionID string) *Token {
	return &Token{store: store, sessionID: sessionID}
}

func (t *Token) SessionID() string { return t.sessionID }

func (t *Token) Set(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return errors.New("session: empty order id")
	}
	return t.store.Put(ctx, t.sessionID, CurrentOrderKey, orderID)
}

// Get returns the stored order id. An empty stored value is reported as
// ErrNotFound.
func (t *Token) Get(ctx context.Context) (string, error) {
	v, err := t.store.Get(ctx, t.sessionID, CurrentOrderKey)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (t *Token) Erase(ctx context.Context) error {
	return t.store.Delete(ctx, t.sessionID, CurrentOrderKey)
}

// Memory is an in-process Store. Values live as long as the process.
type Memory struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]map[string]string)}
}

func (m *Memory) Put(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[sessionID] == nil {
		m.values[sessionID] = make(map[string]string)
	}
	m.values[sessionID][key] = value
	return nil
}

func (m *Memory) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[sessionID][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[sessionID], key)
	if len(m.values[sessionID]) == 0 {
		delete(m.values, sessionID)
	}
	return nil
}
