// Package testutil provides shared helpers for vtubot tests.
package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/engine"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
	"github.com/sregle/vtubot/internal/users"
	"github.com/sregle/vtubot/internal/vprest"
)

// FakeProvider is an httptest-backed stand-in for the external wallet API.
// It answers every request with the configured payload and records the last
// query string for assertions.
type FakeProvider struct {
	Server *httptest.Server

	mu        sync.Mutex
	payload   interface{}
	lastQuery url.Values
}

// NewFakeProvider starts a fake provider answering with payload.
func NewFakeProvider(payload interface{}) *FakeProvider {
	f := &FakeProvider{payload: payload}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastQuery = r.URL.Query()
		p := f.payload
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}))
	return f
}

// SetPayload swaps the response payload.
func (f *FakeProvider) SetPayload(payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payload = payload
}

// LastQuery returns the query values of the most recent request.
func (f *FakeProvider) LastQuery() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery
}

// Close shuts the fake provider down.
func (f *FakeProvider) Close() {
	f.Server.Close()
}

// Fixture bundles the collaborators of a test engine.
type Fixture struct {
	Engine    *engine.Engine
	Store     store.Store
	Directory *users.Directory
	Catalog   *catalog.Provider
	Provider  *FakeProvider
}

// NewFixture builds a dialogue engine over an in-memory store and a fake
// provider, wiring the same collaborator graph production uses.
func NewFixture(t *testing.T, opts ...engine.Option) *Fixture {
	t.Helper()

	provider := NewFakeProvider(map[string]interface{}{"Status": "100"})
	t.Cleanup(provider.Close)

	st := store.NewInMemoryStore()
	t.Cleanup(func() { st.Close() })

	client, err := vprest.NewClient(vprest.WithBaseURL(provider.Server.URL))
	if err != nil {
		t.Fatalf("failed to create provider client: %v", err)
	}
	dir := users.NewDirectory(st)
	cat := catalog.NewProvider(st, client)
	exec := vprest.NewExecutor(client, dir)

	return &Fixture{
		Engine:    engine.New(st, dir, cat, exec, opts...),
		Store:     st,
		Directory: dir,
		Catalog:   cat,
		Provider:  provider,
	}
}

// RegisterUser creates an account with a linked API key and returns it.
func (f *Fixture) RegisterUser(t *testing.T, phone, pin string) *models.User {
	t.Helper()
	reg := models.RegistrationData{
		FirstName: "Ada",
		LastName:  "Obi",
		Username:  "ada" + phone,
		Email:     "ada" + phone + "@example.com",
		Phone:     phone,
		Password:  "s3cret-pass",
	}
	user, err := f.Directory.Register(context.Background(), reg, pin)
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}
	user.Wallet.ExternalID = "key-" + phone
	if err := f.Store.UpdateUser(*user); err != nil {
		t.Fatalf("failed to link API key: %v", err)
	}
	return user
}

// Say sends one message through the engine and returns the reply.
func (f *Fixture) Say(t *testing.T, from, text string) string {
	t.Helper()
	reply, err := f.Engine.HandleMessage(context.Background(), from, text)
	if err != nil {
		t.Fatalf("HandleMessage(%q, %q) failed: %v", from, text, err)
	}
	return reply
}

// Login walks a fixture user through the inline login shortcut.
func (f *Fixture) Login(t *testing.T, from, phone, pin string) {
	t.Helper()
	f.Say(t, from, "hello") // provoke the welcome session
	reply := f.Say(t, from, "login "+phone+" "+pin)
	if !strings.Contains(reply, "Welcome back") {
		t.Fatalf("login failed, got reply: %q", reply)
	}
}
