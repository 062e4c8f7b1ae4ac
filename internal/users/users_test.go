package users

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
)

func newDirectory() (*Directory, store.Store) {
	st := store.NewInMemoryStore()
	return NewDirectory(st), st
}

func register(t *testing.T, d *Directory, username, email, phone, pin string) *models.User {
	t.Helper()
	user, err := d.Register(context.Background(), models.RegistrationData{
		FirstName: "Ada",
		LastName:  "Obi",
		Username:  username,
		Email:     email,
		Phone:     phone,
		Password:  "s3cret-pass",
	}, pin)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return user
}

func TestSanitizeUsername(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Chi Oma", "chioma"},
		{"  Ada.Obi-99 ", "ada.obi-99"},
		{"weird!!name", "weirdname"},
		{"under_score", "under_score"},
		{"", ""},
	}
	for _, c := range cases {
		if got := SanitizeUsername(c.in); got != c.want {
			t.Errorf("SanitizeUsername(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"ada@example.com", "a.b+tag@sub.example.org"}
	invalid := []string{"", "ada", "ada@", "@example.com", "Ada Obi <ada@example.com>"}
	for _, e := range valid {
		if !ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = true, want false", e)
		}
	}
}

func TestValidPIN(t *testing.T) {
	valid := []string{"1234", "00000", "987654"}
	invalid := []string{"", "123", "1234567", "12a4", "12.4"}
	for _, p := range valid {
		if !ValidPIN(p) {
			t.Errorf("ValidPIN(%q) = false, want true", p)
		}
	}
	for _, p := range invalid {
		if ValidPIN(p) {
			t.Errorf("ValidPIN(%q) = true, want false", p)
		}
	}
}

func TestRegisterHashesCredentials(t *testing.T) {
	d, _ := newDirectory()
	user := register(t, d, "ada", "ada@example.com", "08031112222", "1234")

	if user.HashedPassword == "s3cret-pass" || user.HashedPassword == "" {
		t.Error("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte("s3cret-pass")); err != nil {
		t.Errorf("password hash does not verify: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPIN), []byte("1234")); err != nil {
		t.Errorf("PIN hash does not verify: %v", err)
	}
	if user.Wallet.PlainPIN != "1234" {
		t.Error("wallet record must retain the plain PIN for the provider account format")
	}
	if user.DisplayName != "Ada Obi" {
		t.Errorf("unexpected display name %q", user.DisplayName)
	}
	if user.Wallet.Balance != 0 {
		t.Errorf("new wallets start at zero, got %v", user.Wallet.Balance)
	}
}

func TestRegisterRejectsIncompleteData(t *testing.T) {
	d, _ := newDirectory()
	_, err := d.Register(context.Background(), models.RegistrationData{Username: "ada"}, "1234")
	if err == nil {
		t.Fatal("expected error for incomplete registration data")
	}
}

func TestFindByIdentifierOrder(t *testing.T) {
	d, _ := newDirectory()
	register(t, d, "ada", "ada@example.com", "08031112222", "1234")
	ctx := context.Background()

	for _, id := range []string{"ada", "ada@example.com", "08031112222"} {
		u, err := d.FindByIdentifier(ctx, id)
		if err != nil {
			t.Fatalf("FindByIdentifier(%q) failed: %v", id, err)
		}
		if u == nil || u.Username != "ada" {
			t.Errorf("FindByIdentifier(%q) = %+v", id, u)
		}
	}

	if u, _ := d.FindByIdentifier(ctx, "nobody"); u != nil {
		t.Errorf("unknown identifier matched %+v", u)
	}
	if u, _ := d.FindByIdentifier(ctx, "  "); u != nil {
		t.Error("blank identifier must not match")
	}
}

func TestFindByIdentifierWalletFallback(t *testing.T) {
	d, st := newDirectory()
	// A legacy account whose phone lives only inside the wallet blob.
	legacy := models.User{
		ID:       "legacy-1",
		Username: "obi",
		Email:    "obi@example.com",
		Wallet:   models.WalletProfile{ExternalID: "vr-77", PlainPIN: "4321"},
	}
	legacy.Wallet.Main.Number = "08099990000"
	if err := st.CreateUser(legacy); err != nil {
		t.Fatal(err)
	}

	u, err := d.FindByIdentifier(context.Background(), "08099990000")
	if err != nil {
		t.Fatalf("FindByIdentifier failed: %v", err)
	}
	if u == nil || u.ID != "legacy-1" {
		t.Fatalf("wallet blob fallback returned %+v", u)
	}

	taken, err := d.PhoneTaken(context.Background(), "08099990000")
	if err != nil || !taken {
		t.Errorf("PhoneTaken via wallet blob = %v, %v", taken, err)
	}
}

func TestTakenChecks(t *testing.T) {
	d, _ := newDirectory()
	register(t, d, "ada", "ada@example.com", "08031112222", "1234")
	ctx := context.Background()

	if taken, _ := d.UsernameTaken(ctx, "ada"); !taken {
		t.Error("username should be taken")
	}
	if taken, _ := d.UsernameTaken(ctx, "obi"); taken {
		t.Error("free username reported taken")
	}
	if taken, _ := d.EmailTaken(ctx, "ada@example.com"); !taken {
		t.Error("email should be taken")
	}
	if taken, _ := d.PhoneTaken(ctx, "08031112222"); !taken {
		t.Error("phone should be taken")
	}
}

func TestCheckPIN(t *testing.T) {
	d, _ := newDirectory()
	user := register(t, d, "ada", "ada@example.com", "08031112222", "1234")
	ctx := context.Background()

	if !d.CheckPIN(ctx, user, "1234") {
		t.Error("correct PIN rejected")
	}
	if d.CheckPIN(ctx, user, "9999") {
		t.Error("wrong PIN accepted")
	}
	if d.CheckPIN(ctx, user, "") {
		t.Error("empty PIN accepted")
	}
	if d.CheckPIN(ctx, nil, "1234") {
		t.Error("nil user accepted")
	}
}

func TestCheckPINHashOnlyAccount(t *testing.T) {
	d, st := newDirectory()
	hashed, err := bcrypt.GenerateFromPassword([]byte("5678"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatal(err)
	}
	user := models.User{ID: "u-1", Username: "obi", Email: "obi@example.com", HashedPIN: string(hashed)}
	if err := st.CreateUser(user); err != nil {
		t.Fatal(err)
	}

	if !d.CheckPIN(context.Background(), &user, "5678") {
		t.Error("hash-only PIN rejected")
	}
	if d.CheckPIN(context.Background(), &user, "5679") {
		t.Error("wrong PIN accepted against hash")
	}
}

func TestCheckPINBackfillsMissingHash(t *testing.T) {
	d, st := newDirectory()
	user := models.User{
		ID:       "u-1",
		Username: "obi",
		Email:    "obi@example.com",
		Wallet:   models.WalletProfile{PlainPIN: "2468"},
	}
	if err := st.CreateUser(user); err != nil {
		t.Fatal(err)
	}

	if !d.CheckPIN(context.Background(), &user, "2468") {
		t.Fatal("plain PIN rejected")
	}
	stored, _ := st.GetUser("u-1")
	if stored.HashedPIN == "" {
		t.Fatal("successful plain match must backfill the hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.HashedPIN), []byte("2468")); err != nil {
		t.Errorf("backfilled hash does not verify: %v", err)
	}
}

func TestResolveCredentials(t *testing.T) {
	d, st := newDirectory()
	user := register(t, d, "ada", "ada@example.com", "08031112222", "1234")
	ctx := context.Background()

	_, err := d.ResolveCredentials(ctx, user.ID)
	if !errors.Is(err, models.ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey before linking, got %v", err)
	}

	user.Wallet.ExternalID = "vr-key-9"
	if err := st.UpdateUser(*user); err != nil {
		t.Fatal(err)
	}
	cred, err := d.ResolveCredentials(ctx, user.ID)
	if err != nil {
		t.Fatalf("ResolveCredentials failed: %v", err)
	}
	if cred.ExternalID != user.ID || cred.APIKey != "vr-key-9" {
		t.Errorf("unexpected credentials %+v", cred)
	}

	_, err = d.ResolveCredentials(ctx, "ghost")
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSaveWalletBalance(t *testing.T) {
	d, st := newDirectory()
	user := register(t, d, "ada", "ada@example.com", "08031112222", "1234")

	if err := d.SaveWalletBalance(context.Background(), user.ID, 750.25); err != nil {
		t.Fatalf("SaveWalletBalance failed: %v", err)
	}
	stored, _ := st.GetUser(user.ID)
	if stored.Wallet.Balance != 750.25 {
		t.Errorf("balance not persisted, got %v", stored.Wallet.Balance)
	}

	err := d.SaveWalletBalance(context.Background(), "ghost", 1)
	if !errors.Is(err, models.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestSetSavedPhone(t *testing.T) {
	d, st := newDirectory()
	user := register(t, d, "ada", "ada@example.com", "08031112222", "1234")

	if err := d.SetSavedPhone(context.Background(), user.ID, "2348100000001"); err != nil {
		t.Fatalf("SetSavedPhone failed: %v", err)
	}
	stored, _ := st.GetUser(user.ID)
	if stored.Phone != "2348100000001" {
		t.Errorf("phone not updated, got %q", stored.Phone)
	}

	// Idempotent when the phone is unchanged.
	if err := d.SetSavedPhone(context.Background(), user.ID, "2348100000001"); err != nil {
		t.Fatalf("unchanged phone must not error: %v", err)
	}
}
