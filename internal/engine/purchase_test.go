package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/sregle/vtubot/internal/testutil"
)

func loginFixture(t *testing.T) *testutil.Fixture {
	t.Helper()
	f := testutil.NewFixture(t)
	f.RegisterUser(t, userPhone, userPIN)
	f.Login(t, sender, userPhone, userPIN)
	return f
}

func TestAirtimePurchaseSuccess(t *testing.T) {
	f := loginFixture(t)
	f.Provider.SetPayload(map[string]interface{}{
		"Status":           "100",
		"Previous_Balance": 1000,
		"Current_Balance":  800,
	})

	f.Say(t, sender, "1")
	reply := f.Say(t, sender, "1") // mtn
	if !strings.Contains(reply, "recipient phone number") {
		t.Fatalf("expected recipient prompt, got %q", reply)
	}
	f.Say(t, sender, "08030000000")
	reply = f.Say(t, sender, "200")
	if !strings.Contains(reply, "airtime type") {
		t.Fatalf("expected type prompt, got %q", reply)
	}
	reply = f.Say(t, sender, "vtu")
	if !strings.Contains(reply, "Confirm purchase") || !strings.Contains(reply, "₦200.00") {
		t.Fatalf("expected confirmation preview, got %q", reply)
	}

	reply = f.Say(t, sender, userPIN)
	if !strings.Contains(reply, "Airtime Purchase Successful!") {
		t.Fatalf("expected success receipt, got %q", reply)
	}
	if !strings.Contains(reply, "Previous Balance: ₦1,000.00") || !strings.Contains(reply, "New Balance: ₦800.00") {
		t.Errorf("expected balance lines, got %q", reply)
	}
	if !strings.Contains(reply, "Main Menu") {
		t.Errorf("receipt should end at the main menu, got %q", reply)
	}

	q := f.Provider.LastQuery()
	if q.Get("q") != "airtime" || q.Get("network") != "mtn" || q.Get("phone") != "08030000000" ||
		q.Get("amount") != "200" || q.Get("type") != "vtu" {
		t.Errorf("unexpected provider query: %v", q)
	}
	if q.Get("apikey") != "key-"+userPhone {
		t.Errorf("expected the user's linked API key, got %q", q.Get("apikey"))
	}

	// The provider's Current_Balance becomes the cached wallet balance.
	user, _ := f.Directory.FindByIdentifier(context.Background(), userPhone)
	if user.Wallet.Balance != 800 {
		t.Errorf("expected cached balance 800, got %v", user.Wallet.Balance)
	}
}

func TestAirtimePurchaseFailureShowsProviderMessage(t *testing.T) {
	f := loginFixture(t)
	f.Provider.SetPayload(map[string]interface{}{
		"Status":  "55",
		"Message": "Insufficient balance",
	})

	f.Say(t, sender, "1")
	f.Say(t, sender, "mtn")
	f.Say(t, sender, "08030000000")
	f.Say(t, sender, "200")
	f.Say(t, sender, "")
	reply := f.Say(t, sender, userPIN)
	if reply != "❌ Airtime failed: Insufficient balance" {
		t.Errorf("expected verbatim provider message, got %q", reply)
	}
}

func TestAirtimeWrongPINCancels(t *testing.T) {
	f := loginFixture(t)
	f.Say(t, sender, "1")
	f.Say(t, sender, "glo")
	f.Say(t, sender, "08030000000")
	f.Say(t, sender, "500")
	f.Say(t, sender, "share")
	reply := f.Say(t, sender, "9999")
	if !strings.Contains(reply, "Invalid PIN. Transaction cancelled.") {
		t.Errorf("expected cancellation, got %q", reply)
	}
	// Back at the logged-in menu.
	reply = f.Say(t, sender, "anything")
	if !strings.Contains(reply, "Main Menu") {
		t.Errorf("expected main menu after cancellation, got %q", reply)
	}
}

func TestAirtimeMeShortcutUsesAccountPhone(t *testing.T) {
	f := loginFixture(t)
	f.Say(t, sender, "1")
	f.Say(t, sender, "mtn")
	f.Say(t, sender, "me")
	f.Say(t, sender, "100")
	f.Say(t, sender, "vtu")
	f.Say(t, sender, userPIN)

	q := f.Provider.LastQuery()
	if got := q.Get("phone"); got != sender {
		t.Errorf("expected login phone %q as recipient, got %q", sender, got)
	}
}

func TestAirtimeDefaultType(t *testing.T) {
	f := loginFixture(t)
	f.Say(t, sender, "1")
	f.Say(t, sender, "airtel")
	f.Say(t, sender, "08030000000")
	f.Say(t, sender, "150")
	f.Say(t, sender, "something-else")
	f.Say(t, sender, userPIN)

	if got := f.Provider.LastQuery().Get("type"); got != "vtu" {
		t.Errorf("unrecognized airtime type should default to vtu, got %q", got)
	}
}

func TestBillPurchase(t *testing.T) {
	f := loginFixture(t)
	f.Provider.SetPayload(map[string]interface{}{"Successful": "true", "Current_Balance": "1200.50"})

	f.Say(t, sender, "4")
	reply := f.Say(t, sender, "5") // portharcourt
	if !strings.Contains(reply, "meter number") {
		t.Fatalf("expected meter prompt, got %q", reply)
	}
	f.Say(t, sender, "45030012345")
	reply = f.Say(t, sender, "1000")
	if !strings.Contains(reply, "Confirm bill payment of ₦1,000.00 to meter 45030012345") {
		t.Fatalf("expected confirmation, got %q", reply)
	}
	reply = f.Say(t, sender, userPIN)
	if !strings.Contains(reply, "Bill Payment Successful!") {
		t.Fatalf("expected success, got %q", reply)
	}
	if !strings.Contains(reply, "New Balance: ₦1,200.50") {
		t.Errorf("expected new balance from string amount, got %q", reply)
	}

	q := f.Provider.LastQuery()
	if q.Get("q") != "bill" || q.Get("type") != "prepaid" ||
		q.Get("meter_number") != "45030012345" || q.Get("plan") != "5" || q.Get("amount") != "1000" {
		t.Errorf("unexpected provider query: %v", q)
	}
}

func TestBillProviderByName(t *testing.T) {
	f := loginFixture(t)
	f.Say(t, sender, "4")
	f.Say(t, sender, "ikeja")
	f.Say(t, sender, "45030012345")
	f.Say(t, sender, "500")
	f.Say(t, sender, userPIN)

	if got := f.Provider.LastQuery().Get("plan"); got != "1" {
		t.Errorf("provider name should map to its menu position, got %q", got)
	}
}

func TestPurchaseWithoutLoginDemandsLogin(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Say(t, sender, "hi")
	f.Say(t, sender, "3") // services without login
	f.Say(t, sender, "1") // airtime
	f.Say(t, sender, "mtn")
	f.Say(t, sender, "08030000000")
	f.Say(t, sender, "200")
	f.Say(t, sender, "vtu")
	reply := f.Say(t, sender, "1234")
	if !strings.Contains(reply, "must be logged in") {
		t.Errorf("expected login demand at PIN confirmation, got %q", reply)
	}

	// The corrupted session is dropped, not left parked at the PIN step.
	sess, err := f.Store.GetSession(sender)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess != nil {
		t.Errorf("unauthenticated purchase session must be cleared, got step %q", sess.Step)
	}

	// The next message starts a fresh conversation instead of looping.
	reply = f.Say(t, sender, "1")
	if !strings.Contains(reply, "Welcome to") {
		t.Errorf("expected a fresh welcome after the cleared session, got %q", reply)
	}
}

func TestPurchaseWithoutAPIKey(t *testing.T) {
	f := testutil.NewFixture(t)
	user := f.RegisterUser(t, userPhone, userPIN)
	user.Wallet.ExternalID = ""
	if err := f.Store.UpdateUser(*user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}
	f.Login(t, sender, userPhone, userPIN)

	f.Say(t, sender, "1")
	f.Say(t, sender, "mtn")
	f.Say(t, sender, "08030000000")
	f.Say(t, sender, "200")
	f.Say(t, sender, "vtu")
	reply := f.Say(t, sender, userPIN)
	if !strings.Contains(reply, "API key") {
		t.Errorf("expected missing API key notice, got %q", reply)
	}
}
