package engine_test

import (
	"strings"
	"testing"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/testutil"
)

func TestRegistrationFlow(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Say(t, sender, "hi")

	reply := f.Say(t, sender, "2")
	if !strings.Contains(reply, "Step 1/7") {
		t.Fatalf("expected registration step 1, got %q", reply)
	}
	f.Say(t, sender, "Chioma")
	f.Say(t, sender, "Eze")
	f.Say(t, sender, "Chi Oma!") // sanitized to chioma
	f.Say(t, sender, "chioma@example.com")
	f.Say(t, sender, "08055556666")
	f.Say(t, sender, "longenough")
	reply = f.Say(t, sender, "4321")

	if !strings.Contains(reply, "Registration complete! Welcome Chioma Eze.") {
		t.Errorf("expected completion greeting, got %q", reply)
	}
	if !strings.Contains(reply, "₦0.00") {
		t.Errorf("new accounts start with a zero balance, got %q", reply)
	}
	if !strings.Contains(reply, "Main Menu") {
		t.Errorf("expected main menu after registration, got %q", reply)
	}

	sess, _ := f.Store.GetSession(sender)
	if sess.Step != models.StepLoggedIn || sess.UserID == "" {
		t.Fatalf("registration should leave a logged-in session, got %+v", sess)
	}

	user, err := f.Store.GetUser(sess.UserID)
	if err != nil || user == nil {
		t.Fatalf("expected created user, err=%v", err)
	}
	if user.Username != "chioma" {
		t.Errorf("expected sanitized username chioma, got %q", user.Username)
	}
	if user.Wallet.Balance != 0 {
		t.Errorf("expected zero wallet balance, got %v", user.Wallet.Balance)
	}
	if user.HashedPIN == "" || user.HashedPassword == "" {
		t.Error("expected hashed credentials on the created account")
	}
}

func TestRegistrationValidation(t *testing.T) {
	f := testutil.NewFixture(t)
	f.Say(t, sender, "hi")
	f.Say(t, sender, "2")

	if reply := f.Say(t, sender, "   "); !strings.Contains(reply, "First name cannot be empty") {
		t.Errorf("expected first-name reprompt, got %q", reply)
	}
	f.Say(t, sender, "Chioma")
	f.Say(t, sender, "Eze")
	f.Say(t, sender, "chioma")
	if reply := f.Say(t, sender, "not-an-email"); !strings.Contains(reply, "Invalid email") {
		t.Errorf("expected email reprompt, got %q", reply)
	}
	f.Say(t, sender, "chioma@example.com")
	if reply := f.Say(t, sender, "---"); !strings.Contains(reply, "Invalid phone") {
		t.Errorf("expected phone reprompt, got %q", reply)
	}
	f.Say(t, sender, "08055556666")
	if reply := f.Say(t, sender, "short"); !strings.Contains(reply, "Password too short") {
		t.Errorf("expected password reprompt, got %q", reply)
	}
	f.Say(t, sender, "longenough")
	if reply := f.Say(t, sender, "12"); !strings.Contains(reply, "PIN must be 4-6 digits") {
		t.Errorf("expected PIN reprompt, got %q", reply)
	}
}

func TestRegistrationDuplicatePhone(t *testing.T) {
	f := testutil.NewFixture(t)
	f.RegisterUser(t, "08055556666", "1234")

	f.Say(t, sender, "hi")
	f.Say(t, sender, "2")
	f.Say(t, sender, "Chioma")
	f.Say(t, sender, "Eze")
	f.Say(t, sender, "chioma")
	f.Say(t, sender, "chioma@example.com")
	reply := f.Say(t, sender, "08055556666")
	if !strings.Contains(reply, "Phone already registered") {
		t.Errorf("expected duplicate phone rejection, got %q", reply)
	}
	sess, _ := f.Store.GetSession(sender)
	if sess.Step != models.StepWelcome {
		t.Errorf("duplicate phone should return to welcome, got %q", sess.Step)
	}
}

func TestRegistrationDuplicateUsername(t *testing.T) {
	f := testutil.NewFixture(t)
	f.RegisterUser(t, "08077778888", "1234") // username ada08077778888

	f.Say(t, sender, "hi")
	f.Say(t, sender, "2")
	f.Say(t, sender, "Chioma")
	f.Say(t, sender, "Eze")
	reply := f.Say(t, sender, "ada08077778888")
	if !strings.Contains(reply, "Username taken") {
		t.Errorf("expected duplicate username rejection, got %q", reply)
	}
}
