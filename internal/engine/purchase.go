package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/vprest"
)

var networkDigits = map[string]string{
	"1": "mtn",
	"2": "airtel",
	"3": "glo",
	"4": "9mobile",
}

// parseNetwork maps a menu digit or free-form name to a canonical network.
// Any input containing a "9" collapses to 9mobile, covering variants like
// "9-mobile" and "etisalat 9".
func parseNetwork(input string) (string, bool) {
	input = strings.TrimSpace(input)
	network, ok := networkDigits[input]
	if !ok {
		network = strings.ToLower(input)
	}
	if strings.Contains(network, "9") {
		network = "9mobile"
	}
	switch network {
	case "mtn", "airtel", "glo", "9mobile":
		return network, true
	}
	return "", false
}

// resolveTarget interprets a recipient phone input, expanding the "me"
// shortcut to the account's saved number, falling back to the sender.
func (e *Engine) resolveTarget(ctx context.Context, c *conversation) string {
	if strings.EqualFold(strings.TrimSpace(c.text), "me") {
		if user := e.sessionUser(ctx, c); user != nil && user.Phone != "" {
			return user.Phone
		}
		return c.sess.Phone
	}
	return NormalizePhone(c.text)
}

// selectPlan resolves a plan choice against the list previously shown:
// first as a 1-based menu index, then as a literal plan id, then as a
// case-insensitive plan name.
func selectPlan(plans []models.Plan, input string) *models.Plan {
	input = strings.TrimSpace(input)
	if input == "" || len(plans) == 0 {
		return nil
	}
	if idx, ok := menuIndex(input); ok {
		if idx >= 1 && idx <= len(plans) {
			return &plans[idx-1]
		}
		// fall through: a digit string can still be a literal plan id
	}
	for i := range plans {
		if plans[i].ID != "" && plans[i].ID == input {
			return &plans[i]
		}
		if plans[i].Name != "" && strings.EqualFold(plans[i].Name, input) {
			return &plans[i]
		}
	}
	return nil
}

func menuIndex(input string) (int, bool) {
	n := 0
	for _, r := range input {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// executePurchase runs the shared confirm-PIN tail of every purchase flow:
// verify the PIN, resolve credentials, call the provider, persist the
// balance, and render the receipt. The session always lands back on the
// logged-in menu; only the reply differs.
func (e *Engine) executePurchase(ctx context.Context, c *conversation, kind models.PurchaseKind, order vprest.Order, successTitle, failLabel string, detail []string) (string, error) {
	if c.sess.UserID == "" {
		c.clear = true
		return loginRequiredText, nil
	}
	user := e.sessionUser(ctx, c)
	if user == nil {
		c.clear = true
		return sessionErrorText, nil
	}

	backToMenu := func() {
		c.sess.Step = models.StepLoggedIn
		c.sess.ResetFlows()
	}

	if !e.users.CheckPIN(ctx, user, strings.TrimSpace(c.text)) {
		backToMenu()
		return invalidPINText, nil
	}

	cred, err := e.users.ResolveCredentials(ctx, c.sess.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNoAPIKey) {
			backToMenu()
			return missingAPIKeyText, nil
		}
		return "", err
	}

	outcome, err := e.executor.Execute(ctx, kind, cred, order)
	if err != nil {
		slog.Error("purchase request failed", "error", err, "kind", kind, "user", user.ID)
		backToMenu()
		return "⚠️ API error: the provider could not be reached. Please try again.", nil
	}

	backToMenu()
	if !outcome.Success {
		return fmt.Sprintf("❌ %s failed: %s", failLabel, outcome.Message), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s Successful!\n", successTitle)
	for _, line := range detail {
		b.WriteString(line + "\n")
	}
	if outcome.PreviousBalance != nil {
		fmt.Fprintf(&b, "📉 Previous Balance: ₦%s\n", formatNaira(*outcome.PreviousBalance))
	}
	if outcome.CurrentBalance != nil {
		fmt.Fprintf(&b, "📈 New Balance: ₦%s\n", formatNaira(*outcome.CurrentBalance))
	}
	receipt := b.String()

	if err := e.notifier.NotifyReceipt(ctx, c.sess.Phone, receipt); err != nil {
		slog.Warn("receipt notification failed", "error", err, "to", c.sess.Phone)
	}
	return receipt + "\n" + mainMenuText(), nil
}
