package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/vprest"
)

// billProviders lists the electricity distributors in menu order. The
// 1-based position doubles as the provider code sent to the purchase API.
var billProviders = []string{
	"ikeja", "eko", "abuja", "kano", "portharcourt", "ibadan", "kaduna", "jos",
}

// parseBillProvider resolves a menu digit or provider name to the canonical
// name and its 1-based provider code.
func parseBillProvider(input string) (string, int, bool) {
	input = strings.ToLower(strings.TrimSpace(input))
	if idx, ok := menuIndex(input); ok {
		if idx >= 1 && idx <= len(billProviders) {
			return billProviders[idx-1], idx, true
		}
		return "", 0, false
	}
	for i, name := range billProviders {
		if name == input {
			return name, i + 1, true
		}
	}
	return "", 0, false
}

func (c *conversation) bill() *models.BillOrder {
	if c.sess.Bill == nil {
		c.sess.Bill = &models.BillOrder{}
	}
	return c.sess.Bill
}

func (e *Engine) handleBillProvider(ctx context.Context, c *conversation) (string, error) {
	provider, index, ok := parseBillProvider(c.text)
	if !ok {
		return "❗ Invalid provider. " + billMenuText(), nil
	}
	order := c.bill()
	order.Provider = provider
	order.ProviderIndex = index
	c.sess.Step = models.StepBillAskMeter
	return "🔢 Enter meter number:", nil
}

func (e *Engine) handleBillAskMeter(ctx context.Context, c *conversation) (string, error) {
	meter := strings.TrimSpace(c.text)
	if meter == "" {
		return "❗ Meter number cannot be empty. Enter meter number:", nil
	}
	c.bill().Meter = meter
	c.sess.Step = models.StepBillAskAmount
	return "💵 Enter amount to pay (e.g., 1000):", nil
}

func (e *Engine) handleBillAskAmount(ctx context.Context, c *conversation) (string, error) {
	amount := ParseAmount(c.text)
	if amount <= 0 {
		return "❗ Invalid amount. Enter numeric amount:", nil
	}
	order := c.bill()
	order.Amount = amount
	c.sess.Step = models.StepBillConfirmPIN
	return fmt.Sprintf("🔒 Confirm bill payment of ₦%s to meter %s. Enter your PIN to proceed:",
		formatNaira(amount), order.Meter), nil
}

func (e *Engine) handleBillConfirmPIN(ctx context.Context, c *conversation) (string, error) {
	order := c.bill()
	detail := []string{
		fmt.Sprintf("🔌 Provider: %s", order.Provider),
		fmt.Sprintf("🔢 Meter: %s", order.Meter),
		fmt.Sprintf("💰 Amount: ₦%s", formatNaira(order.Amount)),
	}
	return e.executePurchase(ctx, c, models.PurchaseBill,
		vprest.Order{Bill: order}, "Bill Payment", "Bill payment", detail)
}
