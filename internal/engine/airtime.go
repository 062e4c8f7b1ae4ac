package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/vprest"
)

func (c *conversation) airtime() *models.AirtimeOrder {
	if c.sess.Airtime == nil {
		c.sess.Airtime = &models.AirtimeOrder{}
	}
	return c.sess.Airtime
}

func (e *Engine) handleAirtimeNetwork(ctx context.Context, c *conversation) (string, error) {
	network, ok := parseNetwork(c.text)
	if !ok {
		return invalidNetworkText, nil
	}
	c.airtime().Network = network
	c.sess.Step = models.StepAirtimeAmount
	return askRecipientPhone, nil
}

func (e *Engine) handleAirtimeTarget(ctx context.Context, c *conversation) (string, error) {
	target := e.resolveTarget(ctx, c)
	if target == "" {
		return invalidRecipientText, nil
	}
	c.airtime().Target = target
	c.sess.Step = models.StepAirtimeAmount2
	return "💵 Enter amount (numeric, e.g., 200):", nil
}

func (e *Engine) handleAirtimeAmount(ctx context.Context, c *conversation) (string, error) {
	amount := ParseAmount(c.text)
	if amount <= 0 {
		return "❗ Invalid amount. Enter a numeric amount:", nil
	}
	c.airtime().Amount = amount
	c.sess.Step = models.StepAirtimeType
	return "🔤 Enter airtime type (vtu, share, awuf) or press enter for default 'vtu':", nil
}

func (e *Engine) handleAirtimeType(ctx context.Context, c *conversation) (string, error) {
	t := strings.ToLower(strings.TrimSpace(c.text))
	switch t {
	case "vtu", "share", "awuf":
	default:
		t = "vtu"
	}
	order := c.airtime()
	order.Type = t
	c.sess.Step = models.StepAirtimeConfirmPIN
	return fmt.Sprintf("🔒 Confirm purchase:\n📱 %s\n📡 %s\n💰 ₦%s\nType your PIN to confirm.",
		order.Target, order.Network, formatNaira(order.Amount)), nil
}

func (e *Engine) handleAirtimeConfirmPIN(ctx context.Context, c *conversation) (string, error) {
	order := c.airtime()
	detail := []string{
		fmt.Sprintf("📱 Receiver: %s", order.Target),
		fmt.Sprintf("📡 Network: %s", order.Network),
		fmt.Sprintf("💰 Amount: ₦%s", formatNaira(order.Amount)),
	}
	return e.executePurchase(ctx, c, models.PurchaseAirtime,
		vprest.Order{Airtime: order}, "Airtime Purchase", "Airtime", detail)
}
