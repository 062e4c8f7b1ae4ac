package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/vprest"
)

func (c *conversation) data() *models.DataOrder {
	if c.sess.Data == nil {
		c.sess.Data = &models.DataOrder{}
	}
	return c.sess.Data
}

func (e *Engine) handleDataNetwork(ctx context.Context, c *conversation) (string, error) {
	network, ok := parseNetwork(c.text)
	if !ok {
		return invalidNetworkText, nil
	}
	order := c.data()
	order.Network = network

	plans, err := e.catalog.Plans(ctx, models.PlanKindData, network)
	if err != nil {
		return "", err
	}
	if len(plans) == 0 {
		c.sess.Step = models.StepDataManualPlan
		return fmt.Sprintf("📋 I couldn't fetch plans for %s. Please send plan_id (numeric) or type 'list' to show sample plans.", network), nil
	}

	order.Plans = plans
	c.sess.Step = models.StepDataChoosePlan
	return planListText(fmt.Sprintf("📶 *%s Data Plans*", strings.ToUpper(network)), plans), nil
}

func (e *Engine) handleDataChoosePlan(ctx context.Context, c *conversation) (string, error) {
	order := c.data()
	if len(order.Plans) == 0 {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Plans not available. Try again.", nil
	}
	selected := selectPlan(order.Plans, c.text)
	if selected == nil {
		return invalidSelectionText, nil
	}
	order.Selected = selected
	c.sess.Step = models.StepDataAskPhone
	return askRecipientPhone, nil
}

// handleDataManualPlan accepts a literal plan id when no catalog plans could
// be listed for the chosen network. "list" shows the embedded sample plans.
func (e *Engine) handleDataManualPlan(ctx context.Context, c *conversation) (string, error) {
	order := c.data()
	if c.lower == "list" {
		samples := filterByNetwork(embeddedDataPlans(), order.Network)
		if len(samples) == 0 {
			return "📋 No sample plans available. Please send plan_id (numeric):", nil
		}
		order.Plans = samples
		c.sess.Step = models.StepDataChoosePlan
		return planListText(fmt.Sprintf("📶 *%s Sample Plans*", strings.ToUpper(order.Network)), samples), nil
	}

	id := strings.TrimSpace(c.text)
	if _, ok := menuIndex(id); !ok {
		return "❗ Plan id must be numeric. Send plan_id or type 'list':", nil
	}
	order.Selected = &models.Plan{ID: id, Kind: models.PlanKindData, Network: order.Network, Manual: true}
	c.sess.Step = models.StepDataAskPhone
	return askRecipientPhone, nil
}

func embeddedDataPlans() []models.Plan {
	var out []models.Plan
	for _, entry := range catalog.EmbeddedServices().Data {
		plan := models.PlanFromMap(entry)
		plan.Kind = models.PlanKindData
		out = append(out, plan)
	}
	return out
}

func filterByNetwork(plans []models.Plan, network string) []models.Plan {
	var out []models.Plan
	for _, p := range plans {
		if strings.EqualFold(p.Network, network) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) handleDataAskPhone(ctx context.Context, c *conversation) (string, error) {
	target := e.resolveTarget(ctx, c)
	if target == "" {
		return invalidRecipientText, nil
	}
	order := c.data()
	if order.Selected == nil {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Plans not available. Try again.", nil
	}
	order.Target = target
	c.sess.Step = models.StepDataConfirmPIN

	name := order.Selected.Name
	if name == "" {
		name = "plan"
	}
	return fmt.Sprintf("🔒 Confirm purchase: %s (ID: %s) to %s. Enter your PIN to proceed:",
		name, order.Selected.ID, target), nil
}

func (e *Engine) handleDataConfirmPIN(ctx context.Context, c *conversation) (string, error) {
	order := c.data()
	if order.Selected == nil {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Plans not available. Try again.", nil
	}
	detail := []string{
		fmt.Sprintf("📱 Receiver: %s", order.Target),
		fmt.Sprintf("📡 Network: %s", order.Network),
		fmt.Sprintf("📦 Plan: %s", order.Selected.Name),
	}
	return e.executePurchase(ctx, c, models.PurchaseData,
		vprest.Order{Data: order}, "Data Purchase", "Data purchase", detail)
}
