package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/vprest"
)

var cableDigits = map[string]string{
	"1": "gotv",
	"2": "dstv",
	"3": "startimes",
}

func (c *conversation) cable() *models.CableOrder {
	if c.sess.Cable == nil {
		c.sess.Cable = &models.CableOrder{}
	}
	return c.sess.Cable
}

func (e *Engine) handleCableProvider(ctx context.Context, c *conversation) (string, error) {
	input := strings.TrimSpace(c.text)
	provider, ok := cableDigits[input]
	if !ok {
		provider = strings.ToLower(input)
	}
	order := c.cable()
	order.Provider = provider

	plans, err := e.catalog.Plans(ctx, models.PlanKindCable, provider)
	if err != nil {
		return "", err
	}
	if len(plans) == 0 {
		c.sess.Step = models.StepCableManualPlan
		return fmt.Sprintf("📋 I couldn't fetch cable plans for %s. Please send plan id and IUC (e.g. <plan_id> <iuc>) or type 'list' for sample.", provider), nil
	}

	order.Plans = plans
	c.sess.Step = models.StepCableChoosePlan
	return planListText(fmt.Sprintf("📺 *%s Plans*", strings.ToUpper(provider)), plans), nil
}

func (e *Engine) handleCableChoosePlan(ctx context.Context, c *conversation) (string, error) {
	order := c.cable()
	if len(order.Plans) == 0 {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Cable plans not available. Try again.", nil
	}
	selected := selectPlan(order.Plans, c.text)
	if selected == nil {
		return invalidSelectionText, nil
	}
	order.Selected = selected
	c.sess.Step = models.StepCableAskIUC
	return "🔢 Enter recipient IUC / Smart Card Number:", nil
}

// handleCableManualPlan accepts "<plan_id> <iuc>" in one message when no
// plan list could be shown for the provider. "list" shows embedded samples.
func (e *Engine) handleCableManualPlan(ctx context.Context, c *conversation) (string, error) {
	order := c.cable()
	if c.lower == "list" {
		samples := filterByProvider(embeddedCablePlans(), order.Provider)
		if len(samples) == 0 {
			return "📋 No sample plans available. Send plan id and IUC (e.g. <plan_id> <iuc>):", nil
		}
		order.Plans = samples
		c.sess.Step = models.StepCableChoosePlan
		return planListText(fmt.Sprintf("📺 *%s Sample Plans*", strings.ToUpper(order.Provider)), samples), nil
	}

	parts := strings.Fields(c.text)
	if len(parts) < 2 {
		return "❗ Send plan id and IUC together (e.g. <plan_id> <iuc>) or type 'list':", nil
	}
	order.Selected = &models.Plan{ID: parts[0], Kind: models.PlanKindCable, Provider: order.Provider, Manual: true}
	order.IUC = parts[1]
	c.sess.Step = models.StepCableConfirmPIN
	return fmt.Sprintf("🔒 Confirm purchase: plan %s to IUC %s. Enter your PIN to proceed:",
		parts[0], parts[1]), nil
}

func embeddedCablePlans() []models.Plan {
	var out []models.Plan
	for _, entry := range catalog.EmbeddedServices().Cable {
		plan := models.PlanFromMap(entry)
		plan.Kind = models.PlanKindCable
		out = append(out, plan)
	}
	return out
}

func filterByProvider(plans []models.Plan, provider string) []models.Plan {
	var out []models.Plan
	for _, p := range plans {
		if strings.EqualFold(p.Provider, provider) || strings.Contains(strings.ToLower(p.Name), strings.ToLower(provider)) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) handleCableAskIUC(ctx context.Context, c *conversation) (string, error) {
	iuc := strings.TrimSpace(c.text)
	if iuc == "" {
		return "❗ IUC cannot be empty. Enter IUC / Smart Card Number:", nil
	}
	order := c.cable()
	if order.Selected == nil {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Cable plans not available. Try again.", nil
	}
	order.IUC = iuc
	c.sess.Step = models.StepCableConfirmPIN
	return fmt.Sprintf("🔒 Confirm purchase: %s to IUC %s. Enter your PIN to proceed:",
		order.Selected.Name, iuc), nil
}

func (e *Engine) handleCableConfirmPIN(ctx context.Context, c *conversation) (string, error) {
	order := c.cable()
	if order.Selected == nil {
		c.sess.Step = models.StepLoggedIn
		return "⚠️ Cable plans not available. Try again.", nil
	}
	detail := []string{
		fmt.Sprintf("📺 Provider: %s", order.Provider),
		fmt.Sprintf("🔢 IUC: %s", order.IUC),
		fmt.Sprintf("📦 Plan: %s", order.Selected.Name),
	}
	return e.executePurchase(ctx, c, models.PurchaseCable,
		vprest.Order{Cable: order}, "Cable Purchase", "Cable purchase", detail)
}
