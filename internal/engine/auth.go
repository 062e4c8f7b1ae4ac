package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sregle/vtubot/internal/models"
)

func (e *Engine) handleWelcome(ctx context.Context, c *conversation) (string, error) {
	switch c.lower {
	case "1", "login":
		c.sess.Step = models.StepLoginPhone
		c.sess.Login = &models.LoginData{}
		return askLoginPhone, nil
	case "2", "register":
		c.sess.Step = models.StepRegFirst
		c.sess.Reg = &models.RegistrationData{}
		return "📝 Registration - Step 1/7: Send your First name:", nil
	case "3", "services":
		c.sess.Step = models.StepServicesMenu
		return servicesMenuText(), nil
	}
	return welcomeFallbackText, nil
}

// handleInlineLogin handles the one-message "login <phone> <pin>" shortcut
// accepted from the welcome step.
func (e *Engine) handleInlineLogin(ctx context.Context, c *conversation) (string, error) {
	parts := strings.Fields(c.text)
	if len(parts) < 3 {
		return loginUsageText, nil
	}
	phone := NormalizePhone(parts[1])
	pin := parts[2]

	user, err := e.users.FindByIdentifier(ctx, phone)
	if err != nil {
		return "", err
	}
	if user == nil {
		return fmt.Sprintf("❌ No account found for %s. Reply 2 to register.", phone), nil
	}
	if !e.users.CheckPIN(ctx, user, pin) {
		return badLoginPIN, nil
	}
	return e.completeLogin(ctx, c, user)
}

func (e *Engine) handleLoginPhone(ctx context.Context, c *conversation) (string, error) {
	phone := NormalizePhone(c.text)
	if phone == "" {
		return "❗ Invalid phone. Send the phone number link to your account in our app or site :", nil
	}
	if c.sess.Login == nil {
		c.sess.Login = &models.LoginData{}
	}
	c.sess.Login.Phone = phone
	c.sess.Step = models.StepLoginPIN
	return askLoginPIN, nil
}

func (e *Engine) handleLoginPIN(ctx context.Context, c *conversation) (string, error) {
	if c.sess.Login == nil || c.sess.Login.Phone == "" {
		c.sess.Step = models.StepWelcome
		return sessionLostText, nil
	}
	phone := c.sess.Login.Phone

	user, err := e.users.FindByIdentifier(ctx, phone)
	if err != nil {
		return "", err
	}
	if user == nil {
		c.sess.Step = models.StepWelcome
		return fmt.Sprintf("❌ No account found for %s. Reply 2 to register.", phone), nil
	}
	if !e.users.CheckPIN(ctx, user, strings.TrimSpace(c.text)) {
		c.sess.Step = models.StepWelcome
		return badLoginPIN, nil
	}
	return e.completeLogin(ctx, c, user)
}

// completeLogin binds the session to the account and shows the dashboard.
func (e *Engine) completeLogin(ctx context.Context, c *conversation, user *models.User) (string, error) {
	if err := e.users.SetSavedPhone(ctx, user.ID, c.sess.Phone); err != nil {
		slog.Warn("failed to record login phone", "error", err, "user", user.ID)
	}
	c.sess.UserID = user.ID
	c.sess.Step = models.StepLoggedIn
	c.sess.ResetFlows()
	slog.Info("user logged in", "user", user.ID, "from", c.sess.Phone)
	return dashboardText(user), nil
}

func (e *Engine) handleServicesMenu(ctx context.Context, c *conversation) (string, error) {
	switch c.lower {
	case "1", "airtime":
		c.sess.Step = models.StepAirtimeNetwork
		c.sess.Airtime = &models.AirtimeOrder{}
		return networkMenuText("📱 Choose Network:"), nil
	case "2", "data":
		c.sess.Step = models.StepDataNetwork
		c.sess.Data = &models.DataOrder{}
		return networkMenuText("🌐 Choose Network for Data:"), nil
	case "3", "cable":
		c.sess.Step = models.StepCableProvider
		c.sess.Cable = &models.CableOrder{}
		return cableMenuText(), nil
	case "4", "bill", "bills", "electricity":
		c.sess.Step = models.StepBillProvider
		c.sess.Bill = &models.BillOrder{}
		return billMenuText(), nil
	case "5", "balance", "check balance":
		if user := e.sessionUser(ctx, c); user != nil {
			return balanceText(user), nil
		}
		return "⚠️ Please login first. Reply with 'menu' then 1 to Login.", nil
	case "6", "funding", "funding accounts":
		if user := e.sessionUser(ctx, c); user != nil {
			return fundingText(user.Wallet), nil
		}
		return noFundingText, nil
	case "#", "logout":
		c.clear = true
		return loggedOutText, nil
	}
	return "❗ Reply 1 for Airtime, 2 for Data, 3 for Cable, 4 for Bills, 5 for check balance, 6 for funding, or # for log out.", nil
}

func (e *Engine) handleLoggedIn(ctx context.Context, c *conversation) (string, error) {
	if c.sess.UserID == "" {
		c.clear = true
		return sessionErrorText, nil
	}
	switch c.lower {
	case "1", "airtime":
		c.sess.Step = models.StepAirtimeNetwork
		c.sess.Airtime = &models.AirtimeOrder{}
		return networkMenuText("📱 Choose Network for Airtime:"), nil
	case "2", "data":
		c.sess.Step = models.StepDataNetwork
		c.sess.Data = &models.DataOrder{}
		return networkMenuText("🌐 Choose Network for Data:"), nil
	case "3", "cable":
		c.sess.Step = models.StepCableProvider
		c.sess.Cable = &models.CableOrder{}
		return cableMenuText(), nil
	case "4", "bill", "bills", "electricity":
		c.sess.Step = models.StepBillProvider
		c.sess.Bill = &models.BillOrder{}
		return billMenuText(), nil
	case "5", "balance", "check balance":
		user := e.sessionUser(ctx, c)
		if user == nil {
			c.clear = true
			return sessionErrorText, nil
		}
		return balanceText(user), nil
	case "6", "funding", "funding accounts":
		user := e.sessionUser(ctx, c)
		if user == nil {
			c.clear = true
			return sessionErrorText, nil
		}
		return fundingText(user.Wallet), nil
	case "#", "logout":
		c.clear = true
		return loggedOutText, nil
	}
	return mainMenuText(), nil
}

// sessionUser loads the account bound to the session, or nil when the
// session carries no user or the account is gone.
func (e *Engine) sessionUser(ctx context.Context, c *conversation) *models.User {
	if c.sess.UserID == "" {
		return nil
	}
	user, err := e.store.GetUser(c.sess.UserID)
	if err != nil {
		slog.Error("failed to load session user", "error", err, "user", c.sess.UserID)
		return nil
	}
	return user
}
