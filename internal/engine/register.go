package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/users"
)

// reg returns the registration record, recovering from a session that lost
// its flow data.
func (c *conversation) reg() *models.RegistrationData {
	if c.sess.Reg == nil {
		c.sess.Reg = &models.RegistrationData{}
	}
	return c.sess.Reg
}

func (e *Engine) handleRegFirst(ctx context.Context, c *conversation) (string, error) {
	first := strings.TrimSpace(c.text)
	if first == "" {
		return "❗ First name cannot be empty. Send your first name:", nil
	}
	c.reg().FirstName = first
	c.sess.Step = models.StepRegLast
	return "📝 Step 2/7 - Send your Last name:", nil
}

func (e *Engine) handleRegLast(ctx context.Context, c *conversation) (string, error) {
	last := strings.TrimSpace(c.text)
	if last == "" {
		return "❗ Last name cannot be empty. Send your last name:", nil
	}
	c.reg().LastName = last
	c.sess.Step = models.StepRegUsername
	return "📝 Step 3/7 - Choose a username:", nil
}

func (e *Engine) handleRegUsername(ctx context.Context, c *conversation) (string, error) {
	username := users.SanitizeUsername(c.text)
	if username == "" {
		return "❗ Invalid username. Enter a username:", nil
	}
	taken, err := e.users.UsernameTaken(ctx, username)
	if err != nil {
		return "", err
	}
	if taken {
		return "❗ Username taken. Choose another:", nil
	}
	c.reg().Username = username
	c.sess.Step = models.StepRegEmail
	return "📧 Step 4/7 - Send your email address:", nil
}

func (e *Engine) handleRegEmail(ctx context.Context, c *conversation) (string, error) {
	email := strings.TrimSpace(c.text)
	if !users.ValidEmail(email) {
		return "❗ Invalid email. Send a valid email address:", nil
	}
	taken, err := e.users.EmailTaken(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "❗ Email already used. Use another:", nil
	}
	c.reg().Email = email
	c.sess.Step = models.StepRegPhone
	return "📱 Step 5/7 - Send your WhatsApp number :", nil
}

func (e *Engine) handleRegPhone(ctx context.Context, c *conversation) (string, error) {
	phone := NormalizePhone(c.text)
	if phone == "" {
		return "❗ Invalid phone. Send me your WhatsApp number:", nil
	}
	taken, err := e.users.PhoneTaken(ctx, phone)
	if err != nil {
		return "", err
	}
	if taken {
		c.sess.Step = models.StepWelcome
		return "❗ Phone already registered. Reply 1 to Login.", nil
	}
	c.reg().Phone = phone
	c.sess.Step = models.StepRegPassword
	return "🔒 Step 6/7 - Choose a password (min 6 chars):", nil
}

func (e *Engine) handleRegPassword(ctx context.Context, c *conversation) (string, error) {
	if len(c.text) < users.MinPasswordLength {
		return "❗ Password too short. Enter password (min 6 chars):", nil
	}
	c.reg().Password = c.text
	c.sess.Step = models.StepRegPIN
	return "🔐 Step 7/7 - Set a 4-6 digit PIN (numbers only):", nil
}

func (e *Engine) handleRegPIN(ctx context.Context, c *conversation) (string, error) {
	pin := strings.TrimSpace(c.text)
	if !users.ValidPIN(pin) {
		return "❗ PIN must be 4-6 digits. Enter PIN:", nil
	}
	reg := c.reg()
	if reg.FirstName == "" || reg.Username == "" || reg.Email == "" || reg.Phone == "" || reg.Password == "" {
		c.sess.Step = models.StepWelcome
		c.sess.Reg = nil
		return "❗ Registration data missing. Start again.", nil
	}

	user, err := e.users.Register(ctx, *reg, pin)
	if err != nil {
		c.sess.Step = models.StepWelcome
		c.sess.Reg = nil
		return fmt.Sprintf("❗ Registration failed: %s", registrationFailure(err)), nil
	}

	c.sess.UserID = user.ID
	c.sess.Step = models.StepLoggedIn
	c.sess.ResetFlows()
	return fmt.Sprintf("✅ Registration complete! Welcome %s.\n💰 Balance: ₦0.00\n%s",
		user.DisplayName, mainMenuText()), nil
}

// registrationFailure maps store errors to the short phrases shown to users.
func registrationFailure(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrDuplicateUsername):
		return "username already taken"
	case errors.Is(err, models.ErrDuplicateEmail):
		return "email already registered"
	case errors.Is(err, models.ErrDuplicatePhone):
		return "phone already registered"
	}
	return "could not create the account"
}
