// Package engine implements the dialogue state machine driving the bot.
//
// Each inbound webhook message is one turn: the sender identifier selects a
// session, the session's step selects a handler, and the handler consumes
// the message text, mutates the session, and produces the reply.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sregle/vtubot/internal/catalog"
	"github.com/sregle/vtubot/internal/messaging"
	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/store"
	"github.com/sregle/vtubot/internal/users"
	"github.com/sregle/vtubot/internal/vprest"
)

// DefaultCommandPrefix is stripped from inbound messages when no prefix is
// configured.
const DefaultCommandPrefix = "sreg"

// Opts holds configuration options for the engine.
type Opts struct {
	CommandPrefix string
	BrandName     string
	Notifier      messaging.Notifier
}

// Option defines a configuration option for the engine.
type Option func(*Opts)

// WithCommandPrefix sets the prefix stripped from inbound messages.
func WithCommandPrefix(prefix string) Option {
	return func(o *Opts) { o.CommandPrefix = prefix }
}

// WithBrandName sets the name shown in the welcome greeting.
func WithBrandName(name string) Option {
	return func(o *Opts) { o.BrandName = name }
}

// WithNotifier sets the out-of-band receipt notifier.
func WithNotifier(n messaging.Notifier) Option {
	return func(o *Opts) { o.Notifier = n }
}

// conversation is the per-turn working state passed to step handlers.
type conversation struct {
	sess  *models.Session
	text  string // message with the command prefix stripped
	lower string
	clear bool // drop the session instead of saving it
}

type handlerFunc func(ctx context.Context, c *conversation) (string, error)

// Engine routes messages through the dialogue state machine.
type Engine struct {
	store    store.Store
	users    *users.Directory
	catalog  *catalog.Provider
	executor *vprest.Executor
	notifier messaging.Notifier

	prefix string
	brand  string

	locks    *keyedMutex
	handlers map[models.Step]handlerFunc
}

// New creates a dialogue engine over the given collaborators.
func New(st store.Store, dir *users.Directory, cat *catalog.Provider, exec *vprest.Executor, opts ...Option) *Engine {
	cfg := Opts{
		CommandPrefix: DefaultCommandPrefix,
		BrandName:     "Sregle",
		Notifier:      messaging.NoopNotifier{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Engine{
		store:    st,
		users:    dir,
		catalog:  cat,
		executor: exec,
		notifier: cfg.Notifier,
		prefix:   cfg.CommandPrefix,
		brand:    cfg.BrandName,
		locks:    newKeyedMutex(),
	}
	e.handlers = map[models.Step]handlerFunc{
		models.StepWelcome: e.handleWelcome,

		models.StepLoginPhone: e.handleLoginPhone,
		models.StepLoginPIN:   e.handleLoginPIN,

		models.StepRegFirst:    e.handleRegFirst,
		models.StepRegLast:     e.handleRegLast,
		models.StepRegUsername: e.handleRegUsername,
		models.StepRegEmail:    e.handleRegEmail,
		models.StepRegPhone:    e.handleRegPhone,
		models.StepRegPassword: e.handleRegPassword,
		models.StepRegPIN:      e.handleRegPIN,

		models.StepServicesMenu: e.handleServicesMenu,
		models.StepLoggedIn:     e.handleLoggedIn,

		models.StepAirtimeNetwork:    e.handleAirtimeNetwork,
		models.StepAirtimeAmount:     e.handleAirtimeTarget,
		models.StepAirtimeAmount2:    e.handleAirtimeAmount,
		models.StepAirtimeType:       e.handleAirtimeType,
		models.StepAirtimeConfirmPIN: e.handleAirtimeConfirmPIN,

		models.StepDataNetwork:    e.handleDataNetwork,
		models.StepDataChoosePlan: e.handleDataChoosePlan,
		models.StepDataAskPhone:   e.handleDataAskPhone,
		models.StepDataConfirmPIN: e.handleDataConfirmPIN,
		models.StepDataManualPlan: e.handleDataManualPlan,

		models.StepCableProvider:   e.handleCableProvider,
		models.StepCableChoosePlan: e.handleCableChoosePlan,
		models.StepCableAskIUC:     e.handleCableAskIUC,
		models.StepCableConfirmPIN: e.handleCableConfirmPIN,
		models.StepCableManualPlan: e.handleCableManualPlan,

		models.StepBillProvider:   e.handleBillProvider,
		models.StepBillAskMeter:   e.handleBillAskMeter,
		models.StepBillAskAmount:  e.handleBillAskAmount,
		models.StepBillConfirmPIN: e.handleBillConfirmPIN,
	}
	return e
}

// Handlers exposes the dispatch table's step set for exhaustiveness checks.
func (e *Engine) Handlers() []models.Step {
	steps := make([]models.Step, 0, len(e.handlers))
	for s := range e.handlers {
		steps = append(steps, s)
	}
	return steps
}

// HandleMessage processes one inbound message and returns the reply text.
// Turns for the same sender are serialized; the session is loaded before and
// saved after the handler runs.
func (e *Engine) HandleMessage(ctx context.Context, from, text string) (string, error) {
	from = NormalizePhone(from)
	if from == "" {
		from = "unknown"
	}
	text = StripCommandPrefix(e.prefix, text)

	unlock := e.locks.lock(from)
	defer unlock()

	slog.Debug("HandleMessage", "from", from, "len", len(text))

	sess, err := e.store.GetSession(from)
	if err != nil {
		return "", fmt.Errorf("failed to load session for %s: %w", from, err)
	}
	if sess == nil {
		sess = models.NewSession(from)
		if err := e.store.SaveSession(*sess); err != nil {
			return "", fmt.Errorf("failed to create session for %s: %w", from, err)
		}
		return welcomeText(e.brand), nil
	}

	c := &conversation{sess: sess, text: text, lower: strings.ToLower(text)}

	reply, handled, err := e.intercept(ctx, c)
	if err != nil {
		return "", err
	}
	if !handled {
		handler, ok := e.handlers[sess.Step]
		if sess.Step.RequiresAuth() && sess.UserID == "" {
			// A session parked on an authenticated step with no user is
			// corrupted. Drop it so the next message starts over.
			slog.Warn("unauthenticated session at protected step, clearing", "from", from, "step", sess.Step)
			c.clear = true
			reply = loginRequiredText
		} else if !ok {
			slog.Warn("unknown session step, restarting", "from", from, "step", sess.Step)
			c.clear = true
			reply = sessionRestartText
		} else {
			reply, err = handler(ctx, c)
			if err != nil {
				return "", err
			}
		}
	}

	if c.clear {
		if err := e.store.DeleteSession(from); err != nil {
			return "", fmt.Errorf("failed to clear session for %s: %w", from, err)
		}
		return reply, nil
	}
	sess.UpdatedAt = time.Now()
	if err := e.store.SaveSession(*sess); err != nil {
		return "", fmt.Errorf("failed to save session for %s: %w", from, err)
	}
	return reply, nil
}

// intercept applies the global commands that work regardless of step:
// the menu shortcut, logout, and the inline one-message login.
func (e *Engine) intercept(ctx context.Context, c *conversation) (string, bool, error) {
	switch c.lower {
	case "menu", "0":
		if c.sess.UserID != "" {
			user, err := e.store.GetUser(c.sess.UserID)
			if err != nil {
				return "", false, err
			}
			if user != nil {
				// Only the step moves. Flow records stay put; every flow
				// entry point re-initializes its own record.
				c.sess.Step = models.StepLoggedIn
				return dashboardText(user), true, nil
			}
		}
		*c.sess = *models.NewSession(c.sess.Phone)
		return menuResetText(e.brand), true, nil

	case "logout", "#", "log out":
		c.clear = true
		return loggedOutText, true, nil
	}

	if c.sess.Step == models.StepWelcome && strings.HasPrefix(c.lower, "login ") {
		reply, err := e.handleInlineLogin(ctx, c)
		return reply, true, err
	}
	return "", false, nil
}
