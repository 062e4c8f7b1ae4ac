package messaging

import (
	"context"
	"testing"
)

func TestNoopNotifier(t *testing.T) {
	var n Notifier = NoopNotifier{}
	if err := n.NotifyReceipt(context.Background(), "2348100000001", "receipt"); err != nil {
		t.Fatalf("NoopNotifier must never fail: %v", err)
	}
}

func TestNewTwilioNotifierValidation(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("TWILIO_FROM_NUMBER", "")

	if _, err := NewTwilioNotifier(); err == nil {
		t.Fatal("expected error without credentials")
	}
	if _, err := NewTwilioNotifier(WithAccountSID("AC123"), WithAuthToken("tok")); err == nil {
		t.Fatal("expected error without a from number")
	}
	n, err := NewTwilioNotifier(
		WithAccountSID("AC123"),
		WithAuthToken("tok"),
		WithFromWhats("whatsapp:+14155550100"),
	)
	if err != nil {
		t.Fatalf("fully configured notifier must build: %v", err)
	}
	if n == nil {
		t.Fatal("nil notifier")
	}
}

func TestNewTwilioNotifierEnvFallback(t *testing.T) {
	t.Setenv("TWILIO_ACCOUNT_SID", "AC999")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", "whatsapp:+14155550100")

	if _, err := NewTwilioNotifier(); err != nil {
		t.Fatalf("env-configured notifier must build: %v", err)
	}
}
