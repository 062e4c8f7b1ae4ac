package models

import "testing"

func TestPlanFromMapAliases(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]interface{}
		want Plan
	}{
		{
			name: "lowercase keys",
			raw:  map[string]interface{}{"id": float64(7), "name": "MTN SME 1GB", "amount": float64(620), "network": "mtn", "type": "SME"},
			want: Plan{ID: "7", Name: "MTN SME 1GB", Amount: 620, Network: "mtn", PlanType: "SME"},
		},
		{
			name: "provider casing",
			raw:  map[string]interface{}{"Plan_Code": "12", "Data_Plan": "GLO CG 2GB", "Price": float64(900), "Network": "glo"},
			want: Plan{ID: "12", Name: "GLO CG 2GB", Amount: 900, Network: "glo"},
		},
		{
			name: "plan and product keys",
			raw:  map[string]interface{}{"plan": float64(3), "product": "GOTV JOLLI", "value": "4150", "provider": "gotv"},
			want: Plan{ID: "3", Name: "GOTV JOLLI", Amount: 4150, Provider: "gotv"},
		},
		{
			name: "unknown shape",
			raw:  map[string]interface{}{"foo": "bar"},
			want: Plan{},
		},
	}
	for _, c := range cases {
		if got := PlanFromMap(c.raw); got != c.want {
			t.Errorf("%s: PlanFromMap = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestStringifyWholeFloats(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"7", "7"},
		{float64(7), "7"},
		{7.5, "7.5"},
		{7, "7"},
		{int64(9), "9"},
		{true, "true"},
		{nil, ""},
		{[]string{"x"}, ""},
	}
	for _, c := range cases {
		if got := stringify(c.in); got != c.want {
			t.Errorf("stringify(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNumeric(t *testing.T) {
	if f, ok := numeric("450.5"); !ok || f != 450.5 {
		t.Errorf("numeric string: %v, %v", f, ok)
	}
	if f, ok := numeric(float64(12)); !ok || f != 12 {
		t.Errorf("float: %v, %v", f, ok)
	}
	if _, ok := numeric("abc"); ok {
		t.Error("non-numeric string accepted")
	}
	if _, ok := numeric(nil); ok {
		t.Error("nil accepted")
	}
}

func TestWalletNormalize(t *testing.T) {
	w := WalletProfile{Balance: -5}
	w.Normalize()
	if w.Balance != 0 {
		t.Errorf("negative balance must clamp to zero, got %v", w.Balance)
	}
	if w.Main.Bank != DefaultBankName || w.Alt.Bank != DefaultBankName {
		t.Errorf("missing bank names must default, got %q / %q", w.Main.Bank, w.Alt.Bank)
	}

	w = WalletProfile{Main: BankAccount{Bank: "GTB"}}
	w.Normalize()
	if w.Main.Bank != "GTB" {
		t.Error("existing bank name must be kept")
	}
}

func TestSessionResetFlows(t *testing.T) {
	sess := NewSession("2348100000001")
	sess.Login = &LoginData{}
	sess.Reg = &RegistrationData{FirstName: "Ada"}
	sess.Airtime = &AirtimeOrder{Network: "mtn"}
	sess.Data = &DataOrder{Network: "glo"}
	sess.Cable = &CableOrder{Provider: "dstv"}
	sess.Bill = &BillOrder{Meter: "1"}
	sess.UserID = "u-1"

	sess.ResetFlows()
	if sess.Login != nil || sess.Reg != nil || sess.Airtime != nil ||
		sess.Data != nil || sess.Cable != nil || sess.Bill != nil {
		t.Error("ResetFlows must clear all flow records")
	}
	if sess.UserID != "u-1" {
		t.Error("ResetFlows must not touch the bound user")
	}
}

func TestStepsCoverRequiresAuth(t *testing.T) {
	// Every named step answers RequiresAuth without panicking, and the
	// post-login menu step requires auth while welcome does not.
	for _, step := range Steps() {
		_ = step.RequiresAuth()
	}
	if StepWelcome.RequiresAuth() {
		t.Error("welcome must not require auth")
	}
	if !StepLoggedIn.RequiresAuth() {
		t.Error("logged-in menu must require auth")
	}
}
