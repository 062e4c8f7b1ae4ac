// Package models defines state management structures for vtubot dialogues.
package models

import "time"

// Step identifies the current position of a conversation in the dialogue
// state machine.
type Step string

const (
	StepWelcome Step = "welcome"

	StepLoginPhone Step = "login_phone"
	StepLoginPIN   Step = "login_pin"

	StepRegFirst    Step = "reg_first"
	StepRegLast     Step = "reg_last"
	StepRegUsername Step = "reg_username"
	StepRegEmail    Step = "reg_email"
	StepRegPhone    Step = "reg_phone"
	StepRegPassword Step = "reg_password"
	StepRegPIN      Step = "reg_pin"

	StepServicesMenu Step = "services_menu"
	StepLoggedIn     Step = "logged_in"

	StepAirtimeNetwork    Step = "airtime_network"
	StepAirtimeAmount     Step = "airtime_amount"
	StepAirtimeAmount2    Step = "airtime_amount2"
	StepAirtimeType       Step = "airtime_type"
	StepAirtimeConfirmPIN Step = "airtime_confirm_pin"

	StepDataNetwork    Step = "data_network"
	StepDataChoosePlan Step = "data_choose_plan"
	StepDataAskPhone   Step = "data_ask_phone"
	StepDataConfirmPIN Step = "data_confirm_pin"
	StepDataManualPlan Step = "data_ask_plan_manual"

	StepCableProvider   Step = "cable_provider"
	StepCableChoosePlan Step = "cable_choose_plan"
	StepCableAskIUC     Step = "cable_ask_iuc"
	StepCableConfirmPIN Step = "cable_confirm_pin"
	StepCableManualPlan Step = "cable_ask_plan_manual"

	StepBillProvider   Step = "bill_provider"
	StepBillAskMeter   Step = "bill_ask_meter"
	StepBillAskAmount  Step = "bill_ask_amount"
	StepBillConfirmPIN Step = "bill_confirm_pin"
)

// Steps returns every dialogue step. The engine's dispatch table is checked
// against this list for exhaustiveness in tests.
func Steps() []Step {
	return []Step{
		StepWelcome,
		StepLoginPhone, StepLoginPIN,
		StepRegFirst, StepRegLast, StepRegUsername, StepRegEmail,
		StepRegPhone, StepRegPassword, StepRegPIN,
		StepServicesMenu, StepLoggedIn,
		StepAirtimeNetwork, StepAirtimeAmount, StepAirtimeAmount2,
		StepAirtimeType, StepAirtimeConfirmPIN,
		StepDataNetwork, StepDataChoosePlan, StepDataAskPhone,
		StepDataConfirmPIN, StepDataManualPlan,
		StepCableProvider, StepCableChoosePlan, StepCableAskIUC,
		StepCableConfirmPIN, StepCableManualPlan,
		StepBillProvider, StepBillAskMeter, StepBillAskAmount,
		StepBillConfirmPIN,
	}
}

// RequiresAuth reports whether a step is only reachable by an authenticated
// session. A session at such a step without a user ID is corrupted and must
// be cleared.
func (s Step) RequiresAuth() bool {
	switch s {
	case StepLoggedIn,
		StepAirtimeConfirmPIN, StepDataConfirmPIN,
		StepCableConfirmPIN, StepBillConfirmPIN:
		return true
	}
	return false
}

// LoginData accumulates input across the login flow.
type LoginData struct {
	Phone string `json:"phone,omitempty"`
}

// RegistrationData accumulates input across the seven registration steps.
type RegistrationData struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
}

// AirtimeOrder accumulates input across the airtime purchase flow.
type AirtimeOrder struct {
	Network string  `json:"network,omitempty"`
	Target  string  `json:"target,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Type    string  `json:"type,omitempty"`
}

// DataOrder accumulates input across the data purchase flow. Plans holds the
// candidate list shown to the user so a later message can select by index.
type DataOrder struct {
	Network  string `json:"network,omitempty"`
	Plans    []Plan `json:"plans,omitempty"`
	Selected *Plan  `json:"selected,omitempty"`
	Target   string `json:"target,omitempty"`
}

// CableOrder accumulates input across the cable purchase flow.
type CableOrder struct {
	Provider string `json:"provider,omitempty"`
	Plans    []Plan `json:"plans,omitempty"`
	Selected *Plan  `json:"selected,omitempty"`
	IUC      string `json:"iuc,omitempty"`
}

// BillOrder accumulates input across the electricity bill flow.
type BillOrder struct {
	Provider      string  `json:"provider,omitempty"`
	ProviderIndex int     `json:"provider_index,omitempty"`
	Meter         string  `json:"meter,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
}

// Session is the per-identifier conversation state. Each in-progress flow
// keeps its own typed record so handlers never see fields of another flow.
type Session struct {
	Phone  string `json:"phone"`
	Step   Step   `json:"step"`
	UserID string `json:"user_id,omitempty"`

	Login   *LoginData        `json:"login,omitempty"`
	Reg     *RegistrationData `json:"reg,omitempty"`
	Airtime *AirtimeOrder     `json:"airtime,omitempty"`
	Data    *DataOrder        `json:"data,omitempty"`
	Cable   *CableOrder       `json:"cable,omitempty"`
	Bill    *BillOrder        `json:"bill,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session at the welcome step.
func NewSession(phone string) *Session {
	now := time.Now()
	return &Session{Phone: phone, Step: StepWelcome, CreatedAt: now, UpdatedAt: now}
}

// ResetFlows drops all accumulated flow data while keeping authentication.
func (s *Session) ResetFlows() {
	s.Login = nil
	s.Reg = nil
	s.Airtime = nil
	s.Data = nil
	s.Cable = nil
	s.Bill = nil
}
