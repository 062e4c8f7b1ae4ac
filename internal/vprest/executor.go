package vprest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/sregle/vtubot/internal/models"
	"github.com/sregle/vtubot/internal/users"
)

// Order carries the kind-specific fields of a confirmed purchase. Exactly
// one of the flow records is consulted per kind.
type Order struct {
	Airtime *models.AirtimeOrder
	Data    *models.DataOrder
	Cable   *models.CableOrder
	Bill    *models.BillOrder
}

// Executor builds provider purchase requests from confirmed order data,
// interprets the response, and updates the cached wallet balance on success.
type Executor struct {
	client    *Client
	directory *users.Directory
}

// NewExecutor creates a purchase executor.
func NewExecutor(client *Client, directory *users.Directory) *Executor {
	return &Executor{client: client, directory: directory}
}

// Execute performs a purchase of the given kind on behalf of the credential
// holder. The returned Outcome is user-presentable; the error is non-nil
// only for transport-level failures (unreachable API, unparseable body).
func (e *Executor) Execute(ctx context.Context, kind models.PurchaseKind, cred models.Credential, order Order) (models.Outcome, error) {
	args, err := buildArgs(kind, cred, order)
	if err != nil {
		return models.Outcome{}, err
	}

	payload, err := e.client.Call(ctx, args)
	if err != nil {
		return models.Outcome{}, err
	}

	outcome := ParseOutcome(payload)
	slog.Info("purchase executed", "kind", kind, "actor", cred.ExternalID, "success", outcome.Success)

	if outcome.Success && outcome.CurrentBalance != nil {
		if err := e.directory.SaveWalletBalance(ctx, cred.ExternalID, *outcome.CurrentBalance); err != nil {
			// The provider transaction already happened; a stale cached
			// balance corrects itself on the next successful purchase.
			slog.Error("failed to persist wallet balance", "error", err, "actor", cred.ExternalID)
		}
	}
	return outcome, nil
}

func buildArgs(kind models.PurchaseKind, cred models.Credential, order Order) (url.Values, error) {
	args := url.Values{}
	args.Set("q", string(kind))
	args.Set("id", cred.ExternalID)
	args.Set("apikey", cred.APIKey)

	switch kind {
	case models.PurchaseAirtime:
		if order.Airtime == nil {
			return nil, fmt.Errorf("airtime order data missing")
		}
		args.Set("phone", order.Airtime.Target)
		args.Set("amount", strconv.FormatFloat(order.Airtime.Amount, 'f', -1, 64))
		args.Set("network", order.Airtime.Network)
		args.Set("type", order.Airtime.Type)
	case models.PurchaseData:
		if order.Data == nil || order.Data.Selected == nil {
			return nil, fmt.Errorf("data order data missing")
		}
		planType := order.Data.Selected.PlanType
		if planType == "" {
			planType = "sme"
		}
		args.Set("phone", order.Data.Target)
		args.Set("network", order.Data.Network)
		args.Set("dataplan", order.Data.Selected.ID)
		args.Set("type", planType)
	case models.PurchaseCable:
		if order.Cable == nil || order.Cable.Selected == nil {
			return nil, fmt.Errorf("cable order data missing")
		}
		args.Set("type", order.Cable.Provider)
		args.Set("iuc", order.Cable.IUC)
		args.Set("plan", order.Cable.Selected.ID)
	case models.PurchaseBill:
		if order.Bill == nil {
			return nil, fmt.Errorf("bill order data missing")
		}
		args.Set("type", "prepaid")
		args.Set("meter_number", order.Bill.Meter)
		// Provider id doubles as the plan parameter in the bill operation.
		args.Set("plan", strconv.Itoa(order.Bill.ProviderIndex))
		args.Set("amount", strconv.Itoa(int(order.Bill.Amount)))
	default:
		return nil, fmt.Errorf("unsupported purchase kind %q", kind)
	}
	return args, nil
}
