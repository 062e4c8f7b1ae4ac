package models

import (
	"strconv"
	"time"
)

// PlanKind distinguishes the two catalog areas that carry priced plans.
const (
	PlanKindData  = "data"
	PlanKindCable = "cable"
)

// Plan is a priced catalog entry (data bundle or cable package).
type Plan struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Kind     string  `json:"kind,omitempty"`
	Network  string  `json:"network,omitempty"`
	Provider string  `json:"provider,omitempty"`
	PlanType string  `json:"plan_type,omitempty"`
	Manual   bool    `json:"manual,omitempty"`
}

// ServicesCache is the stored result of the last admin catalog fetch.
type ServicesCache struct {
	FetchedAt time.Time                `json:"fetched_at"`
	Source    string                   `json:"source"`
	Data      []map[string]interface{} `json:"data,omitempty"`
	Cable     []map[string]interface{} `json:"cable,omitempty"`
}

// Alias key lists for the loosely-typed plan payloads the provider returns.
// Field names vary per upstream API version; the first present key wins.
var (
	planIDKeys     = []string{"id", "Plan_Code", "plan_id", "product_id", "code", "plan"}
	planNameKeys   = []string{"name", "Data_Plan", "DataPlan", "Plan", "product"}
	planAmountKeys = []string{"amount", "Amount", "Price", "value"}
)

// PlanFromMap maps a raw provider plan object onto the canonical Plan record.
// It tolerates every known key variant; unknown shapes yield zero fields
// rather than an error so one malformed entry never poisons a list.
func PlanFromMap(raw map[string]interface{}) Plan {
	var p Plan
	for _, k := range planIDKeys {
		if v, ok := raw[k]; ok {
			if s := stringify(v); s != "" {
				p.ID = s
				break
			}
		}
	}
	for _, k := range planNameKeys {
		if v, ok := raw[k]; ok {
			if s := stringify(v); s != "" {
				p.Name = s
				break
			}
		}
	}
	for _, k := range planAmountKeys {
		if v, ok := raw[k]; ok {
			if f, ok := numeric(v); ok {
				p.Amount = f
				break
			}
		}
	}
	if v, ok := raw["network"]; ok {
		p.Network = stringify(v)
	} else if v, ok := raw["Network"]; ok {
		p.Network = stringify(v)
	}
	if v, ok := raw["provider"]; ok {
		p.Provider = stringify(v)
	}
	if v, ok := raw["type"]; ok {
		p.PlanType = stringify(v)
	}
	return p
}

// stringify renders scalar JSON values as strings; floats that are whole
// numbers drop the fraction so plan ids like 7.0 match user input "7".
func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// numeric extracts a float from numbers or numeric strings.
func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
