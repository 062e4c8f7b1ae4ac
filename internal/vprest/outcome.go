package vprest

import (
	"strconv"

	"github.com/sregle/vtubot/internal/models"
)

// SuccessStatusCode is the numeric status the provider returns on success.
const SuccessStatusCode = "100"

// UnknownErrorMessage is surfaced when no provider message field is present.
const UnknownErrorMessage = "Unknown error"

// Alias key lists for the provider's response fields. Casing varies per
// upstream version; the first present key wins.
var (
	previousBalanceKeys = []string{"Previous_Balance", "PreviousBalance"}
	currentBalanceKeys  = []string{"Current_Balance", "CurrentBalance"}
	messageKeys         = []string{"Message", "message", "Response"}
)

// ParseOutcome interprets a raw provider response. Success requires either
// Status equal to the fixed success code, or a Successful flag that is
// boolean true or the string "true".
func ParseOutcome(payload map[string]interface{}) models.Outcome {
	var out models.Outcome

	if v, ok := payload["Status"]; ok && asString(v) == SuccessStatusCode {
		out.Success = true
	}
	if v, ok := payload["Successful"]; ok && !out.Success {
		switch t := v.(type) {
		case bool:
			out.Success = t
		case string:
			out.Success = t == "true"
		}
	}

	out.PreviousBalance = firstNumeric(payload, previousBalanceKeys)
	out.CurrentBalance = firstNumeric(payload, currentBalanceKeys)

	if !out.Success {
		out.Message = UnknownErrorMessage
		for _, k := range messageKeys {
			if v, ok := payload[k]; ok {
				if s := asString(v); s != "" {
					out.Message = s
					break
				}
			}
		}
	}
	return out
}

func firstNumeric(payload map[string]interface{}, keys []string) *float64 {
	for _, k := range keys {
		v, ok := payload[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			f := t
			return &f
		case string:
			if f, err := strconv.ParseFloat(t, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
