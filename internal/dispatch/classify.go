package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ResponseKind tags how a send response was recognized. Kinds are evaluated
// in declaration order; the first match wins.
type ResponseKind int

const (
	// KindJSONWithIDs is a 200 JSON object carrying an "ids" key: the
	// platform queued the batch.
	KindJSONWithIDs ResponseKind = iota
	// KindJSONSuccessFlag is a 200 JSON object whose "success" field is
	// truthy.
	KindJSONSuccessFlag
	// KindJSONOther is any other 200 JSON body, including non-object JSON.
	KindJSONOther
	// KindTextSuccessHint is a 200 non-JSON body containing "success"
	// case-insensitively. Some platform deployments answer plain text.
	KindTextSuccessHint
	// KindTextOther is any other 200 non-JSON body.
	KindTextOther
	// KindHTTPError is any non-200 answer.
	KindHTTPError
)

// Outcome is the normalized interpretation of one send response.
type Outcome struct {
	Kind   ResponseKind
	Status string
	Detail string
}

// Classify maps a raw send response onto an Outcome. The precedence is part
// of the external contract and must not be reordered.
func Classify(statusCode int, body []byte) Outcome {
	text := strings.TrimSpace(string(body))

	if statusCode != http.StatusOK {
		return Outcome{
			Kind:   KindHTTPError,
			Status: StatusFailed,
			Detail: fmt.Sprintf("API Error %d: %s", statusCode, text),
		}
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err == nil {
		obj, isObject := decoded.(map[string]any)
		if !isObject {
			return Outcome{
				Kind:   KindJSONOther,
				Status: StatusFailed,
				Detail: "Unexpected API response format: " + text,
			}
		}
		if _, hasIDs := obj["ids"]; hasIDs {
			return Outcome{
				Kind:   KindJSONWithIDs,
				Status: StatusSuccess,
				Detail: "Command queued successfully",
			}
		}
		if truthy(obj["success"]) {
			return Outcome{
				Kind:   KindJSONSuccessFlag,
				Status: StatusSuccess,
				Detail: text,
			}
		}
		return Outcome{
			Kind:   KindJSONOther,
			Status: StatusFailed,
			Detail: "API returned unsuccessful response: " + text,
		}
	}

	if strings.Contains(strings.ToLower(text), "success") {
		return Outcome{
			Kind:   KindTextSuccessHint,
			Status: StatusSuccess,
			Detail: text,
		}
	}
	return Outcome{
		Kind:   KindTextOther,
		Status: StatusFailed,
		Detail: "Invalid JSON response: " + text,
	}
}

// truthy mirrors the platform's loose success flag: absent, false, zero,
// empty string, empty array and empty object all count as false.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
