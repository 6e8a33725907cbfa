package dispatch

import (
	"strings"
	"testing"
)

func TestClassifyPrecedence(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		body       string
		kind       ResponseKind
		status     string
		detail     string
	}{
		{
			name:       "json with ids",
			statusCode: 200,
			body:       `{"ids":["a","b"],"success":false}`,
			kind:       KindJSONWithIDs,
			status:     StatusSuccess,
			detail:     "Command queued successfully",
		},
		{
			name:       "json success flag",
			statusCode: 200,
			body:       `{"success":true}`,
			kind:       KindJSONSuccessFlag,
			status:     StatusSuccess,
			detail:     `{"success":true}`,
		},
		{
			name:       "json success flag falsy",
			statusCode: 200,
			body:       `{"success":false,"reason":"quota"}`,
			kind:       KindJSONOther,
			status:     StatusFailed,
			detail:     `API returned unsuccessful response: {"success":false,"reason":"quota"}`,
		},
		{
			name:       "json object without signals",
			statusCode: 200,
			body:       `{"queued":0}`,
			kind:       KindJSONOther,
			status:     StatusFailed,
			detail:     `API returned unsuccessful response: {"queued":0}`,
		},
		{
			name:       "json non object",
			statusCode: 200,
			body:       `[1,2,3]`,
			kind:       KindJSONOther,
			status:     StatusFailed,
			detail:     "Unexpected API response format: [1,2,3]",
		},
		{
			name:       "plain text success hint",
			statusCode: 200,
			body:       "Commands queued SUCCESSfully",
			kind:       KindTextSuccessHint,
			status:     StatusSuccess,
			detail:     "Commands queued SUCCESSfully",
		},
		{
			name:       "plain text other",
			statusCode: 200,
			body:       "<html>maintenance</html>",
			kind:       KindTextOther,
			status:     StatusFailed,
			detail:     "Invalid JSON response: <html>maintenance</html>",
		},
		{
			name:       "http error",
			statusCode: 503,
			body:       "overloaded",
			kind:       KindHTTPError,
			status:     StatusFailed,
			detail:     "API Error 503: overloaded",
		},
		{
			name:       "http error wins over success body",
			statusCode: 500,
			body:       `{"ids":["a"]}`,
			kind:       KindHTTPError,
			status:     StatusFailed,
			detail:     `API Error 500: {"ids":["a"]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := Classify(tc.statusCode, []byte(tc.body))
			if outcome.Kind != tc.kind {
				t.Fatalf("expected kind %d, got %d", tc.kind, outcome.Kind)
			}
			if outcome.Status != tc.status {
				t.Fatalf("expected status %s, got %s", tc.status, outcome.Status)
			}
			if outcome.Detail != tc.detail {
				t.Fatalf("expected detail %q, got %q", tc.detail, outcome.Detail)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	falsy := []any{nil, false, "", float64(0), []any{}, map[string]any{}}
	for _, v := range falsy {
		if truthy(v) {
			t.Fatalf("expected %#v to be falsy", v)
		}
	}
	truths := []any{true, "yes", float64(1), []any{1}, map[string]any{"k": 1}}
	for _, v := range truths {
		if !truthy(v) {
			t.Fatalf("expected %#v to be truthy", v)
		}
	}
}

func TestClassifyTrimsBody(t *testing.T) {
	outcome := Classify(200, []byte("  queued with success \n"))
	if outcome.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", outcome.Status)
	}
	if strings.HasPrefix(outcome.Detail, " ") || strings.HasSuffix(outcome.Detail, "\n") {
		t.Fatalf("expected trimmed detail, got %q", outcome.Detail)
	}
}
