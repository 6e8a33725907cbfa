// Package roambee is a minimal REST client for the Roambee fleet platform:
// the command send endpoint and the bee_commands autocrud query endpoint.
package roambee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every outbound call; a timed-out call degrades only
// its own batch.
const DefaultTimeout = 30 * time.Second

// ErrMalformedResponse marks a 200 response whose body could not be decoded.
var ErrMalformedResponse = errors.New("roambee: malformed response")

// APIError is a non-200 answer from the platform.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("roambee: api error %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Roambee REST services.
type Client struct {
	sendURL       string
	statusBaseURL string
	apiKey        string
	client        *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout overrides the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// NewClient constructs a Roambee client.
func NewClient(sendURL, statusBaseURL, apiKey string, opts ...Option) (*Client, error) {
	if sendURL == "" {
		return nil, errors.New("roambee: empty send url")
	}
	if statusBaseURL == "" {
		return nil, errors.New("roambee: empty status base url")
	}
	if apiKey == "" {
		return nil, errors.New("roambee: empty api key")
	}
	c := &Client{
		sendURL:       sendURL,
		statusBaseURL: strings.TrimRight(statusBaseURL, "/"),
		apiKey:        apiKey,
		client:        &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// commandPayload is the inner send payload; it travels JSON-string-encoded
// inside the envelope's data field. Protocol is fixed to the device wire
// protocol and no password is attached.
type commandPayload struct {
	Protocol string   `json:"protocol"`
	IMEIs    []string `json:"imeis"`
	Commands []string `json:"commands"`
	Password *string  `json:"password"`
}

type sendEnvelope struct {
	Data string `json:"data"`
}

// SendCommands posts one command to every IMEI of a batch in a single call
// and returns the raw HTTP status and body for classification. A non-nil
// error means the call never produced a response (timeout, connection
// failure).
func (c *Client) SendCommands(ctx context.Context, imeis []string, command string) (int, []byte, error) {
	if len(imeis) == 0 {
		return 0, nil, errors.New("roambee: empty batch")
	}
	if command == "" {
		return 0, nil, errors.New("roambee: empty command")
	}
	inner, err := json.Marshal(commandPayload{
		Protocol: "WIRE",
		IMEIs:    imeis,
		Commands: []string{command},
	})
	if err != nil {
		return 0, nil, err
	}
	payload, err := json.Marshal(sendEnvelope{Data: string(inner)})
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// CommandPage is one page of command records.
type CommandPage struct {
	Total int             `json:"total"`
	Data  []CommandRecord `json:"data"`
}

// CommandRecord is a raw bee_commands row joined against the bees and users
// tables. Pointer fields distinguish absent keys from zero values, which the
// interpreter cares about.
type CommandRecord struct {
	IMEI               string          `json:"imei"`
	State              *int            `json:"state"`
	Message            string          `json:"msg"`
	ErrorMessage       string          `json:"error_message"`
	CreatedDate        json.RawMessage `json:"created_date"`
	UpdatedDate        json.RawMessage `json:"updated_date"`
	RequestBy          json.RawMessage `json:"request_by"`
	DeviceType         string          `json:"bees__device_type"`
	BeeNumber          string          `json:"bees__bee_number"`
	RequesterFirstName *string         `json:"request_by__first_name"`
	RequesterLastName  *string         `json:"request_by__last_name"`
}

// FetchCommandRecords queries command records for a batch of IMEIs created
// within [startEpoch, endEpoch]. The page is sorted newest-first by the
// remote service; callers relying on "first record is the most recent"
// depend on that sort, which this query pins explicitly.
func (c *Client) FetchCommandRecords(ctx context.Context, imeis []string, startEpoch, endEpoch int64) (*CommandPage, error) {
	if len(imeis) == 0 {
		return nil, errors.New("roambee: empty batch")
	}
	encoded, err := newStatusQuery(imeis, startEpoch, endEpoch).encode()
	if err != nil {
		return nil, err
	}
	url := c.statusBaseURL + "?rbql=" + encoded + "&isResellerAdmin=true"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var page CommandPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &page, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
}
