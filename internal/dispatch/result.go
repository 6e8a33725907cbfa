// Package dispatch broadcasts a command to batches of identifiers through
// the fleet send endpoint and turns each batch's single remote outcome into
// per-identifier result rows.
package dispatch

// Statuses of a per-identifier command result row. Error means the call never
// reached the platform; Failed means the platform rejected it.
const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
	StatusError   = "Error"
)

// Result is one per-identifier command outcome. A batch covers N identifiers
// with one API call, so every identifier of a batch shares that batch's
// outcome.
type Result struct {
	IMEI      string `json:"imei"`
	Command   string `json:"command"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}
