// Package status reconciles command delivery state for batches of
// identifiers: it queries the fleet command-record table, normalizes raw
// state codes into a fixed status taxonomy and tallies per-status counters.
package status

import "fmt"

// Normalized statuses of a reconciliation row.
const (
	StatusCompleted    = "Completed"
	StatusFailed       = "Failed"
	StatusPending      = "Pending"
	StatusSent         = "Sent"
	StatusAcknowledged = "Acknowledged"
	StatusNotFound     = "Not Found"
	StatusError        = "Error"
)

// Counter bucket names. NotFound and Error rows fold into not_found and
// failed respectively.
const (
	BucketCompleted    = "completed"
	BucketPending      = "pending"
	BucketSent         = "sent"
	BucketAcknowledged = "acknowledged"
	BucketFailed       = "failed"
	BucketNotFound     = "not_found"
)

// Result is one normalized status row. There may be zero, one or many rows
// per identifier depending on matching records and the bulk flag; an
// identifier with no matches still yields one synthetic NotFound row.
type Result struct {
	IMEI        string `json:"imei"`
	SentCommand string `json:"sent_command"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Created     string `json:"created"`
	Updated     string `json:"updated"`
	RequestedBy string `json:"requested_by"`
	DeviceType  string `json:"device_type"`
	BeeNumber   string `json:"bee_number"`
}

// Counters is the fixed-key tally incremented once per emitted row.
type Counters struct {
	Completed    int `json:"completed"`
	Pending      int `json:"pending"`
	Sent         int `json:"sent"`
	Acknowledged int `json:"acknowledged"`
	Failed       int `json:"failed"`
	NotFound     int `json:"not_found"`
}

// Add accumulates other into c.
func (c *Counters) Add(other Counters) {
	c.Completed += other.Completed
	c.Pending += other.Pending
	c.Sent += other.Sent
	c.Acknowledged += other.Acknowledged
	c.Failed += other.Failed
	c.NotFound += other.NotFound
}

// Total is the number of counted rows.
func (c Counters) Total() int {
	return c.Completed + c.Pending + c.Sent + c.Acknowledged + c.Failed + c.NotFound
}

// Buckets returns the tally keyed by bucket name.
func (c Counters) Buckets() map[string]int {
	return map[string]int{
		BucketCompleted:    c.Completed,
		BucketPending:      c.Pending,
		BucketSent:         c.Sent,
		BucketAcknowledged: c.Acknowledged,
		BucketFailed:       c.Failed,
		BucketNotFound:     c.NotFound,
	}
}

func (c *Counters) inc(bucket string) {
	switch bucket {
	case BucketCompleted:
		c.Completed++
	case BucketPending:
		c.Pending++
	case BucketSent:
		c.Sent++
	case BucketAcknowledged:
		c.Acknowledged++
	case BucketFailed:
		c.Failed++
	case BucketNotFound:
		c.NotFound++
	}
}

// MapState maps a raw command-record state code onto a normalized status and
// its counter bucket. The mapping is part of the external contract:
//
//	3    -> Completed / completed
//	4, 5 -> Failed / failed
//	0    -> Pending / pending
//	1    -> Sent / sent
//	2    -> Acknowledged / acknowledged
//	else -> "Unknown state (<v>)" / failed
func MapState(state int) (string, string) {
	switch state {
	case 3:
		return StatusCompleted, BucketCompleted
	case 4, 5:
		return StatusFailed, BucketFailed
	case 0:
		return StatusPending, BucketPending
	case 1:
		return StatusSent, BucketSent
	case 2:
		return StatusAcknowledged, BucketAcknowledged
	default:
		return fmt.Sprintf("Unknown state (%d)", state), BucketFailed
	}
}
