package status

import (
	"encoding/json"
	"fmt"
	"time"

	"bee-console/internal/roambee"
)

const notAvailable = "N/A"

// Interpreter maps one batch's raw command records onto normalized rows.
//
// Record order inside a group follows the remote response, which the query
// pins to created_date descending; with Bulk false "the first record" is
// therefore the most recent one. That sort is an explicit dependency on the
// remote contract, not an incidental observation.
type Interpreter struct {
	// Bulk keeps every matching record per identifier instead of only the
	// most recent one.
	Bulk bool
	// Location renders epoch timestamps; nil means local time.
	Location *time.Location
}

// InterpretBatch produces rows for every identifier of the batch. Grouping
// is a lookup keyed by identifier; identifiers without records yield exactly
// one synthetic NotFound row, so no input identifier is ever silently
// dropped.
func (it Interpreter) InterpretBatch(batch []string, page *roambee.CommandPage) ([]Result, Counters) {
	grouped := make(map[string][]roambee.CommandRecord)
	if page != nil && page.Total > 0 {
		for _, record := range page.Data {
			grouped[record.IMEI] = append(grouped[record.IMEI], record)
		}
	}

	var counters Counters
	results := make([]Result, 0, len(batch))
	for _, id := range batch {
		records := grouped[id]
		if len(records) == 0 {
			counters.inc(BucketNotFound)
			results = append(results, notFoundRow(id))
			continue
		}
		if !it.Bulk {
			records = records[:1]
		}
		for _, record := range records {
			results = append(results, it.interpretRecord(id, record, &counters))
		}
	}
	return results, counters
}

// FailBatch degrades every identifier of the batch to an Error row carrying
// message, counting each under failed. Used when the whole batch call failed
// or its response was malformed.
func (it Interpreter) FailBatch(batch []string, message string) ([]Result, Counters) {
	var counters Counters
	results := make([]Result, 0, len(batch))
	for _, id := range batch {
		counters.inc(BucketFailed)
		results = append(results, Result{
			IMEI:        id,
			SentCommand: notAvailable,
			Status:      StatusError,
			Message:     message,
			Created:     notAvailable,
			Updated:     notAvailable,
			RequestedBy: notAvailable,
			DeviceType:  notAvailable,
			BeeNumber:   notAvailable,
		})
	}
	return results, counters
}

func (it Interpreter) interpretRecord(id string, record roambee.CommandRecord, counters *Counters) Result {
	state := -1
	if record.State != nil {
		state = *record.State
	}
	normalized, bucket := MapState(state)
	counters.inc(bucket)

	deviceType := orNA(record.DeviceType)
	rawMessage := orNA(record.Message)

	return Result{
		IMEI:        id,
		SentCommand: ExtractCommand(rawMessage, deviceType),
		Status:      normalized,
		Message:     record.ErrorMessage,
		Created:     it.formatEpoch(record.CreatedDate),
		Updated:     it.formatEpoch(record.UpdatedDate),
		RequestedBy: requesterName(record),
		DeviceType:  deviceType,
		BeeNumber:   orNA(record.BeeNumber),
	}
}

func notFoundRow(id string) Result {
	return Result{
		IMEI:        id,
		SentCommand: notAvailable,
		Status:      StatusNotFound,
		Message:     "No commands in date range",
		Created:     notAvailable,
		Updated:     notAvailable,
		RequestedBy: notAvailable,
		DeviceType:  notAvailable,
		BeeNumber:   notAvailable,
	}
}

// requesterName prefers the joined first+last name, falls back to the raw
// requester id and finally to "Unknown".
func requesterName(record roambee.CommandRecord) string {
	if record.RequesterFirstName != nil && record.RequesterLastName != nil {
		return *record.RequesterFirstName + " " + *record.RequesterLastName
	}
	if raw := rawString(record.RequestBy); raw != "" {
		return raw
	}
	return "Unknown"
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// Requester ids are integers; render them without an exponent.
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprint(v)
	}
}

// formatEpoch renders epoch seconds as a local-time string; null or
// unparseable values render as "N/A".
func (it Interpreter) formatEpoch(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return notAvailable
	}
	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err != nil {
		return notAvailable
	}
	loc := it.Location
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(int64(epoch), 0).In(loc).Format(timeFormat)
}

func orNA(value string) string {
	if value == "" {
		return notAvailable
	}
	return value
}
