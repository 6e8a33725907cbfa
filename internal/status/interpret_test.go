package status

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"bee-console/internal/roambee"
)

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func raw(v string) json.RawMessage { return json.RawMessage(v) }

func record(imei string, state int) roambee.CommandRecord {
	return roambee.CommandRecord{
		IMEI:        imei,
		State:       intPtr(state),
		CreatedDate: raw("1700000000"),
		UpdatedDate: raw("1700000100"),
		DeviceType:  "GV300",
		BeeNumber:   "B-1",
	}
}

func TestInterpretBatchSynthesizesNotFound(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	page := &roambee.CommandPage{Total: 1, Data: []roambee.CommandRecord{record("111111111111", 3)}}

	rows, counters := it.InterpretBatch([]string{"111111111111", "222222222222"}, page)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Status != StatusCompleted {
		t.Fatalf("expected Completed for first row, got %s", rows[0].Status)
	}
	missing := rows[1]
	if missing.IMEI != "222222222222" || missing.Status != StatusNotFound {
		t.Fatalf("unexpected synthetic row: %+v", missing)
	}
	if missing.Message != "No commands in date range" || missing.SentCommand != "N/A" {
		t.Fatalf("unexpected synthetic row fields: %+v", missing)
	}
	if counters.Completed != 1 || counters.NotFound != 1 {
		t.Fatalf("unexpected counters: %+v", counters)
	}
}

func TestInterpretBatchEmptyPageAllNotFound(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	rows, counters := it.InterpretBatch([]string{"111111111111", "222222222222"}, &roambee.CommandPage{Total: 0})

	if len(rows) != 2 || counters.NotFound != 2 {
		t.Fatalf("expected 2 not-found rows, got %d rows counters %+v", len(rows), counters)
	}
}

func TestInterpretBatchBulkKeepsAllRecords(t *testing.T) {
	page := &roambee.CommandPage{Total: 3, Data: []roambee.CommandRecord{
		record("111111111111", 3),
		record("111111111111", 1),
		record("111111111111", 0),
	}}

	single := Interpreter{Location: time.UTC}
	rows, counters := single.InterpretBatch([]string{"111111111111"}, page)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row without bulk, got %d", len(rows))
	}
	if rows[0].Status != StatusCompleted {
		t.Fatalf("expected the first record to win, got %s", rows[0].Status)
	}
	if counters.Completed != 1 || counters.Total() != 1 {
		t.Fatalf("unexpected counters: %+v", counters)
	}

	bulk := Interpreter{Bulk: true, Location: time.UTC}
	rows, counters = bulk.InterpretBatch([]string{"111111111111"}, page)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows with bulk, got %d", len(rows))
	}
	if counters.Completed != 1 || counters.Sent != 1 || counters.Pending != 1 {
		t.Fatalf("unexpected bulk counters: %+v", counters)
	}
}

func TestInterpretRecordFields(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	rec := record("111111111111", 4)
	rec.ErrorMessage = "device offline"
	rec.Message = "0000" + hex.EncodeToString([]byte("ignored"))
	rec.RequesterFirstName = strPtr("Ada")
	rec.RequesterLastName = strPtr("Lovelace")

	rows, _ := it.InterpretBatch([]string{"111111111111"}, &roambee.CommandPage{Total: 1, Data: []roambee.CommandRecord{rec}})

	row := rows[0]
	if row.Status != StatusFailed {
		t.Fatalf("expected Failed, got %s", row.Status)
	}
	if row.Message != "device offline" {
		t.Fatalf("unexpected message: %q", row.Message)
	}
	if row.Created != "2023-11-14 22:13:20" || row.Updated != "2023-11-14 22:15:00" {
		t.Fatalf("unexpected timestamps: %q / %q", row.Created, row.Updated)
	}
	if row.RequestedBy != "Ada Lovelace" {
		t.Fatalf("unexpected requester: %q", row.RequestedBy)
	}
	if row.SentCommand != rec.Message {
		t.Fatalf("expected non-embedding message passthrough, got %q", row.SentCommand)
	}
	if row.DeviceType != "GV300" || row.BeeNumber != "B-1" {
		t.Fatalf("unexpected device fields: %+v", row)
	}
}

func TestInterpretRecordExtractsEmbeddedCommand(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	rec := record("111111111111", 3)
	rec.DeviceType = "BSFlex"
	rec.Message = "00000000000000000000000000000000000000" + hex.EncodeToString([]byte("AT+GTRTO=1")) + "FFFF"

	rows, _ := it.InterpretBatch([]string{"111111111111"}, &roambee.CommandPage{Total: 1, Data: []roambee.CommandRecord{rec}})
	if rows[0].SentCommand != "AT+GTRTO=1" {
		t.Fatalf("expected decoded command, got %q", rows[0].SentCommand)
	}
}

func TestInterpretRecordMissingStateIsUnknown(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	rec := record("111111111111", 0)
	rec.State = nil

	rows, counters := it.InterpretBatch([]string{"111111111111"}, &roambee.CommandPage{Total: 1, Data: []roambee.CommandRecord{rec}})
	if rows[0].Status != "Unknown state (-1)" {
		t.Fatalf("expected unknown-state status, got %q", rows[0].Status)
	}
	if counters.Failed != 1 {
		t.Fatalf("unknown state must count as failed: %+v", counters)
	}
}

func TestRequesterNameFallbacks(t *testing.T) {
	cases := []struct {
		name   string
		record roambee.CommandRecord
		want   string
	}{
		{
			name: "joined names",
			record: roambee.CommandRecord{
				RequesterFirstName: strPtr("Grace"),
				RequesterLastName:  strPtr("Hopper"),
				RequestBy:          raw("42"),
			},
			want: "Grace Hopper",
		},
		{
			name:   "numeric id",
			record: roambee.CommandRecord{RequestBy: raw("42")},
			want:   "42",
		},
		{
			name:   "string id",
			record: roambee.CommandRecord{RequestBy: raw(`"ops@example.com"`)},
			want:   "ops@example.com",
		},
		{
			name:   "absent",
			record: roambee.CommandRecord{},
			want:   "Unknown",
		},
		{
			name:   "null",
			record: roambee.CommandRecord{RequestBy: raw("null")},
			want:   "Unknown",
		},
	}
	for _, tc := range cases {
		if got := requesterName(tc.record); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFormatEpochTolerance(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	cases := []struct {
		raw  string
		want string
	}{
		{"1700000000", "2023-11-14 22:13:20"},
		{"1700000000.0", "2023-11-14 22:13:20"},
		{"null", "N/A"},
		{"", "N/A"},
		{`"soon"`, "N/A"},
	}
	for _, tc := range cases {
		if got := it.formatEpoch(raw(tc.raw)); got != tc.want {
			t.Fatalf("formatEpoch(%q): expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}

func TestFailBatchDegradesEveryIdentifier(t *testing.T) {
	it := Interpreter{Location: time.UTC}
	rows, counters := it.FailBatch([]string{"111111111111", "222222222222"}, "API Error: 502 - bad gateway")

	if len(rows) != 2 || counters.Failed != 2 {
		t.Fatalf("expected 2 failed rows, got %d rows counters %+v", len(rows), counters)
	}
	for _, row := range rows {
		if row.Status != StatusError || row.Message != "API Error: 502 - bad gateway" {
			t.Fatalf("unexpected degraded row: %+v", row)
		}
	}
}
