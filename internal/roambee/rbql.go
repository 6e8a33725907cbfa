package roambee

import (
	"encoding/json"
	"net/url"
)

// pageSize caps the records returned per batch query. Only the first page is
// ever fetched; batches with more matching records accept truncation.
const pageSize = 500

// stateTimedOut is the terminal state the query excludes at the source; the
// interpreter still maps it to Failed when it shows up in older records.
const stateTimedOut = 5

type statusQuery struct {
	Pagination pagination `json:"pagination"`
	Filters    []filter   `json:"filters"`
	Sort       []sortKey  `json:"sort"`
	Joins      []join     `json:"joins"`
}

type pagination struct {
	PageSize int `json:"page_size"`
	PageNum  int `json:"page_num"`
}

type filter struct {
	Name      string `json:"name,omitempty"`
	Values    any    `json:"values,omitempty"`
	Value     any    `json:"value,omitempty"`
	Op        string `json:"op,omitempty"`
	IsNull    *bool  `json:"isNull,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

type sortKey struct {
	Name  string `json:"name"`
	Order string `json:"order"`
}

type join struct {
	JoinType            string      `json:"join_type"`
	TableName           string      `json:"table_name"`
	LeftTableAttribute  string      `json:"left_table_attribute"`
	RightTableAttribute string      `json:"right_table_attribute"`
	TableAlias          string      `json:"table_alias,omitempty"`
	Fields              []joinField `json:"fields"`
	Filters             []filter    `json:"filters,omitempty"`
}

type joinField struct {
	Name        string `json:"name"`
	ReadableKey string `json:"readable_key"`
}

// newStatusQuery builds the bee_commands query for one batch: IMEIs in the
// batch, creation time inside the inclusive epoch window, non-null non-blank
// IMEI, timed-out state excluded, newest first, joined against active bees
// and the requesting user's name.
func newStatusQuery(imeis []string, startEpoch, endEpoch int64) statusQuery {
	isNull := false
	return statusQuery{
		Pagination: pagination{PageSize: pageSize, PageNum: 1},
		Filters: []filter{
			{Name: "imei", Values: imeis, Op: "in"},
			{Name: "created_date", Op: "gte", Value: startEpoch},
			{Name: "created_date", Op: "lte", Value: endEpoch},
			{Name: "imei", IsNull: &isNull},
			{Name: "imei", Value: " ", Op: "ne"},
			{Name: "state", Values: []int{stateTimedOut}, Op: "ne"},
		},
		Sort: []sortKey{{Name: "created_date", Order: "desc"}},
		Joins: []join{
			{
				JoinType:            "left_join",
				TableName:           "bees",
				LeftTableAttribute:  "imei",
				RightTableAttribute: "imei",
				Fields: []joinField{
					{Name: "bee_number", ReadableKey: "Bee Number"},
					{Name: "device_type", ReadableKey: "Device Type"},
					{Name: "uuid", ReadableKey: "Bee UUID"},
				},
				Filters: []filter{
					{Value: 1, Name: "active", TableName: "bees"},
				},
			},
			{
				JoinType:            "left_join",
				TableName:           "users",
				LeftTableAttribute:  "request_by",
				RightTableAttribute: "id",
				TableAlias:          "request_by",
				Fields: []joinField{
					{Name: "first_name", ReadableKey: "Created By First Name"},
					{Name: "last_name", ReadableKey: "Created By Last Name"},
				},
			},
		},
	}
}

// encode serializes the query to compact JSON and percent-encodes it for use
// as a GET parameter.
func (q statusQuery) encode() (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(data)), nil
}
