// Package report defines the audit report rows and the tabular writers
// that persist them.
package report

import (
	"path/filepath"
	"strings"
)

// Row is one output record of the reconciliation: an (alarm, SNS topic,
// subscription) combination, or a degenerate record when an alarm has no
// actions or a topic has no PagerDuty subscription. Rows are append-only.
type Row struct {
	Region         string
	AlarmName      string
	ActionStatus   string
	TopicARN       string
	TopicName      string
	IntegrationKey string
	ServiceName    string
	ServiceID      string
	TeamName       string
	TeamID         string
}

// Columns is the header of the report file. Order and names are part of the
// external contract; downstream consumers key on them.
var Columns = []string{
	"Region",
	"AlarmName",
	"AlarmActionStatus",
	"SNSTopicArn",
	"SNSTopicName",
	"IntegrationKey",
	"PagerDutyServiceName",
	"PagerDutyServiceID",
	"PagerDutyTeamName",
	"PagerDutyTeamID",
}

// Record renders the row as string cells in Columns order.
func (r Row) Record() []string {
	return []string{
		r.Region,
		r.AlarmName,
		r.ActionStatus,
		r.TopicARN,
		r.TopicName,
		r.IntegrationKey,
		r.ServiceName,
		r.ServiceID,
		r.TeamName,
		r.TeamID,
	}
}

// Writer persists a complete set of rows to a tabular file.
type Writer interface {
	Write(rows []Row) error
}

// NewWriter picks a writer by file extension: .csv gets a CSV writer,
// everything else an XLSX workbook.
func NewWriter(path string) Writer {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return &CSVWriter{Path: path}
	}
	return &XLSXWriter{Path: path}
}
