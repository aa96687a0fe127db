// Package recon joins CloudWatch alarms to PagerDuty services: it walks every
// region's alarms, follows SNS notification actions to their subscribers, and
// resolves PagerDuty integration keys through the key index.
package recon

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/opsrecon/alarm-audit/pkg/pagerduty"
	"github.com/opsrecon/alarm-audit/pkg/report"
)

// Action status values carried in the report.
const (
	StatusNoAction = "NO_ACTION"
	StatusEnabled  = "ENABLED"
	StatusDisabled = "DISABLED"
)

// DefaultEndpointMarker is the substring that marks a subscription endpoint
// as a PagerDuty candidate.
const DefaultEndpointMarker = "pagerduty"

// Alarm is a monitoring alarm with its ordered notification actions.
type Alarm struct {
	Name           string
	ActionsEnabled bool
	Actions        []string
}

// Subscription is one subscriber of an SNS topic.
type Subscription struct {
	Protocol string
	Endpoint string
}

// AlarmSource enumerates regions, alarms, and topic subscribers. Alarm
// streams are lazy and single-pass; region-level and topic-level fetch
// failures degrade to empty rather than erroring, so one bad region cannot
// abort the run.
type AlarmSource interface {
	ListRegions(ctx context.Context) ([]string, error)
	Alarms(ctx context.Context, region string) iter.Seq[Alarm]
	Subscriptions(ctx context.Context, region, topicARN string) []Subscription
}

// Engine drives the reconciliation. The key index must be fully built before
// Run is called; it is read-only from then on, so region workers share it
// without locking.
type Engine struct {
	Source AlarmSource
	Index  pagerduty.KeyIndex

	// Marker flags candidate endpoints; defaults to DefaultEndpointMarker.
	Marker string

	// Workers bounds concurrent region scans. Zero or one means the
	// sequential baseline.
	Workers int

	Logger *slog.Logger
}

// Run scans every region and returns all report rows, grouped by region in
// region order. Region enumeration failure is fatal; everything below a
// region degrades per the source's contract.
func (e *Engine) Run(ctx context.Context) ([]report.Row, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	regions, err := e.Source.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate regions: %w", err)
	}
	logger.Info("scanning regions", "count", len(regions))

	perRegion := make([][]report.Row, len(regions))

	workers := e.Workers
	if workers <= 1 {
		for i, region := range regions {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			perRegion[i] = e.scanRegion(ctx, region, logger)
		}
	} else {
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i, region := range regions {
			wg.Add(1)
			go func(i int, region string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				perRegion[i] = e.scanRegion(ctx, region, logger)
			}(i, region)
		}
		wg.Wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	var rows []report.Row
	for _, r := range perRegion {
		rows = append(rows, r...)
	}
	return rows, nil
}

func (e *Engine) scanRegion(ctx context.Context, region string, logger *slog.Logger) []report.Row {
	var rows []report.Row
	alarms := 0
	for alarm := range e.Source.Alarms(ctx, region) {
		alarms++
		rows = append(rows, e.alarmRows(ctx, region, alarm)...)
	}
	logger.Info("scanned region", "region", region, "alarms", alarms, "rows", len(rows))
	return rows
}

// alarmRows applies the per-alarm state machine. Every alarm yields at least
// one row, and every SNS target yields at least one row.
func (e *Engine) alarmRows(ctx context.Context, region string, alarm Alarm) []report.Row {
	if len(alarm.Actions) == 0 {
		return []report.Row{{
			Region:       region,
			AlarmName:    alarm.Name,
			ActionStatus: StatusNoAction,
		}}
	}

	status := StatusDisabled
	if alarm.ActionsEnabled {
		status = StatusEnabled
	}

	marker := e.Marker
	if marker == "" {
		marker = DefaultEndpointMarker
	}

	var rows []report.Row
	for _, action := range alarm.Actions {
		// only SNS topics are resolvable; scaling policies etc. are skipped
		if !IsTopicARN(action) {
			continue
		}
		rows = append(rows, e.targetRows(ctx, region, alarm.Name, status, action, marker)...)
	}

	if len(rows) == 0 {
		// the alarm had actions, but none referenced an SNS topic; still
		// account for it exactly once
		return []report.Row{{
			Region:       region,
			AlarmName:    alarm.Name,
			ActionStatus: status,
		}}
	}
	return rows
}

// targetRows emits one row per PagerDuty subscription of the topic, or one
// degenerate row when the topic has none. A subscription only counts as
// found once a key is actually extracted; a marker match with no parseable
// key does not flip the state.
func (e *Engine) targetRows(ctx context.Context, region, alarmName, status, topicARN, marker string) []report.Row {
	topicName := TopicNameFromARN(topicARN)

	var rows []report.Row
	for _, sub := range e.Source.Subscriptions(ctx, region, topicARN) {
		if !strings.Contains(sub.Endpoint, marker) {
			continue
		}
		key, ok := ExtractIntegrationKey(sub.Endpoint)
		if !ok {
			continue
		}

		entry := e.Index.Resolve(key)
		rows = append(rows, report.Row{
			Region:         region,
			AlarmName:      alarmName,
			ActionStatus:   status,
			TopicARN:       topicARN,
			TopicName:      topicName,
			IntegrationKey: key,
			ServiceName:    entry.ServiceName,
			ServiceID:      entry.ServiceID,
			TeamName:       entry.TeamName,
			TeamID:         entry.TeamID,
		})
	}

	if len(rows) == 0 {
		rows = append(rows, report.Row{
			Region:       region,
			AlarmName:    alarmName,
			ActionStatus: status,
			TopicARN:     topicARN,
			TopicName:    topicName,
		})
	}
	return rows
}
