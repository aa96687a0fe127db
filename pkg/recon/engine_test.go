package recon

import (
	"context"
	"iter"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsrecon/alarm-audit/pkg/pagerduty"
	"github.com/opsrecon/alarm-audit/pkg/report"
)

type fakeSource struct {
	regions []string
	alarms  map[string][]Alarm
	subs    map[string][]Subscription
}

func (f *fakeSource) ListRegions(_ context.Context) ([]string, error) {
	return f.regions, nil
}

func (f *fakeSource) Alarms(_ context.Context, region string) iter.Seq[Alarm] {
	return func(yield func(Alarm) bool) {
		for _, a := range f.alarms[region] {
			if !yield(a) {
				return
			}
		}
	}
}

func (f *fakeSource) Subscriptions(_ context.Context, region, topicARN string) []Subscription {
	return f.subs[region+"|"+topicARN]
}

func testIndex() pagerduty.KeyIndex {
	return pagerduty.KeyIndex{
		"K1": {ServiceID: "S1", ServiceName: "Checkout", TeamID: "T1", TeamName: "Platform"},
	}
}

func newEngine(src AlarmSource) *Engine {
	return &Engine{
		Source: src,
		Index:  testIndex(),
		Logger: slog.New(slog.DiscardHandler),
	}
}

func TestAlarmWithoutActionsYieldsNoActionRow(t *testing.T) {
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms:  map[string][]Alarm{"us-east-1": {{Name: "idle-alarm"}}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, report.Row{
		Region:       "us-east-1",
		AlarmName:    "idle-alarm",
		ActionStatus: StatusNoAction,
	}, rows[0])
}

func TestStatusFollowsActionsEnabledFlag(t *testing.T) {
	topic := "arn:aws:sns:us-east-1:123456789012:alerts"
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms: map[string][]Alarm{"us-east-1": {
			{Name: "on", ActionsEnabled: true, Actions: []string{topic}},
			{Name: "off", ActionsEnabled: false, Actions: []string{topic}},
		}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, StatusEnabled, rows[0].ActionStatus)
	assert.Equal(t, StatusDisabled, rows[1].ActionStatus)
}

func TestNonTopicActionsAreSkippedButAlarmStillCounted(t *testing.T) {
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms: map[string][]Alarm{"us-east-1": {{
			Name:           "scaling-only",
			ActionsEnabled: true,
			Actions:        []string{"arn:aws:autoscaling:us-east-1:123456789012:scalingPolicy:p1"},
		}}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "scaling-only", rows[0].AlarmName)
	assert.Equal(t, StatusEnabled, rows[0].ActionStatus)
	assert.Empty(t, rows[0].TopicARN)
}

func TestOneRowPerMatchingSubscription(t *testing.T) {
	topic := "arn:aws:sns:us-east-1:123456789012:alerts"
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms: map[string][]Alarm{"us-east-1": {{
			Name: "cpu-high", ActionsEnabled: true, Actions: []string{topic},
		}}},
		subs: map[string][]Subscription{"us-east-1|" + topic: {
			{Protocol: "https", Endpoint: "https://events.pagerduty.com/integration/K1/enqueue"},
			{Protocol: "https", Endpoint: "https://events.pagerduty.com/integration/K2/enqueue"},
			{Protocol: "email", Endpoint: "oncall@example.com"},
		}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "K1", rows[0].IntegrationKey)
	assert.Equal(t, "Checkout", rows[0].ServiceName)
	assert.Equal(t, "Platform", rows[0].TeamName)
	assert.Equal(t, "alerts", rows[0].TopicName)

	// K2 is not in the index: sentinels, never omitted
	assert.Equal(t, "K2", rows[1].IntegrationKey)
	assert.Equal(t, pagerduty.ServiceNotFound, rows[1].ServiceName)
	assert.Equal(t, pagerduty.TeamUnknown, rows[1].TeamName)
}

func TestTopicWithoutPagerDutySubscriptionGetsDegenerateRow(t *testing.T) {
	topic := "arn:aws:sns:us-east-1:123456789012:quiet"
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms: map[string][]Alarm{"us-east-1": {{
			Name: "cpu-high", ActionsEnabled: true, Actions: []string{topic},
		}}},
		subs: map[string][]Subscription{"us-east-1|" + topic: {
			{Protocol: "email", Endpoint: "oncall@example.com"},
		}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, topic, rows[0].TopicARN)
	assert.Equal(t, "quiet", rows[0].TopicName)
	assert.Empty(t, rows[0].IntegrationKey)
	assert.Empty(t, rows[0].ServiceName)
}

func TestMarkerMatchWithoutKeyDoesNotCountAsFound(t *testing.T) {
	topic := "arn:aws:sns:us-east-1:123456789012:alerts"
	src := &fakeSource{
		regions: []string{"us-east-1"},
		alarms: map[string][]Alarm{"us-east-1": {{
			Name: "cpu-high", ActionsEnabled: true, Actions: []string{topic},
		}}},
		subs: map[string][]Subscription{"us-east-1|" + topic: {
			// endpoint mentions pagerduty but carries no parseable key
			{Protocol: "https", Endpoint: "https://www.pagerduty.com/docs"},
		}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].IntegrationKey)
	assert.Equal(t, topic, rows[0].TopicARN)
}

func TestEmptyRegionContributesNoRows(t *testing.T) {
	topic := "arn:aws:sns:eu-west-1:123456789012:alerts"
	src := &fakeSource{
		regions: []string{"us-east-1", "eu-west-1"},
		alarms: map[string][]Alarm{
			// us-east-1 degraded to zero alarms by the source
			"eu-west-1": {{Name: "ok", ActionsEnabled: true, Actions: []string{topic}}},
		},
		subs: map[string][]Subscription{"eu-west-1|" + topic: {
			{Protocol: "https", Endpoint: "https://events.pagerduty.com/integration/K1/enqueue"},
		}},
	}

	rows, err := newEngine(src).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "eu-west-1", rows[0].Region)
}

func TestParallelRegionScanKeepsRegionOrder(t *testing.T) {
	regions := []string{"a", "b", "c", "d"}
	alarms := make(map[string][]Alarm)
	for _, r := range regions {
		alarms[r] = []Alarm{{Name: "alarm-" + r}}
	}
	src := &fakeSource{regions: regions, alarms: alarms}

	e := newEngine(src)
	e.Workers = 3

	rows, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 4)
	for i, r := range regions {
		assert.Equal(t, r, rows[i].Region)
	}
}
