package recon

import (
	"regexp"
	"strings"
)

// snsTopicPrefix identifies alarm actions that reference SNS topics. Other
// action kinds (autoscaling policies, EC2 actions) are not resolvable here.
const snsTopicPrefix = "arn:aws:sns:"

// integrationKeyPattern matches the integration key embedded in a PagerDuty
// subscription endpoint, e.g.
// https://events.pagerduty.com/integration/<key>/enqueue
var integrationKeyPattern = regexp.MustCompile(`/integration/([^/]+)`)

// ExtractIntegrationKey pulls the integration key out of a subscription
// endpoint. Returns false if the endpoint does not carry one.
func ExtractIntegrationKey(endpoint string) (string, bool) {
	m := integrationKeyPattern.FindStringSubmatch(endpoint)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsTopicARN reports whether an alarm action references an SNS topic.
func IsTopicARN(action string) bool {
	return strings.HasPrefix(action, snsTopicPrefix)
}

// TopicNameFromARN returns the topic name, the segment after the last colon.
func TopicNameFromARN(arn string) string {
	if i := strings.LastIndex(arn, ":"); i >= 0 {
		return arn[i+1:]
	}
	return arn
}
