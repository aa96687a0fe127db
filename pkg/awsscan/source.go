// Package awsscan enumerates CloudWatch alarms and SNS topic subscribers
// across the regions enabled for the account.
package awsscan

import (
	"context"
	"iter"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/bluele/gcache"

	"github.com/opsrecon/alarm-audit/pkg/recon"
)

// subscriptionCacheSize bounds the per-topic subscription cache. Entries are
// keyed (region, topic ARN); a topic shared by many alarms costs one SNS
// listing per run.
const subscriptionCacheSize = 512

// regionsAPI is the slice of EC2 the source needs.
type regionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// Source implements recon.AlarmSource on the AWS SDK. Region-level and
// topic-level failures are logged and degrade to empty results; they never
// abort the run.
type Source struct {
	ec2Client     regionsAPI
	newCloudWatch func(region string) cloudwatch.DescribeAlarmsAPIClient
	newSNS        func(region string) sns.ListSubscriptionsByTopicAPIClient
	subs          gcache.Cache
	logger        *slog.Logger
}

// New builds a Source from a loaded AWS config. Per-region service clients
// are derived from a copy of the config with the region overridden.
func New(cfg aws.Config, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		ec2Client: ec2.NewFromConfig(cfg),
		newCloudWatch: func(region string) cloudwatch.DescribeAlarmsAPIClient {
			rc := cfg.Copy()
			rc.Region = region
			return cloudwatch.NewFromConfig(rc)
		},
		newSNS: func(region string) sns.ListSubscriptionsByTopicAPIClient {
			rc := cfg.Copy()
			rc.Region = region
			return sns.NewFromConfig(rc)
		},
		subs:   gcache.New(subscriptionCacheSize).LRU().Build(),
		logger: logger,
	}
}

// ListRegions returns the regions enabled for the account, sorted for a
// stable report order.
func (s *Source) ListRegions(ctx context.Context) ([]string, error) {
	out, err := s.ec2Client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	sort.Strings(regions)
	return regions, nil
}

// Alarms streams every metric alarm in a region, one SDK page at a time.
// The sequence is single-pass and non-restartable. A page fetch error ends
// the stream early: the region contributes only what was already yielded.
func (s *Source) Alarms(ctx context.Context, region string) iter.Seq[recon.Alarm] {
	return func(yield func(recon.Alarm) bool) {
		client := s.newCloudWatch(region)
		paginator := cloudwatch.NewDescribeAlarmsPaginator(client, &cloudwatch.DescribeAlarmsInput{})

		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				s.logger.Warn("alarm listing failed, treating region as empty",
					"region", region, "error", err)
				return
			}
			for _, a := range page.MetricAlarms {
				alarm := recon.Alarm{
					Name:           aws.ToString(a.AlarmName),
					ActionsEnabled: aws.ToBool(a.ActionsEnabled),
					Actions:        a.AlarmActions,
				}
				if alarm.Name == "" {
					alarm.Name = "<no-name>"
				}
				if !yield(alarm) {
					return
				}
			}
		}
	}
}

// Subscriptions lists all subscribers of a topic. Results are cached per
// (region, topic) for the duration of the run. A fetch error degrades to an
// empty result; the failed listing is not cached, so a later alarm on the
// same topic retries it.
func (s *Source) Subscriptions(ctx context.Context, region, topicARN string) []recon.Subscription {
	cacheKey := region + "|" + topicARN
	if v, err := s.subs.Get(cacheKey); err == nil {
		return v.([]recon.Subscription)
	}

	client := s.newSNS(region)
	paginator := sns.NewListSubscriptionsByTopicPaginator(client, &sns.ListSubscriptionsByTopicInput{
		TopicArn: aws.String(topicARN),
	})

	subs := []recon.Subscription{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Warn("subscription listing failed, treating topic as empty",
				"region", region, "topic", topicARN, "error", err)
			return nil
		}
		for _, sub := range page.Subscriptions {
			subs = append(subs, recon.Subscription{
				Protocol: aws.ToString(sub.Protocol),
				Endpoint: aws.ToString(sub.Endpoint),
			})
		}
	}

	_ = s.subs.Set(cacheKey, subs)
	return subs
}
