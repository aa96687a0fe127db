package pagerduty

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Sentinel values used when referenced data is absent or inaccessible.
// The report's purpose is auditing incompleteness, so missing data degrades
// to these instead of failing the run.
const (
	TeamUnknown     = "UNKNOWN"
	ServiceNotFound = "NOT_FOUND"
)

// Integration is an embedded service integration. Only the key matters here.
type Integration struct {
	IntegrationKey string `json:"integration_key"`
}

// TeamRef is the team association embedded in a service.
type TeamRef struct {
	ID string `json:"id"`
}

// Service is a PagerDuty service with eagerly included integrations and teams.
type Service struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Teams        []TeamRef     `json:"teams"`
	Integrations []Integration `json:"integrations"`
}

type servicesPage struct {
	Services []Service `json:"services"`
	More     bool      `json:"more"`
}

// Entry is the resolved identity behind one integration key.
type Entry struct {
	ServiceID   string
	ServiceName string
	TeamID      string
	TeamName    string
}

// KeyIndex maps integration keys to their owning service and team. It is
// built once per run before alarm scanning begins and never mutated after,
// so concurrent region workers may read it without locking.
//
// If the platform reassigns a key between services mid-pagination the index
// keeps the last page observed for that key (last write wins).
type KeyIndex map[string]Entry

// Resolve looks up a key, substituting the NOT_FOUND/UNKNOWN sentinels when
// the key is not in the index.
func (idx KeyIndex) Resolve(key string) Entry {
	if e, ok := idx[key]; ok {
		return e
	}
	return Entry{
		ServiceID:   ServiceNotFound,
		ServiceName: ServiceNotFound,
		TeamID:      TeamUnknown,
		TeamName:    TeamUnknown,
	}
}

// BuildKeyIndex fetches all teams and then all services (optionally filtered
// server-side to one team) with integrations and team associations included,
// and builds the integration-key index. Any non-429 API failure is returned
// as an error: an incomplete index would silently mis-attribute every alarm,
// which is worse than stopping early.
func (c *Client) BuildKeyIndex(ctx context.Context, teamID string) (KeyIndex, error) {
	teams, err := c.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	index := make(KeyIndex)
	offset := 0

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageLimit))
		query.Set("offset", strconv.Itoa(offset))
		query.Add("include[]", "integrations")
		query.Add("include[]", "teams")
		if teamID != "" {
			query.Add("team_ids[]", teamID)
		}

		var page servicesPage
		if err := c.getPage(ctx, "/services", query, &page); err != nil {
			return nil, fmt.Errorf("failed to list services: %w", err)
		}

		for _, s := range page.Services {
			tid, tname := TeamUnknown, TeamUnknown
			if len(s.Teams) > 0 {
				// first associated team owns the service; an id the token
				// cannot resolve keeps its id but gets the UNKNOWN name
				tid = s.Teams[0].ID
				if name, ok := teams[tid]; ok {
					tname = name
				}
			}

			for _, integ := range s.Integrations {
				if integ.IntegrationKey == "" {
					continue
				}
				index[integ.IntegrationKey] = Entry{
					ServiceID:   s.ID,
					ServiceName: s.Name,
					TeamID:      tid,
					TeamName:    tname,
				}
			}
		}

		c.logger.Info("loaded PagerDuty services page", "offset", offset, "services", len(page.Services))

		if !page.More {
			break
		}
		offset += c.pageLimit
		if err := sleepContext(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	c.logger.Info("built integration key index", "keys", len(index))
	return index, nil
}
