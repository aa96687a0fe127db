package pagerduty

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Team is a PagerDuty team reference.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type teamsPage struct {
	Teams []Team `json:"teams"`
	More  bool   `json:"more"`
}

// ListTeams retrieves every team visible to the token as an id → name map.
// Teams the token cannot see are simply absent; callers fall back to the
// UNKNOWN sentinel for those.
func (c *Client) ListTeams(ctx context.Context) (map[string]string, error) {
	teams := make(map[string]string)
	offset := 0

	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(c.pageLimit))
		query.Set("offset", strconv.Itoa(offset))

		var page teamsPage
		if err := c.getPage(ctx, "/teams", query, &page); err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}

		for _, t := range page.Teams {
			teams[t.ID] = t.Name
		}

		if !page.More {
			break
		}
		offset += c.pageLimit
		if err := sleepContext(ctx, c.pageDelay); err != nil {
			return nil, err
		}
	}

	c.logger.Info("loaded PagerDuty teams", "count", len(teams))
	return teams, nil
}
