package audit

import "time"

// Config is the immutable run configuration, constructed once at startup.
type Config struct {
	// Version of the binary, used in the PagerDuty User-Agent
	Version string

	// Token is the PagerDuty API token. Required.
	Token string

	// BaseURL overrides the PagerDuty API base URL (tests, proxies)
	BaseURL string

	// TeamID optionally scopes the service index to one team, server-side
	TeamID string

	// Output is the report file path; extension selects CSV or XLSX
	Output string

	// Regions overrides region discovery with an explicit list
	Regions []string

	// RegionWorkers bounds concurrent region scans; <=1 is sequential
	RegionWorkers int

	// EndpointMarker flags candidate subscription endpoints
	EndpointMarker string

	// Timeout is the wall-clock ceiling for the whole run; 0 disables it
	Timeout time.Duration

	// LogFilePath redirects logs from stderr to a file when set
	LogFilePath string
}
