// Package audit wires the PagerDuty key index, the AWS alarm scan, and the
// report writer into one run.
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/opsrecon/alarm-audit/pkg/awsscan"
	"github.com/opsrecon/alarm-audit/pkg/pagerduty"
	"github.com/opsrecon/alarm-audit/pkg/recon"
	"github.com/opsrecon/alarm-audit/pkg/report"
	"github.com/opsrecon/alarm-audit/pkg/trace"
)

// ErrMissingToken is returned before any network call when no PagerDuty
// token was supplied.
var ErrMissingToken = errors.New("PagerDuty API token not provided: use --pd-token or set PD_TOKEN")

// Run executes one full reconciliation: build the key index, scan every
// region, write the report. The index build is fatal on failure; per-region
// and per-topic failures degrade inside the scan.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Token == "" {
		return ErrMissingToken
	}

	logger, closer, err := NewLogger(cfg.LogFilePath)
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	tc := trace.New()
	ctx = trace.ContextWith(ctx, tc)
	logger = logger.With("trace_id", tc.TraceID)

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	started := time.Now()

	pd, err := pagerduty.NewClient(cfg.Token, cfg.BaseURL, fmt.Sprintf("alarm-audit/%s", cfg.Version))
	if err != nil {
		return err
	}
	pd.SetLogger(logger)

	index, err := pd.BuildKeyIndex(ctx, cfg.TeamID)
	if err != nil {
		return fmt.Errorf("failed to build integration key index: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	var source recon.AlarmSource = awsscan.New(awsCfg, logger)
	if len(cfg.Regions) > 0 {
		source = &staticRegionSource{AlarmSource: source, regions: cfg.Regions}
	}

	engine := &recon.Engine{
		Source:  source,
		Index:   index,
		Marker:  cfg.EndpointMarker,
		Workers: cfg.RegionWorkers,
		Logger:  logger,
	}

	rows, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	if err := report.NewWriter(cfg.Output).Write(rows); err != nil {
		return err
	}

	logger.Info("report written",
		"path", cfg.Output,
		"rows", len(rows),
		"keys", len(index),
		"elapsed", time.Since(started).Round(time.Millisecond))
	return nil
}

// staticRegionSource replaces region discovery with a fixed list while
// delegating alarm and subscription listing.
type staticRegionSource struct {
	recon.AlarmSource
	regions []string
}

func (s *staticRegionSource) ListRegions(_ context.Context) ([]string, error) {
	return s.regions, nil
}
