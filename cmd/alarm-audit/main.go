package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/opsrecon/alarm-audit/internal/audit"
	"github.com/opsrecon/alarm-audit/pkg/recon"
)

// These variables are set by the build process using ldflags.
var (
	version = "version"
	commit  = "commit"
	date    = "date"
)

var (
	rootCmd = &cobra.Command{
		Use:     "alarm-audit",
		Short:   "CloudWatch to PagerDuty alarm audit",
		Long:    `Reconciles CloudWatch alarms with PagerDuty: follows each alarm's SNS fan-out, resolves integration keys to services and teams, and writes a cross-account audit report.`,
		Version: fmt.Sprintf("Version: %s\nCommit: %s\nBuild Date: %s", version, commit, date),
	}

	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan all regions and write the report",
		Long:  `Build the PagerDuty integration-key index, scan CloudWatch alarms across all enabled regions, and write one report row per alarm notification target.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// If you're wondering why we're not using viper.GetStringSlice("regions"),
			// it's because viper doesn't handle comma-separated values correctly for
			// env vars when using GetStringSlice.
			// https://github.com/spf13/viper/issues/380
			var regions []string
			if viper.IsSet("regions") {
				regionsVal := viper.Get("regions")
				if s, ok := regionsVal.(string); ok {
					if s != "" {
						regions = strings.Split(s, ",")
					}
				} else if sl, ok := regionsVal.([]string); ok {
					regions = sl
				} else {
					return fmt.Errorf("failed to parse 'regions': unexpected type %T", regionsVal)
				}
			}

			cfg := audit.Config{
				Version:        version,
				Token:          viper.GetString("pd_token"),
				BaseURL:        viper.GetString("pd_base_url"),
				TeamID:         viper.GetString("team_id"),
				Output:         viper.GetString("output"),
				Regions:        regions,
				RegionWorkers:  viper.GetInt("region_workers"),
				EndpointMarker: viper.GetString("endpoint_marker"),
				Timeout:        viper.GetDuration("timeout"),
				LogFilePath:    viper.GetString("log_file"),
			}
			return audit.Run(cmd.Context(), cfg)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.SetGlobalNormalizationFunc(wordSepNormalizeFunc)
	rootCmd.SetVersionTemplate("{{.Short}}\n{{.Version}}\n")

	rootCmd.PersistentFlags().String("pd-token", "", "PagerDuty API token (can also be set via PD_TOKEN environment variable)")
	rootCmd.PersistentFlags().String("pd-base-url", "https://api.pagerduty.com", "Specify the PagerDuty API base URL")
	rootCmd.PersistentFlags().String("log-file", "", "Path to log file (default stderr)")

	scanCmd.Flags().String("team-id", "", "Restrict the service index to one PagerDuty team")
	scanCmd.Flags().String("output", "cloudwatch_pd_mapping.xlsx", "Report file path; .csv writes CSV, anything else XLSX")
	scanCmd.Flags().StringSlice("regions", nil, "Comma-separated region list, overrides region discovery")
	scanCmd.Flags().Int("region-workers", 1, "Concurrent region scans (1 = sequential)")
	scanCmd.Flags().String("endpoint-marker", recon.DefaultEndpointMarker, "Substring marking a subscription endpoint as a PagerDuty candidate")
	scanCmd.Flags().Duration("timeout", 0, "Wall-clock ceiling for the whole run (0 = none)")

	_ = viper.BindPFlag("pd_token", rootCmd.PersistentFlags().Lookup("pd-token"))
	_ = viper.BindPFlag("pd_base_url", rootCmd.PersistentFlags().Lookup("pd-base-url"))
	_ = viper.BindPFlag("log_file", rootCmd.PersistentFlags().Lookup("log-file"))
	_ = viper.BindPFlag("team_id", scanCmd.Flags().Lookup("team-id"))
	_ = viper.BindPFlag("output", scanCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("regions", scanCmd.Flags().Lookup("regions"))
	_ = viper.BindPFlag("region_workers", scanCmd.Flags().Lookup("region-workers"))
	_ = viper.BindPFlag("endpoint_marker", scanCmd.Flags().Lookup("endpoint-marker"))
	_ = viper.BindPFlag("timeout", scanCmd.Flags().Lookup("timeout"))

	// the bare PD_TOKEN env var is the credential name the original tooling
	// established; keep honoring it alongside the prefixed form
	_ = viper.BindEnv("pd_token", "ALARM_AUDIT_PD_TOKEN", "PD_TOKEN")

	rootCmd.AddCommand(scanCmd)
}

func initConfig() {
	viper.SetEnvPrefix("alarm_audit")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	from := []string{"_"}
	to := "-"
	for _, sep := range from {
		name = strings.ReplaceAll(name, sep, to)
	}
	return pflag.NormalizedName(name)
}
