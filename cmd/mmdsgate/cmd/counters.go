package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/solatis/mmdsgate/internal/core/config"
	"github.com/solatis/mmdsgate/internal/core/db"
	"github.com/solatis/mmdsgate/internal/core/metrics"
	"github.com/spf13/cobra"
)

var countersCmd = &cobra.Command{
	Use:   "counters",
	Short: "Show the last persisted request counters for an instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceID, _ := cmd.Flags().GetString("instance-id")
		if instanceID == "" {
			cfg, err := config.LoadConfig(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			instanceID = cfg.InstanceID
		}

		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		queries, err := db.LoadQueries(database)
		if err != nil {
			return err
		}
		samples, err := metrics.LatestSamples(cmd.Context(), queries, instanceID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COUNTER\tVALUE")
		for _, s := range samples {
			fmt.Fprintf(w, "%s\t%d\n", s.Name, s.Value)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(countersCmd)
	countersCmd.Flags().String("instance-id", "", "gateway instance (default: configured instance_id)")
}
