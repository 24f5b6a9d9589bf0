package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listGranularity string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored meter readings",
	Long:  `Displays readings previously stored with 'fetch --store'.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listGranularity, "granularity", "D", "Granularity to list (H, D or M)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	readings, err := db.ListReadings(listGranularity)
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	if len(readings) == 0 {
		fmt.Printf("No data found for granularity %s\n", listGranularity)
		return nil
	}

	fmt.Printf("\nStored readings (granularity %s):\n", listGranularity)
	fmt.Println("--------------------------------------------------")
	fmt.Printf("%-17s  %12s  %12s\n", "Date", "kWh in", "kWh out")
	fmt.Println("--------------------------------------------------")

	var totalConsumption, totalProduction float64
	for _, reading := range readings {
		if reading.Production != nil {
			fmt.Printf("%-17s  %12.3f  %12.3f\n", reading.Date, reading.Consumption, *reading.Production)
			totalProduction += *reading.Production
		} else {
			fmt.Printf("%-17s  %12.3f  %12s\n", reading.Date, reading.Consumption, "-")
		}
		totalConsumption += reading.Consumption
	}

	fmt.Println("--------------------------------------------------")
	fmt.Printf("Total: %.3f kWh consumed, %.3f kWh produced (%d records)\n",
		totalConsumption, totalProduction, len(readings))

	if cfg.Rate > 0 {
		fmt.Printf("Estimated cost: %.2f (at %.4f per kWh)\n", totalConsumption*cfg.Rate, cfg.Rate)
	}

	return nil
}
