package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/estscraper/estscraper/internal/publisher"
	"github.com/estscraper/estscraper/pkg/models"
)

var (
	publishGranularity string
	publishAll         bool
	publishLimit       int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored readings to Home Assistant",
	Long: `Reads stored readings from the database and pushes them to the
configured targets: an MQTT broker and/or the Home Assistant HTTP API.
Already-published readings are skipped unless --all is given.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishGranularity, "granularity", "D", "Granularity to publish (H, D or M)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all records (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of records to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant, cfg.GetTopicPrefix())
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var readings []models.Reading
	if publishAll {
		readings, err = db.ListReadings(publishGranularity)
	} else {
		readings, err = db.ListUnpublished(publishGranularity)
	}
	if err != nil {
		return fmt.Errorf("listing readings: %w", err)
	}

	if publishLimit > 0 && len(readings) > publishLimit {
		readings = readings[:publishLimit]
	}

	if len(readings) == 0 {
		fmt.Println("Nothing to publish")
		return nil
	}

	published := 0
	for _, reading := range readings {
		if err := pub.Publish(reading); err != nil {
			return fmt.Errorf("publishing reading %s: %w", reading.Date, err)
		}
		if err := db.MarkPublished(reading.ID); err != nil {
			return fmt.Errorf("marking reading as published: %w", err)
		}
		published++
	}

	fmt.Printf("✓ Published %d readings\n", published)
	return nil
}
