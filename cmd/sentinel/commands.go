package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"CoinSentinel/internal/collector"
	"CoinSentinel/internal/store"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print fired alerts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sync, err := loadConfig()
		if err != nil {
			return err
		}
		defer sync()

		limit, _ := cmd.Flags().GetInt("limit")
		csvPath, _ := cmd.Flags().GetString("csv")

		records := store.OpenHistory(cfg.Rules.HistoryFile).List()
		if limit > 0 && len(records) > limit {
			records = records[:limit]
		}

		if csvPath != "" {
			f, err := os.Create(csvPath)
			if err != nil {
				return fmt.Errorf("create csv: %w", err)
			}
			defer f.Close()
			if err := gocsv.MarshalFile(&records, f); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			fmt.Printf("%d records written to %s\n", len(records), csvPath)
			return nil
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Time", "Symbol", "Trigger", "Notes"})
		for _, r := range records {
			table.Append([]string{r.Timestamp, r.Symbol, r.Trigger, r.Notes})
		}
		table.Render()
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Print monitored symbols and their alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sync, err := loadConfig()
		if err != nil {
			return err
		}
		defer sync()

		doc, err := store.LoadDocument(cfg.Rules.File)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}

		fmt.Printf("Rules file: %s  (check interval %ds)\n", cfg.Rules.File, doc.CheckIntervalSeconds)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Symbol", "Rule", "Trigger", "Notes", "Sound"})
		for _, ms := range doc.CryptosToMonitor {
			if len(ms.Alerts) == 0 {
				table.Append([]string{ms.Symbol, "-", "-", "", ""})
				continue
			}
			for _, r := range ms.Alerts {
				table.Append([]string{ms.Symbol, shortID(r.ID), r.Describe(), r.Notes, r.Sound})
			}
		}
		table.Render()
		return nil
	},
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "Symbol universe tools",
}

var symbolsSearchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search exchange pairs and aggregator coins",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, sync, err := loadConfig()
		if err != nil {
			return err
		}
		defer sync()

		limit, _ := cmd.Flags().GetInt("limit")
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		col := collector.NewCollector(nil, newFetchers(cfg)...)
		if err := col.RefreshUniverse(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Display", "Source", "Base", "Cross ref"})
		for _, s := range col.Universe().Search(args[0], limit) {
			table.Append([]string{s.ID, s.Display(), string(s.Source), s.Base, s.CrossRef})
		}
		table.Render()
		return nil
	},
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func init() {
	historyCmd.Flags().Int("limit", 0, "show at most N records")
	historyCmd.Flags().String("csv", "", "export to a CSV file instead of printing")
	symbolsSearchCmd.Flags().Int("limit", 20, "show at most N matches")
	symbolsCmd.AddCommand(symbolsSearchCmd)
}

