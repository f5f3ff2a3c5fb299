package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/spotbot/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite trade journal",
}

var journalDBPath string

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade_id>",
	Short: "Show a single trade by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := journal.NewSQLite(journalDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		rec, err := j.GetTrade(args[0])
		if err != nil {
			return err
		}
		printTrade(rec)
		return nil
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "List trades for a UTC day (default today)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC().Truncate(24 * time.Hour)
		if len(args) == 1 {
			var err error
			day, err = time.Parse("2006-01-02", args[0])
			if err != nil {
				return fmt.Errorf("invalid day %q (want YYYY-MM-DD)", args[0])
			}
		}

		j, err := journal.NewSQLite(journalDBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		recs, err := j.ListTrades("", day, day.Add(24*time.Hour))
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			fmt.Println("no trades")
			return nil
		}
		for _, rec := range recs {
			printTrade(rec)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.PersistentFlags().StringVar(&journalDBPath, "db", "./spotbot.sqlite", "path to the SQLite journal")
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalDayCmd)
}

func printTrade(rec journal.TradeRecord) {
	ts := time.UnixMilli(rec.TimestampMS).UTC().Format(time.RFC3339)
	fmt.Printf("%s  %s  %-4s %-10s %12.8f @ %12.4f  fee %8.4f  pnl %10.4f  %s (%s)\n",
		rec.TradeID, ts, rec.Side, rec.Symbol, rec.Amount, rec.Price, rec.Fee, rec.PnL, rec.Reason, rec.Mode)
}
