package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ventero-erp/ventero/internal/app"
	"github.com/ventero-erp/ventero/internal/platform/db"
	"github.com/ventero-erp/ventero/internal/receivables"
	"github.com/ventero-erp/ventero/internal/shared"
	"github.com/ventero-erp/ventero/jobs"
)

var rootCmd = &cobra.Command{
	Use:   "venteroctl",
	Short: "Operational CLI for the Ventero sales and receivables backend",
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "Enqueue an overdue receivables scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		grace, _ := cmd.Flags().GetInt("grace-days")

		client, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		task, err := jobs.NewOverdueScanTask(jobs.OverdueScanPayload{GraceDays: grace})
		if err != nil {
			return err
		}
		info, err := client.Enqueue(cmd.Context(), task, asynq.TaskID(uuid.NewString()))
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", task.Type(), info.ID, info.Queue)
		return nil
	},
}

var agingCmd = &cobra.Command{
	Use:   "aging",
	Short: "Print the receivables aging report as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		asOf := time.Now().UTC()
		if v, _ := cmd.Flags().GetString("as-of"); v != "" {
			parsed, err := time.Parse("2006-01-02", v)
			if err != nil {
				return fmt.Errorf("as-of must be YYYY-MM-DD: %w", err)
			}
			asOf = parsed
		}

		pool, err := db.New(cmd.Context(), cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := receivables.NewRepository(pool)
		accounts, err := repo.OpenAccounts(cmd.Context())
		if err != nil {
			return err
		}
		report := receivables.BuildAgingReport(accounts, asOf)
		return receivables.WriteAgingCSV(os.Stdout, report, cfg.Currency)
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup-idempotency",
	Short: "Delete idempotency keys older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		pool, err := db.New(cmd.Context(), cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := shared.NewIdempotencyStore(pool)
		if err := store.Cleanup(cmd.Context(), olderThan); err != nil {
			return err
		}
		fmt.Printf("removed idempotency keys older than %s\n", olderThan)
		return nil
	},
}

func init() {
	overdueCmd.Flags().Int("grace-days", 0, "only report accounts more than this many days past due")
	agingCmd.Flags().String("as-of", "", "report date (YYYY-MM-DD, default today)")
	cleanupCmd.Flags().Duration("older-than", 30*24*time.Hour, "retention window")

	rootCmd.AddCommand(overdueCmd, agingCmd, cleanupCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
