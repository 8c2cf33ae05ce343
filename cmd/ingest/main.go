package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"forecast_backend/internal/feature/forecast/adapters"
	"forecast_backend/internal/feature/forecast/domain/entity"
	"forecast_backend/internal/feature/forecast/usecase"
	platformdb "forecast_backend/internal/platform/db"
	jwtmw "forecast_backend/internal/platform/jwt"
)

var (
	dataDir string
	metrics []string
	timeout time.Duration

	subject string
	ttl     time.Duration
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	rootCmd := &cobra.Command{
		Use:          "ingest",
		Short:        "Load monthly series CSV files into the series database",
		SilenceUsage: true,
		RunE:         runIngest,
	}
	rootCmd.Flags().StringVar(&dataDir, "data-dir", envOr("DATA_DIR", "./data"), "Directory holding MonthlySales.csv and MonthlyIncome.csv")
	rootCmd.Flags().StringSliceVar(&metrics, "metric", []string{string(entity.MetricSales), string(entity.MetricIncome)}, "Metrics to ingest")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Overall ingest timeout")

	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg := platformdb.LoadConfigFromEnv()
	db, err := platformdb.OpenDB(cfg, &adapters.SeriesPointModel{})
	if err != nil {
		return err
	}
	if !cfg.RunMigrations {
		if err := db.AutoMigrate(&adapters.SeriesPointModel{}); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
	}

	uc := usecase.NewIngestUsecase(adapters.NewCSVSeriesRepository(dataDir), adapters.NewSeriesRepository(db))

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	ms := make([]entity.Metric, 0, len(metrics))
	for _, m := range metrics {
		ms = append(ms, entity.Metric(m))
	}
	if err := uc.IngestAll(ctx, ms); err != nil {
		return err
	}
	log.Println("ingest ok")
	return nil
}

// tokenCmd mints a bearer token for PUT /series/:metric.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a series:write JWT signed with JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var gen jwtmw.Generator = jwtmw.NewGenerator(os.Getenv("JWT_SECRET"), ttl)
			token, err := gen.GenerateToken(subject, jwtmw.ScopeSeriesWrite)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "ingest", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
