// Command backfill pushes the current ledger state into the analytics
// warehouse and takes a GCS snapshot. It runs against the Postgres store;
// the in-memory store has nothing to read outside the API process.
package main

import (
	"context"
	"flag"

	"github.com/omnitrack/ledger/internal/config"
	"github.com/omnitrack/ledger/internal/export/bigquery"
	"github.com/omnitrack/ledger/internal/logger"
	"github.com/omnitrack/ledger/internal/snapshot"
	"github.com/omnitrack/ledger/internal/store/postgres"
)

func main() {
	var (
		doExport   = flag.Bool("export", true, "export accounts and transactions to BigQuery")
		doSnapshot = flag.Bool("snapshot", true, "upload a JSON snapshot to GCS")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required for backfill")
	}

	st, err := postgres.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to postgres")
	}
	defer st.Close()

	if *doExport {
		if cfg.BQProject == "" {
			log.Fatal().Msg("BQ_PROJECT is required for export")
		}

		exporter, err := bigquery.NewExporter(ctx, cfg.BQProject, cfg.BQDataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery exporter")
		}
		defer exporter.Close()

		if err := exporter.ExportAll(ctx, st); err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
	}

	if *doSnapshot {
		if cfg.SnapshotBucket == "" {
			log.Fatal().Msg("SNAPSHOT_BUCKET is required for snapshot")
		}

		writer, err := snapshot.NewWriter(ctx, cfg.SnapshotBucket, cfg.SnapshotPrefix)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create snapshot writer")
		}
		defer writer.Close()

		object, err := writer.Take(ctx, st)
		if err != nil {
			log.Fatal().Err(err).Msg("Snapshot failed")
		}
		log.Info().Str("object", object).Msg("Backfill finished")
	}
}
