// Command backfill-tiers adds the highest_points and loyalty_tier columns
// to an existing users table when they are missing, then recomputes both
// for every user.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/database"
	"github.com/iliyamo/loyalty-rewards/internal/logging"
	"github.com/iliyamo/loyalty-rewards/internal/loyalty"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
)

var columns = []struct{ name, ddl string }{
	{"highest_points", "ALTER TABLE users ADD COLUMN highest_points BIGINT NOT NULL DEFAULT 0"},
	{"loyalty_tier", "ALTER TABLE users ADD COLUMN loyalty_tier VARCHAR(8) NOT NULL DEFAULT 'Bronze'"},
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report changes without writing")
	batch := flag.Int("batch", 500, "users per batch")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logging.Setup(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx := context.Background()
	if err := addColumns(ctx, db, *dryRun); err != nil {
		logrus.WithError(err).Fatal("schema migration failed")
	}
	changed, err := backfill(ctx, db, repository.NewUserRepo(db), *batch, *dryRun)
	if err != nil {
		logrus.WithError(err).Fatal("backfill failed")
	}
	logrus.WithFields(logrus.Fields{"changed": changed, "dry_run": *dryRun}).Info("backfill done")
}

func addColumns(ctx context.Context, db *sql.DB, dryRun bool) error {
	for _, col := range columns {
		var n int
		err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.COLUMNS
			 WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = 'users' AND COLUMN_NAME = ?`, col.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", col.name, err)
		}
		if n > 0 {
			continue
		}
		logrus.WithField("column", col.name).Info("adding column")
		if dryRun {
			continue
		}
		if _, err := db.ExecContext(ctx, col.ddl); err != nil {
			return fmt.Errorf("add %s: %w", col.name, err)
		}
	}
	return nil
}

// backfill walks users in id order and rewrites rows whose stored high
// water mark or tier disagree with their balance.
func backfill(ctx context.Context, db *sql.DB, users *repository.UserRepo, batch int, dryRun bool) (int, error) {
	if batch <= 0 {
		batch = 500
	}
	var after uint64
	changed := 0
	for {
		rows, err := users.ScanBalances(ctx, after, batch)
		if err != nil {
			return changed, err
		}
		if len(rows) == 0 {
			return changed, nil
		}
		var stale []repository.BalanceRow
		for _, r := range rows {
			b := loyalty.NewBalance(r.Points, r.HighestPoints)
			if b.HighestPoints != r.HighestPoints || string(b.Tier) != r.Tier {
				stale = append(stale, r)
			}
		}
		after = rows[len(rows)-1].ID
		changed += len(stale)
		if dryRun || len(stale) == 0 {
			continue
		}
		if err := writeBatch(ctx, db, users, stale); err != nil {
			return changed, err
		}
	}
}

func writeBatch(ctx context.Context, db *sql.DB, users *repository.UserRepo, rows []repository.BalanceRow) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, r := range rows {
		if err := users.UpdateBalanceTx(ctx, tx, r.ID, loyalty.NewBalance(r.Points, r.HighestPoints)); err != nil {
			return fmt.Errorf("user %d: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
