package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v4"

	"github.com/TSHgroup/hh25-backend/internal/config"
	"github.com/TSHgroup/hh25-backend/internal/domain/ports/repository"
	pg "github.com/TSHgroup/hh25-backend/internal/infra/db/postgres"
	"github.com/TSHgroup/hh25-backend/internal/infra/logging"
)

var tips = []string{
	"Record yourself for one minute and listen back for filler words.",
	"Learn phrases, not single words: collocations stick better.",
	"Pause instead of saying \"um\". Silence sounds more confident than you think.",
	"Repeat a native speaker's sentence right after them to copy its rhythm.",
	"Describe what you are doing out loud while cooking or walking.",
	"Prepare three questions before any conversation so you never run dry.",
	"Mistakes are data. Write down one correction after every session.",
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Database.Migrate {
		if err := pg.Migrate(ctx, cfg.Database.URL); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	repo := pg.NewDailyTipRepo(pool)
	n, err := repo.Count(ctx, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("count tips")
	}
	if n > 0 {
		log.Info().Int("tips", n).Msg("daily tips already present, no changes")
		return
	}

	err = pg.NewTxManager(pool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for _, t := range tips {
			if err := repo.Add(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seed tips")
	}
	log.Info().Int("tips", len(tips)).Msg("seeding complete")
}
