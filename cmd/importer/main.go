package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"address-search-api/internal/config"
	"address-search-api/internal/importer"
	"address-search-api/internal/logging"
	"address-search-api/internal/repository"

	"github.com/dustin/go-humanize"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "importer",
		Usage: "Manage the address store schema and bulk load addresses",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Directory containing app.env",
				Value: "configs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the customers and addresses tables",
				Action: migrateCommand,
			},
			{
				Name:   "import",
				Usage:  "Load addresses from a local CSV file or a MinIO object",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Path to the CSV file to import",
					},
					&cli.StringFlag{
						Name:  "bucket",
						Usage: "MinIO bucket holding the CSV object",
					},
					&cli.StringFlag{
						Name:  "object",
						Usage: "Key of the CSV object in --bucket",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of rows written per batch",
						Value: importer.DefaultBatchSize,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("importer failed")
	}
}

func loadConfig(c *cli.Context) (config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, zerolog.Logger{}, err
	}
	return cfg, logger, nil
}

func migrateCommand(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.StoreBackend != config.BackendPostgres {
		return fmt.Errorf("migrate requires STORE_BACKEND=%s, got %s", config.BackendPostgres, cfg.StoreBackend)
	}

	db, err := repository.OpenMigrationDB(cfg.DBSource)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(c.Context, db); err != nil {
		return err
	}
	logger.Info().Msg("schema is up to date")
	return nil
}

func importCommand(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	input, size, source, err := openInput(c, cfg)
	if err != nil {
		return err
	}
	defer input.Close()
	logger.Info().Str("source", source).Str("size", humanize.Bytes(uint64(size))).Msg("starting import")

	sink, closeSink, err := openSink(c, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	start := time.Now()
	summary, err := importer.New(sink, c.Int("batch-size")).Import(c.Context, input)
	if err != nil {
		return err
	}

	logger.Info().
		Str("parsed", humanize.Comma(int64(summary.Parsed))).
		Str("written", humanize.Comma(summary.Written)).
		Dur("elapsed", time.Since(start)).
		Msg("import finished")
	return nil
}

func openInput(c *cli.Context, cfg config.Config) (io.ReadCloser, int64, string, error) {
	file := c.String("file")
	bucket, object := c.String("bucket"), c.String("object")

	switch {
	case file != "" && (bucket != "" || object != ""):
		return nil, 0, "", fmt.Errorf("use either --file or --bucket/--object, not both")
	case file != "":
		f, err := os.Open(file)
		if err != nil {
			return nil, 0, "", fmt.Errorf("failed to open file: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, "", fmt.Errorf("failed to stat file: %w", err)
		}
		return f, info.Size(), file, nil
	case bucket != "" && object != "":
		source, err := importer.NewObjectSource(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, 0, "", err
		}
		r, size, err := source.Open(c.Context, bucket, object)
		if err != nil {
			return nil, 0, "", err
		}
		return r, size, bucket + "/" + object, nil
	default:
		return nil, 0, "", fmt.Errorf("--file or both --bucket and --object are required")
	}
}

func openSink(c *cli.Context, cfg config.Config, logger zerolog.Logger) (importer.Sink, func(), error) {
	if cfg.StoreBackend == config.BackendBadger {
		store, err := repository.OpenBadgerStore(cfg.BadgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close store")
			}
		}, nil
	}

	pool, err := pgxpool.New(c.Context, cfg.DBSource)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return repository.NewPostgresStore(pool), pool.Close, nil
}
