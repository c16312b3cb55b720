package main

import (
	"fmt"
	"time"

	"organlink/internal/db"
	"organlink/internal/storage"
	"organlink/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var archiveAuditCommand = &cli.Command{
	Name:  "archive-audit",
	Usage: "Upload recent audit entries to S3 as JSON lines",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:  "since",
			Usage: "How far back to archive",
			Value: 24 * time.Hour,
		},
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "Destination bucket, defaults to AUDIT_ARCHIVE_BUCKET",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bucket := c.String("bucket")
		if bucket == "" {
			bucket = cfg.AuditArchiveBucket
		}
		if bucket == "" {
			return fmt.Errorf("set AUDIT_ARCHIVE_BUCKET or pass --bucket")
		}

		ctx := c.Context
		logger := newLogger()

		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		now := time.Now().UTC()
		entries, err := store.NewAuditRepository(pool).Since(ctx, now.Add(-c.Duration("since")))
		if err != nil {
			return err
		}

		archive := storage.NewAuditArchive(s3.NewFromConfig(awsConfig), bucket)
		key, err := archive.Upload(ctx, entries, now)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"bucket":  bucket,
			"key":     key,
			"entries": len(entries),
		}).Info("audit entries archived")
		return nil
	},
}
