// Command export writes the local punch log to an .xlsx workbook, either to a
// file or to the configured S3 bucket.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"axiapac.com/timeclock/config"
	"axiapac.com/timeclock/core"
	"axiapac.com/timeclock/export"
	"axiapac.com/timeclock/infrastructure/filesystem"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/security"
	"axiapac.com/timeclock/store"
	"github.com/joho/godotenv"
)

func main() {
	out := flag.String("out", "", "write the workbook to this file instead of S3")
	status := flag.String("status", "", "only export records with this status")
	list := flag.Bool("list", false, "list exported workbooks in the bucket")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := core.NewLogger(cfg.Log)
	ctx := context.Background()

	if *list {
		keys, err := filesystem.ListFiles(cfg.Export.Bucket, cfg.Export.Prefix, ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return
	}

	st, err := store.Open(cfg.Store.Path, core.ParseLogLevel(cfg.Store.LogLevel))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	var statuses []model.EventStatus
	if *status != "" {
		statuses = append(statuses, model.EventStatus(*status))
	}
	records, err := st.ListTimeEvents(ctx, statuses...)
	if err != nil {
		log.Fatal(err)
	}

	var key *security.Key
	if cfg.Encryption.Enabled && cfg.User.ID != "" {
		if key, err = security.DeriveUserKey(cfg.User.ID); err != nil {
			logger.Warn("no decryption key, encrypted rows will be blank", "error", err)
		}
	}

	var buf bytes.Buffer
	summary, err := export.WriteTimesheet(&buf, records, key)
	if err != nil {
		log.Fatal(err)
	}

	if *out != "" {
		if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
			log.Fatal(err)
		}
		logger.Info("workbook written", "path", *out, "rows", summary.Rows, "unreadable", summary.Unreadable)
		return
	}

	if cfg.Export.Bucket == "" {
		log.Fatal("export.bucket is not set; use -out for a local file")
	}
	objectKey := fmt.Sprintf("%s%s-%s.xlsx", cfg.Export.Prefix, cfg.User.ID, time.Now().UTC().Format("20060102T150405Z"))
	if err := filesystem.WriteFile(cfg.Export.Bucket, objectKey, ctx, &buf, filesystem.XLSXContentType); err != nil {
		log.Fatal(err)
	}
	logger.Info("workbook uploaded", "bucket", cfg.Export.Bucket, "key", objectKey, "rows", summary.Rows, "unreadable", summary.Unreadable)
}
