package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/timmy/mediafetch/internal/config"
	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/fetcher"
	"github.com/timmy/mediafetch/internal/logger"
	"github.com/timmy/mediafetch/internal/service"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "mediafetch-cli",
	})
	logger.SetDefaultLogger(appLogger)

	format := flag.String("format", "mp3", "Output format: mp3 or mp4")
	outDir := flag.String("out", ".", "Directory to write files into")
	configPath := flag.String("config", "", "Path to config file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] URL...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	var urls []string
	for _, arg := range flag.Args() {
		urls = append(urls, service.ParseURLs(arg)...)
	}
	mediaFormat := service.ParseFormat(*format)
	if err := service.ValidateSubmission(urls, mediaFormat, 0); err != nil {
		flag.Usage()
		appLogger.WithError(err).Fatal("Invalid arguments")
	}
	for i, u := range urls {
		urls[i] = service.NormalizeURL(u)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	appLogger.WithFields(logger.Fields{
		logger.FieldCount:  len(urls),
		logger.FieldFormat: string(mediaFormat),
		"out":              *outDir,
	}).Info("Starting fetch")

	start := time.Now()
	files, err := fetcher.FetchAll(ctx, fetcher.New(cfg.Fetcher), urls, mediaFormat, *outDir, progressLogger(appLogger, urls))
	for _, f := range files {
		fmt.Println(f)
	}
	if err != nil {
		appLogger.WithError(err).WithField(logger.FieldCount, len(files)).Fatal("Fetch failed")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldCount:      len(files),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info("Fetch completed")
}

// progressLogger logs item transitions and every tenth percent in between.
func progressLogger(log *logger.Logger, urls []string) fetcher.ProgressFunc {
	lastBucket := make(map[int]int)
	return func(index int, status domain.ItemStatus, info fetcher.ProgressInfo) {
		entry := log.WithFields(logger.Fields{
			logger.FieldItemIndex: index,
			logger.FieldURL:       urls[index],
			logger.FieldStatus:    string(status),
		})
		if info.Filename != "" {
			entry = entry.WithField("filename", info.Filename)
		}

		switch status {
		case domain.ItemStatusDownloading:
			if info.Percent == nil {
				return
			}
			bucket := int(*info.Percent) / 10
			if prev, seen := lastBucket[index]; seen && bucket <= prev {
				return
			}
			lastBucket[index] = bucket
			entry.WithField(logger.FieldPercent, *info.Percent).Info("Downloading")
		case domain.ItemStatusCompleted:
			entry.Info("Completed")
		case domain.ItemStatusError:
			entry.WithError(info.Err).Warn("Failed")
		}
	}
}
