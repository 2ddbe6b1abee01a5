package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docsense/client/internal/analysis"
	"docsense/client/internal/cache"
	"docsense/client/internal/config"
	"docsense/client/internal/model"
	"docsense/client/internal/orchestrator"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg.LogMode)
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	collectionName := flag.String("collection", "", "submit files as a named collection")
	text := flag.String("text", "", "analyze pasted text instead of files")
	history := flag.Bool("history", false, "list and hydrate previously analyzed documents")
	token := flag.String("token", os.Getenv("DOCSENSE_TOKEN"), "bearer token for the analysis service")
	flag.Parse()

	client := analysis.New(cfg.ServiceURL, analysis.StaticToken(*token), cfg.RequestTimeout, log)

	var recordCache cache.RecordCache = cache.Noop{}
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL, log)
		if err != nil {
			log.Fatalw("redis connection failed", "err", err)
		}
		defer redisCache.Close()
		recordCache = redisCache
		log.Infow("record cache enabled", "ttl", cfg.CacheTTL)
	}

	orch := orchestrator.New(cfg, client, recordCache, orchestrator.Hooks{}, log)
	unsubscribe := orch.Subscribe(func(ev orchestrator.Event) {
		switch ev.Type {
		case orchestrator.EventDocumentUpdated:
			if doc, ok := orch.Document(ev.DocumentID); ok {
				fmt.Printf("%-12s %s\n", doc.Status, doc.Filename)
			}
		case orchestrator.EventBanner:
			fmt.Printf("notice: %s\n", ev.Message)
		case orchestrator.EventSignedOut:
			fmt.Println("signed out by the service")
		}
	})
	defer unsubscribe()

	ctx := context.Background()

	switch {
	case *history:
		runHistory(ctx, orch, log)
	case *text != "":
		runText(ctx, orch, *text, log)
	default:
		runFiles(ctx, orch, flag.Args(), *collectionName, log)
	}
}

func newLogger(mode string) *zap.Logger {
	var logger *zap.Logger
	var err error
	switch strings.ToLower(mode) {
	case "prod", "production":
		logger, err = zap.NewProduction()
	default:
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func runFiles(ctx context.Context, orch *orchestrator.Orchestrator, paths []string, collectionName string, log *zap.SugaredLogger) {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: docsense [-collection name] file.pdf [file2.pdf ...]")
		fmt.Fprintln(os.Stderr, "       docsense -text \"...\"")
		fmt.Fprintln(os.Stderr, "       docsense -history")
		os.Exit(2)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			log.Fatalw("stat file", "path", path, "err", err)
		}
		ref := model.FileRef{Name: filepath.Base(path), Size: info.Size(), Path: path}
		if err := orch.StageFile(ref, collectionName != ""); err != nil {
			log.Fatalw("rejected", "path", path, "err", err)
		}
	}

	result, err := orch.SubmitStaged(ctx, collectionName)
	if err != nil {
		log.Fatalw("submission failed", "err", err)
	}
	if len(result.Existing) > 0 {
		fmt.Printf("%d file(s) already analyzed this session\n", len(result.Existing))
	}

	orch.Wait()
	report(orch)
}

func runText(ctx context.Context, orch *orchestrator.Orchestrator, text string, log *zap.SugaredLogger) {
	if _, err := orch.SubmitText(ctx, text); err != nil {
		log.Fatalw("submission failed", "err", err)
	}
	orch.Wait()
	report(orch)
}

// runHistory lists server-side history and hydrates the records
// concurrently, warming the local cache.
func runHistory(ctx context.Context, orch *orchestrator.Orchestrator, log *zap.SugaredLogger) {
	summaries, err := orch.ListHistory(ctx, analysis.Page{Limit: 20})
	if err != nil {
		log.Fatalw("history fetch failed", "err", err)
	}
	if len(summaries) == 0 {
		fmt.Println("no analyzed documents yet")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, summary := range summaries {
		id := summary.ID
		g.Go(func() error {
			_, err := orch.Hydrate(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalw("hydration failed", "err", err)
	}
	report(orch)
}

func report(orch *orchestrator.Orchestrator) {
	for _, doc := range orch.Documents() {
		fmt.Printf("\n%s [%s]\n", doc.Filename, doc.Status)
		switch {
		case doc.Results != nil:
			fmt.Printf("  %s\n", doc.Results.Summary)
			for _, point := range doc.Results.KeyPoints {
				fmt.Printf("  - %s\n", point)
			}
			if len(doc.Results.RiskFlags) > 0 {
				fmt.Printf("  risks: %s\n", strings.Join(doc.Results.RiskFlags, "; "))
			}
		case doc.Error != "":
			fmt.Printf("  error: %s\n", doc.Error)
		}
	}
	for _, col := range orch.Collections() {
		if status, ok := orch.CollectionStatus(col.ID); ok {
			fmt.Printf("\ncollection %q [%s] (%d documents)\n", col.Name, status, len(col.Documents))
		}
	}
}
