package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/studio1767/s3mirror/internal/config"
	"github.com/studio1767/s3mirror/internal/logging"
	"github.com/studio1767/s3mirror/internal/mirror"
	"github.com/studio1767/s3mirror/internal/s3io"
	"github.com/studio1767/s3mirror/internal/watch"
)

func main() {
	// process the command line
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-v] <config-file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	verbose := flag.Bool("v", false, "verbose reporting")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Error: incorrect arguments provided\n")
		flag.Usage()
		os.Exit(1)
	}

	log := logging.NewTextLogger(os.Stderr, *verbose)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Error(ctx, "failed to load configuration", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	if err := run(ctx, cancel, cfg, log); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, log logging.Logger) error {

	host, err := cfg.HostName()
	if err != nil {
		log.Error(ctx, "failed to resolve host identity", "error", err)
		return err
	}

	pred, err := mirror.NewPredicate(cfg.Include, cfg.Exclude)
	if err != nil {
		log.Error(ctx, "bad inclusion pattern", "error", err)
		return err
	}

	connector := s3io.NewConnector(s3io.Options{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Profile:   cfg.Profile,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Endpoint:  cfg.Endpoint,
	})

	namer := mirror.NewNamer(cfg.Prefix, host, cfg.Separator)
	queue := mirror.NewQueue()
	planner := mirror.NewPlanner(cfg.ChunkSize(), mirror.SystemMemory, log)
	oracle := mirror.NewOracle(cfg.MD5OnStart, log)

	executor := mirror.NewExecutor(namer, planner, mirror.ExecutorOptions{
		MaxUploadSize:   cfg.MaxUploadSize(),
		WithIndex:       !cfg.WithoutIndex,
		WithGlobalIndex: cfg.GlobalIndex,
		Roots:           cfg.WatchDirs,
		Predicate:       pred,
	}, log)

	pool := mirror.NewPool(queue, connector, namer, oracle, executor, mirror.PoolOptions{
		Workers: cfg.Workers,
		Retries: cfg.Retries,
		OnFatal: func(err error) {
			// fail fast: no drain, no partial shutdown
			cancel()
			os.Exit(1)
		},
	}, log)

	pool.Start(ctx)

	if cfg.BackupExisting {
		go watch.ScanExisting(ctx, cfg.WatchDirs, pred, queue, log)
	}

	watcher, err := watch.New(queue, pred, watch.Options{
		Recursive: cfg.Recursive,
		AutoAdd:   cfg.AutoAdd,
		Events:    cfg.ListenEvents,
	}, log)
	if err != nil {
		log.Error(ctx, "failed to create watcher", "error", err)
		return err
	}

	if err := watcher.AddRoots(cfg.WatchDirs); err != nil {
		log.Error(ctx, "failed to register watch roots", "error", err)
		return err
	}

	log.Info(ctx, "mirror started",
		"bucket", cfg.Bucket, "host", host,
		"roots", cfg.WatchDirs, "workers", cfg.Workers)

	if err := watcher.Run(ctx); err != nil {
		log.Error(ctx, "event loop failed", "error", err)
		return err
	}

	queue.Close()
	pool.Wait()

	return nil
}
