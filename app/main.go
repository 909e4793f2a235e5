package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/drag1web/job-board/app/store"
	"github.com/drag1web/job-board/app/store/persistence"
	"github.com/drag1web/job-board/app/web"
)

var opts struct {
	Listen string `short:"l" long:"listen" env:"JB_LISTEN" default:":8080" description:"listen address"`
	DBPath string `long:"db" env:"JB_DB" default:"var/jobs.db" description:"path to sqlite database"`
	Seed   string `long:"seed" env:"JB_SEED" description:"yaml file with seed jobs, overrides built-in set"`

	Backend struct {
		FailRate      float64       `long:"fail-rate" env:"FAIL_RATE" default:"0.1" description:"simulated failure probability for mutations"`
		MinDelay      time.Duration `long:"min-delay" env:"MIN_DELAY" default:"300ms" description:"min simulated latency for mutations"`
		MaxDelay      time.Duration `long:"max-delay" env:"MAX_DELAY" default:"500ms" description:"max simulated latency for mutations"`
		FetchMinDelay time.Duration `long:"fetch-min-delay" env:"FETCH_MIN_DELAY" default:"400ms" description:"min simulated latency for fetch"`
		FetchMaxDelay time.Duration `long:"fetch-max-delay" env:"FETCH_MAX_DELAY" default:"800ms" description:"max simulated latency for fetch"`
	} `group:"backend" namespace:"backend" env-namespace:"JB_BACKEND"`

	Log struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"enable logging"`
		File       string `long:"file" env:"FILE" description:"log file location, stdout only if empty"`
		MaxSize    int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max log file size in MB"`
		MaxBackups int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"max rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"JB_LOG"`

	Dbg bool `long:"dbg" env:"DEBUG" description:"debug mode"`
}

var revision = "unknown"

func main() {
	fmt.Printf("job-board %s\n", revision)

	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	seed, err := makeSeed()
	if err != nil {
		return err
	}

	db, err := persistence.NewSQLiteStore(opts.DBPath, seed)
	if err != nil {
		return fmt.Errorf("failed to create persistence at %q: %w", opts.DBPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("[WARN] failed to close persistence: %v", err)
		}
	}()

	jobs, err := store.New(store.Config{
		Persistence:  db,
		Gateway:      store.NewSimulatedGateway(opts.Backend.MinDelay, opts.Backend.MaxDelay, opts.Backend.FailRate),
		FetchGateway: store.NewSimulatedGateway(opts.Backend.FetchMinDelay, opts.Backend.FetchMaxDelay, 0),
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	// initial load so the first listing request doesn't hit an empty state
	jobs.Fetch(ctx)
	if snap := jobs.Snapshot(); snap.Err != "" {
		log.Printf("[WARN] initial load reported %q, starting with empty collection", snap.Err)
	}

	srv, err := web.New(web.Config{Store: jobs, Version: revision})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	return srv.Run(ctx, opts.Listen)
}

// makeSeed resolves the seed set, the built-in fallback unless a seed file
// is configured
func makeSeed() ([]store.Job, error) {
	if opts.Seed == "" {
		return store.Seed(), nil
	}
	seed, err := store.LoadSeedFile(opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load seed file: %w", err)
	}
	log.Printf("[INFO] loaded %d seed jobs from %s", len(seed), opts.Seed)
	return seed, nil
}

func setupLogs() {
	if !opts.Log.Enabled {
		log.Setup(log.Out(io.Discard), log.Err(io.Discard))
		return
	}

	logOpts := []log.Option{log.Msec}
	if opts.Dbg {
		logOpts = []log.Option{log.Debug, log.Msec, log.CallerFunc, log.CallerPkg, log.CallerFile}
	}

	if opts.Log.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   opts.Log.File,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			Compress:   true,
		}
		logOpts = append(logOpts, log.Out(io.MultiWriter(os.Stdout, fileLogger)))
	}
	log.Setup(logOpts...)
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM)
}
