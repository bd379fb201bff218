package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"timeledger/internal/amqp"
	"timeledger/internal/backend"
	"timeledger/internal/cli"
	"timeledger/internal/config"
	"timeledger/internal/core"
	"timeledger/internal/log"
	"timeledger/internal/runner"
	"timeledger/internal/storage"
)

func main() {
	job := flag.String("job", "", "Job to run once: collect, reconcile or report")
	list := flag.Bool("list", false, "Print recent runs from the run journal (SQLITE_DB_PATH)")
	limit := flag.Int("limit", 20, "Runs to print with -list")
	request := flag.Bool("request", false, "Ask a running ledger-worker to run -job over AMQP instead of running it here")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	switch {
	case *list:
		err = listRuns(ctx, cfg, strings.TrimSpace(*job), *limit, os.Stdout)
	case strings.TrimSpace(*job) == "":
		fmt.Fprintln(os.Stderr, "-job is required (collect, reconcile or report)")
		flag.Usage()
		os.Exit(2)
	case *request:
		err = requestRun(ctx, cfg, strings.TrimSpace(*job), logger)
	default:
		err = runOnce(ctx, cfg, strings.TrimSpace(*job), logger)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, cfg *config.Config, job string, logger *log.Logger) error {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	store, err := backend.NewFactory(logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}

	opts := []runner.Option{runner.WithTimeout(cfg.RunTimeout)}
	if cfg.SQLiteDBPath != "" {
		journal, err := storage.Open(cfg.SQLiteDBPath)
		if err != nil {
			return fmt.Errorf("open run journal: %w", err)
		}
		defer journal.Close()
		opts = append(opts, runner.WithJournal(journal))
	}
	if cfg.AMQPURL != "" {
		bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without notifications", log.FieldError, err.Error())
		} else {
			defer bus.Close()
			opts = append(opts, runner.WithNotifier(bus))
		}
	}

	r := runner.New(logger, cli.Jobs(cfg, store.Workbooks, logger), opts...)
	run, err := r.Run(ctx, job)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s: written=%d skipped=%d in %s\n", run.Job, run.Status, run.Stats.Written, run.Stats.Skipped, run.Duration())
	return nil
}

func requestRun(ctx context.Context, cfg *config.Config, job string, logger *log.Logger) error {
	if cfg.AMQPURL == "" {
		return fmt.Errorf("-request needs AMQP_URL")
	}
	bus, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer bus.Close()

	requestedBy, _ := os.Hostname()
	if err := bus.PublishRunRequest(ctx, job, "ledgerctl@"+requestedBy); err != nil {
		return err
	}
	fmt.Printf("requested %s\n", job)
	return nil
}

func listRuns(ctx context.Context, cfg *config.Config, job string, limit int, out io.Writer) error {
	if cfg.SQLiteDBPath == "" {
		return fmt.Errorf("-list needs SQLITE_DB_PATH")
	}
	journal, err := storage.Open(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open run journal: %w", err)
	}
	defer journal.Close()

	runs, err := journal.ListRuns(ctx, job, limit)
	if err != nil {
		return err
	}
	printRuns(out, runs)
	return nil
}

func printRuns(out io.Writer, runs []core.JobRun) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tJOB\tSTATUS\tWRITTEN\tSKIPPED\tDURATION\tERROR")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.Job, run.Status,
			run.Stats.Written, run.Stats.Skipped, run.Duration(), run.Error)
	}
	tw.Flush()
}
