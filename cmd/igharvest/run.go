package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"igharvest/internal/downloader"
	"igharvest/internal/staticpage"
	"igharvest/pkg/discovery"
	"igharvest/pkg/fetcher"
	"igharvest/pkg/logger"
	"igharvest/pkg/ratelimit"
	"igharvest/pkg/scraper"
	"igharvest/pkg/storage"
	"igharvest/pkg/ui"
)

var (
	// Run command flags
	inputFile   string
	outputDir   string
	concurrency int
	maxItems    int
	delayRange  string
	sessionID   string
	metricsAddr string
	notify      bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Harvest images for every account in the input file",
	Long: `Harvest images for every account listed in the input file.

Accounts are processed concurrently (--concurrency). For each account the
output directory is bootstrapped, posts are discovered and every image not
yet in the dedup cache is downloaded, recorded in the manifest and cached.

A session credential is optional; without one only public profiles are
reachable and the metadata API fallback is usually refused. See
'igharvest auth guide'.`,
	Example: `  # Harvest everything in ig.txt into ./downloads
  igharvest run

  # Cap each account at 50 new images, three accounts at a time
  igharvest run --max 50 --concurrency 3

  # Slower pacing and a Prometheus endpoint
  igharvest run --delay 3000-6000 --metrics-addr :9109`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&inputFile, "input", "i", "", "account list file (default: ig.txt)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: downloads)")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "accounts processed at once (default: 2)")
	runCmd.Flags().IntVar(&maxItems, "max", -1, "new images per account, 0 for no cap")
	runCmd.Flags().StringVar(&delayRange, "delay", "", "pause between requests as min-max milliseconds (default: 1200-2500)")
	runCmd.Flags().StringVar(&sessionID, "session-id", "", "session cookie value, overrides stored credentials")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when the run ends")
}

func runFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"input":        inputFile,
		"output":       outputDir,
		"delay":        delayRange,
		"session-id":   sessionID,
		"metrics-addr": metricsAddr,
	}
	if concurrency > 0 {
		flags["concurrency"] = concurrency
	}
	if maxItems >= 0 {
		flags["max"] = maxItems
	}
	return flags
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(runFlags())
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	list, err := loadAccounts(cfg.Harvest.InputFile)
	if err != nil {
		return err
	}
	if len(list.Ignored) > 0 {
		log.WithField("lines", list.Ignored).Warn("ignored unrecognized account entries")
	}
	if len(list.Accounts) == 0 {
		return fmt.Errorf("no accounts found in %s", cfg.Harvest.InputFile)
	}

	layout := storage.NewLayout(cfg.Harvest.OutputDirectory)
	prepared, err := layout.Prepare(list.Accounts)
	if err != nil {
		return err
	}
	log.InfoWithFields("output prepared", map[string]interface{}{
		"root":    layout.Root(),
		"created": prepared.Created,
		"total":   prepared.Total,
	})

	delay, err := cfg.DelayRange()
	if err != nil {
		return err
	}

	session, source := resolveSession(cfg, credentialManager(cfg))
	if session.ID == "" {
		log.Warn("no session credential found, browsing anonymously")
	} else {
		log.WithField("source", source).Info("using session credential")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	recorder := startMetrics(runCtx, cfg.Metrics.ListenAddress, log)
	ceiling := ratelimit.NewCeiling(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)

	client := fetcher.NewClient(cfg.Download.Timeout, cfg.Download.BlockPrivateNetworks)
	fetch := fetcher.New(client, fetcherOptions(cfg, session.UserAgent, ceiling), log, recorder)

	provider := staticpage.NewProvider(fetcher.NewClient(cfg.Discovery.NavigationTimeout, cfg.Download.BlockPrivateNetworks), log)
	chain := discovery.NewChain(provider, nil, discoveryOptions(cfg), log, recorder)

	runner := scraper.NewRunner(chain, fetch, log, recorder, ceiling)
	scheduler := downloader.NewScheduler(runner, cfg.Harvest.Concurrency, log)

	jobs := downloader.BuildJobs(layout, list.Accounts, downloader.JobTemplate{
		MaxItems: cfg.Harvest.MaxPerAccount,
		Delay:    delay,
		Session:  session,
	})

	if !quiet {
		ui.PrintInfo("Accounts", strconv.Itoa(len(jobs)))
		ui.PrintInfo("Output", layout.Root())
		ui.PrintInfo("Concurrency", strconv.Itoa(scheduler.Concurrency()))
		ui.PrintInfo("Delay", delay.String()+"ms")
	}

	batch := scheduler.Run(runCtx, jobs)

	if !quiet {
		printBatch(batch)
	}
	if notify {
		sendBatchNotification(ui.NewNotifier(true), batch)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if batch.Failed > 0 {
		return fmt.Errorf("%d of %d accounts failed", batch.Failed, len(batch.Accounts))
	}
	return nil
}

func printBatch(batch downloader.BatchResult) {
	rows := make([]ui.Row, 0, len(batch.Accounts))
	for _, res := range batch.Accounts {
		strategy := res.Strategy
		if strategy == "" {
			strategy = "-"
		}
		rows = append(rows, ui.Row{
			res.Account,
			string(res.State),
			strategy,
			strconv.Itoa(res.Downloaded),
			strconv.Itoa(res.Skipped),
			strconv.Itoa(res.Failed),
		})
	}

	fmt.Println()
	ui.PrintTable(ui.Row{"ACCOUNT", "STATE", "STRATEGY", "DOWNLOADED", "SKIPPED", "FAILED"}, rows)
	fmt.Println()
	ui.PrintInfo("Total downloaded", strconv.Itoa(batch.TotalDownloaded))
	if batch.Unavailable > 0 {
		ui.PrintWarning("Unavailable accounts", batch.Unavailable)
	}
	for _, res := range batch.Accounts {
		if res.Err != nil {
			ui.PrintError(res.Account, res.Err)
		}
	}
	ui.PrintInfo("Elapsed", batch.Duration.Round(time.Millisecond).String())
}

func sendBatchNotification(n *ui.Notifier, batch downloader.BatchResult) {
	msg := fmt.Sprintf("%d images from %d accounts", batch.TotalDownloaded, len(batch.Accounts))
	if batch.Failed > 0 {
		n.SendError("igharvest finished with failures", fmt.Sprintf("%s, %d failed", msg, batch.Failed))
		return
	}
	n.SendSuccess("igharvest finished", msg)
}
