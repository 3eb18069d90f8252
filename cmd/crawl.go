package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/narabid/bid-crawler/internal/app"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl KEYWORD [KEYWORD...]",
	Short: "Run one crawl job for the given keywords and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger, app.Options{ReleaseSessionOnFinish: true})
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer a.Close()

	jobID, err := a.Runner.Start(ctx, args)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	logger.Info("job started", zap.String("job_id", jobID), zap.Strings("keywords", args))

	// SIGINT requests a cooperative stop; the keyword in flight finishes.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("interrupt received, stopping after current keyword")
		a.Runner.Stop()
	}()

	a.Runner.Wait()
	state := a.Runner.State()
	logger.Info("job finished",
		zap.String("status", string(state.Status)),
		zap.Int("processed", state.ProcessedCount),
		zap.Int("results", state.TotalResults),
		zap.Int("errors", len(state.Errors)),
	)
	return nil
}
