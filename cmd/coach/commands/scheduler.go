package commands

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/scheduler"
	"github.com/wonny/investor-coach/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `가격 캐시 유지 작업을 스케줄하거나 즉시 실행합니다.

이 명령어는:
- 스케줄러 데몬 시작
- 등록된 작업 조회
- 작업 즉시 실행

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  WATCHLIST=VTI,VXUS,BND go run ./cmd/coach scheduler start
  go run ./cmd/coach scheduler list
  go run ./cmd/coach scheduler run cache_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- cache_refresh: WATCHLIST_SCHEDULE (기본 평일 06:30, WATCHLIST 설정 시)
- cache_prune: 매주 일요일 03:00 (만료/누락 항목 삭제)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Investor Coach Scheduler ===")

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Fprintln(out)
	PrintSuccess(out, "Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	PrintList(out, sched.GetAllJobs())
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	<-ctx.Done()

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	printJobStats(cmd, sched)
	fmt.Fprintln(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Registered jobs:")
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "   • %-14s %s\n", jobName, stats[jobName].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]
	out := cmd.OutOrStdout()

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Fprintf(out, "Running job: %s\n", jobName)

	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !result.Success {
		PrintError(out, fmt.Sprintf("Job %s failed after %s: %s", jobName, result.Duration.Round(time.Millisecond), result.Error))
		return fmt.Errorf("job %s failed", jobName)
	}

	PrintSuccess(out, fmt.Sprintf("Job %s completed in %s (attempts: %d)", jobName, result.Duration.Round(time.Millisecond), result.Attempts))
	if result.Summary != "" {
		PrintKeyValue(out, "Summary", result.Summary, 8)
	}
	return nil
}

func printJobStats(cmd *cobra.Command, sched *scheduler.Scheduler) {
	out := cmd.OutOrStdout()
	stats := sched.GetJobStats()

	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(out, "\nJob Statistics:")
	for _, name := range names {
		stat := stats[name]
		fmt.Fprintf(out, "📊 %s\n", name)
		fmt.Fprintf(out, "   Total Runs: %d\n", stat.TotalRuns)
		fmt.Fprintf(out, "   Success: %d (%.1f%%)\n", stat.SuccessCount, stat.SuccessRate*100)
		fmt.Fprintf(out, "   Failures: %d\n", stat.FailureCount)
		if stat.LastRun != nil {
			fmt.Fprintf(out, "   Last Run: %s\n", stat.LastRun.Format("2006-01-02 15:04:05"))
		}
		if stat.LastSummary != "" {
			fmt.Fprintf(out, "   Last Result: %s\n", stat.LastSummary)
		}
	}
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log).WithRetry(1, 30*time.Second)

	if len(a.cfg.Watchlist.Symbols) > 0 {
		tf, err := contracts.ParseTimeframe(a.cfg.Watchlist.Timeframe)
		if err != nil {
			return nil, err
		}
		freq, err := contracts.ParseFrequency(a.cfg.Watchlist.Frequency)
		if err != nil {
			return nil, err
		}

		refresh := jobs.NewCacheRefreshJob(
			a.store,
			a.cfg.Watchlist.Symbols,
			a.cfg.Analytics.Benchmark,
			tf,
			freq,
			a.cfg.Watchlist.Schedule,
			a.log,
		)
		if err := sched.AddJob(refresh); err != nil {
			return nil, err
		}
		a.log.WithField("symbols", strings.Join(a.cfg.Watchlist.Symbols, ",")).Info("Watchlist refresh scheduled")
	} else {
		a.log.Info("WATCHLIST empty, cache_refresh not registered")
	}

	if err := sched.AddJob(jobs.NewCachePruneJob(a.store, a.log)); err != nil {
		return nil, err
	}

	return sched, nil
}
