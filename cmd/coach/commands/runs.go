package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "저장된 비교 결과 조회",
	Long: `compare --archive 로 Postgres 에 저장된 실행 결과를 조회합니다.
DATABASE_URL 이 설정되어 있어야 합니다.

Subcommands:
  list  - 최근 실행 목록
  show  - 특정 실행의 순위표

Example:
  go run ./cmd/coach runs list --limit 10
  go run ./cmd/coach runs show 6f1c2a1e-...`,
}

var (
	runsListCmd = &cobra.Command{
		Use:   "list",
		Short: "최근 실행 목록",
		RunE:  runRunsList,
	}

	runsShowCmd = &cobra.Command{
		Use:   "show [run_id]",
		Short: "특정 실행의 순위표",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShow,
	}
)

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "조회 개수")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	repo, closeDB, err := a.openArchive(ctx)
	defer closeDB()
	if err != nil {
		return err
	}

	runs, err := repo.Recent(ctx, runsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		PrintInfo(out, "No archived runs")
		return nil
	}

	columns := []string{"Run ID", "Created", "As of", "Benchmark", "Profile", "Tickers", "Top"}
	records := make([][]string, 0, len(runs))
	for _, r := range runs {
		records = append(records, []string{
			r.RunID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.AsOf.Format("2006-01-02"),
			r.Benchmark,
			r.ProfileName,
			strings.Join(r.Tickers, ","),
			r.TopPick,
		})
	}

	widths := columnWidths(columns, records)
	PrintTableHeader(out, columns, widths)
	for _, rec := range records {
		PrintTableRow(out, rec, widths)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	repo, closeDB, err := a.openArchive(ctx)
	defer closeDB()
	if err != nil {
		return err
	}

	rows, err := repo.Rows(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		return fmt.Errorf("run %s not found", args[0])
	}

	PrintHeader(out, "Run "+args[0])
	PrintRankTable(out, rows)
	PrintInfo(out, strconv.Itoa(len(rows))+" rows")
	return nil
}
