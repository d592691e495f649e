package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pipeline"
	"github.com/wonny/investor-coach/internal/profile"
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare [TICKER...]",
	Short: "종목 비교 및 순위",
	Long: `티커들을 벤치마크와 비교해 가중 점수 순위표를 출력합니다.

이 명령어는:
- 가격 캐시 확인 (TTL 만료 또는 --refresh 시 재수집)
- 공통 날짜 정렬 (벤치마크 기준)
- 팩터 계산: volatility, max_drawdown, sharpe, beta, r_squared
- 프로필 가중치로 점수/순위 산출

Profiles:
  default, low_vol, income, custom (PROFILES_DIR/<name>.yaml 우선)

Output formats:
  table     - 정렬된 텍스트 테이블 (기본)
  markdown  - 터미널 마크다운
  csv       - CSV (stdout)
  json      - 전체 결과 JSON

Example:
  go run ./cmd/coach compare --tickers AAPL,MSFT --benchmark SPY
  go run ./cmd/coach compare VTI VXUS BND --profile income --timeframe 5y
  go run ./cmd/coach compare --tickers QQQ,SPLG --weights-json '{"sharpe":0.6,"vol":0.4}'
  go run ./cmd/coach compare --tickers AAPL,MSFT --export out/rank.csv --archive`,
	RunE: runCompare,
}

var (
	compareTickers     string
	compareBenchmark   string
	compareProfile     string
	compareWeightsJSON string
	compareTimeframe   string
	compareFreq        string
	compareR2          string
	compareRefresh     bool
	compareMissing     string
	compareFormat      string
	compareExport      string
	compareSnapshot    string
	compareArchive     bool
)

func init() {
	rootCmd.AddCommand(compareCmd)

	// Flags
	f := compareCmd.Flags()
	f.StringVarP(&compareTickers, "tickers", "t", "", "비교할 티커 (쉼표/공백 구분, 최대 25개)")
	f.StringVarP(&compareBenchmark, "benchmark", "b", "", "벤치마크 티커 (기본: BENCHMARK)")
	f.StringVarP(&compareProfile, "profile", "p", profile.Default, "가중치 프로필 (default|low_vol|income|custom)")
	f.StringVar(&compareWeightsJSON, "weights-json", "", "가중치 오버라이드 JSON")
	f.StringVar(&compareTimeframe, "timeframe", "", "기간 (1y|3y|5y, 기본: 프로필)")
	f.StringVar(&compareFreq, "freq", "", "빈도 (D|W|M, 기본: 프로필)")
	f.StringVar(&compareR2, "r2", "", "R² 정렬 목표 (high|low|none, 기본: 프로필)")
	f.BoolVar(&compareRefresh, "refresh", false, "캐시 무시하고 재수집")
	f.StringVar(&compareMissing, "missing", "", "데이터 없는 티커 처리 (fail|skip, 기본: MISSING_DATA_POLICY)")
	f.StringVarP(&compareFormat, "format", "f", "table", "출력 형식 (table|markdown|csv|json)")
	f.StringVar(&compareExport, "export", "", "순위표 CSV 저장 경로")
	f.StringVar(&compareSnapshot, "snapshot", "", "전체 결과 JSON 저장 경로 (journal snapshot_path)")
	f.BoolVar(&compareArchive, "archive", false, "결과를 Postgres 에 저장 (DATABASE_URL 필요)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	format := strings.ToLower(compareFormat)
	switch format {
	case "table", "markdown", "csv", "json":
	default:
		return fmt.Errorf("unsupported format %q (table, markdown, csv, json)", compareFormat)
	}

	req, err := buildCompareRequest(args)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if req.ForceRefresh || a.cfg.Cache.ForceRefresh {
		req.ForceRefresh = true
	}

	result, err := a.service.CompareAndRank(ctx, req)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	if err := writeResult(out, format, result); err != nil {
		return err
	}

	if compareExport != "" {
		if err := pipeline.ExportCSV(compareExport, result.Rows); err != nil {
			return err
		}
		if format == "table" {
			PrintSuccess(out, fmt.Sprintf("Exported %d rows to %s", len(result.Rows), compareExport))
		}
	}

	if compareSnapshot != "" {
		if err := writeSnapshot(compareSnapshot, result); err != nil {
			return err
		}
		if format == "table" {
			PrintSuccess(out, "Snapshot saved to "+compareSnapshot)
		}
	}

	if compareArchive {
		if err := archiveResult(ctx, a, result); err != nil {
			return err
		}
		if format == "table" {
			PrintSuccess(out, "Archived run "+result.RunID)
		}
	}

	return nil
}

// buildCompareRequest turns flags and positional tickers into a pipeline request
func buildCompareRequest(args []string) (pipeline.Request, error) {
	overrides, err := profile.ParseOverrides(compareWeightsJSON)
	if err != nil {
		return pipeline.Request{}, err
	}

	tickers := append([]string(nil), args...)
	if compareTickers != "" {
		tickers = append(tickers, compareTickers)
	}

	req := pipeline.Request{
		Tickers:         tickers,
		Benchmark:       compareBenchmark,
		Profile:         compareProfile,
		WeightOverrides: overrides,
		Timeframe:       compareTimeframe,
		Frequency:       compareFreq,
		R2Target:        compareR2,
		ForceRefresh:    compareRefresh,
	}
	if compareMissing != "" {
		policy, err := contracts.ParseMissingDataPolicy(compareMissing)
		if err != nil {
			return pipeline.Request{}, err
		}
		req.MissingData = policy
	}
	return req, nil
}

func writeResult(w io.Writer, format string, res *pipeline.Result) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "csv":
		return pipeline.WriteCSV(w, res.Rows)
	case "markdown":
		rendered, err := renderMarkdown(rankMarkdown(res))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, rendered)
		return err
	default:
		printCompareTable(w, res)
		return nil
	}
}

func printCompareTable(w io.Writer, res *pipeline.Result) {
	PrintHeader(w, fmt.Sprintf("Compare vs %s", res.Benchmark))
	PrintKeyValue(w, "Run ID", res.RunID, 10)
	PrintKeyValue(w, "Profile", fmt.Sprintf("%s (%s)", res.Profile.Name, shortHash(res.ProfileHash)), 10)
	PrintKeyValue(w, "Window", fmt.Sprintf("%s / %s, %d dates", res.Timeframe, res.Frequency, res.CommonDates), 10)
	PrintKeyValue(w, "As of", contracts.DateKey(res.AsOf), 10)
	PrintKeyValue(w, "Duration", res.Duration.Round(time.Millisecond).String(), 10)
	PrintSeparator(w)
	fmt.Fprintln(w)

	PrintRankTable(w, res.Rows)
	fmt.Fprintln(w)

	if res.Short {
		PrintWarning(w, fmt.Sprintf("Only %d common dates: metrics may be unreliable", res.CommonDates))
	}
	if len(res.Excluded) > 0 {
		PrintWarning(w, fmt.Sprintf("%d ticker(s) excluded:", len(res.Excluded)))
		items := make([]string, 0, len(res.Excluded))
		for _, e := range res.Excluded {
			items = append(items, e.Symbol+": "+e.Reason)
		}
		PrintList(w, items)
	}
	if top := res.TopPick(); top != "" {
		PrintSuccess(w, "Top pick: "+top)
	} else {
		PrintWarning(w, "No ticker could be scored")
	}
}

// writeSnapshot stores the full result as indented JSON
func writeSnapshot(path string, res *pipeline.Result) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func archiveResult(ctx context.Context, a *app, res *pipeline.Result) error {
	repo, closeDB, err := a.openArchive(ctx)
	defer closeDB()
	if err != nil {
		return err
	}
	return repo.SaveRun(ctx, res)
}
