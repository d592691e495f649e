package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "Investor Coach - 벤치마크 대비 종목 비교/순위",
	Long: `Investor Coach CLI

수정주가 시계열을 캐시(TTL)하고, 벤치마크와 공통 날짜로 정렬한 뒤
변동성/최대낙폭/샤프/베타/R² 팩터를 계산해 가중 점수로 순위를 매깁니다.

Usage:
  go run ./cmd/coach [command]

Examples:
  go run ./cmd/coach compare --tickers AAPL,MSFT --benchmark SPY
  go run ./cmd/coach compare --tickers VTI,VXUS,BND --profile income --format markdown
  go run ./cmd/coach journal add --category core --tickers VTI,VXUS --action BUY
  go run ./cmd/coach cache ls
  go run ./cmd/coach api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
}
