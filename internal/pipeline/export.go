package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/investor-coach/internal/contracts"
)

// ExportColumns is the header of the ranked table export
var ExportColumns = []string{
	"rank", "symbol", "score", "sharpe", "volatility", "max_drawdown",
	"beta", "r_squared", "expense_ratio", "yield_pct", "warning",
}

// WriteCSV writes the ranked rows; undefined values are empty cells
func WriteCSV(w io.Writer, rows []contracts.ScoredRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Rank),
			r.Symbol,
			formatFloat(r.Score),
			formatFloat(r.Sharpe),
			formatFloat(r.Volatility),
			formatFloat(r.MaxDrawdown),
			formatFloat(r.Beta),
			formatFloat(r.RSquared),
			formatFloat(r.ExpenseRatio),
			formatFloat(r.YieldPct),
			r.Warning,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the ranked rows to path, creating parent directories
func ExportCSV(path string, rows []contracts.ScoredRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write export: %w", err)
	}
	return f.Close()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 6, 64)
}
