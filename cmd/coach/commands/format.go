package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/pipeline"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const separatorWidth = 59

// PrintHeader prints a boxed command header
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("─", separatorWidth))
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("═", separatorWidth))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintList prints a bulleted list
func PrintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	// Separator line
	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
// 폭은 rune 기준 (R², ─ 등 멀티바이트 문자)
func PrintTableRow(w io.Writer, values []string, widths []int) {
	var b strings.Builder
	for i, val := range values {
		b.WriteString(val)
		if i < len(values)-1 {
			if pad := widths[i] - utf8.RuneCountInString(val); pad > 0 {
				b.WriteString(strings.Repeat(" ", pad))
			}
			b.WriteString("  ")
		}
	}
	fmt.Fprintln(w, b.String())
}

// ═══════════════════════════════════════════════════════════
// Ranked table
// ═══════════════════════════════════════════════════════════

var rankColumns = []string{"Rank", "Symbol", "Score", "Sharpe", "Vol", "MaxDD", "Beta", "R²", "Exp%", "Yield%", "Note"}

// rankRecords renders scored rows as display strings (nil → "-")
func rankRecords(rows []contracts.ScoredRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			strconv.Itoa(r.Rank),
			r.Symbol,
			fmtNumber(r.Score, 3),
			fmtNumber(r.Sharpe, 2),
			fmtPercent(r.Volatility),
			fmtPercent(r.MaxDrawdown),
			fmtNumber(r.Beta, 2),
			fmtNumber(r.RSquared, 2),
			fmtPercent(r.ExpenseRatio),
			fmtPercent(r.YieldPct),
			r.Warning,
		})
	}
	return out
}

// columnWidths sizes each column to its widest cell
func columnWidths(header []string, records [][]string) []int {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, rec := range records {
		for i, v := range rec {
			if n := utf8.RuneCountInString(v); n > widths[i] {
				widths[i] = n
			}
		}
	}
	return widths
}

// PrintRankTable prints the ranked rows as an aligned text table
func PrintRankTable(w io.Writer, rows []contracts.ScoredRow) {
	records := rankRecords(rows)
	widths := columnWidths(rankColumns, records)

	PrintTableHeader(w, rankColumns, widths)
	for _, rec := range records {
		PrintTableRow(w, rec, widths)
	}
}

// rankMarkdown renders a comparison result as a markdown document
func rankMarkdown(res *pipeline.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s vs %s\n\n", strings.Join(res.Tickers, ", "), res.Benchmark)
	fmt.Fprintf(&b, "- **Profile**: %s (`%s`)\n", res.Profile.Name, shortHash(res.ProfileHash))
	fmt.Fprintf(&b, "- **Window**: %s / %s, %d common dates, as of %s\n",
		res.Timeframe, res.Frequency, res.CommonDates, contracts.DateKey(res.AsOf))
	fmt.Fprintf(&b, "- **Risk-free**: %.2f%%\n", res.RiskFreeRate*100)
	if top := res.TopPick(); top != "" {
		fmt.Fprintf(&b, "- **Top pick**: %s\n", top)
	}
	b.WriteString("\n")

	b.WriteString("| " + strings.Join(rankColumns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(rankColumns)) + "\n")
	for _, rec := range rankRecords(res.Rows) {
		b.WriteString("| " + strings.Join(rec, " | ") + " |\n")
	}

	if len(res.Excluded) > 0 {
		b.WriteString("\n## Excluded\n\n")
		for _, e := range res.Excluded {
			fmt.Fprintf(&b, "- %s: %s\n", e.Symbol, e.Reason)
		}
	}
	if res.Short {
		b.WriteString("\n> Short aligned history: metrics may be unreliable.\n")
	}
	return b.String()
}

// renderMarkdown styles markdown for the terminal
func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render(md)
}

func fmtNumber(v *float64, digits int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', digits, 64)
}

func fmtPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v*100, 'f', 2, 64)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
