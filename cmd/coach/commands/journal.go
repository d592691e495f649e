package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/journal"
	"github.com/wonny/investor-coach/internal/validation"
	"github.com/wonny/investor-coach/pkg/config"
	"github.com/wonny/investor-coach/pkg/logger"
)

// journalCmd represents the journal command
var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "의사결정 기록",
	Long: `비교 결과를 바탕으로 한 의사결정을 CSV 저널에 기록합니다.

Columns:
  date,category,tickers,profile_name,weights_json,top_pick,action,note,snapshot_path

Subcommands:
  add   - 결정 추가 (BUY|REJECT|WATCH)
  list  - 기록 조회

Example:
  go run ./cmd/coach journal add --category core --tickers VTI,VXUS --top-pick VTI --action BUY
  go run ./cmd/coach journal list`,
}

var (
	journalAddCmd = &cobra.Command{
		Use:   "add",
		Short: "결정 추가",
		RunE:  runJournalAdd,
	}

	journalListCmd = &cobra.Command{
		Use:   "list",
		Short: "기록 조회",
		RunE:  runJournalList,
	}
)

var (
	journalCategory string
	journalTickers  string
	journalProfile  string
	journalWeights  string
	journalTopPick  string
	journalAction   string
	journalNote     string
	journalSnapshot string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalAddCmd)
	journalCmd.AddCommand(journalListCmd)

	f := journalAddCmd.Flags()
	f.StringVar(&journalCategory, "category", "", "분류 (예: core, satellite)")
	f.StringVar(&journalTickers, "tickers", "", "비교한 티커 (쉼표 구분)")
	f.StringVar(&journalProfile, "profile", "default", "사용한 프로필")
	f.StringVar(&journalWeights, "weights-json", "", "사용한 가중치 JSON")
	f.StringVar(&journalTopPick, "top-pick", "", "1위 티커")
	f.StringVar(&journalAction, "action", "", "결정 (BUY|REJECT|WATCH)")
	f.StringVar(&journalNote, "note", "", "메모")
	f.StringVar(&journalSnapshot, "snapshot", "", "compare --snapshot 경로")
}

func openJournal() (*journal.Journal, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return journal.New(cfg.JournalPath, logger.New(cfg)), nil
}

func runJournalAdd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	j, err := openJournal()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	entry, err := j.Append(ctx, journal.Entry{
		Category:     journalCategory,
		Tickers:      validation.NormalizeTickers([]string{journalTickers}),
		ProfileName:  journalProfile,
		WeightsJSON:  journalWeights,
		TopPick:      strings.ToUpper(strings.TrimSpace(journalTopPick)),
		Action:       strings.ToUpper(strings.TrimSpace(journalAction)),
		Note:         journalNote,
		SnapshotPath: journalSnapshot,
	})
	if err != nil {
		return err
	}

	PrintSuccess(out, fmt.Sprintf("Recorded %s %s (%s) in %s",
		entry.Action, strings.Join(entry.Tickers, ";"), contracts.DateKey(entry.Date), j.Path()))
	return nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	j, err := openJournal()
	if err != nil {
		return err
	}

	entries, err := j.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		PrintInfo(out, "No decisions recorded in "+j.Path())
		return nil
	}

	columns := []string{"Date", "Category", "Action", "Top", "Profile", "Tickers", "Note"}
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			contracts.DateKey(e.Date),
			e.Category,
			e.Action,
			e.TopPick,
			e.ProfileName,
			strings.Join(e.Tickers, ","),
			e.Note,
		})
	}

	widths := columnWidths(columns, records)
	PrintTableHeader(out, columns, widths)
	for _, rec := range records {
		PrintTableRow(out, rec, widths)
	}
	return nil
}
