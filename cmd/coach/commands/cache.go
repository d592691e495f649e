package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/investor-coach/internal/pricecache"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "가격 캐시 관리",
	Long: `CACHE_DIR 아래 가격 캐시(manifest/index.json)를 조회하고 정리합니다.

Subcommands:
  ls     - 캐시 항목 및 신선도 조회
  rm     - 특정 키 삭제
  clear  - 전체 삭제

Example:
  go run ./cmd/coach cache ls
  go run ./cmd/coach cache rm AAPL__SPY__3y__D
  go run ./cmd/coach cache clear`,
}

var (
	cacheListCmd = &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "캐시 항목 조회",
		RunE:    runCacheList,
	}

	cacheRemoveCmd = &cobra.Command{
		Use:   "rm [key...]",
		Short: "특정 키 삭제",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCacheRemove,
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "전체 삭제",
		RunE:  runCacheClear,
	}
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheRemoveCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheList(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	entries := a.store.List()
	if len(entries) == 0 {
		PrintInfo(out, "Cache is empty: "+a.store.Root())
		return nil
	}

	PrintHeader(out, fmt.Sprintf("Price cache (%d entries)", len(entries)))
	fmt.Fprintf(out, "  Root: %s\n\n", a.store.Root())
	printCacheEntries(out, entries)
	return nil
}

func printCacheEntries(w io.Writer, entries []pricecache.EntryStatus) {
	columns := []string{"Key", "Source", "Currency", "Updated (UTC)", "Expires (UTC)", "Status"}
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := "fresh"
		switch {
		case !e.FilesPresent:
			status = "missing files"
		case !e.Fresh:
			status = "expired"
		}
		records = append(records, []string{
			e.Key,
			e.Source,
			e.Currency,
			e.LastUpdated.UTC().Format("2006-01-02 15:04"),
			e.ExpiresAt.UTC().Format("2006-01-02 15:04"),
			status,
		})
	}

	widths := columnWidths(columns, records)
	PrintTableHeader(w, columns, widths)
	for _, rec := range records {
		PrintTableRow(w, rec, widths)
	}
}

func runCacheRemove(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	for _, key := range args {
		removed, err := a.store.Remove(ctx, key)
		if err != nil {
			return fmt.Errorf("remove %s: %w", key, err)
		}
		if removed {
			PrintSuccess(out, "Removed "+key)
		} else {
			PrintWarning(out, "Not cached: "+key)
		}
	}
	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.store.Clear(ctx)
	if err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}

	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Cleared %d entries", n))
	return nil
}
