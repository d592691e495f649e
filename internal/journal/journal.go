package journal

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/wonny/investor-coach/internal/contracts"
	"github.com/wonny/investor-coach/internal/validation"
	"github.com/wonny/investor-coach/pkg/logger"
)

// Header is the column order of the decisions file
var Header = []string{
	"date", "category", "tickers", "profile_name", "weights_json",
	"top_pick", "action", "note", "snapshot_path",
}

// Decision actions
const (
	ActionBuy    = "BUY"
	ActionReject = "REJECT"
	ActionWatch  = "WATCH"
)

// Entry is one recorded decision
type Entry struct {
	Date         time.Time `json:"date"`
	Category     string    `json:"category"`
	Tickers      []string  `json:"tickers"`
	ProfileName  string    `json:"profile_name"`
	WeightsJSON  string    `json:"weights_json"`
	TopPick      string    `json:"top_pick"`
	Action       string    `json:"action"`
	Note         string    `json:"note"`
	SnapshotPath string    `json:"snapshot_path"`
}

func (e Entry) record() []string {
	return []string{
		contracts.DateKey(e.Date),
		e.Category,
		strings.Join(e.Tickers, ";"),
		e.ProfileName,
		e.WeightsJSON,
		e.TopPick,
		e.Action,
		e.Note,
		e.SnapshotPath,
	}
}

// Journal appends decisions to a CSV file
// ⭐ SSOT: 의사결정 기록은 여기서만
type Journal struct {
	path   string
	logger *logger.Logger
	now    func() time.Time
}

// New creates a journal writing to path
func New(path string, log *logger.Logger) *Journal {
	return &Journal{path: path, logger: log.WithModule("journal"), now: time.Now}
}

// Path returns the decisions file path
func (j *Journal) Path() string {
	return j.path
}

// Append validates e and appends it, writing the header for a new file.
// A zero Date means today.
func (j *Journal) Append(ctx context.Context, e Entry) (Entry, error) {
	in := &validation.JournalInput{
		Category: e.Category,
		Tickers:  e.Tickers,
		Profile:  e.ProfileName,
		TopPick:  e.TopPick,
		Action:   e.Action,
		Note:     e.Note,
	}
	if err := validation.Journal(in); err != nil {
		return Entry{}, err
	}
	e.Category, e.Tickers, e.ProfileName, e.TopPick, e.Action = in.Category, in.Tickers, in.Profile, in.TopPick, in.Action

	if strings.TrimSpace(e.WeightsJSON) != "" && !json.Valid([]byte(e.WeightsJSON)) {
		return Entry{}, contracts.ValidationError{Field: "weights_json", Message: "must be valid JSON"}
	}
	if e.Date.IsZero() {
		e.Date = j.now()
	}

	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return Entry{}, fmt.Errorf("create journal dir: %w", err)
	}

	lock := flock.New(j.path + ".lock")
	locked, err := lock.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return Entry{}, fmt.Errorf("lock journal: %w", err)
	}
	if !locked {
		return Entry{}, fmt.Errorf("lock journal: not acquired")
	}
	defer lock.Unlock()

	f, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, fmt.Errorf("stat journal: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return Entry{}, err
		}
	}
	if err := w.Write(e.record()); err != nil {
		return Entry{}, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Entry{}, fmt.Errorf("write journal: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"category": e.Category,
		"top_pick": e.TopPick,
		"action":   e.Action,
	}).Info("Decision recorded")
	return e, nil
}

// List reads every entry in file order; a missing file is an empty journal
func (j *Journal) List() ([]Entry, error) {
	f, err := os.Open(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(Header, ",") {
		return nil, fmt.Errorf("unexpected journal header: %s", strings.Join(header, ","))
	}

	var entries []Entry
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read journal: %w", err)
		}
		date, err := time.Parse(contracts.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("journal date %q: %w", rec[0], err)
		}
		var tickers []string
		if rec[2] != "" {
			tickers = strings.Split(rec[2], ";")
		}
		entries = append(entries, Entry{
			Date:         date,
			Category:     rec[1],
			Tickers:      tickers,
			ProfileName:  rec[3],
			WeightsJSON:  rec[4],
			TopPick:      rec[5],
			Action:       rec[6],
			Note:         rec[7],
			SnapshotPath: rec[8],
		})
	}
	return entries, nil
}
