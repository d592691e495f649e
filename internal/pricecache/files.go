package pricecache

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/investor-coach/internal/contracts"
)

var pricesHeader = []string{"date", "adj_close"}

// writeFileAtomic writes to a sibling temp file and renames it into place,
// so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

func writeJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// sanitizePoints normalizes dates to calendar days (UTC midnight), drops
// non-positive or non-finite prices, sorts and keeps the last value per day.
func sanitizePoints(points []contracts.PricePoint) []contracts.PricePoint {
	out := make([]contracts.PricePoint, 0, len(points))
	for _, p := range points {
		if p.AdjClose <= 0 || math.IsNaN(p.AdjClose) || math.IsInf(p.AdjClose, 0) {
			continue
		}
		y, m, d := p.Date.Date()
		out = append(out, contracts.PricePoint{
			Date:     time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			AdjClose: p.AdjClose,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	dedup := out[:0]
	for _, p := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(p.Date) {
			dedup[n-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	return dedup
}

// encodePrices renders the date,adj_close CSV
func encodePrices(points []contracts.PricePoint) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(pricesHeader); err != nil {
		return nil, err
	}
	for _, p := range points {
		row := []string{contracts.DateKey(p.Date), decimal.NewFromFloat(p.AdjClose).String()}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// decodePrices parses the date,adj_close CSV
func decodePrices(r io.Reader) ([]contracts.PricePoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != pricesHeader[0] || header[1] != pricesHeader[1] {
		return nil, fmt.Errorf("unexpected header %v", header)
	}

	var points []contracts.PricePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := time.Parse(contracts.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad date %q", line, rec[0])
		}
		price, err := decimal.NewFromString(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad price %q", line, rec[1])
		}
		points = append(points, contracts.PricePoint{Date: date, AdjClose: price.InexactFloat64()})
	}
	return points, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
