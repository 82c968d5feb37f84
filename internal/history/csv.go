package history

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"binance_trader/internal/models"
)

var csvHeader = []string{"open_time", "open", "high", "low", "close", "volume", "close_time"}

// WriteBarsCSV stores bars in the repo's canonical candle CSV layout.
func WriteBarsCSV(path string, bars []models.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			strconv.FormatInt(b.OpenTime, 10),
			fmtF(b.Open), fmtF(b.High), fmtF(b.Low), fmtF(b.Close), fmtF(b.Volume),
			strconv.FormatInt(b.CloseTime, 10),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadBarsCSV loads a candle CSV written by WriteBarsCSV (or compatible).
func ReadBarsCSV(path string) ([]models.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read csv")
	}
	if len(rows) > 0 && rows[0][0] == "open_time" {
		rows = rows[1:]
	}

	bars := make([]models.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		openTime, _ := strconv.ParseInt(row[0], 10, 64)
		closeTime, _ := strconv.ParseInt(row[6], 10, 64)
		bars = append(bars, models.Bar{
			OpenTime:  openTime,
			Open:      parseF(row[1]),
			High:      parseF(row[2]),
			Low:       parseF(row[3]),
			Close:     parseF(row[4]),
			Volume:    parseF(row[5]),
			CloseTime: closeTime,
		})
	}
	return bars, nil
}

func fmtF(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func parseF(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
