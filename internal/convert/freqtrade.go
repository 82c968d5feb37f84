package convert

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// trade is the subset of a freqtrade trade record we need.
type trade struct {
	CloseDate   string  `json:"close_date"`
	ProfitRatio float64 `json:"profit_ratio"`
}

// EquityPoint is one row of the core equity CSV format.
type EquityPoint struct {
	TimestampMs int64
	Equity      float64
}

// FromBacktestJSON compounds freqtrade trade profit ratios into an equity
// curve. The trades array may live at the top level or nested under
// "strategy" / "results".
func FromBacktestJSON(path string, equity0 float64) ([]EquityPoint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read freqtrade result")
	}

	var doc map[string]json.RawMessage
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "decode freqtrade result")
	}

	tradesRaw, ok := doc["trades"]
	if !ok {
		for _, key := range []string{"strategy", "results"} {
			nested, found := doc[key]
			if !found {
				continue
			}
			var inner map[string]json.RawMessage
			if err := sonic.Unmarshal(nested, &inner); err != nil {
				continue
			}
			if t, found := inner["trades"]; found {
				tradesRaw, ok = t, true
				break
			}
		}
	}
	if !ok {
		return nil, errors.New("no trades array in freqtrade result")
	}

	var trades []trade
	if err := sonic.Unmarshal(tradesRaw, &trades); err != nil {
		return nil, errors.Wrap(err, "decode trades")
	}

	type stamped struct {
		ms int64
		pr float64
	}
	rows := make([]stamped, 0, len(trades))
	for _, t := range trades {
		ts, err := parseCloseDate(t.CloseDate)
		if err != nil {
			continue
		}
		rows = append(rows, stamped{ms: ts, pr: t.ProfitRatio})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ms < rows[j].ms })

	out := make([]EquityPoint, 0, len(rows))
	eq := equity0
	for _, r := range rows {
		eq *= 1 + r.pr
		out = append(out, EquityPoint{TimestampMs: r.ms, Equity: eq})
	}
	return out, nil
}

func parseCloseDate(s string) (int64, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errors.Errorf("unparsable close_date %q", s)
}
