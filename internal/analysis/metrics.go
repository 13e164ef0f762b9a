package analysis

import (
	"context"
	"log/slog"
	"math"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

// MetricsSchema records which aggregate groups were computed. Output column
// names are generated from it.
type MetricsSchema struct {
	PnL        bool
	TradeValue bool
	WinRate    bool
}

// Any reports whether at least one aggregate group is present
func (s MetricsSchema) Any() bool {
	return s.PnL || s.TradeValue || s.WinRate
}

// detectSchema reports the aggregate groups the table supports. A present
// column of the wrong kind is logged and ignored.
func (a *Analyzer) detectSchema(ctx context.Context, schema dataset.Schema) MetricsSchema {
	var ms MetricsSchema
	ms.PnL = schema.IsNumeric(ColClosedPnL)
	ms.TradeValue = schema.IsNumeric(ColTradeValue)
	if kind, ok := schema.Kind(ColIsProfitable); ok {
		ms.WinRate = kind == dataset.KindBool || kind == dataset.KindFloat
	}

	for _, name := range []string{ColClosedPnL, ColTradeValue} {
		if schema.Has(name) && !schema.IsNumeric(name) {
			kind, _ := schema.Kind(name)
			a.logger.WarnContext(ctx, "Ignoring non-numeric metric column",
				slog.String("column", name),
				slog.String("kind", kind.String()))
		}
	}
	return ms
}

// TraderMetric is the aggregate row of one account. Aggregates are rounded
// to four decimals; NaN marks an undefined value.
type TraderMetric struct {
	Account string

	PnLSum   float64
	PnLMean  float64
	PnLStd   float64
	PnLCount int

	TradeValueSum  float64
	TradeValueMean float64

	WinRate float64
	// Sharpe is PnLMean / PnLStd, NaN when the deviation is zero or undefined
	Sharpe float64

	Cluster int
}

// TraderMetrics holds one row per account, sorted by account
type TraderMetrics struct {
	Schema MetricsSchema
	Rows   []TraderMetric

	// Clustered is set once Cluster has assigned labels
	Clustered bool
	// ClusterDegraded is set when every account was put in cluster 0
	// without running k-means
	ClusterDegraded bool
	// ClusterFeatures lists the columns the clustering used
	ClusterFeatures []string
}

// Len returns the number of accounts
func (m *TraderMetrics) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Rows)
}

// Clone returns a deep copy
func (m *TraderMetrics) Clone() *TraderMetrics {
	cp := *m
	cp.Rows = append([]TraderMetric(nil), m.Rows...)
	cp.ClusterFeatures = append([]string(nil), m.ClusterFeatures...)
	return &cp
}

// metricColumn describes one output column of the trader metrics table
type metricColumn struct {
	name  string
	value func(TraderMetric) float64
}

// Columns returns the output column names after "account", in order:
// flat aggregates, then the friendly aliases, then the cluster label
func (m *TraderMetrics) Columns() []string {
	cols := m.metricColumns()
	names := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		names = append(names, c.name)
	}
	if m.Clustered {
		names = append(names, "cluster")
	}
	return names
}

func (m *TraderMetrics) metricColumns() []metricColumn {
	var cols []metricColumn
	if m.Schema.PnL {
		cols = append(cols,
			metricColumn{"closedPnL_sum", func(r TraderMetric) float64 { return r.PnLSum }},
			metricColumn{"closedPnL_mean", func(r TraderMetric) float64 { return r.PnLMean }},
			metricColumn{"closedPnL_std", func(r TraderMetric) float64 { return r.PnLStd }},
			metricColumn{"closedPnL_count", func(r TraderMetric) float64 { return float64(r.PnLCount) }},
		)
	}
	if m.Schema.TradeValue {
		cols = append(cols,
			metricColumn{"trade_value_sum", func(r TraderMetric) float64 { return r.TradeValueSum }},
			metricColumn{"trade_value_mean", func(r TraderMetric) float64 { return r.TradeValueMean }},
		)
	}
	if m.Schema.WinRate {
		cols = append(cols,
			metricColumn{"is_profitable_mean", func(r TraderMetric) float64 { return r.WinRate }},
		)
	}
	if m.Schema.PnL {
		cols = append(cols,
			metricColumn{"sharpe_ratio", func(r TraderMetric) float64 { return r.Sharpe }},
		)
	}
	if m.Schema.WinRate {
		cols = append(cols,
			metricColumn{"win_rate", func(r TraderMetric) float64 { return r.WinRate }},
		)
	}
	if m.Schema.PnL {
		cols = append(cols,
			metricColumn{"total_pnl", func(r TraderMetric) float64 { return r.PnLSum }},
			metricColumn{"avg_pnl", func(r TraderMetric) float64 { return r.PnLMean }},
			metricColumn{"trade_count", func(r TraderMetric) float64 { return float64(r.PnLCount) }},
		)
	}
	return cols
}

// feature returns the named metric column for every account
func (m *TraderMetrics) feature(name string) ([]float64, bool) {
	for _, c := range m.metricColumns() {
		if c.name == name {
			out := make([]float64, len(m.Rows))
			for i, r := range m.Rows {
				out[i] = c.value(r)
			}
			return out, true
		}
	}
	return nil, false
}

// Table renders the metrics as a table with one row per account
func (m *TraderMetrics) Table() (*dataset.Table, error) {
	n := len(m.Rows)
	accounts := make([]string, n)
	for i, r := range m.Rows {
		accounts[i] = r.Account
	}
	cols := []*dataset.Column{dataset.NewStringColumn(ColAccount, accounts, nil)}

	for _, c := range m.metricColumns() {
		values := make([]float64, n)
		for i, r := range m.Rows {
			values[i] = c.value(r)
		}
		cols = append(cols, dataset.NewFloatColumn(c.name, values, nil))
	}
	if m.Clustered {
		labels := make([]float64, n)
		for i, r := range m.Rows {
			labels[i] = float64(r.Cluster)
		}
		cols = append(cols, dataset.NewFloatColumn("cluster", labels, nil))
	}
	return dataset.New(cols...)
}

// TraderMetrics groups the merged table by account and aggregates PnL,
// trade value and win rate, whichever are present
func (a *Analyzer) TraderMetrics(ctx context.Context, table *dataset.Table) (*TraderMetrics, error) {
	accounts, ok := table.Column(ColAccount)
	if !ok {
		return nil, apperrors.NewMissingColumnError(ColAccount, "trader metrics")
	}

	ms := a.detectSchema(ctx, table.Schema())
	if !ms.Any() {
		return nil, apperrors.NewNoMetricsError("metric calculation")
	}

	pnl, _ := table.Column(ColClosedPnL)
	tv, _ := table.Column(ColTradeValue)
	win, _ := table.Column(ColIsProfitable)

	keys, groups := dataset.SortedKeys(accounts)
	result := &TraderMetrics{Schema: ms, Rows: make([]TraderMetric, 0, len(keys))}

	for _, key := range keys {
		rows := groups[key]
		row := TraderMetric{
			Account: key, PnLMean: math.NaN(), PnLStd: math.NaN(),
			TradeValueMean: math.NaN(), WinRate: math.NaN(), Sharpe: math.NaN(),
		}

		if ms.PnL {
			s := summarize(pick(rows, pnl.IsNull, pnl.Float))
			row.PnLSum = round4(s.sum)
			row.PnLMean = round4(s.mean)
			row.PnLStd = round4(s.std)
			row.PnLCount = s.count
			if row.PnLStd != 0 && !math.IsNaN(row.PnLStd) {
				row.Sharpe = row.PnLMean / row.PnLStd
			}
		}
		if ms.TradeValue {
			s := summarize(pick(rows, tv.IsNull, tv.Float))
			row.TradeValueSum = round4(s.sum)
			row.TradeValueMean = round4(s.mean)
		}
		if ms.WinRate {
			row.WinRate = round4(summarize(pick(rows, win.IsNull, win.Float)).mean)
		}
		result.Rows = append(result.Rows, row)
	}

	a.logger.InfoContext(ctx, "Trader metrics calculated",
		slog.Int("traders", len(result.Rows)),
		slog.Bool("pnl", ms.PnL),
		slog.Bool("trade_value", ms.TradeValue),
		slog.Bool("win_rate", ms.WinRate))
	return result, nil
}

// SentimentRow is the aggregate row of one sentiment class
type SentimentRow struct {
	Classification string
	Trades         int

	PnLMean float64
	PnLSum  float64
	PnLStd  float64

	TradeValueMean float64
	WinRate        float64
}

// SentimentPerformance holds one row per sentiment class, sorted by class
type SentimentPerformance struct {
	Schema MetricsSchema
	Rows   []SentimentRow
}

// Len returns the number of classes
func (p *SentimentPerformance) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Rows)
}

// Columns returns the output column names after "Classification"
func (p *SentimentPerformance) Columns() []string {
	var names []string
	if p.Schema.PnL {
		names = append(names, "closedPnL_mean", "closedPnL_sum", "closedPnL_std")
	}
	if p.Schema.TradeValue {
		names = append(names, "trade_value_mean")
	}
	if p.Schema.WinRate {
		names = append(names, "is_profitable_mean")
	}
	return names
}

// Table renders the performance as a table with one row per class
func (p *SentimentPerformance) Table() (*dataset.Table, error) {
	n := len(p.Rows)
	labels := make([]string, n)
	for i, r := range p.Rows {
		labels[i] = r.Classification
	}
	cols := []*dataset.Column{dataset.NewStringColumn(ColClassification, labels, nil)}

	add := func(name string, value func(SentimentRow) float64) {
		values := make([]float64, n)
		for i, r := range p.Rows {
			values[i] = value(r)
		}
		cols = append(cols, dataset.NewFloatColumn(name, values, nil))
	}
	if p.Schema.PnL {
		add("closedPnL_mean", func(r SentimentRow) float64 { return r.PnLMean })
		add("closedPnL_sum", func(r SentimentRow) float64 { return r.PnLSum })
		add("closedPnL_std", func(r SentimentRow) float64 { return r.PnLStd })
	}
	if p.Schema.TradeValue {
		add("trade_value_mean", func(r SentimentRow) float64 { return r.TradeValueMean })
	}
	if p.Schema.WinRate {
		add("is_profitable_mean", func(r SentimentRow) float64 { return r.WinRate })
	}
	return dataset.New(cols...)
}

// SentimentPerformance groups the merged table by sentiment class. Rows
// without a class are left out.
func (a *Analyzer) SentimentPerformance(ctx context.Context, table *dataset.Table) (*SentimentPerformance, error) {
	classes, ok := table.Column(ColClassification)
	if !ok {
		return nil, apperrors.NewMissingColumnError(ColClassification, "sentiment analysis")
	}

	ms := a.detectSchema(ctx, table.Schema())
	if !ms.Any() {
		return nil, apperrors.NewNoMetricsError("sentiment analysis")
	}

	pnl, _ := table.Column(ColClosedPnL)
	tv, _ := table.Column(ColTradeValue)
	win, _ := table.Column(ColIsProfitable)

	keys, groups := dataset.SortedKeys(classes)
	result := &SentimentPerformance{Schema: ms, Rows: make([]SentimentRow, 0, len(keys))}

	for _, key := range keys {
		rows := groups[key]
		row := SentimentRow{
			Classification: key, Trades: len(rows),
			PnLMean: math.NaN(), PnLStd: math.NaN(), TradeValueMean: math.NaN(), WinRate: math.NaN(),
		}
		if ms.PnL {
			s := summarize(pick(rows, pnl.IsNull, pnl.Float))
			row.PnLMean = round4(s.mean)
			row.PnLSum = round4(s.sum)
			row.PnLStd = round4(s.std)
		}
		if ms.TradeValue {
			row.TradeValueMean = round4(summarize(pick(rows, tv.IsNull, tv.Float)).mean)
		}
		if ms.WinRate {
			row.WinRate = round4(summarize(pick(rows, win.IsNull, win.Float)).mean)
		}
		result.Rows = append(result.Rows, row)
	}

	a.logger.InfoContext(ctx, "Sentiment performance calculated",
		slog.Int("classes", len(result.Rows)))
	return result, nil
}
