package preprocess

import (
	"context"
	"log/slog"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

// MergeStats counts how trade rows fared in the date join
type MergeStats struct {
	Matched   int
	Unmatched int
	// DuplicateDates counts sentiment rows ignored because an earlier row
	// had the same date
	DuplicateDates int
}

// Total returns the number of merged rows
func (s MergeStats) Total() int { return s.Matched + s.Unmatched }

// Merge prepares both tables and left-joins the trades to the sentiment
// classification and score on calendar date. Every trade row appears
// exactly once in the result. Zero matched rows is an error.
func (p *Preprocessor) Merge(ctx context.Context, rawTrades, rawSentiment *dataset.Table) (*dataset.Table, MergeStats, error) {
	var stats MergeStats

	p.logger.InfoContext(ctx, "Preprocessing trader data")
	trades, err := p.PrepareTrades(ctx, rawTrades)
	if err != nil {
		return nil, stats, err
	}

	p.logger.InfoContext(ctx, "Preprocessing sentiment data")
	sentiment, err := p.PrepareSentiment(ctx, rawSentiment)
	if err != nil {
		return nil, stats, err
	}

	tradeDates, err := dateColumn(trades, "trade")
	if err != nil {
		return nil, stats, err
	}
	sentDates, err := dateColumn(sentiment, "sentiment")
	if err != nil {
		return nil, stats, err
	}
	labels, ok := sentiment.Column(ColClassification)
	if !ok {
		return nil, stats, apperrors.NewMissingColumnError(ColClassification, "merging sentiment into trades")
	}
	scores, _ := sentiment.Column(ColSentimentScore)

	byDate := make(map[dataset.Date]int, sentDates.Len())
	for i := 0; i < sentDates.Len(); i++ {
		if sentDates.IsNull(i) {
			continue
		}
		d := sentDates.Date(i)
		if _, dup := byDate[d]; dup {
			stats.DuplicateDates++
			continue
		}
		byDate[d] = i
	}
	if stats.DuplicateDates > 0 {
		p.logger.WarnContext(ctx, "Duplicate sentiment dates, keeping the first row per date",
			slog.Int("ignored_rows", stats.DuplicateDates))
	}

	n := trades.Len()
	outLabels := make([]string, n)
	outScores := make([]float64, n)
	valid := make([]bool, n)
	labelValid := make([]bool, n)
	for i := 0; i < n; i++ {
		if tradeDates.IsNull(i) {
			stats.Unmatched++
			continue
		}
		j, found := byDate[tradeDates.Date(i)]
		if !found {
			stats.Unmatched++
			continue
		}
		stats.Matched++
		valid[i] = true
		outLabels[i] = labels.Str(j)
		labelValid[i] = !labels.IsNull(j)
		outScores[i] = scores.Float(j)
	}

	merged := trades.Clone()
	if err := setAll(merged,
		dataset.NewStringColumn(ColClassification, outLabels, labelValid),
		dataset.NewFloatColumn(ColSentimentScore, outScores, valid),
	); err != nil {
		return nil, stats, err
	}

	p.logger.InfoContext(ctx, "Merge results",
		slog.Int("matched", stats.Matched),
		slog.Int("unmatched", stats.Unmatched))

	if stats.Matched == 0 {
		return nil, stats, apperrors.NewNoOverlapError(n)
	}

	rows, cols := merged.Shape()
	p.logger.InfoContext(ctx, "Final merged data shape",
		slog.Int("rows", rows),
		slog.Int("columns", cols))
	return merged, stats, nil
}

func dateColumn(t *dataset.Table, side string) (*dataset.Column, error) {
	col, ok := t.Column(ColDate)
	if !ok || col.Kind() != dataset.KindDate {
		return nil, apperrors.NewMissingColumnError(ColDate, "merging "+side+" data").
			WithContext("side", side)
	}
	return col, nil
}
