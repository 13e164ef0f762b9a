package preprocess

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

// Column names produced or consumed by the preprocessor
const (
	ColTimestampIST   = "timestamp_ist"
	ColTimestamp      = "timestamp"
	ColDate           = "date"
	ColAccount        = "account"
	ColClosedPnLRaw   = "closed_pnl"
	ColClosedPnL      = "closedPnL"
	ColSizeUSD        = "size_usd"
	ColSizeTokens     = "size_tokens"
	ColSize           = "size"
	ColExecutionPrice = "execution_price"
	ColIsProfitable   = "is_profitable"
	ColAbsPnL         = "abs_pnl"
	ColTradeValue     = "trade_value"
	ColClassRaw       = "classification"
	ColClassification = "Classification"
	ColSentimentScore = "sentiment_score"
)

// TradeTimeLayout is the day-first layout of timestamp_ist values
const TradeTimeLayout = "2-1-2006 15:04"

// IST is India Standard Time, a fixed UTC+05:30 offset with no DST
var IST = time.FixedZone("IST", 5*60*60+30*60)

// tradeRenames maps normalized raw names to their analysis names
var tradeRenames = map[string]string{
	"coin":          "symbol",
	ColSizeTokens:   ColSize,
	ColClosedPnLRaw: ColClosedPnL,
}

var sentimentScores = map[string]float64{
	"Extreme Fear":  -2,
	"Fear":          -1,
	"Neutral":       0,
	"Greed":         1,
	"Extreme Greed": 2,
}

// SentimentScore maps a classification label to its score in [-2, 2].
// The label is trimmed and title-cased first; unknown labels score 0.
func SentimentScore(label string) float64 {
	return sentimentScores[titleCase(label)]
}

func titleCase(s string) string {
	return cases.Title(language.Und).String(strings.TrimSpace(s))
}

// NormalizeName replaces spaces with underscores and lowercases the name
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// Preprocessor cleans the raw tables and joins them on calendar date. It
// never modifies its inputs.
type Preprocessor struct {
	logger *slog.Logger
}

// New creates a new preprocessor
func New(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{logger: logger.With(slog.String("component", "preprocessor"))}
}

// PrepareTrades normalizes a raw trade table. The result has the same row
// count as the input.
func (p *Preprocessor) PrepareTrades(ctx context.Context, raw *dataset.Table) (*dataset.Table, error) {
	t := raw.Clone()
	if err := t.RenameAll(NormalizeName); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("trade columns: %v", err))
	}

	if col, ok := t.Column(ColTimestampIST); ok {
		p.logger.DebugContext(ctx, "Raw timestamp samples",
			slog.Any("values", t.Head(ColTimestampIST, 3)))

		ts, dates, err := parseTradeTimes(col)
		if err != nil {
			return nil, err
		}
		if err := setAll(t, ts, dates); err != nil {
			return nil, err
		}
	}

	for _, col := range t.Columns() {
		if col.IsNumeric() {
			if err := t.Set(col.FillNull(0)); err != nil {
				return nil, err
			}
		}
	}

	if pnl, ok := t.Column(ColClosedPnLRaw); ok {
		if !pnl.IsNumeric() {
			return nil, apperrors.NewInvalidInputError("closed_pnl column is not numeric").
				WithContext("kind", pnl.Kind().String())
		}
		profitable := make([]bool, pnl.Len())
		abs := make([]float64, pnl.Len())
		for i := range profitable {
			v := pnl.Float(i)
			profitable[i] = v > 0
			abs[i] = math.Abs(v)
		}
		if err := setAll(t,
			dataset.NewBoolColumn(ColIsProfitable, profitable, nil),
			dataset.NewFloatColumn(ColAbsPnL, abs, nil),
		); err != nil {
			return nil, err
		}
	}

	if tv := p.tradeValue(ctx, t); tv != nil {
		if err := t.Set(tv); err != nil {
			return nil, err
		}
	}

	t.Rename(tradeRenames)

	p.logDateRange(ctx, "Trader date range", t)
	return t, nil
}

// tradeValue returns size_usd as trade_value when present, otherwise
// size_tokens × execution_price, otherwise nil
func (p *Preprocessor) tradeValue(ctx context.Context, t *dataset.Table) *dataset.Column {
	if usd, ok := t.Column(ColSizeUSD); ok {
		return usd.WithName(ColTradeValue)
	}

	size, okSize := t.Column(ColSizeTokens)
	price, okPrice := t.Column(ColExecutionPrice)
	if !okSize || !okPrice {
		return nil
	}
	if !size.IsNumeric() || !price.IsNumeric() {
		p.logger.WarnContext(ctx, "Cannot derive trade_value from non-numeric columns",
			slog.String("size_tokens", size.Kind().String()),
			slog.String("execution_price", price.Kind().String()))
		return nil
	}

	values := make([]float64, size.Len())
	for i := range values {
		values[i] = size.Float(i) * price.Float(i)
	}
	return dataset.NewFloatColumn(ColTradeValue, values, nil)
}

// parseTradeTimes parses day-first IST timestamps into UTC instants and
// UTC calendar dates. Null cells stay null; any other unparsable cell fails.
func parseTradeTimes(col *dataset.Column) (*dataset.Column, *dataset.Column, error) {
	n := col.Len()
	times := make([]time.Time, n)
	dates := make([]dataset.Date, n)
	valid := make([]bool, n)

	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			continue
		}
		value := col.Format(i)
		local, err := time.ParseInLocation(TradeTimeLayout, strings.TrimSpace(value), IST)
		if err != nil {
			return nil, nil, apperrors.NewDateParseError(ColTimestampIST, value, err).
				WithContext("row", i)
		}
		utc := local.UTC()
		times[i] = utc
		dates[i] = dataset.DateOf(utc)
		valid[i] = true
	}

	return dataset.NewTimeColumn(ColTimestamp, times, valid),
		dataset.NewDateColumn(ColDate, dates, valid), nil
}

// PrepareSentiment normalizes a raw sentiment table
func (p *Preprocessor) PrepareSentiment(ctx context.Context, raw *dataset.Table) (*dataset.Table, error) {
	t := raw.Clone()
	if err := t.RenameAll(NormalizeName); err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("sentiment columns: %v", err))
	}

	if col, ok := t.Column(ColTimestamp); ok {
		ts, dates, err := parseEpochSeconds(col)
		if err != nil {
			return nil, err
		}
		if err := setAll(t, ts, dates); err != nil {
			return nil, err
		}
	}

	if col, ok := t.Column(ColClassRaw); ok {
		n := col.Len()
		labels := make([]string, n)
		valid := make([]bool, n)
		scores := make([]float64, n)
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				continue
			}
			labels[i] = titleCase(col.Format(i))
			valid[i] = true
			scores[i] = sentimentScores[labels[i]]
		}
		if err := setAll(t,
			dataset.NewStringColumn(ColClassification, labels, valid),
			dataset.NewFloatColumn(ColSentimentScore, scores, nil),
		); err != nil {
			return nil, err
		}
	}

	p.logDateRange(ctx, "Sentiment date range", t)
	return t, nil
}

// maxEpochSeconds bounds epoch values to instants representable in int64
// nanoseconds, roughly the years 1677 to 2262.
const maxEpochSeconds = math.MaxInt64 / 1e9

// parseEpochSeconds converts Unix seconds into UTC instants and dates
func parseEpochSeconds(col *dataset.Column) (*dataset.Column, *dataset.Column, error) {
	n := col.Len()
	times := make([]time.Time, n)
	dates := make([]dataset.Date, n)
	valid := make([]bool, n)

	for i := 0; i < n; i++ {
		if col.IsNull(i) {
			continue
		}
		if !col.IsNumeric() {
			return nil, nil, apperrors.NewDateParseError(ColTimestamp, col.Format(i),
				fmt.Errorf("not a number of seconds since the epoch")).
				WithContext("row", i)
		}
		secs := col.Float(i)
		if !(math.Abs(secs) <= maxEpochSeconds) {
			return nil, nil, apperrors.NewDateParseError(ColTimestamp, col.Format(i),
				fmt.Errorf("epoch value out of range")).
				WithContext("row", i)
		}
		whole, frac := math.Modf(secs)
		ts := time.Unix(int64(whole), int64(frac*1e9)).UTC()
		times[i] = ts
		dates[i] = dataset.DateOf(ts)
		valid[i] = true
	}

	return dataset.NewTimeColumn(ColTimestamp, times, valid),
		dataset.NewDateColumn(ColDate, dates, valid), nil
}

func (p *Preprocessor) logDateRange(ctx context.Context, msg string, t *dataset.Table) {
	col, ok := t.Column(ColDate)
	if !ok || col.Kind() != dataset.KindDate {
		p.logger.InfoContext(ctx, msg, slog.String("range", "unavailable"))
		return
	}
	first, last, ok := DateRange(col)
	if !ok {
		p.logger.InfoContext(ctx, msg, slog.String("range", "empty"))
		return
	}
	p.logger.InfoContext(ctx, msg,
		slog.String("from", first.String()),
		slog.String("to", last.String()))
}

// DateRange returns the earliest and latest non-null dates of col
func DateRange(col *dataset.Column) (first, last dataset.Date, ok bool) {
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		d := col.Date(i)
		if !ok {
			first, last, ok = d, d, true
			continue
		}
		if d.Before(first) {
			first = d
		}
		if last.Before(d) {
			last = d
		}
	}
	return first, last, ok
}

func setAll(t *dataset.Table, cols ...*dataset.Column) error {
	for _, col := range cols {
		if err := t.Set(col); err != nil {
			return err
		}
	}
	return nil
}
