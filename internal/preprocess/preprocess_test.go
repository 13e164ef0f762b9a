package preprocess

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcsentiment/internal/dataset"
	apperrors "btcsentiment/internal/errors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// rawTable builds a table the way the loader does, from text cells
func rawTable(t *testing.T, header []string, rows ...[]string) *dataset.Table {
	t.Helper()
	cols := make([]*dataset.Column, len(header))
	for c, name := range header {
		raw := make([]string, len(rows))
		for r, row := range rows {
			raw[r] = row[c]
		}
		cols[c] = dataset.InferColumn(name, raw)
	}
	table, err := dataset.New(cols...)
	require.NoError(t, err)
	return table
}

func sampleTrades(t *testing.T) *dataset.Table {
	return rawTable(t,
		[]string{"Account", "Coin", "Execution Price", "Size Tokens", "Size USD", "Side", "Timestamp IST", "Closed PnL", "Fee"},
		[]string{"0xa", "BTC", "100", "2", "200", "BUY", "02-12-2024 22:50", "10", "0.1"},
		[]string{"0xa", "BTC", "100", "1", "100", "SELL", "03-12-2024 01:15", "-5", ""},
		[]string{"0xb", "ETH", "50", "4", "", "BUY", "03-12-2024 12:00", "", "0.2"},
	)
}

func sampleSentiment(t *testing.T) *dataset.Table {
	return rawTable(t,
		[]string{"timestamp", "value", "classification", "date"},
		[]string{"1733097600", "20", " extreme fear ", "2024-12-02"},
		[]string{"1733184000", "55", "Greed", "2024-12-03"},
	)
}

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		label string
		want  float64
	}{
		{"Extreme Fear", -2},
		{"Fear", -1},
		{" fear ", -1},
		{"NEUTRAL", 0},
		{"Greed", 1},
		{"extreme greed", 2},
		{"Panic", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SentimentScore(tt.label), "label %q", tt.label)
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "closed_pnl", NormalizeName("Closed PnL"))
	assert.Equal(t, "timestamp_ist", NormalizeName("Timestamp IST"))
	assert.Equal(t, "account", NormalizeName("account"))
}

func TestPrepareTrades(t *testing.T) {
	raw := sampleTrades(t)
	p := New(quietLogger())

	out, err := p.PrepareTrades(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, raw.Len(), out.Len())
	// input is untouched
	assert.True(t, raw.Has("Closed PnL"))
	assert.False(t, raw.Has("date"))

	for _, name := range []string{"account", "symbol", "execution_price", "size", "size_usd", "side", "closedPnL", "timestamp", "date", "is_profitable", "abs_pnl", "trade_value"} {
		assert.True(t, out.Has(name), "missing %s", name)
	}
	for _, name := range []string{"coin", "size_tokens", "closed_pnl"} {
		assert.False(t, out.Has(name), "%s should be renamed", name)
	}

	ts, _ := out.Column("timestamp")
	assert.Equal(t, time.Date(2024, 12, 2, 17, 20, 0, 0, time.UTC), ts.Time(0))

	date, _ := out.Column("date")
	assert.Equal(t, "2024-12-02", date.Date(0).String())
	// 01:15 IST on the 3rd is still the 2nd in UTC
	assert.Equal(t, "2024-12-02", date.Date(1).String())
	assert.Equal(t, "2024-12-03", date.Date(2).String())

	// numeric nulls are filled with zero before derived columns
	pnl, _ := out.Column("closedPnL")
	assert.Zero(t, pnl.NullCount())
	assert.Equal(t, 0.0, pnl.Float(2))
	fee, _ := out.Column("fee")
	assert.Equal(t, 0.0, fee.Float(1))

	profitable, _ := out.Column("is_profitable")
	assert.Equal(t, []bool{true, false, false}, []bool{profitable.Bool(0), profitable.Bool(1), profitable.Bool(2)})
	abs, _ := out.Column("abs_pnl")
	assert.Equal(t, []float64{10, 5, 0}, abs.Floats())

	// size_usd wins over size × price, including its filled zero
	tv, _ := out.Column("trade_value")
	assert.Equal(t, []float64{200, 100, 0}, tv.Floats())
}

func TestPrepareTrades_TradeValueFromSize(t *testing.T) {
	raw := rawTable(t,
		[]string{"account", "size_tokens", "execution_price"},
		[]string{"0xa", "2", "10.5"},
		[]string{"0xb", "", "3"},
	)
	out, err := New(quietLogger()).PrepareTrades(context.Background(), raw)
	require.NoError(t, err)

	tv, ok := out.Column("trade_value")
	require.True(t, ok)
	assert.Equal(t, []float64{21, 0}, tv.Floats())
	assert.False(t, out.Has("date"), "no timestamp column means no date")
}

func TestPrepareTrades_NoTradeValue(t *testing.T) {
	raw := rawTable(t, []string{"account", "closed_pnl"}, []string{"0xa", "1"})
	out, err := New(quietLogger()).PrepareTrades(context.Background(), raw)
	require.NoError(t, err)
	assert.False(t, out.Has("trade_value"))
}

func TestPrepareTrades_Timestamps(t *testing.T) {
	tests := []struct {
		name      string
		values    []string
		wantErr   bool
		wantNulls int
	}{
		{"single digit day and month", []string{"2-1-2024 09:05"}, false, 0},
		{"empty cell is null", []string{"02-12-2024 22:50", ""}, false, 1},
		{"all empty", []string{"", ""}, false, 2},
		{"iso format rejected", []string{"2024-12-02 22:50"}, true, 0},
		{"garbage rejected", []string{"02-12-2024 22:50", "yesterday"}, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([][]string, len(tt.values))
			for i, v := range tt.values {
				rows[i] = []string{"0xa", v}
			}
			raw := rawTable(t, []string{"account", "Timestamp IST"}, rows...)

			out, err := New(quietLogger()).PrepareTrades(context.Background(), raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDateParse))
				return
			}
			require.NoError(t, err)
			date, _ := out.Column("date")
			assert.Equal(t, tt.wantNulls, date.NullCount())
			ts, _ := out.Column("timestamp")
			assert.Equal(t, dataset.KindTime, ts.Kind())
		})
	}
}

func TestPrepareTrades_NonNumericPnL(t *testing.T) {
	raw := rawTable(t, []string{"account", "closed_pnl"}, []string{"0xa", "lots"})
	_, err := New(quietLogger()).PrepareTrades(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidInput))
}

func TestPrepareTrades_NameCollision(t *testing.T) {
	raw := rawTable(t, []string{"Closed PnL", "closed_pnl"}, []string{"1", "2"})
	_, err := New(quietLogger()).PrepareTrades(context.Background(), raw)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInvalidInput))
}

func TestPrepareSentiment(t *testing.T) {
	raw := sampleSentiment(t)
	out, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
	require.NoError(t, err)

	date, _ := out.Column("date")
	assert.Equal(t, dataset.KindDate, date.Kind())
	assert.Equal(t, "2024-12-02", date.Date(0).String())
	assert.Equal(t, "2024-12-03", date.Date(1).String())

	ts, _ := out.Column("timestamp")
	assert.Equal(t, time.Date(2024, 12, 3, 0, 0, 0, 0, time.UTC), ts.Time(1))

	class, _ := out.Column("Classification")
	assert.Equal(t, "Extreme Fear", class.Str(0))
	assert.Equal(t, "Greed", class.Str(1))
	score, _ := out.Column("sentiment_score")
	assert.Equal(t, []float64{-2, 1}, score.Floats())

	// the raw column is kept alongside the cleaned one
	assert.True(t, out.Has("classification"))
}

func TestPrepareSentiment_Edges(t *testing.T) {
	t.Run("unknown and null labels score zero", func(t *testing.T) {
		raw := rawTable(t, []string{"classification"}, []string{"Panic"}, []string{""})
		out, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
		require.NoError(t, err)

		score, _ := out.Column("sentiment_score")
		assert.Equal(t, []float64{0, 0}, score.Floats())
		class, _ := out.Column("Classification")
		assert.True(t, class.IsNull(1))
	})

	t.Run("non numeric epoch fails", func(t *testing.T) {
		raw := rawTable(t, []string{"timestamp"}, []string{"2024-01-01"})
		_, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDateParse))
	})

	t.Run("out of range epoch fails", func(t *testing.T) {
		for _, v := range []string{"1e20", "-1e20", "9300000000"} {
			raw := rawTable(t, []string{"timestamp", "classification"}, []string{v, "Fear"})
			_, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
			require.Error(t, err, v)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeDateParse), v)
		}
	})

	t.Run("epoch near upper bound parses", func(t *testing.T) {
		raw := rawTable(t, []string{"timestamp", "classification"}, []string{"9000000000", "Fear"})
		out, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
		require.NoError(t, err)
		date, _ := out.Column("date")
		assert.Equal(t, "2255-03-14", date.Format(0))
	})

	t.Run("no timestamp leaves date alone", func(t *testing.T) {
		raw := rawTable(t, []string{"date", "classification"}, []string{"2024-01-01", "Fear"})
		out, err := New(quietLogger()).PrepareSentiment(context.Background(), raw)
		require.NoError(t, err)
		date, _ := out.Column("date")
		assert.Equal(t, dataset.KindString, date.Kind())
	})
}

func TestDateRange(t *testing.T) {
	col := dataset.NewDateColumn("date",
		[]dataset.Date{
			{Year: 2024, Month: time.March, Day: 1},
			{Year: 2023, Month: time.December, Day: 31},
			{},
			{Year: 2024, Month: time.January, Day: 15},
		},
		[]bool{true, true, false, true})
	first, last, ok := DateRange(col)
	require.True(t, ok)
	assert.Equal(t, "2023-12-31", first.String())
	assert.Equal(t, "2024-03-01", last.String())

	_, _, ok = DateRange(dataset.NewDateColumn("date", []dataset.Date{{}}, []bool{false}))
	assert.False(t, ok)
}
