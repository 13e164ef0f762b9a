package loader

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcsentiment/internal/dataset"
)

func TestInspect(t *testing.T) {
	table, err := dataset.New(
		dataset.InferColumn("timestamp", []string{"1", "2", "3", "4"}),
		dataset.InferColumn("value", []string{"10", "20", "", "30"}),
		dataset.InferColumn("classification", []string{"Fear", "Greed", "Fear", ""}),
		dataset.InferColumn("date", []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}),
	)
	require.NoError(t, err)

	insp := Inspect("sentiment", table)

	assert.Equal(t, "sentiment", insp.Name)
	assert.Equal(t, 4, insp.Rows)
	assert.Equal(t, 4, insp.Cols)
	assert.Len(t, insp.Sample, 3)
	assert.Equal(t, []string{"1", "10", "Fear", "2024-01-01"}, insp.Sample[0])

	require.Len(t, insp.Columns, 4)
	assert.Equal(t, dataset.KindFloat, insp.Columns[1].Kind)
	assert.Equal(t, 1, insp.Columns[1].Nulls)
	assert.Equal(t, uint64(2), insp.Columns[2].Distinct)
	assert.Equal(t, uint64(4), insp.Columns[3].Distinct)
	assert.Zero(t, insp.Columns[0].Distinct, "distinct counts are for string columns")

	require.Len(t, insp.Numeric, 2)
	value := insp.Numeric[1]
	assert.Equal(t, "value", value.Column)
	assert.Equal(t, 3, value.Count)
	assert.InDelta(t, 20.0, value.Mean, 1e-12)
	assert.InDelta(t, 10.0, value.Std, 1e-12)
	assert.Equal(t, 10.0, value.Min)
	assert.Equal(t, 30.0, value.Max)

	assert.Equal(t, []string{"timestamp", "date"}, insp.TimeColumns)
	assert.Equal(t, []string{"classification"}, insp.ClassColumns)
	assert.Empty(t, insp.PnLColumns)
	assert.Equal(t, []ValueCount{{"Fear", 2}, {"Greed", 1}}, insp.ClassValues)
}

func TestInspect_SingleValueStd(t *testing.T) {
	table, err := dataset.New(dataset.InferColumn("closed_pnl", []string{"5"}))
	require.NoError(t, err)

	insp := Inspect("trades", table)
	require.Len(t, insp.Numeric, 1)
	assert.True(t, math.IsNaN(insp.Numeric[0].Std))
	assert.Equal(t, []string{"closed_pnl"}, insp.PnLColumns)
	assert.Nil(t, insp.ClassValues)
}

func TestValueCounts_TieOrder(t *testing.T) {
	col := dataset.NewStringColumn("c", []string{"b", "a", "c", "a", "b"}, nil)
	assert.Equal(t, []ValueCount{{"a", 2}, {"b", 2}, {"c", 1}}, ValueCounts(col))
}
