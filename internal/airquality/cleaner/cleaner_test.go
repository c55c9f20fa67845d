package cleaner

import (
	"math"
	"testing"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

func hour(h int) time.Time {
	return time.Date(2013, 1, 1, h, 0, 0, 0, time.UTC)
}

func reading(h int, pm25, temp *float64) types.Reading {
	var v types.Values
	v[types.PM25] = pm25
	v[types.TEMP] = temp
	return types.Reading{Time: hour(h), Values: v}
}

// floats renders a nullable column as NaN-for-null so it can be compared with go-cmp.
func floats(col []*float64) []float64 {
	out := make([]float64, len(col))
	for i, p := range col {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	return out
}

func TestClean_ForwardFill(t *testing.T) {
	f := types.Float
	in := types.Series{Readings: []types.Reading{
		reading(0, nil, f(-5)),
		reading(1, f(40), nil),
		reading(2, nil, nil),
		reading(3, f(200), f(-3)),
		reading(4, nil, nil),
	}}

	got := Clean(in)

	wantPM := []float64{math.NaN(), 40, 40, 200, 200}
	wantTemp := []float64{-5, -5, -5, -3, -3}
	if diff := cmp.Diff(wantPM, floats(got.Column(types.PM25)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("PM2.5 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantTemp, floats(got.Column(types.TEMP)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("TEMP mismatch (-want +got):\n%s", diff)
	}
}

func TestClean_FillsInTimestampOrder(t *testing.T) {
	f := types.Float
	in := types.Series{Readings: []types.Reading{
		reading(24, f(9), f(2)),
		reading(0, nil, nil),
		reading(12, nil, f(1)),
	}}

	got := Clean(in)

	require.Equal(t, 3, got.Len())
	assert.Equal(t, []time.Time{hour(0), hour(12), hour(24)},
		[]time.Time{got.Readings[0].Time, got.Readings[1].Time, got.Readings[2].Time})
	if diff := cmp.Diff([]float64{math.NaN(), math.NaN(), 9}, floats(got.Column(types.PM25)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("PM2.5 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{math.NaN(), 1, 2}, floats(got.Column(types.TEMP)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("TEMP mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, hour(24), in.Readings[0].Time, "input order changed")
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	in := types.Series{Readings: []types.Reading{
		reading(0, types.Float(1), nil),
		reading(1, nil, nil),
	}}
	_ = Clean(in)
	assert.Nil(t, in.Readings[1].Values[types.PM25])

	out := Clean(in)
	*out.Readings[0].Values[types.PM25] = 99
	v, _ := in.Readings[0].Values.Get(types.PM25)
	assert.Equal(t, 1.0, v, "output must not alias input")
}

func TestClean_Idempotent(t *testing.T) {
	f := types.Float
	in := types.Series{Readings: []types.Reading{
		reading(0, nil, nil),
		reading(1, nil, f(2)),
		reading(2, f(7), nil),
		reading(3, nil, f(4)),
		reading(4, nil, nil),
	}}
	in.Readings[1].WindDir = "NW"

	once := Clean(in)
	twice := Clean(once)

	for _, c := range types.Columns() {
		if diff := cmp.Diff(floats(once.Column(c)), floats(twice.Column(c)), cmpopts.EquateNaNs()); diff != "" {
			t.Errorf("column %s not idempotent (-once +twice):\n%s", c, diff)
		}
	}
	for i := range once.Readings {
		assert.Equal(t, once.Readings[i].WindDir, twice.Readings[i].WindDir)
	}
	assert.Equal(t, "", once.Readings[0].WindDir)
	assert.Equal(t, "NW", once.Readings[4].WindDir)
}

func TestClean_Empty(t *testing.T) {
	got := Clean(types.Series{})
	assert.Equal(t, 0, got.Len())
}

func TestFromFrame(t *testing.T) {
	df := dataframe.New(
		series.New([]int{2013, 2013, 2013}, series.Int, "year"),
		series.New([]int{1, 1, 1}, series.Int, "month"),
		series.New([]int{2, 1, 1}, series.Int, "day"),
		series.New([]int{0, 1, 0}, series.Int, "hour"),
		series.New([]float64{200, 40, math.NaN()}, series.Float, "PM2.5"),
		series.New([]float64{-5, -5, -5}, series.Float, "TEMP"),
	)

	s, err := FromFrame(df)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	wantTimes := []time.Time{
		time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2013, 1, 1, 1, 0, 0, 0, time.UTC),
		time.Date(2013, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, want := range wantTimes {
		assert.True(t, want.Equal(s.Readings[i].Time), "row %d: got %s want %s", i, s.Readings[i].Time, want)
	}
	if diff := cmp.Diff([]float64{math.NaN(), 40, 200}, floats(s.Column(types.PM25)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("PM2.5 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, s.MissingCounts()[types.PM10], "absent optional column is all null")
}

func TestFromFrame_MissingRequired(t *testing.T) {
	for _, drop := range RequiredColumns {
		t.Run(drop, func(t *testing.T) {
			var cols []series.Series
			for _, name := range RequiredColumns {
				if name == drop {
					continue
				}
				cols = append(cols, series.New([]int{1}, series.Int, name))
			}
			_, err := FromFrame(dataframe.New(cols...))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidSchema)
		})
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	in := types.Series{Readings: []types.Reading{
		reading(0, types.Float(12), nil),
		reading(5, nil, types.Float(-1.5)),
	}}
	back, err := FromFrame(Frame(in))
	require.NoError(t, err)
	require.Equal(t, 2, back.Len())
	assert.True(t, back.Readings[1].Time.Equal(hour(5)))
	if diff := cmp.Diff(floats(in.Column(types.TEMP)), floats(back.Column(types.TEMP)), cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("TEMP mismatch (-want +got):\n%s", diff)
	}
}
