package coerce

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float", 3.8, 3.8, true},
		{"int", 7, 7, true},
		{"int64", int64(-2), -2, true},
		{"string", " 2.1 ", 2.1, true},
		{"json number", json.Number("4"), 4, true},
		{"nil", nil, 0, false},
		{"empty", "", 0, false},
		{"word", "N/A", 0, false},
		{"nan", math.NaN(), 0, false},
		{"nan string", "NaN", 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Number(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "", Text(nil))
	assert.Equal(t, "Active", Text("Active"))
	assert.Equal(t, "3.5", Text(3.5))
	assert.Equal(t, "4", Text(4.0))
	assert.Equal(t, "12", Text(12))
	assert.Equal(t, "2024-03-01", Text(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-01 10:30:00", Text(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))
}

func TestDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"2024-03-01", "2024/03/01", "03/01/2024", "3/1/2024", "01-Mar-2024", "Mar 1, 2024", "March 1, 2024"} {
		got, ok := Date(in)
		if assert.True(t, ok, in) {
			assert.True(t, Day(got).Equal(want), in)
		}
	}

	_, ok := Date("not a date")
	assert.False(t, ok)
	_, ok = Date(nil)
	assert.False(t, ok)
	_, ok = Date(42)
	assert.False(t, ok)
	_, ok = Date(time.Time{})
	assert.False(t, ok)
}

func TestIsMissing(t *testing.T) {
	assert.True(t, IsMissing(nil))
	assert.True(t, IsMissing("  "))
	assert.True(t, IsMissing(math.NaN()))
	assert.False(t, IsMissing(0))
	assert.False(t, IsMissing("x"))
}

func TestIsMissingMarker(t *testing.T) {
	for _, s := range []string{"", " ", "N/A", "NA", "NaN", "nan", "null", "NULL", "None", " #N/A ", "<NA>"} {
		assert.True(t, IsMissingMarker(s), "%q", s)
	}
	for _, s := range []string{"0", "Active", "Nan Goldin", "none of the above", "n.a."} {
		assert.False(t, IsMissingMarker(s), "%q", s)
	}
}
