package csvimport

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestParser(policy DatePolicy) *Parser {
	return NewParser(policy, time.UTC, func() time.Time { return fixedNow }, zap.NewNop())
}

func TestParse_SingleBloodPressureLine(t *testing.T) {
	res := newTestParser(DateBestEffort).Parse("blood_pressure,120,80,72,,,,2024-01-15 09:00,note")

	require.Len(t, res.Valid, 1)
	assert.Empty(t, res.Invalid)
	assert.Empty(t, res.Failed)
	assert.False(t, res.HeaderSkipped)

	c := res.Valid[0]
	assert.Equal(t, "blood_pressure", c.RecordType)
	assert.Equal(t, 120.0, *c.SystolicPressure)
	assert.Equal(t, 80.0, *c.DiastolicPressure)
	assert.Equal(t, 72.0, *c.HeartRate)
	assert.Nil(t, c.BloodSugar)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), c.MeasurementTime)
	assert.Equal(t, "note", c.Notes)
	assert.Equal(t, 1, c.Line)
}

func TestParse_WeightWithoutValueIsInvalid(t *testing.T) {
	res := newTestParser(DateBestEffort).Parse("weight,,,,,,,,")

	assert.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Contains(t, res.Invalid[0].Reason, "missing data")
	assert.ErrorIs(t, res.Err(), ErrNoValidRecords)
}

func TestParse_HeaderDetection(t *testing.T) {
	content := "record_type,systolic_pressure,diastolic_pressure,heart_rate,blood_sugar,blood_sugar_type,weight,measurement_time,notes\n" +
		"weight,,,,,,70.5,2024-01-15 10:00,\n"

	res := newTestParser(DateBestEffort).Parse(content)

	assert.True(t, res.HeaderSkipped)
	require.Len(t, res.Valid, 1)
	assert.Equal(t, 2, res.Valid[0].Line)
}

func TestParse_NumericFirstLineIsNotHeader(t *testing.T) {
	res := newTestParser(DateBestEffort).Parse(",120,80,,,,,2024-01-15 09:00,\n")
	assert.False(t, res.HeaderSkipped)
	require.Len(t, res.Valid, 1)
}

func TestParse_TypeInference(t *testing.T) {
	tests := []struct {
		line string
		want model.RecordType
	}{
		{",120,80,,,,,2024-01-15 09:00,", model.RecordTypeBloodPressure},
		{",,90,,,,,2024-01-15 09:00,", model.RecordTypeBloodPressure},
		{",,,,95,fasting,,2024-01-15 09:00,", model.RecordTypeBloodSugar},
		{",,,,,,70,2024-01-15 09:00,", model.RecordTypeWeight},
		{",,,,,,,2024-01-15 09:00,ran 5k", model.RecordTypeExercise},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			res := newTestParser(DateBestEffort).Parse(tt.line)
			require.Len(t, res.Valid, 1)
			assert.Equal(t, string(tt.want), res.Valid[0].RecordType)
		})
	}
}

func TestParse_ValidationRules(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		valid bool
	}{
		{"bp with only heart rate", "blood_pressure,,,72,,,,2024-01-15 09:00,", true},
		{"bp empty", "blood_pressure,,,,,,,2024-01-15 09:00,", false},
		{"sugar without value", "blood_sugar,,,,,fasting,,2024-01-15 09:00,", false},
		{"exercise always valid", "exercise,,,,,,,2024-01-15 09:00,", true},
		{"unknown type with notes", "mood,,,,,,,2024-01-15 09:00,feeling fine", true},
		{"unknown type empty", "mood,,,,,,,2024-01-15 09:00,", false},
		{"non numeric value is absent", "weight,,,,,,heavy,2024-01-15 09:00,", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestParser(DateBestEffort).Parse(tt.line)
			assert.Equal(t, 1, res.Total())
			if tt.valid {
				assert.Len(t, res.Valid, 1)
			} else {
				assert.Len(t, res.Invalid, 1)
			}
		})
	}
}

func TestParse_QuotedCommaInNotes(t *testing.T) {
	res := newTestParser(DateBestEffort).Parse(`blood_pressure,120,80,72,,,,2024-01-15 09:00,"morning, after coffee"`)

	require.Len(t, res.Valid, 1)
	assert.Equal(t, "morning, after coffee", res.Valid[0].Notes)
}

func TestParse_TooFewColumnsIsLineError(t *testing.T) {
	content := "blood_pressure,120,80,72,,,,2024-01-15 09:00,\njustonecolumn\nweight,,,,,,70,2024-01-15 09:00,\n"

	res := newTestParser(DateBestEffort).Parse(content)

	assert.Len(t, res.Valid, 2)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].Line)
	assert.Contains(t, res.Messages()[0], "line 2")
}

func TestParse_DateFormats(t *testing.T) {
	want := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	for _, value := range []string{
		"2024-01-15 09:30",
		"2024-01-15 09:30:00",
		"2024-01-15T09:30",
		"2024/01/15 09:30",
		"2024.01.15 09:30",
		"2024-01-15T09:30:00Z",
		"15-01-2024 09:30",
		"15/01/2024 09:30",
	} {
		t.Run(value, func(t *testing.T) {
			res := newTestParser(DateStrict).Parse("weight,,,,,,70," + value + ",")
			require.Len(t, res.Valid, 1)
			assert.True(t, want.Equal(res.Valid[0].MeasurementTime))
		})
	}

	for _, value := range []string{"2024-01-15", "2024/01/15", "15-01-2024", "15/01/2024"} {
		t.Run(value, func(t *testing.T) {
			res := newTestParser(DateStrict).Parse("weight,,,,,,70," + value + ",")
			require.Len(t, res.Valid, 1)
			assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), res.Valid[0].MeasurementTime)
			assert.False(t, res.Valid[0].TimeDefaulted)
		})
	}
}

func TestParse_DatePolicy(t *testing.T) {
	line := "weight,,,,,,70,not a date,"

	core, logs := observer.New(zap.WarnLevel)
	lenient := NewParser(DateBestEffort, time.UTC, func() time.Time { return fixedNow }, zap.New(core))
	res := lenient.Parse(line)
	require.Len(t, res.Valid, 1)
	assert.Equal(t, fixedNow, res.Valid[0].MeasurementTime)
	assert.True(t, res.Valid[0].TimeDefaulted)
	assert.Equal(t, 1, logs.FilterMessage("csv measurement time unreadable, using current time").Len())

	res = newTestParser(DateStrict).Parse(line)
	assert.Empty(t, res.Valid)
	require.Len(t, res.Invalid, 1)
	assert.Contains(t, res.Invalid[0].Reason, "invalid measurement time")
}

func TestParse_EmptyInput(t *testing.T) {
	res := newTestParser(DateBestEffort).Parse("\n\n  \n")
	assert.ErrorIs(t, res.Err(), ErrEmptyFile)

	res = newTestParser(DateBestEffort).Parse(strings.Join(Header, ",") + "\n")
	assert.ErrorIs(t, res.Err(), ErrEmptyFile)
}

func TestParse_CRLFAndPreview(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "weight,,,,,,%d,2024-01-15 09:00,\r\n", 60+i)
	}
	res := newTestParser(DateBestEffort).Parse(b.String())

	require.NoError(t, res.Err())
	assert.Len(t, res.Valid, 15)
	assert.Len(t, res.Preview(10), 10)
	assert.Equal(t, 60.0, *res.Preview(10)[0].Weight)
}

func TestTemplate_RoundTrip(t *testing.T) {
	res := newTestParser(DateStrict).Parse(Template())

	assert.True(t, res.HeaderSkipped)
	assert.Len(t, res.Valid, len(templateRows))
	assert.Empty(t, res.Invalid)
	assert.Empty(t, res.Failed)
	assert.NoError(t, res.Err())
}

func TestWriteRecords_ReimportsCleanly(t *testing.T) {
	sys, dia, w := 120.0, 80.0, 70.5
	ctx := model.BloodSugarPostMeal
	sugar := 140.0
	note := "after lunch, \"big\" meal\nsecond line"
	records := []model.HealthRecord{
		{RecordType: model.RecordTypeBloodPressure, SystolicPressure: &sys, DiastolicPressure: &dia,
			MeasurementTime: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)},
		{RecordType: model.RecordTypeBloodSugar, BloodSugar: &sugar, BloodSugarType: &ctx, Notes: &note,
			MeasurementTime: time.Date(2024, 1, 15, 13, 0, 0, 0, time.UTC)},
		{RecordType: model.RecordTypeWeight, Weight: &w,
			MeasurementTime: time.Date(2024, 1, 16, 7, 0, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	res := newTestParser(DateStrict).Parse(buf.String())
	require.Len(t, res.Valid, 3)
	assert.Equal(t, "after lunch, 'big' meal second line", res.Valid[1].Notes)
	require.NotNil(t, res.Valid[1].BloodSugarType)
	assert.Equal(t, model.BloodSugarPostMeal, *res.Valid[1].BloodSugarType)
	assert.Equal(t, 70.5, *res.Valid[2].Weight)
}

func TestParseDatePolicy(t *testing.T) {
	p, err := ParseDatePolicy("STRICT")
	require.NoError(t, err)
	assert.Equal(t, DateStrict, p)

	p, err = ParseDatePolicy("")
	require.NoError(t, err)
	assert.Equal(t, DateBestEffort, p)

	_, err = ParseDatePolicy("sometimes")
	assert.Error(t, err)
}

// TestProperty_EveryLineRoutedOnce checks that each data line lands in exactly one bucket
func TestProperty_EveryLineRoutedOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	lineGen := gen.OneConstOf(
		"blood_pressure,120,80,72,,,,2024-01-15 09:00,ok",
		"weight,,,,,,,,",
		"garbage",
		",,,,,,,,",
		"blood_sugar,,,,abc,fasting,,2024-01-15 09:00,",
		"exercise,,,,,,,yesterday,walk",
		`"quoted,cell",1`,
	)

	properties.Property("valid + invalid + failed equals data lines", prop.ForAll(
		func(lines []string) bool {
			content := strings.Join(lines, "\n")
			res := newTestParser(DateStrict).Parse(content)
			dataLines := len(lines)
			if res.HeaderSkipped {
				dataLines--
			}
			return res.Total() == dataLines
		},
		gen.SliceOf(lineGen),
	))

	properties.TestingRun(t)
}
