// Package csvimport turns user-supplied CSV text into measurement records.
//
// Columns are positional:
//
//	record_type, systolic_pressure, diastolic_pressure, heart_rate,
//	blood_sugar, blood_sugar_type, weight, measurement_time, notes
//
// Every non-blank data line ends up in exactly one of Result.Valid,
// Result.Invalid or Result.Failed.
package csvimport

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

const (
	colRecordType = iota
	colSystolic
	colDiastolic
	colHeartRate
	colBloodSugar
	colBloodSugarType
	colWeight
	colMeasurementTime
	colNotes

	columnCount
)

var (
	// ErrEmptyFile is returned when the input holds no data lines
	ErrEmptyFile = errors.New("insufficient data: the file has no data rows")
	// ErrNoValidRecords is returned when no data line passed validation
	ErrNoValidRecords = errors.New("no valid records to import")
)

// DatePolicy decides what happens to a row whose measurement time cannot be parsed
type DatePolicy string

const (
	// DateBestEffort substitutes the current time and logs a warning
	DateBestEffort DatePolicy = "best_effort"
	// DateStrict marks the row invalid
	DateStrict DatePolicy = "strict"
)

// ParseDatePolicy maps a config value to a DatePolicy
func ParseDatePolicy(s string) (DatePolicy, error) {
	switch DatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case DateBestEffort, "":
		return DateBestEffort, nil
	case DateStrict:
		return DateStrict, nil
	default:
		return "", fmt.Errorf("unknown date policy %q", s)
	}
}

// Accepted measurement time layouts. A value without a clock time gets " 00:00" appended first.
var timeLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04",
	"2006/01/02 15:04:05",
	"2006.01.02 15:04",
	"2006.01.02 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006 15:04:05",
}

// Candidate is a parsed CSV row before persistence
type Candidate struct {
	Line              int                      `json:"line"`
	RecordType        string                   `json:"record_type"`
	SystolicPressure  *float64                 `json:"systolic_pressure,omitempty"`
	DiastolicPressure *float64                 `json:"diastolic_pressure,omitempty"`
	HeartRate         *float64                 `json:"heart_rate,omitempty"`
	BloodSugar        *float64                 `json:"blood_sugar,omitempty"`
	BloodSugarType    *model.BloodSugarContext `json:"blood_sugar_type,omitempty"`
	Weight            *float64                 `json:"weight,omitempty"`
	MeasurementTime   time.Time                `json:"measurement_time"`
	TimeDefaulted     bool                     `json:"time_defaulted,omitempty"`
	Notes             string                   `json:"notes,omitempty"`
}

// Record converts the candidate into a HealthRecord owned by userID
func (c Candidate) Record(userID string) model.HealthRecord {
	rec := model.HealthRecord{
		UserID:            userID,
		RecordType:        model.RecordType(c.RecordType),
		SystolicPressure:  c.SystolicPressure,
		DiastolicPressure: c.DiastolicPressure,
		HeartRate:         c.HeartRate,
		BloodSugar:        c.BloodSugar,
		BloodSugarType:    c.BloodSugarType,
		Weight:            c.Weight,
		MeasurementTime:   c.MeasurementTime,
	}
	if c.Notes != "" {
		notes := c.Notes
		rec.Notes = &notes
	}
	return rec
}

// Rejected is a well-formed row that failed validation
type Rejected struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// LineError is a row that could not be read at all
type LineError struct {
	Line   int    `json:"line"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Result partitions the data lines of one input
type Result struct {
	Valid   []Candidate `json:"valid"`
	Invalid []Rejected  `json:"invalid"`
	Failed  []LineError `json:"failed"`
	// HeaderSkipped is true when the first line was recognised as a header
	HeaderSkipped bool `json:"header_skipped"`
}

// Total is the number of data lines seen
func (r *Result) Total() int {
	return len(r.Valid) + len(r.Invalid) + len(r.Failed)
}

// Err reports whether the result is importable
func (r *Result) Err() error {
	if r.Total() == 0 {
		return ErrEmptyFile
	}
	if len(r.Valid) == 0 {
		return ErrNoValidRecords
	}
	return nil
}

// Preview returns up to n valid candidates
func (r *Result) Preview(n int) []Candidate {
	if len(r.Valid) < n {
		n = len(r.Valid)
	}
	return r.Valid[:n]
}

// Messages flattens invalid and failed rows into "line N: reason" strings
func (r *Result) Messages() []string {
	out := make([]string, 0, len(r.Invalid)+len(r.Failed))
	for _, rej := range r.Invalid {
		out = append(out, fmt.Sprintf("line %d: %s", rej.Candidate.Line, rej.Reason))
	}
	for _, le := range r.Failed {
		out = append(out, le.Error())
	}
	return out
}

// Parser reads CSV text. The zero value is not usable; use NewParser.
type Parser struct {
	policy   DatePolicy
	location *time.Location
	now      func() time.Time
	logger   *zap.Logger
}

// NewParser creates a Parser. Times without a zone are read in loc.
func NewParser(policy DatePolicy, loc *time.Location, now func() time.Time, logger *zap.Logger) *Parser {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		policy:   policy,
		location: loc,
		now:      now,
		logger:   logger,
	}
}

// Parse partitions content into valid, invalid and failed rows
func (p *Parser) Parse(content string) *Result {
	lines, numbers := splitLines(content)
	res := &Result{}

	start := 0
	if len(lines) > 0 && isHeader(splitLine(lines[0])) {
		res.HeaderSkipped = true
		start = 1
	}

	for i := start; i < len(lines); i++ {
		p.parseLine(res, lines[i], numbers[i])
	}

	if len(res.Invalid)+len(res.Failed) > 0 {
		p.logger.Warn("csv import rows rejected",
			zap.Int("invalid", len(res.Invalid)),
			zap.Int("failed", len(res.Failed)),
			zap.Int("valid", len(res.Valid)),
		)
	}
	return res
}

func (p *Parser) parseLine(res *Result, line string, number int) {
	cols := splitLine(line)
	if len(cols) < 2 {
		res.Failed = append(res.Failed, LineError{Line: number, Raw: line, Reason: "expected at least 2 columns"})
		return
	}
	for len(cols) < columnCount {
		cols = append(cols, "")
	}

	c := Candidate{
		Line:              number,
		RecordType:        strings.ToLower(cols[colRecordType]),
		SystolicPressure:  parseNumber(cols[colSystolic]),
		DiastolicPressure: parseNumber(cols[colDiastolic]),
		HeartRate:         parseNumber(cols[colHeartRate]),
		BloodSugar:        parseNumber(cols[colBloodSugar]),
		BloodSugarType:    parseSugarContext(cols[colBloodSugarType]),
		Weight:            parseNumber(cols[colWeight]),
		Notes:             cols[colNotes],
	}

	ts, ok := p.parseTime(cols[colMeasurementTime])
	if !ok {
		if p.policy == DateStrict {
			res.Invalid = append(res.Invalid, Rejected{
				Candidate: c,
				Reason:    fmt.Sprintf("invalid measurement time %q", cols[colMeasurementTime]),
			})
			return
		}
		p.logger.Warn("csv measurement time unreadable, using current time",
			zap.Int("line", number),
			zap.String("value", cols[colMeasurementTime]),
		)
		ts = p.now()
		c.TimeDefaulted = true
	}
	c.MeasurementTime = ts

	if c.RecordType == "" {
		c.RecordType = string(inferType(c))
	}

	if reason := validate(c); reason != "" {
		res.Invalid = append(res.Invalid, Rejected{Candidate: c, Reason: reason})
		return
	}
	res.Valid = append(res.Valid, c)
}

func (p *Parser) parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(p.location), true
	}
	if !strings.Contains(s, ":") {
		s += " 00:00"
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// isHeader treats the first line as a header when its first column is
// neither a number nor a known record type nor empty.
func isHeader(cols []string) bool {
	first := strings.ToLower(cols[0])
	if first == "" || model.RecordType(first).Valid() {
		return false
	}
	return parseNumber(first) == nil
}

// inferType picks a record type for rows that leave it blank
func inferType(c Candidate) model.RecordType {
	switch {
	case c.SystolicPressure != nil || c.DiastolicPressure != nil:
		return model.RecordTypeBloodPressure
	case c.BloodSugar != nil:
		return model.RecordTypeBloodSugar
	case c.Weight != nil:
		return model.RecordTypeWeight
	default:
		return model.RecordTypeExercise
	}
}

// validate returns an empty string for a valid candidate, otherwise the reason
func validate(c Candidate) string {
	var ok bool
	switch model.RecordType(c.RecordType) {
	case model.RecordTypeBloodPressure:
		ok = c.SystolicPressure != nil || c.DiastolicPressure != nil || c.HeartRate != nil
	case model.RecordTypeBloodSugar:
		ok = c.BloodSugar != nil
	case model.RecordTypeWeight:
		ok = c.Weight != nil
	case model.RecordTypeExercise:
		ok = true
	default:
		ok = c.Notes != "" || c.SystolicPressure != nil || c.BloodSugar != nil || c.Weight != nil || c.HeartRate != nil
	}
	if ok {
		return ""
	}
	return fmt.Sprintf("missing data: no value for record type %s", c.RecordType)
}

// parseNumber returns nil for blank or unparseable values
func parseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseSugarContext(s string) *model.BloodSugarContext {
	switch ctx := model.BloodSugarContext(strings.ToLower(s)); ctx {
	case model.BloodSugarFasting, model.BloodSugarPostMeal:
		return &ctx
	default:
		return nil
	}
}
