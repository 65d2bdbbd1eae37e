package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/vcscsvcscs/vitals-tracker/apps/backend/internal/validation"
	"github.com/vcscsvcscs/vitals-tracker/apps/backend/pkg/model"
	"go.uber.org/zap"
)

// Metric aggregates one numeric field
type Metric struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// TypeSummary aggregates one record type over the period
type TypeSummary struct {
	RecordType model.RecordType    `json:"record_type"`
	Label      string              `json:"label"`
	Count      int                 `json:"count"`
	Metrics    map[string]Metric   `json:"metrics"`
	Latest     *model.HealthRecord `json:"latest,omitempty"`
}

// DailyPoint holds per-day averages for charts
type DailyPoint struct {
	Date   string             `json:"date"`
	Count  int                `json:"count"`
	Values map[string]float64 `json:"values"`
}

// DashboardSummary represents aggregated dashboard data
type DashboardSummary struct {
	Period       string             `json:"period"`
	Days         int                `json:"days"`
	TotalRecords int                `json:"total_records"`
	Types        []TypeSummary      `json:"types"`
	Daily        []DailyPoint       `json:"daily"`
	Health       validation.Overall `json:"health"`
}

// RecordLister lists a user's records
type RecordLister interface {
	ListByUserID(ctx context.Context, userID string, filter model.RecordFilter) ([]model.HealthRecord, error)
}

// DashboardService manages dashboard data aggregation and trends
type DashboardService struct {
	repo     RecordLister
	heights  HeightLookup
	location *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(repo RecordLister, heights HeightLookup, location *time.Location, logger *zap.Logger) *DashboardService {
	if location == nil {
		location = time.Local
	}
	return &DashboardService{
		repo:     repo,
		heights:  heights,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// GetSummary aggregates the user's records over the last 7, 30 or 90 days
func (s *DashboardService) GetSummary(ctx context.Context, userID string, days int) (*DashboardSummary, error) {
	if days != 7 && days != 30 && days != 90 {
		s.logger.Warn("invalid days parameter, defaulting to 7",
			zap.Int("days", days),
			zap.String("user_id", userID),
		)
		days = 7
	}

	now := s.now()
	from := now.AddDate(0, 0, -days)
	records, err := s.repo.ListByUserID(ctx, userID, model.RecordFilter{From: &from})
	if err != nil {
		s.logger.Error("failed to load dashboard records", zap.Error(err), zap.String("user_id", userID))
		return nil, fmt.Errorf("failed to get dashboard summary: %w", err)
	}

	summary := &DashboardSummary{
		Period:       fmt.Sprintf("%d days", days),
		Days:         days,
		TotalRecords: len(records),
		Types:        summarizeTypes(records),
		Daily:        s.dailySeries(records),
		Health:       validation.EvaluateOverall(records, s.heights.HeightCM(ctx, userID)),
	}
	return summary, nil
}

// metricFields names the numeric fields aggregated per record
var metricFields = []struct {
	name string
	get  func(model.HealthRecord) *float64
}{
	{"systolic_pressure", func(r model.HealthRecord) *float64 { return r.SystolicPressure }},
	{"diastolic_pressure", func(r model.HealthRecord) *float64 { return r.DiastolicPressure }},
	{"heart_rate", func(r model.HealthRecord) *float64 { return r.HeartRate }},
	{"blood_sugar", func(r model.HealthRecord) *float64 { return r.BloodSugar }},
	{"weight", func(r model.HealthRecord) *float64 { return r.Weight }},
	{"temperature", func(r model.HealthRecord) *float64 { return r.Temperature }},
}

func summarizeTypes(records []model.HealthRecord) []TypeSummary {
	byType := make(map[model.RecordType][]model.HealthRecord)
	for _, rec := range records {
		byType[rec.RecordType] = append(byType[rec.RecordType], rec)
	}

	out := []TypeSummary{}
	for _, t := range model.RecordTypes {
		recs := byType[t]
		if len(recs) == 0 {
			continue
		}
		ts := TypeSummary{
			RecordType: t,
			Label:      t.Label(),
			Count:      len(recs),
			Metrics:    aggregate(recs),
		}
		latest := recs[0]
		for _, rec := range recs[1:] {
			if rec.MeasurementTime.After(latest.MeasurementTime) {
				latest = rec
			}
		}
		ts.Latest = &latest
		out = append(out, ts)
	}
	return out
}

func aggregate(records []model.HealthRecord) map[string]Metric {
	out := make(map[string]Metric)
	for _, field := range metricFields {
		var (
			m   Metric
			sum float64
		)
		for _, rec := range records {
			v := field.get(rec)
			if v == nil {
				continue
			}
			if m.Count == 0 || *v < m.Min {
				m.Min = *v
			}
			if m.Count == 0 || *v > m.Max {
				m.Max = *v
			}
			sum += *v
			m.Count++
		}
		if m.Count == 0 {
			continue
		}
		m.Average = round1(sum / float64(m.Count))
		out[field.name] = m
	}
	return out
}

func (s *DashboardService) dailySeries(records []model.HealthRecord) []DailyPoint {
	byDay := make(map[string][]model.HealthRecord)
	for _, rec := range records {
		day := rec.MeasurementTime.In(s.location).Format("2006-01-02")
		byDay[day] = append(byDay[day], rec)
	}

	out := make([]DailyPoint, 0, len(byDay))
	for day, recs := range byDay {
		p := DailyPoint{Date: day, Count: len(recs), Values: make(map[string]float64)}
		for name, m := range aggregate(recs) {
			p.Values[name] = m.Average
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
