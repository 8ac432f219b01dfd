package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/i474232898/rainfall-dashboard/internal/weather"
)

const batchSize = 500

// StationRow is the persisted form of a station.
type StationRow struct {
	ID   string  `gorm:"column:id;primaryKey;size:32"`
	Name string  `gorm:"column:name;size:255"`
	Lat  float64 `gorm:"column:lat"`
	Lon  float64 `gorm:"column:lon"`
}

func (StationRow) TableName() string { return "stations" }

// ReadingRow is the persisted form of a reading. Time is unix milliseconds.
type ReadingRow struct {
	ID        uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	StationID string  `gorm:"column:station_id;size:32;not null;index:idx_readings_station_time,priority:1"`
	TimeMs    int64   `gorm:"column:time_ms;not null;index:idx_readings_station_time,priority:2"`
	Rain      float64 `gorm:"column:rain"`
}

func (ReadingRow) TableName() string { return "readings" }

// SQLStore is a Store on top of GORM.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps an open connection. Call Migrate before first use on a
// fresh database.
func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Migrate creates or updates the stations and readings tables.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&StationRow{}, &ReadingRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLStore) SaveStations(ctx context.Context, stations []weather.Station) error {
	if len(stations) == 0 {
		return nil
	}

	rows := make([]StationRow, 0, len(stations))
	for _, st := range stations {
		rows = append(rows, StationRow{ID: st.ID, Name: st.Name, Lat: st.Lat, Lon: st.Lon})
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "lat", "lon"}),
		}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("save stations: %w", err)
	}
	return nil
}

func (s *SQLStore) ListStations(ctx context.Context) ([]weather.Station, error) {
	var rows []StationRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}

	out := make([]weather.Station, 0, len(rows))
	for _, r := range rows {
		out = append(out, weather.Station{ID: r.ID, Name: r.Name, Lat: r.Lat, Lon: r.Lon})
	}
	return out, nil
}

func (s *SQLStore) SaveReadings(ctx context.Context, readings []weather.Reading) error {
	if len(readings) == 0 {
		return nil
	}

	rows := make([]ReadingRow, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, ReadingRow{StationID: r.StationID, TimeMs: r.Time.UnixMilli(), Rain: r.Rain})
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, batchSize).Error; err != nil {
		return fmt.Errorf("save readings: %w", err)
	}
	return nil
}

// QueryReadings returns the readings of a station between from and to
// (inclusive), oldest first.
func (s *SQLStore) QueryReadings(ctx context.Context, stationID string, from, to time.Time) ([]weather.Reading, error) {
	var rows []ReadingRow
	err := s.db.WithContext(ctx).
		Where("station_id = ? AND time_ms >= ? AND time_ms <= ?", stationID, from.UnixMilli(), to.UnixMilli()).
		Order("time_ms").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	return toReadings(rows), nil
}

func (s *SQLStore) LatestReading(ctx context.Context, stationID string) (weather.Reading, error) {
	var row ReadingRow
	err := s.db.WithContext(ctx).
		Where("station_id = ?", stationID).
		Order("time_ms DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return weather.Reading{}, ErrNotFound
	}
	if err != nil {
		return weather.Reading{}, fmt.Errorf("latest reading: %w", err)
	}
	return toReading(row), nil
}

func toReadings(rows []ReadingRow) []weather.Reading {
	if len(rows) == 0 {
		return nil
	}
	out := make([]weather.Reading, 0, len(rows))
	for _, r := range rows {
		out = append(out, toReading(r))
	}
	return out
}

func toReading(r ReadingRow) weather.Reading {
	return weather.Reading{StationID: r.StationID, Time: time.UnixMilli(r.TimeMs).UTC(), Rain: r.Rain}
}
