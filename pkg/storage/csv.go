package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/digienergy/simulation/pkg/schedule"
	"github.com/digienergy/simulation/pkg/series"
	"github.com/digienergy/simulation/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// csvHeader is the column layout of an interval export file. The rate period
// is not stored; it is a pure function of date and time and is recomputed on
// read.
var csvHeader = []string{"meter_no", "date", "weekday", "time", "demand_kW", "period"}

// CSVProvider implements Database on top of plain files in a directory: one
// CSV per meter and month for intervals, plus JSON sidecars for stats and
// statements.
type CSVProvider struct {
	dir string
}

// configuredCSV sets up the CSV provider. It registers flags for
// configuration.
func configuredCSV() *CSVProvider {
	dir := lflag.String("csv-dir", "data", "Directory for CSV storage output")

	c := &CSVProvider{}

	lflag.Do(func() {
		c.dir = *dir
	})

	return c
}

// NewCSVProvider returns a provider rooted at dir, for callers that do not go
// through flag configuration.
func NewCSVProvider(dir string) *CSVProvider {
	return &CSVProvider{dir: dir}
}

// Init creates the storage directory.
func (c *CSVProvider) Init() error {
	if c.dir == "" {
		return fmt.Errorf("csv storage directory cannot be empty")
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create csv storage dir %s: %w", c.dir, err)
	}
	return nil
}

// Close is a no-op; files are closed per operation.
func (c *CSVProvider) Close() error {
	return nil
}

func (c *CSVProvider) intervalsPath(meterNo, ym string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_intervals.csv", meterNo, ym))
}

func (c *CSVProvider) statsPath(meterNo, ym string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_stats.json", meterNo, ym))
}

func (c *CSVProvider) statementPath(meterNo, ym string) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_statement.json", meterNo, ym))
}

// UpsertIntervals merges records into the per-meter month files. Existing rows
// with the same date and time are replaced.
func (c *CSVProvider) UpsertIntervals(ctx context.Context, records []types.IntervalRecord) error {
	// group by file so one call can span meters and months
	groups := make(map[string][]types.IntervalRecord)
	for _, r := range records {
		if r.MeterNo == "" || len(r.Date) < 7 {
			return fmt.Errorf("interval record missing meter or date: %+v", r.Key())
		}
		path := c.intervalsPath(r.MeterNo, r.Date[:7])
		groups[path] = append(groups[path], r)
	}

	for path, group := range groups {
		set := series.NewSet()
		existing, err := c.readIntervalFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		set.Upsert(existing...)
		set.Upsert(group...)
		if err := c.writeIntervalFile(path, set.Records()); err != nil {
			return err
		}
	}
	return nil
}

// GetIntervals returns the stored series for one meter and month, sorted by
// date and time. It returns ErrNotFound when no file exists.
func (c *CSVProvider) GetIntervals(ctx context.Context, meterNo string, year int, month time.Month) ([]types.IntervalRecord, error) {
	records, err := c.readIntervalFile(c.intervalsPath(meterNo, monthKey(year, month)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: intervals for %s %s", ErrNotFound, meterNo, monthKey(year, month))
	}
	return records, err
}

func (c *CSVProvider) readIntervalFile(path string) ([]types.IntervalRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	records := make([]types.IntervalRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(csvHeader) {
			return nil, fmt.Errorf("%s row %d: want %d columns, got %d", path, i+2, len(csvHeader), len(row))
		}
		weekday, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad weekday %q: %w", path, i+2, row[2], err)
		}
		demand, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad demand %q: %w", path, i+2, row[4], err)
		}

		_, month, day, err := schedule.ParseDate(row[1])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		minute, err := schedule.MinuteOfDay(row[3])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		dayType := types.DayTypeWeekday
		switch weekday {
		case 5:
			dayType = types.DayTypeSaturday
		case 6:
			dayType = types.DayTypeSunday
		}

		records = append(records, types.IntervalRecord{
			MeterNo:        row[0],
			Date:           row[1],
			Weekday:        weekday,
			Time:           row[3],
			DemandKW:       demand,
			CapacityPeriod: types.CapacityPeriod(row[5]),
			RatePeriod:     schedule.RatePeriodAt(dayType, schedule.SeasonOf(month, day), minute),
		})
	}
	return records, nil
}

func (c *CSVProvider) writeIntervalFile(path string, records []types.IntervalRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, r := range records {
		row := []string{
			r.MeterNo,
			r.Date,
			strconv.Itoa(r.Weekday),
			r.Time,
			strconv.FormatFloat(r.DemandKW, 'f', 2, 64),
			string(r.CapacityPeriod),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// UpsertMonthlyStats writes the monthly statistics sidecar.
func (c *CSVProvider) UpsertMonthlyStats(ctx context.Context, stats types.MonthlyStats) error {
	path := c.statsPath(stats.MeterNo, monthKey(stats.Year, time.Month(stats.Month)))
	return writeJSONFile(path, stats)
}

// GetMonthlyStats reads the monthly statistics sidecar.
func (c *CSVProvider) GetMonthlyStats(ctx context.Context, meterNo string, year int, month time.Month) (types.MonthlyStats, error) {
	var stats types.MonthlyStats
	err := readJSONFile(c.statsPath(meterNo, monthKey(year, month)), &stats)
	if errors.Is(err, fs.ErrNotExist) {
		return types.MonthlyStats{}, fmt.Errorf("%w: stats for %s %s", ErrNotFound, meterNo, monthKey(year, month))
	}
	return stats, err
}

// UpsertStatement writes the statement sidecar.
func (c *CSVProvider) UpsertStatement(ctx context.Context, statement types.Statement) error {
	path := c.statementPath(statement.MeterNo, monthKey(statement.Year, time.Month(statement.Month)))
	return writeJSONFile(path, statement)
}

// GetStatement reads the statement sidecar.
func (c *CSVProvider) GetStatement(ctx context.Context, meterNo string, year int, month time.Month) (types.Statement, error) {
	var statement types.Statement
	err := readJSONFile(c.statementPath(meterNo, monthKey(year, month)), &statement)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Statement{}, fmt.Errorf("%w: statement for %s %s", ErrNotFound, meterNo, monthKey(year, month))
	}
	return statement, err
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}
