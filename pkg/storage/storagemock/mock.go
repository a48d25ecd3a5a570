// Package storagemock provides a testify mock of the storage.Database
// interface for handler tests.
package storagemock

import (
	"context"
	"time"

	"github.com/digienergy/simulation/pkg/storage"
	"github.com/digienergy/simulation/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) UpsertIntervals(ctx context.Context, records []types.IntervalRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockDatabase) GetIntervals(ctx context.Context, meterNo string, year int, month time.Month) ([]types.IntervalRecord, error) {
	args := m.Called(ctx, meterNo, year, month)
	if records, ok := args.Get(0).([]types.IntervalRecord); ok {
		return records, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDatabase) UpsertMonthlyStats(ctx context.Context, stats types.MonthlyStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockDatabase) GetMonthlyStats(ctx context.Context, meterNo string, year int, month time.Month) (types.MonthlyStats, error) {
	args := m.Called(ctx, meterNo, year, month)
	if stats, ok := args.Get(0).(types.MonthlyStats); ok {
		return stats, args.Error(1)
	}
	return types.MonthlyStats{}, args.Error(1)
}

func (m *MockDatabase) UpsertStatement(ctx context.Context, statement types.Statement) error {
	args := m.Called(ctx, statement)
	return args.Error(0)
}

func (m *MockDatabase) GetStatement(ctx context.Context, meterNo string, year int, month time.Month) (types.Statement, error) {
	args := m.Called(ctx, meterNo, year, month)
	if statement, ok := args.Get(0).(types.Statement); ok {
		return statement, args.Error(1)
	}
	return types.Statement{}, args.Error(1)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
