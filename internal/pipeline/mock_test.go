package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gulfshield/claims-engine/internal/model"
	"github.com/gulfshield/claims-engine/internal/store"
	"github.com/gulfshield/claims-engine/pkg/ollama"
)

// --- Oracle mock ---

type mockOracleClient struct {
	mock.Mock
}

func (m *mockOracleClient) Generate(ctx context.Context, req ollama.GenerateRequest) (*ollama.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ollama.GenerateResponse), args.Error(1)
}

func (m *mockOracleClient) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Store mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) RecordDecision(ctx context.Context, report *model.DecisionReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *mockStore) GetDecision(ctx context.Context, id string) (*model.DecisionReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DecisionReport), args.Error(1)
}

func (m *mockStore) ListDecisions(ctx context.Context, filter store.DecisionFilter) ([]model.DecisionReport, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DecisionReport), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
