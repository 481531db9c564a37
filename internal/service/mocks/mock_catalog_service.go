package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"acadrive/internal/model"
	"acadrive/internal/query"
	"acadrive/internal/service"
	"acadrive/internal/vote"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) Upload(ctx context.Context, in service.UploadInput) (*model.Resource, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resource), args.Error(1)
}

func (m *MockCatalogService) Browse(ctx context.Context, f query.Filters) (*service.BrowseResult, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BrowseResult), args.Error(1)
}

func (m *MockCatalogService) Get(ctx context.Context, id string) (*model.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resource), args.Error(1)
}

func (m *MockCatalogService) Vote(ctx context.Context, id string, dir model.VoteDirection, publish func(model.Resource)) (vote.Outcome, error) {
	args := m.Called(ctx, id, dir, publish)
	return args.Get(0).(vote.Outcome), args.Error(1)
}

func (m *MockCatalogService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCatalogService) Open(ctx context.Context, id string) (io.ReadCloser, *model.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Resource), args.Error(2)
}

func (m *MockCatalogService) DownloadURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, id, expiry)
	return args.String(0), args.Error(1)
}
