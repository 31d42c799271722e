package main

import (
	"context"

	"github.com/minio/madmin-go/v3"
	"github.com/stretchr/testify/mock"
)

// MockUsageClient is a mock implementation of services.UsageClient
type MockUsageClient struct {
	mock.Mock
}

func (m *MockUsageClient) DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).(madmin.DataUsageInfo), args.Error(1)
}
