// Package mocks provides test doubles for the marketcheck client.
package mocks

import (
	"context"

	marketcheck "github.com/sells-group/car-price-checker/pkg/marketcheck"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// DecodeVIN provides a mock function with given fields: ctx, vin
func (_m *MockClient) DecodeVIN(ctx context.Context, vin string) (*marketcheck.VINSpec, error) {
	ret := _m.Called(ctx, vin)

	if len(ret) == 0 {
		panic("no return value specified for DecodeVIN")
	}

	var r0 *marketcheck.VINSpec
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*marketcheck.VINSpec, error)); ok {
		return rf(ctx, vin)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *marketcheck.VINSpec); ok {
		r0 = rf(ctx, vin)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*marketcheck.VINSpec)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, vin)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// SearchActive provides a mock function with given fields: ctx, params
func (_m *MockClient) SearchActive(ctx context.Context, params marketcheck.SearchParams) (*marketcheck.SearchResponse, error) {
	ret := _m.Called(ctx, params)

	if len(ret) == 0 {
		panic("no return value specified for SearchActive")
	}

	var r0 *marketcheck.SearchResponse
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, marketcheck.SearchParams) (*marketcheck.SearchResponse, error)); ok {
		return rf(ctx, params)
	}
	if rf, ok := ret.Get(0).(func(context.Context, marketcheck.SearchParams) *marketcheck.SearchResponse); ok {
		r0 = rf(ctx, params)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*marketcheck.SearchResponse)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, marketcheck.SearchParams) error); ok {
		r1 = rf(ctx, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
