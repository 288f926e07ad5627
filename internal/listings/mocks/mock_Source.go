// Package mocks provides test doubles for listing sources.
package mocks

import (
	"context"

	listings "github.com/sells-group/car-price-checker/internal/listings"
	mock "github.com/stretchr/testify/mock"
)

// MockSource is a mock type for the Source interface.
type MockSource struct {
	mock.Mock
}

// ForVIN provides a mock function with given fields: ctx, vin
func (_m *MockSource) ForVIN(ctx context.Context, vin string) (*listings.Result, error) {
	ret := _m.Called(ctx, vin)

	if len(ret) == 0 {
		panic("no return value specified for ForVIN")
	}

	var r0 *listings.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*listings.Result, error)); ok {
		return rf(ctx, vin)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*listings.Result)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// ForVehicle provides a mock function with given fields: ctx, q
func (_m *MockSource) ForVehicle(ctx context.Context, q listings.Query) (*listings.Result, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for ForVehicle")
	}

	var r0 *listings.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, listings.Query) (*listings.Result, error)); ok {
		return rf(ctx, q)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*listings.Result)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockSource creates a new instance of MockSource.
func NewMockSource(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSource {
	m := &MockSource{}
	m.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
