package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/CarrieMorar/FHELegalConsultation/db"
	"github.com/CarrieMorar/FHELegalConsultation/settlement"
)

// NewTransport creates a new instance of Transport. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewTransport(t interface {
	mock.TestingT
	Cleanup(func())
}) *Transport {
	m := &Transport{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Transport is a mock implementation of settlement.Transport.
type Transport struct {
	mock.Mock
}

func (_mock *Transport) Transfer(ctx context.Context, req *settlement.TransferRequest) (*db.Transfer, error) {
	ret := _mock.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for Transfer")
	}

	var r0 *db.Transfer
	if returnFunc, ok := ret.Get(0).(func(context.Context, *settlement.TransferRequest) (*db.Transfer, error)); ok {
		return returnFunc(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*db.Transfer)
	}
	return r0, ret.Error(1)
}
