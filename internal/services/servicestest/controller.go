// Package servicestest provides test doubles for the services package.
package servicestest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"monolith.network/netpkg/internal/services"
)

// Controller is a testify mock of services.Controller.
type Controller struct {
	mock.Mock
}

var _ services.Controller = (*Controller)(nil)

func (c *Controller) Start(ctx context.Context, name string) error {
	return c.Called(ctx, name).Error(0)
}

func (c *Controller) Stop(ctx context.Context, name string) error {
	return c.Called(ctx, name).Error(0)
}

func (c *Controller) Restart(ctx context.Context, name string) error {
	return c.Called(ctx, name).Error(0)
}

func (c *Controller) Status(ctx context.Context, name string) (services.ServiceStatus, error) {
	args := c.Called(ctx, name)
	return args.Get(0).(services.ServiceStatus), args.Error(1)
}
