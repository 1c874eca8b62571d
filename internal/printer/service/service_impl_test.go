package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
	assignmentrepo "github.com/smallbiznis/printfan/internal/assignment/repository"
	"github.com/smallbiznis/printfan/internal/clock"
	"github.com/smallbiznis/printfan/internal/printer/domain"
	"github.com/smallbiznis/printfan/internal/printer/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.PrinterEndpoint{}, &assignmentdomain.Assignment{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Clock:          clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:           repository.Provide(),
		AssignmentRepo: assignmentrepo.Provide(),
	})
	return svc, db, node
}

func TestRegisterAndGet(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, domain.RegisterPrinterRequest{
		Name:    "Kitchen",
		Address: "192.168.1.50",
		Port:    9100,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.TransportNetwork, created.Transport)
	assert.True(t, created.Active)
	assert.Equal(t, domain.HealthUnknown, created.Health)

	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Kitchen", got.Name)
	assert.Equal(t, "192.168.1.50:9100", got.HostPort())
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.RegisterPrinterRequest
	}{
		{"empty name", domain.RegisterPrinterRequest{Address: "10.0.0.1", Port: 9100}},
		{"empty address", domain.RegisterPrinterRequest{Name: "Bar", Port: 9100}},
		{"port zero", domain.RegisterPrinterRequest{Name: "Bar", Address: "10.0.0.1"}},
		{"port too large", domain.RegisterPrinterRequest{Name: "Bar", Address: "10.0.0.1", Port: 70000}},
		{"bad transport", domain.RegisterPrinterRequest{Name: "Bar", Address: "10.0.0.1", Port: 9100, Transport: "carrier-pigeon"}},
		{"address with spaces", domain.RegisterPrinterRequest{Name: "Bar", Address: "10.0.0.1 foo", Port: 9100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			assert.ErrorIs(t, err, domain.ErrInvalidEndpoint)
		})
	}
}

func TestRegisterSerialEndpoint(t *testing.T) {
	svc, _, _ := setupService(t)

	created, err := svc.Register(context.Background(), domain.RegisterPrinterRequest{
		Name:      "Legacy",
		Address:   "/dev/ttyUSB0",
		Transport: domain.TransportSerial,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransportSerial, created.Transport)
}

func TestUpdatePartial(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, domain.RegisterPrinterRequest{
		Name:    "Kitchen",
		Address: "10.0.0.5",
		Port:    9100,
	})
	require.NoError(t, err)

	name := "Main Kitchen"
	updated, err := svc.Update(ctx, domain.UpdatePrinterRequest{ID: created.ID.String(), Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Main Kitchen", updated.Name)
	assert.Equal(t, "10.0.0.5", updated.Address)
	assert.Equal(t, 9100, updated.Port)

	require.NoError(t, svc.Deactivate(ctx, created.ID.String()))
	got, err := svc.Get(ctx, created.ID.String())
	require.NoError(t, err)
	assert.False(t, got.Active)
}

func TestUpdateUnknownID(t *testing.T) {
	svc, _, node := setupService(t)
	ctx := context.Background()

	name := "x"
	_, err := svc.Update(ctx, domain.UpdatePrinterRequest{ID: node.Generate().String(), Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Update(ctx, domain.UpdatePrinterRequest{ID: "not-a-number", Name: &name})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestDeleteCascadesAssignments(t *testing.T) {
	svc, db, node := setupService(t)
	ctx := context.Background()

	created, err := svc.Register(ctx, domain.RegisterPrinterRequest{
		Name:    "Kitchen",
		Address: "10.0.0.5",
		Port:    9100,
	})
	require.NoError(t, err)

	arepo := assignmentrepo.Provide()
	for _, target := range []string{"curry", "grill"} {
		require.NoError(t, arepo.Insert(ctx, db, &assignmentdomain.Assignment{
			ID:         node.Generate(),
			PrinterID:  created.ID,
			TargetKind: assignmentdomain.TargetCategory,
			TargetID:   target,
		}))
	}

	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.Get(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	for _, target := range []string{"curry", "grill"} {
		remaining, err := arepo.FindByTarget(ctx, db, assignmentdomain.TargetCategory, target)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	}

	assert.ErrorIs(t, svc.Delete(ctx, created.ID.String()), domain.ErrNotFound)
}

func TestInsertPreservesInactiveFlag(t *testing.T) {
	_, db, node := setupService(t)
	ctx := context.Background()

	repo := repository.Provide()
	endpoint := domain.PrinterEndpoint{
		ID:        node.Generate(),
		Name:      "Mothballed",
		Address:   "10.0.0.9",
		Port:      9100,
		Transport: domain.TransportNetwork,
		Active:    false,
		Health:    domain.HealthUnknown,
	}
	require.NoError(t, repo.Insert(ctx, db, &endpoint))

	got, err := repo.FindByID(ctx, db, endpoint.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)
	assert.Equal(t, domain.HealthUnknown, got.Health)
}

func TestListActiveOnly(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, domain.RegisterPrinterRequest{Name: "Kitchen", Address: "10.0.0.5", Port: 9100})
	require.NoError(t, err)
	second, err := svc.Register(ctx, domain.RegisterPrinterRequest{Name: "Bar", Address: "10.0.0.6", Port: 9100})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, second.ID.String()))

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)
}
