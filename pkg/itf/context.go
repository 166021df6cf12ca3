package itf

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/composables"
)

// TestContext provides a fluent API for building integration test environments
type TestContext struct {
	ctx     context.Context
	modules []application.Module
	actor   string
	dbName  string
}

func NewTestContext() *TestContext {
	return &TestContext{
		ctx:     context.Background(),
		modules: []application.Module{},
	}
}

func (tc *TestContext) WithModules(modules ...application.Module) *TestContext {
	tc.modules = append(tc.modules, modules...)
	return tc
}

// WithActor sets the actor carried by the environment context.
func (tc *TestContext) WithActor(actorID string) *TestContext {
	tc.actor = actorID
	return tc
}

func (tc *TestContext) WithDBName(tb testing.TB, name string) *TestContext {
	tb.Helper()
	if tc.dbName == "" {
		tc.dbName = name
	}
	return tc
}

// Build creates a database, loads the modules and applies their migrations. Nothing runs inside
// an ambient transaction: board operations open their own.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	var pool *pgxpool.Pool
	if tc.dbName == "" {
		pool = NewDatabaseManager(tb).Pool()
	} else {
		pool = NewDatabaseManager(namedTB{TB: tb, name: tc.dbName}).Pool()
	}

	app, err := SetupApplication(tc.ctx, pool, tc.modules...)
	if err != nil {
		tb.Fatal(err)
	}

	ctx := composables.WithPool(tc.ctx, pool)
	if tc.actor != "" {
		ctx = composables.WithActor(ctx, tc.actor)
	}
	return &TestEnvironment{
		Ctx:  ctx,
		Pool: pool,
		App:  app,
	}
}

type namedTB struct {
	testing.TB
	name string
}

func (n namedTB) Name() string { return n.name }

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx  context.Context
	Pool *pgxpool.Pool
	App  application.Application
}

func (te *TestEnvironment) Service(service interface{}) interface{} {
	return te.App.Service(service)
}

// GetService is a generic helper that retrieves and casts a service
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	return te.App.Service(zero).(*T)
}

// AsActor returns the environment context acting as actorID.
func (te *TestEnvironment) AsActor(actorID string) context.Context {
	return composables.WithActor(te.Ctx, actorID)
}
