//go:build integration

package persistence_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/kanban/modules/kanban"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/domain/events"
	"github.com/iota-uz/kanban/modules/kanban/infrastructure/persistence"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/itf"
)

type harness struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	lists     *services.ListOrderingService
	cards     *services.CardOrderingService
	rebalance *services.RebalanceService
	scope     services.BoardScope
}

func newHarness(t *testing.T, notifyMode string) *harness {
	t.Helper()
	env := itf.NewTestContext().
		WithModules(kanban.NewModule(&kanban.ModuleOptions{
			Store:      configuration.StorePostgres,
			NotifyMode: notifyMode,
		})).
		WithActor("owner").
		Build(t)

	b, err := itf.GetService[services.BoardService](env).Create(env.Ctx, "owner", board.CreateDTO{Name: "Integration"})
	require.NoError(t, err)
	scope, err := itf.GetService[services.ScopeService](env).Authorize(env.Ctx, b.ID(), "owner")
	require.NoError(t, err)

	return &harness{
		ctx:       env.Ctx,
		pool:      env.Pool,
		lists:     itf.GetService[services.ListOrderingService](env),
		cards:     itf.GetService[services.CardOrderingService](env),
		rebalance: itf.GetService[services.RebalanceService](env),
		scope:     scope,
	}
}

func TestOrdering_ConcurrentAppendsSerialiseOnBoardLock(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)
	l, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "Todo"})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.cards.Append(h.ctx, h.scope, l.ID(), card.CreateDTO{Title: "Task"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cards, err := h.cards.GetByList(h.ctx, h.scope, l.ID())
	require.NoError(t, err)
	require.Len(t, cards, workers)
	for i, c := range cards {
		require.Equal(t, float64(i+1)*1000, c.Position())
	}
}

func TestOrdering_ConcurrentMovesIntoSameGap(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)

	for round := 0; round < 10; round++ {
		l, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "Todo"})
		require.NoError(t, err)
		seeded := make([]card.Card, 0, 4)
		for _, title := range []string{"A", "B", "X", "Y"} {
			c, err := h.cards.Append(h.ctx, h.scope, l.ID(), card.CreateDTO{Title: title})
			require.NoError(t, err)
			seeded = append(seeded, c)
		}
		into := card.MoveDTO{PrevCardID: ptr(seeded[0].ID()), NextCardID: ptr(seeded[1].ID())}

		var wg sync.WaitGroup
		start := make(chan struct{})
		results := make([]card.Card, 2)
		errs := make([]error, 2)
		for i, mover := range seeded[2:] {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				results[i], errs[i] = h.cards.Move(h.ctx, h.scope, mover.ID(), into)
			}()
		}
		close(start)
		wg.Wait()

		winners := 0
		for i, err := range errs {
			if err == nil {
				winners++
				require.Equal(t, 1500.0, results[i].Position())
				continue
			}
			svcErr, ok := services.AsServiceError(err)
			require.True(t, ok, "unexpected error: %v", err)
			require.Equal(t, services.KindInvalidRequest, svcErr.Kind)
			require.Equal(t, services.CodeInvalidAnchors, svcErr.Code)
		}
		require.Equal(t, 1, winners, "errs=%v", errs)

		cards, err := h.cards.GetByList(h.ctx, h.scope, l.ID())
		require.NoError(t, err)
		require.Len(t, cards, 4)
		for i := 1; i < len(cards); i++ {
			require.Less(t, cards[i-1].Position(), cards[i].Position())
		}
	}
}

func TestOrdering_ConcurrentListMovesIntoSameGap(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)

	seeded := make([]list.List, 0, 4)
	for _, title := range []string{"A", "B", "X", "Y"} {
		l, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: title})
		require.NoError(t, err)
		seeded = append(seeded, l)
	}
	into := list.MoveDTO{PrevListID: ptr(seeded[0].ID()), NextListID: ptr(seeded[1].ID())}

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	for i, mover := range seeded[2:] {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = h.lists.Move(h.ctx, h.scope, mover.ID(), into)
		}()
	}
	close(start)
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			failures++
			svcErr, ok := services.AsServiceError(err)
			require.True(t, ok, "unexpected error: %v", err)
			require.Equal(t, services.CodeInvalidAnchors, svcErr.Code)
		}
	}
	require.Equal(t, 1, failures, "errs=%v", errs)

	lists, err := h.lists.GetByBoard(h.ctx, h.scope)
	require.NoError(t, err)
	require.Len(t, lists, 4)
	require.Equal(t, 1500.0, lists[1].Position())
	for i := 1; i < len(lists); i++ {
		require.Less(t, lists[i-1].Position(), lists[i].Position())
	}
}

func TestOrdering_MoveAcrossListsAndRebalance(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)
	l1, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "L1"})
	require.NoError(t, err)
	l2, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "L2"})
	require.NoError(t, err)
	x, err := h.cards.Append(h.ctx, h.scope, l1.ID(), card.CreateDTO{Title: "X"})
	require.NoError(t, err)
	y, err := h.cards.Append(h.ctx, h.scope, l1.ID(), card.CreateDTO{Title: "Y"})
	require.NoError(t, err)

	moved, err := h.cards.Move(h.ctx, h.scope, x.ID(), card.MoveDTO{TargetListID: ptr(l2.ID())})
	require.NoError(t, err)
	require.Equal(t, l2.ID(), moved.ListID())
	require.Equal(t, 1000.0, moved.Position())

	// y is the only card left in l1; placing x before it yields 1000.
	yID := y.ID()
	moved, err = h.cards.Move(h.ctx, h.scope, x.ID(), card.MoveDTO{TargetListID: ptr(l1.ID()), NextCardID: &yID})
	require.NoError(t, err)
	require.Equal(t, 1000.0, moved.Position())

	res, err := h.rebalance.Rebalance(h.ctx, h.scope)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Lists)
	require.Equal(t, int64(2), res.Cards)

	cards, err := h.cards.GetByList(h.ctx, h.scope, l1.ID())
	require.NoError(t, err)
	require.Equal(t, []int64{x.ID(), y.ID()}, []int64{cards[0].ID(), cards[1].ID()})
	require.Equal(t, []float64{1000, 2000}, []float64{cards[0].Position(), cards[1].Position()})
}

func TestOrdering_DuplicatePositionMapsToConflict(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)
	repo := persistence.NewListRepository()
	_, err := repo.Create(h.ctx, list.New(h.scope.BoardID(), "A", 1000))
	require.NoError(t, err)

	_, err = repo.Create(h.ctx, list.New(h.scope.BoardID(), "B", 1000))
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr))
	require.Equal(t, "23505", pgErr.Code)
	require.Equal(t, "kanban_lists_board_position_key", pgErr.ConstraintName)
}

func TestOrdering_LockWaitBoundedByContext(t *testing.T) {
	h := newHarness(t, configuration.NotifyDirect)
	l, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "Todo"})
	require.NoError(t, err)

	tx, err := h.pool.Begin(h.ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(context.Background()) }()
	_, err = tx.Exec(h.ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, persistence.BoardLockKey(h.scope.BoardID()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(h.ctx, 200*time.Millisecond)
	defer cancel()
	_, err = h.cards.Append(ctx, h.scope, l.ID(), card.CreateDTO{Title: "late"})
	svcErr, ok := services.AsServiceError(err)
	require.True(t, ok)
	require.Equal(t, services.CodeLockTimeout, svcErr.Code)
	require.True(t, services.IsRetryable(err))
}

func TestOrdering_OutboxCommitsWithTheMove(t *testing.T) {
	h := newHarness(t, configuration.NotifyOutbox)

	l, err := h.lists.Append(h.ctx, h.scope, list.CreateDTO{Title: "Todo"})
	require.NoError(t, err)
	_, err = h.lists.Move(h.ctx, h.scope, l.ID(), list.MoveDTO{PrevListID: ptr(l.ID() + 100)})
	require.Error(t, err)

	var topics []string
	rows, err := h.pool.Query(h.ctx, `SELECT topic FROM kanban_outbox ORDER BY sequence`)
	require.NoError(t, err)
	for rows.Next() {
		var topic string
		require.NoError(t, rows.Scan(&topic))
		topics = append(topics, topic)
	}
	rows.Close()
	require.Equal(t, []string{events.TopicListCreated}, topics)
}

func ptr(v int64) *int64 { return &v }
