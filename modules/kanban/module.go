package kanban

import (
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/kanban/modules/kanban/domain/entities/board"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/card"
	"github.com/iota-uz/kanban/modules/kanban/domain/entities/list"
	"github.com/iota-uz/kanban/modules/kanban/handlers"
	"github.com/iota-uz/kanban/modules/kanban/infrastructure/memory"
	"github.com/iota-uz/kanban/modules/kanban/infrastructure/persistence"
	"github.com/iota-uz/kanban/modules/kanban/infrastructure/realtime"
	"github.com/iota-uz/kanban/modules/kanban/presentation/controllers"
	"github.com/iota-uz/kanban/modules/kanban/services"
	"github.com/iota-uz/kanban/pkg/application"
	"github.com/iota-uz/kanban/pkg/configuration"
	"github.com/iota-uz/kanban/pkg/outbox"
)

type ModuleOptions struct {
	// Store is configuration.StorePostgres or configuration.StoreMemory.
	Store string
	// NotifyMode is configuration.NotifyDirect or configuration.NotifyOutbox.
	NotifyMode  string
	OutboxTable pgx.Identifier
	// Redis is optional; without it events are only logged.
	Redis         *redis.Client
	ChannelPrefix string
	// Authorizer defaults to owner/member checks against the board repository.
	Authorizer services.BoardAuthorizer
	Logger     *logrus.Logger
	// MemoryStore lets callers seed or inspect the in-memory store. Created on demand.
	MemoryStore *memory.Store
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

type storage struct {
	boards board.Repository
	lists  list.Repository
	cards  card.Repository
	tx     services.BoardTxRunner
}

func (m *Module) storage() (storage, error) {
	switch m.opts.Store {
	case configuration.StoreMemory:
		if m.opts.MemoryStore == nil {
			m.opts.MemoryStore = memory.NewStore()
		}
		s := m.opts.MemoryStore
		return storage{boards: s.Boards(), lists: s.Lists(), cards: s.Cards(), tx: s}, nil
	case configuration.StorePostgres, "":
		return storage{
			boards: persistence.NewBoardRepository(),
			lists:  persistence.NewListRepository(),
			cards:  persistence.NewCardRepository(),
			tx:     persistence.NewBoardTxRunner(),
		}, nil
	default:
		return storage{}, fmt.Errorf("kanban: unknown store %q", m.opts.Store)
	}
}

func (m *Module) emitter(app application.Application) (services.Emitter, error) {
	switch m.opts.NotifyMode {
	case configuration.NotifyOutbox:
		if m.opts.Store == configuration.StoreMemory {
			return nil, fmt.Errorf("kanban: outbox notifications require the postgres store")
		}
		return services.NewOutboxEmitter(outbox.NewPublisher(), m.outboxTable()), nil
	case configuration.NotifyDirect, "":
		return services.NewDirectEmitter(app.EventPublisher()), nil
	default:
		return nil, fmt.Errorf("kanban: unknown notify mode %q", m.opts.NotifyMode)
	}
}

func (m *Module) outboxTable() pgx.Identifier {
	if len(m.opts.OutboxTable) == 0 {
		return pgx.Identifier{"public", "kanban_outbox"}
	}
	return m.opts.OutboxTable
}

func (m *Module) Register(app application.Application) error {
	if m.opts.Store != configuration.StoreMemory {
		app.Migrations().RegisterSchema(&persistence.MigrationFiles)
	}

	store, err := m.storage()
	if err != nil {
		return err
	}
	emitter, err := m.emitter(app)
	if err != nil {
		return err
	}
	authorizer := m.opts.Authorizer
	if authorizer == nil {
		authorizer = services.NewMembershipAuthorizer(store.boards)
	}

	app.RegisterServices(
		services.NewScopeService(store.boards, authorizer),
		services.NewBoardService(store.boards),
		services.NewListOrderingService(store.lists, store.tx, emitter),
		services.NewCardOrderingService(store.lists, store.cards, store.tx, emitter),
		services.NewRebalanceService(store.lists, store.cards, store.tx, emitter),
	)

	logger := m.opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	var transport handlers.Transport
	if m.opts.Redis != nil {
		transport = realtime.NewRedisPublisher(m.opts.Redis, m.opts.ChannelPrefix)
	} else {
		transport = handlers.NewLogTransport(logger.WithField("component", "kanban-realtime"))
	}
	handlers.RegisterNotificationHandler(app.EventPublisher(), transport, logger.WithField("component", "kanban-notifications"))

	health := controllers.HealthControllerOptions{InMemory: m.opts.Store == configuration.StoreMemory}
	if m.opts.NotifyMode == configuration.NotifyOutbox {
		health.OutboxTable = m.outboxTable()
	}
	app.RegisterControllers(
		controllers.NewKanbanAPIController(app),
		controllers.NewHealthController(app, health),
	)
	return nil
}

func (m *Module) Name() string {
	return "kanban"
}
