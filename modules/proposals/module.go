package proposals

import (
	"embed"

	"github.com/jackc/pgx/v5"

	"github.com/gcir/gms/modules/proposals/infrastructure/persistence"
	"github.com/gcir/gms/modules/proposals/infrastructure/persistence/inmem"
	"github.com/gcir/gms/modules/proposals/presentation/controllers"
	"github.com/gcir/gms/modules/proposals/services"
	"github.com/gcir/gms/pkg/application"
	"github.com/gcir/gms/pkg/configuration"
	"github.com/gcir/gms/pkg/outbox"
)

//go:embed infrastructure/persistence/schema/*.sql
var MigrationFiles embed.FS

const schemaDir = "infrastructure/persistence/schema"

type ModuleOptions struct {
	// Store is configuration.StorePostgres (default) or configuration.StoreMemory.
	Store  string
	Paging controllers.Paging
	Report services.ReportSettings
	// OutboxTable, when set with the postgres store, stages domain events
	// in that table within the mutating transaction.
	OutboxTable pgx.Identifier
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

// NewModuleFromConfig maps the process configuration onto ModuleOptions.
func NewModuleFromConfig(conf *configuration.Configuration) (application.Module, error) {
	opts := &ModuleOptions{
		Store:  conf.Store,
		Paging: controllers.Paging{Default: conf.PageSize, Max: conf.MaxPageSize},
		Report: services.ReportSettings{
			Currency: conf.Report.Currency,
			Location: conf.Report.Location(),
		},
	}
	if conf.Events.UseOutbox(conf.Store) {
		table, err := outbox.ParseIdentifier(conf.Events.OutboxTable)
		if err != nil {
			return nil, err
		}
		opts.OutboxTable = table
	}
	return NewModule(opts), nil
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(MigrationFiles, schemaDir)

	repos, tx := m.backend()
	var opts []services.Option
	if len(m.options.OutboxTable) > 0 && m.options.Store != configuration.StoreMemory {
		repo, err := persistence.NewOutboxRepository(m.options.OutboxTable)
		if err != nil {
			return err
		}
		opts = append(opts, services.WithOutbox(repo))
	}
	app.RegisterServices(
		services.NewProposalService(repos, tx, app.EventPublisher(), opts...),
		services.NewChangeLogService(repos.ChangeLog, m.options.Report),
		services.NewLookupService(repos.Lookups, tx),
		services.NewInvestigatorService(repos, tx),
	)
	app.RegisterControllers(
		controllers.NewProposalsController(app, m.options.Paging),
		controllers.NewChangeLogController(app),
		controllers.NewRegistryController(app),
	)
	return nil
}

func (m *Module) backend() (services.Repositories, services.Transactor) {
	if m.options.Store == configuration.StoreMemory {
		store := inmem.NewStore()
		return services.Repositories{
			Proposals:     store.Proposals(),
			Lookups:       store.Lookups(),
			Investigators: store.Investigators(),
			Counters:      store.Counters(),
			ChangeLog:     store.ChangeLog(),
		}, services.TransactorFunc(store.InTx)
	}
	return services.Repositories{
		Proposals:     persistence.NewProposalRepository(),
		Lookups:       persistence.NewLookupRepository(),
		Investigators: persistence.NewInvestigatorRepository(),
		Counters:      persistence.NewCounterRepository(),
		ChangeLog:     persistence.NewChangeLogRepository(),
	}, services.PgTransactor
}

func (m *Module) Name() string {
	return "proposals"
}
