package components

import (
	"boxoffice/internal/infra/db"
	"boxoffice/internal/infra/notify"
	"boxoffice/internal/infra/readstore"
	"boxoffice/internal/infra/uow"
	"boxoffice/internal/pkg/config"
	"boxoffice/internal/usecase/queries"
	"boxoffice/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	fx.Provide(
		NewDBTX,
		NewStore,
		NewCommandReads,
		fx.Annotate(
			readstore.NewOrderReadStore,
			fx.As(new(queries.OrderQueries)),
		),
		fx.Annotate(
			notify.NewOutboxNotifier,
			fx.As(new(shared.Notifier)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}

func NewStore(pool *pgxpool.Pool, cfg config.Config) shared.Store {
	return uow.NewPostgresStore(pool, cfg.Lock)
}

func NewCommandReads(store shared.Store) shared.CommandReads {
	return store.Reads()
}
