package app

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pricelist-backend/internal/catalog"
	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	"github.com/angelmondragon/pricelist-backend/internal/imports"
	"github.com/angelmondragon/pricelist-backend/internal/pricelists"
	"github.com/angelmondragon/pricelist-backend/internal/pricing"
	"github.com/angelmondragon/pricelist-backend/internal/stores"
	"github.com/angelmondragon/pricelist-backend/internal/users"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/db"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
	"github.com/angelmondragon/pricelist-backend/pkg/pubsub"
	"github.com/angelmondragon/pricelist-backend/pkg/redis"
)

// Params carries the clients shared by every binary. Redis and PubSub are optional:
// without Redis jobs and locks stay in process, without PubSub queued jobs are only logged.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	PubSub     *pubsub.Client
	Registerer prometheus.Registerer
}

type jobNotifier interface {
	imports.Enqueuer
	imports.Notifier
}

// Services is the wired domain graph.
type Services struct {
	Stores      *stores.Repository
	Users       *users.Repository
	Catalog     *catalog.Repository
	ListRepo    *pricelists.Repository
	PriceLists  *pricelists.Service
	Eligibility *eligibility.Resolver
	Pricing     *pricing.Service
	Jobs        imports.JobStore
	Runner      *imports.Runner
	Imports     *imports.Service
}

func Build(params Params) (*Services, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	cfg := params.Config
	conn := params.DB.DB()

	svc := &Services{
		Stores:   stores.NewRepository(conn),
		Users:    users.NewRepository(conn),
		Catalog:  catalog.NewRepository(conn),
		ListRepo: pricelists.NewRepository(conn),
	}
	var err error
	svc.PriceLists, err = pricelists.NewService(svc.ListRepo, svc.Stores, svc.Catalog)
	if err != nil {
		return nil, err
	}

	svc.Eligibility = eligibility.NewResolver(conn)
	listResolver, err := pricing.NewPriceListResolver(svc.Eligibility)
	if err != nil {
		return nil, err
	}
	fallback, err := pricing.NewListPriceResolver(svc.Catalog)
	if err != nil {
		return nil, err
	}
	chainOpts := []pricing.ChainOption{pricing.WithLogger(logg)}
	var importMetrics *metrics.ImportMetrics
	if params.Registerer != nil {
		chainOpts = append(chainOpts, pricing.WithMetrics(metrics.NewResolutionMetrics(params.Registerer)))
		importMetrics = metrics.NewImportMetrics(params.Registerer)
	}
	svc.Pricing = pricing.NewService(pricing.NewChainResolver([]pricing.Resolver{listResolver, fallback}, chainOpts...))

	var locker imports.Locker
	if params.Redis != nil {
		svc.Jobs, err = imports.NewRedisJobStore(params.Redis, cfg.Import.JobTTL)
		if err != nil {
			return nil, err
		}
		locker = imports.NewRedisLocker(params.Redis, cfg.Import.LockTTL)
	} else {
		svc.Jobs = imports.NewMemoryJobStore()
		locker = imports.NewLocalLocker()
	}

	var notifier jobNotifier = imports.NewLogNotifier(logg)
	if params.PubSub != nil {
		notifier, err = imports.NewPubSubNotifier(params.PubSub, params.PubSub.ImportTopic(), params.PubSub.EventsTopic())
		if err != nil {
			return nil, err
		}
	}

	svc.Runner, err = imports.NewRunner(imports.RunnerParams{
		Store:    svc.Jobs,
		Locker:   locker,
		Pipeline: imports.NewDefaultPipeline(svc.ListRepo, svc.Catalog, importMetrics, logg),
		Notifier: notifier,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}
	svc.Imports, err = imports.NewService(imports.ServiceParams{
		Lists:          svc.ListRepo,
		Stores:         svc.Stores,
		Store:          svc.Jobs,
		Enqueuer:       notifier,
		Runner:         svc.Runner,
		Logger:         logg,
		UploadDir:      cfg.Import.UploadDir,
		BatchSize:      cfg.Import.BatchSize,
		MaxUploadBytes: cfg.Import.MaxUploadBytes(),
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
