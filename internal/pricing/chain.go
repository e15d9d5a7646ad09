package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
	pkgerrors "github.com/angelmondragon/pricelist-backend/pkg/errors"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
	"github.com/angelmondragon/pricelist-backend/pkg/metrics"
	"github.com/angelmondragon/pricelist-backend/pkg/types"
)

// Result is a resolved price and the resolver that produced it.
type Result struct {
	Price    types.Price `json:"price"`
	Resolver string      `json:"resolver"`
}

// ChainResolver asks each resolver in order; the first opinion wins.
type ChainResolver struct {
	resolvers []Resolver
	metrics   *metrics.ResolutionMetrics
	logg      *logger.Logger
}

type ChainOption func(*ChainResolver)

func WithMetrics(m *metrics.ResolutionMetrics) ChainOption {
	return func(c *ChainResolver) { c.metrics = m }
}

func WithLogger(l *logger.Logger) ChainOption {
	return func(c *ChainResolver) { c.logg = l }
}

func NewChainResolver(resolvers []Resolver, opts ...ChainOption) *ChainResolver {
	c := &ChainResolver{resolvers: append([]Resolver(nil), resolvers...)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ChainResolver) Name() string { return "chain" }

// Resolve satisfies Resolver so chains can nest.
func (c *ChainResolver) Resolve(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*types.Price, error) {
	res, err := c.ResolveWithSource(ctx, purchasable, quantity, ectx)
	if err != nil || res == nil {
		return nil, err
	}
	return &res.Price, nil
}

// ResolveWithSource returns the winning price and its resolver name, or nil when every resolver abstains.
func (c *ChainResolver) ResolveWithSource(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*Result, error) {
	for _, r := range c.resolvers {
		start := time.Now()
		price, err := r.Resolve(ctx, purchasable, quantity, ectx)
		switch {
		case err != nil:
			c.metrics.Observe(r.Name(), metrics.OutcomeError, time.Since(start))
			c.logg.Error(c.logg.WithField(ctx, "resolver", r.Name()), "price resolver failed", err)
			return nil, err
		case price == nil:
			c.metrics.Observe(r.Name(), metrics.OutcomeAbstained, time.Since(start))
		default:
			c.metrics.Observe(r.Name(), metrics.OutcomeResolved, time.Since(start))
			return &Result{Price: *price, Resolver: r.Name()}, nil
		}
	}
	return nil, nil
}

// Service exposes price resolution to transports.
type Service struct {
	chain *ChainResolver
}

func NewService(chain *ChainResolver) *Service {
	return &Service{chain: chain}
}

// Resolve returns the winning price. When every resolver abstains it reports not found.
func (s *Service) Resolve(ctx context.Context, purchasable types.PurchasableRef, quantity decimal.Decimal, ectx eligibility.Context) (*Result, error) {
	if quantity.IsNegative() || quantity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	res, err := s.chain.ResolveWithSource(ctx, purchasable, quantity, ectx)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no price available").
			WithDetails(map[string]any{"purchasable": purchasable.String()})
	}
	return res, nil
}
