package rules

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/cartrules/evaluator"
	"github.com/liamcoop/cartrules/internal/logger"
	"github.com/liamcoop/cartrules/predicate"
)

// ErrInvalidPredicate is returned when adding or updating a discount whose predicate does not parse
var ErrInvalidPredicate = errors.New("invalid cart predicate")

const (
	defaultConcurrency   = 8
	defaultSlowThreshold = 250 * time.Millisecond
)

// Engine previews the discounts of one project against carts.
// Parsed predicates are kept per discount; safe for concurrent use.
type Engine struct {
	store      DiscountStore
	categories CategoryStore
	cache      DiscountsCache
	parser     predicate.Parser

	projectKey    string
	concurrency   int
	slowThreshold time.Duration

	predicates map[string]*compiledPredicate // discount ID -> parsed predicate
	mu         sync.RWMutex
}

// compiledPredicate remembers the parse of one predicate source, failures included
type compiledPredicate struct {
	source string
	node   predicate.Node // nil for a blank predicate
	err    error
}

// Option configures an Engine
type Option func(*Engine)

// WithParser replaces predicate.DefaultParser
func WithParser(p predicate.Parser) Option {
	return func(en *Engine) { en.parser = p }
}

// WithCacheConfig configures the active discounts cache
func WithCacheConfig(cfg CacheConfig) Option {
	return func(en *Engine) { en.cache = NewInMemoryDiscountsCache(cfg) }
}

// WithDiscountsCache makes the engine use cache for its active discounts.
// Engines that replace one another over the same store share a cache, so a
// mutation through either invalidates both.
func WithDiscountsCache(cache DiscountsCache) Option {
	return func(en *Engine) {
		if cache != nil {
			en.cache = cache
		}
	}
}

// WithConcurrency bounds how many discounts are evaluated at once
func WithConcurrency(n int) Option {
	return func(en *Engine) {
		if n > 0 {
			en.concurrency = n
		}
	}
}

// WithProjectKey tags logs, spans and metrics with the project
func WithProjectKey(key string) Option {
	return func(en *Engine) { en.projectKey = key }
}

// WithSlowThreshold sets the duration above which an evaluation is logged as slow
func WithSlowThreshold(d time.Duration) Option {
	return func(en *Engine) { en.slowThreshold = d }
}

// NewEngine creates an engine over store and parses all active discounts.
// categories may be nil, in which case messages carry no category names.
func NewEngine(store DiscountStore, categories CategoryStore, opts ...Option) (*Engine, error) {
	en := &Engine{
		store:         store,
		categories:    categories,
		cache:         NewInMemoryDiscountsCache(DefaultCacheConfig()),
		parser:        predicate.DefaultParser,
		concurrency:   defaultConcurrency,
		slowThreshold: defaultSlowThreshold,
		predicates:    make(map[string]*compiledPredicate),
	}
	for _, opt := range opts {
		opt(en)
	}

	if err := en.CompileAllDiscounts(); err != nil {
		return nil, fmt.Errorf("failed to compile discounts: %w", err)
	}

	return en, nil
}

// ProjectKey returns the project the engine serves
func (en *Engine) ProjectKey() string {
	return en.projectKey
}

// Store returns the discount store
func (en *Engine) Store() DiscountStore {
	return en.store
}

// DiscountsCache returns the cache of active discounts
func (en *Engine) DiscountsCache() DiscountsCache {
	return en.cache
}

// Categories returns the category store, which may be nil
func (en *Engine) Categories() CategoryStore {
	return en.categories
}

// parse parses source without touching the engine state
func (en *Engine) parse(source string) *compiledPredicate {
	c := &compiledPredicate{source: source}
	if strings.TrimSpace(source) == "" {
		return c
	}
	node, err := en.parser.Parse(source)
	if err != nil && !errors.Is(err, predicate.ErrEmptyPredicate) {
		c.err = err
		return c
	}
	c.node = node
	return c
}

// CompileDiscount parses the predicate of d and remembers the outcome.
// A parse failure is remembered too, so evaluation reports it, and is returned
// wrapped in ErrInvalidPredicate.
func (en *Engine) CompileDiscount(d *Discount) error {
	c := en.parse(d.Predicate)

	en.mu.Lock()
	en.predicates[d.ID] = c
	en.mu.Unlock()

	if c.err != nil {
		getMetrics().recordParseError(context.Background(), en.projectKey)
		return fmt.Errorf("%w: %v", ErrInvalidPredicate, c.err)
	}
	return nil
}

// CompileAllDiscounts parses every active discount and refreshes the cache.
// Predicates that fail to parse are logged and later evaluate to PARSE_ERROR;
// only store failures are returned.
func (en *Engine) CompileAllDiscounts() error {
	discounts, err := en.store.ListActive()
	if err != nil {
		return err
	}

	for _, d := range discounts {
		if err := en.CompileDiscount(d); err != nil {
			logger.WarnPredicate(d.ID, "stored cart predicate does not parse", err)
		}
	}

	en.cache.Set(discounts)
	return nil
}

// AddDiscount validates the predicate of d and stores it
func (en *Engine) AddDiscount(d *Discount) error {
	if _, err := en.store.Get(d.ID); err == nil {
		return fmt.Errorf("discount %s: %w", d.ID, ErrDiscountExists)
	}

	c := en.parse(d.Predicate)
	if c.err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPredicate, c.err)
	}

	if err := en.store.Add(d); err != nil {
		return err
	}

	en.mu.Lock()
	en.predicates[d.ID] = c
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// UpdateDiscount validates the new predicate of d and replaces the stored discount
func (en *Engine) UpdateDiscount(d *Discount) error {
	c := en.parse(d.Predicate)
	if c.err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPredicate, c.err)
	}

	if err := en.store.Update(d); err != nil {
		return err
	}

	en.mu.Lock()
	en.predicates[d.ID] = c
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// DeleteDiscount removes a discount and its parsed predicate
func (en *Engine) DeleteDiscount(id string) error {
	if err := en.store.Delete(id); err != nil {
		return err
	}

	en.mu.Lock()
	delete(en.predicates, id)
	en.mu.Unlock()

	en.cache.Invalidate()
	return nil
}

// GetDiscount returns a stored discount
func (en *Engine) GetDiscount(id string) (*Discount, error) {
	return en.store.Get(id)
}

// ListDiscounts returns every stored discount, active or not
func (en *Engine) ListDiscounts() ([]*Discount, error) {
	return en.store.List()
}

// ActiveDiscounts returns the active discounts, from the cache when it is valid
func (en *Engine) ActiveDiscounts() ([]*Discount, error) {
	if discounts := en.cache.Get(); discounts != nil {
		return discounts, nil
	}

	discounts, err := en.store.ListActive()
	if err != nil {
		return nil, err
	}
	en.cache.Set(discounts)
	return discounts, nil
}

// Select returns the active discounts matching a CEL filter over discount metadata.
// An empty filter selects every active discount.
func (en *Engine) Select(filter string) ([]*Discount, error) {
	discounts, err := en.ActiveDiscounts()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(filter) == "" {
		return discounts, nil
	}

	f, err := CompileFilter(filter)
	if err != nil {
		return nil, err
	}
	return f.Apply(discounts)
}

// Evaluate previews one discount against cart
func (en *Engine) Evaluate(ctx context.Context, discountID string, cart *evaluator.Cart) (*DiscountResult, error) {
	d, err := en.store.Get(discountID)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "rules.evaluate", en.projectKey, attribute.String("discount.id", d.ID))
	result := en.evaluateDiscount(ctx, d, cart)
	span.SetAttributes(attribute.String("qualification.status", string(result.Result.QualificationStatus)))
	endSpan(span, nil)

	return result, nil
}

// EvaluateAll previews every active discount against cart
func (en *Engine) EvaluateAll(ctx context.Context, cart *evaluator.Cart) ([]*DiscountResult, error) {
	discounts, err := en.ActiveDiscounts()
	if err != nil {
		return nil, err
	}
	return en.EvaluateDiscounts(ctx, cart, discounts)
}

// EvaluateDiscounts previews discounts against cart in parallel.
// Results are ordered by descending sort order, the order commercetools applies them in.
func (en *Engine) EvaluateDiscounts(ctx context.Context, cart *evaluator.Cart, discounts []*Discount) ([]*DiscountResult, error) {
	ctx, span := startSpan(ctx, "rules.evaluate_all", en.projectKey, attribute.Int("discount.count", len(discounts)))
	start := time.Now()

	results := make([]*DiscountResult, len(discounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(en.concurrency)

	for i, d := range discounts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = en.evaluateDiscount(gctx, d, cart)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("evaluation cancelled: %w", err)
	}

	weights := make(map[*DiscountResult]float64, len(results))
	for i, r := range results {
		weights[r] = discounts[i].SortWeight()
	}
	sort.SliceStable(results, func(i, j int) bool {
		return weights[results[i]] > weights[results[j]]
	})

	elapsed := time.Since(start)
	getMetrics().recordLatency(ctx, en.projectKey, elapsed, len(discounts))
	if en.slowThreshold > 0 && elapsed > en.slowThreshold {
		logger.WarnSlowEvaluation()
		logger.Warn("slow discount evaluation", "project_key", en.projectKey,
			"discounts", len(discounts), "duration_ms", elapsed.Milliseconds())
	}

	endSpan(span, nil)
	return results, nil
}

// compiled returns the parse of d, parsing again when the stored source changed
func (en *Engine) compiled(d *Discount) *compiledPredicate {
	en.mu.RLock()
	c, ok := en.predicates[d.ID]
	en.mu.RUnlock()

	if ok && c.source == d.Predicate {
		return c
	}

	c = en.parse(d.Predicate)
	en.mu.Lock()
	en.predicates[d.ID] = c
	en.mu.Unlock()
	return c
}

// evaluateDiscount never fails: parse failures become PARSE_ERROR results
func (en *Engine) evaluateDiscount(ctx context.Context, d *Discount, cart *evaluator.Cart) *DiscountResult {
	c := en.compiled(d)

	var result *evaluator.Result
	switch {
	case c.err != nil:
		result = evaluator.ParseErrorResult(c.err)
	case c.node == nil:
		result = evaluator.EmptyResult()
	default:
		result = evaluator.EvaluateNode(ctx, c.node, cart, &evaluator.Options{
			CategoryResolver: CategoryResolver(en.categories),
		})
	}

	getMetrics().recordEvaluation(ctx, en.projectKey, result.QualificationStatus)

	return &DiscountResult{
		DiscountID:           d.ID,
		Key:                  d.Key,
		Name:                 d.Name,
		SortOrder:            d.SortOrder,
		RequiresDiscountCode: d.RequiresDiscountCode,
		Predicate:            d.Predicate,
		Result:               result,
	}
}
