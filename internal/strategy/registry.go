package strategy

import (
	"fmt"
	"sort"

	apperrors "options-scanner/internal/errors"
	"options-scanner/internal/models"
)

// Factory builds a strategy from its filter variant.
type Factory func(kind Kind, filter models.Filter, deps Deps) (Strategy, error)

type registration struct {
	newFilter func() models.Filter
	factory   Factory
}

// Registry maps strategy kinds to their filter variant and constructor.
type Registry struct {
	entries map[Kind]registration
}

// NewRegistry returns a registry with every built-in strategy.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[Kind]registration)}

	for _, kind := range []Kind{PutCreditSpread, TechPutCreditSpread, BullishLongPutCreditSpread} {
		r.Register(kind, newCreditSpreadFilter, buildPutCreditSpread)
	}
	for _, kind := range []Kind{CallCreditSpread, TechCallCreditSpread} {
		r.Register(kind, newCreditSpreadFilter, buildCallCreditSpread)
	}
	for _, kind := range []Kind{IronCondor, BullishLongIronCondor} {
		r.Register(kind, newIronCondorFilter, buildIronCondor)
	}
	r.Register(BullishBrokenWingButterfly, newButterflyFilter, buildButterfly)
	r.Register(BullishZebra, newZebraFilter, buildZebra)
	r.Register(LongCallLeap, newLeapFilter, buildLeap(false))
	r.Register(LongCallLeapTopN, newLeapFilter, buildLeap(true))

	return r
}

// Register adds or replaces a strategy kind.
func (r *Registry) Register(kind Kind, newFilter func() models.Filter, factory Factory) {
	r.entries[kind] = registration{newFilter: newFilter, factory: factory}
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NewFilter returns a pointer to the defaulted filter variant for kind, ready
// to be decoded into.
func (r *Registry) NewFilter(kind Kind) (models.Filter, error) {
	entry, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownStrategy, kind)
	}
	return entry.newFilter(), nil
}

// Build constructs the strategy for kind. The filter must be the variant
// returned by NewFilter for that kind.
func (r *Registry) Build(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	entry, ok := r.entries[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownStrategy, kind)
	}
	if filter == nil {
		filter = entry.newFilter()
	}
	return entry.factory(kind, filter, deps)
}

func newCreditSpreadFilter() models.Filter {
	return &models.CreditSpreadFilter{StrategyFilter: models.DefaultStrategyFilter()}
}

func newIronCondorFilter() models.Filter {
	return &models.IronCondorFilter{StrategyFilter: models.DefaultStrategyFilter()}
}

func newButterflyFilter() models.Filter {
	return &models.BrokenWingButterflyFilter{StrategyFilter: models.DefaultStrategyFilter()}
}

func newZebraFilter() models.Filter {
	return &models.ZebraFilter{StrategyFilter: models.DefaultStrategyFilter()}
}

func newLeapFilter() models.Filter {
	f := models.DefaultLongCallLeapFilter()
	return &f
}

func mismatch(kind Kind, filter models.Filter) error {
	return fmt.Errorf("%w: %s got %T", apperrors.ErrFilterMismatch, kind, filter)
}

func buildPutCreditSpread(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	f, ok := filter.(*models.CreditSpreadFilter)
	if !ok {
		return nil, mismatch(kind, filter)
	}
	finder := putSpreadFinder{name: kind.DisplayName(), filter: *f}
	return newSingleExpiry(kind, f.StrategyFilter, finder, deps), nil
}

func buildCallCreditSpread(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	f, ok := filter.(*models.CreditSpreadFilter)
	if !ok {
		return nil, mismatch(kind, filter)
	}
	finder := callSpreadFinder{name: kind.DisplayName(), filter: *f}
	return newSingleExpiry(kind, f.StrategyFilter, finder, deps), nil
}

func buildIronCondor(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	f, ok := filter.(*models.IronCondorFilter)
	if !ok {
		return nil, mismatch(kind, filter)
	}
	return newSingleExpiry(kind, f.StrategyFilter, newCondorFinder(kind.DisplayName(), *f), deps), nil
}

func buildButterfly(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	f, ok := filter.(*models.BrokenWingButterflyFilter)
	if !ok {
		return nil, mismatch(kind, filter)
	}
	finder := butterflyFinder{name: kind.DisplayName(), filter: *f}
	return newSingleExpiry(kind, f.StrategyFilter, finder, deps), nil
}

func buildZebra(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
	f, ok := filter.(*models.ZebraFilter)
	if !ok {
		return nil, mismatch(kind, filter)
	}
	finder := zebraFinder{name: kind.DisplayName(), filter: *f}
	return newSingleExpiry(kind, f.StrategyFilter, finder, deps), nil
}

func buildLeap(topN bool) Factory {
	return func(kind Kind, filter models.Filter, deps Deps) (Strategy, error) {
		f, ok := filter.(*models.LongCallLeapFilter)
		if !ok {
			return nil, mismatch(kind, filter)
		}
		return newLeapStrategy(kind, *f, topN, deps), nil
	}
}
