package segment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/unclebandit/crm-backend/internal/clock"
	"github.com/unclebandit/crm-backend/internal/model"
)

// Evaluate keeps the customers that satisfy every present rule. The input is
// never modified; the result is always a new slice in input order.
func Evaluate(customers []model.Customer, rules Rules, now time.Time) []model.Customer {
	out := make([]model.Customer, 0, len(customers))
	if rules.IsEmpty() {
		return append(out, customers...)
	}

	var cutoff time.Time
	if rules.InactiveDays != nil {
		cutoff = now.AddDate(0, 0, -*rules.InactiveDays)
	}

	for _, c := range customers {
		if rules.MinSpend != nil && c.TotalSpend < *rules.MinSpend {
			continue
		}
		if rules.MaxVisits != nil && c.Visits > *rules.MaxVisits {
			continue
		}
		if rules.InactiveDays != nil && (c.LastActiveAt == nil || !c.LastActiveAt.Before(cutoff)) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CustomerLister is the find_all side of the customer store.
type CustomerLister interface {
	ListAll(ctx context.Context) ([]model.Customer, error)
}

// Evaluator resolves audiences against the live customer store. Segment
// creation, preview and campaign dispatch all go through it.
type Evaluator struct {
	Customers CustomerLister
	Clock     clock.Clock
}

func NewEvaluator(customers CustomerLister, clk clock.Clock) *Evaluator {
	if clk == nil {
		clk = clock.System{}
	}
	return &Evaluator{Customers: customers, Clock: clk}
}

// Audience returns the customers currently matching rules.
func (e *Evaluator) Audience(ctx context.Context, rules Rules) ([]model.Customer, error) {
	customers, err := e.Customers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	matched := Evaluate(customers, rules, e.Clock.Now())
	slog.DebugContext(ctx, "segment evaluated", "customers", len(customers), "matched", len(matched))
	return matched, nil
}
