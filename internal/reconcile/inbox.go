package reconcile

import (
	"context"
	"sync"
)

// Inbox keeps the latest pass for an interactive session. Ignored items are
// hidden until the next pass.
type Inbox struct {
	engine *Engine

	mu      sync.Mutex
	result  Result
	ignored map[string]bool
}

func NewInbox(engine *Engine) *Inbox {
	return &Inbox{
		engine:  engine,
		ignored: make(map[string]bool),
	}
}

func (b *Inbox) Scan(ctx context.Context) (Result, error) {
	result, err := b.engine.Reconcile(ctx)
	if err != nil {
		return Result{}, err
	}
	b.replace(result)
	return result, nil
}

func (b *Inbox) Resolve(ctx context.Context, item Item) (Outcome, error) {
	outcome, result, err := b.engine.Resolve(ctx, item)
	if err != nil {
		return outcome, err
	}
	b.replace(result)
	return outcome, nil
}

func (b *Inbox) Ignore(item Item) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := item.Key()
	if b.ignored[key] {
		return false
	}
	for _, candidate := range b.result.Items() {
		if candidate.Key() == key {
			b.ignored[key] = true
			return true
		}
	}
	return false
}

func (b *Inbox) Items() []Item {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := make([]Item, 0)
	for _, item := range b.result.Items() {
		if !b.ignored[item.Key()] {
			items = append(items, item)
		}
	}
	return items
}

func (b *Inbox) Result() Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.result
}

func (b *Inbox) replace(result Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.result = result
	b.ignored = make(map[string]bool)
}
