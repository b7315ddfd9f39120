// Package reconcile keeps a client-side ordered view of one shopping list
// and persists local edits to the backend.
package reconcile

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/shoplist/internal/api"
	"github.com/dukerupert/shoplist/internal/events"
	"github.com/dukerupert/shoplist/internal/model"
)

// Backend is the list side of the API. *api.Client satisfies it.
type Backend interface {
	GetList(ctx context.Context, id int64) (*model.ShoppingList, error)
	CreateItem(ctx context.Context, listID int64, title string, position int64) (*model.Item, error)
	UpdatePositions(ctx context.Context, listID int64, items []model.Item) error
	DeleteItem(ctx context.Context, listID, itemID int64) error
	UpdateItem(ctx context.Context, item model.Item) error
}

// Notifier receives every applied change.
type Notifier interface {
	Publish(events.Event)
}

var (
	ErrNotLoaded = api.Errorf(api.KindValidation, "reconcile", "list is not loaded")
	ErrClosed    = api.Errorf(api.KindValidation, "reconcile", "list screen is closed")
)

// List is one screen's view of a shopping list. items is the local order
// and may run ahead of serverItems while a change is in flight.
//
// The mutex is never held across backend calls. Overlapping edits are
// last-writer-wins at the backend and converge on the next Load.
type List struct {
	backend Backend
	notify  Notifier
	logger  *slog.Logger

	mu            sync.RWMutex
	listID        int64
	title         string
	isParticipant bool
	items         []model.Item
	serverItems   []model.Item
	syncing       int
	generation    uint64
	closed        bool
}

// New creates an empty, unloaded list view. notify may be nil.
func New(backend Backend, notify Notifier, logger *slog.Logger) *List {
	if logger == nil {
		logger = slog.Default()
	}
	return &List{
		backend: backend,
		notify:  notify,
		logger:  logger.With("component", "reconcile"),
	}
}

// Items returns a copy of the local order.
func (l *List) Items() []model.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

// ServerItems returns a copy of the last order known to the backend.
func (l *List) ServerItems() []model.Item {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.serverItems)
}

// Syncing reports whether any backend call is in flight.
func (l *List) Syncing() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.syncing > 0
}

func (l *List) ListID() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.listID
}

func (l *List) Title() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.title
}

func (l *List) IsParticipant() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.isParticipant
}

// Close marks the screen as dismissed. Responses still in flight are
// discarded when they arrive.
func (l *List) Close() {
	l.mu.Lock()
	l.closed = true
	l.generation++
	l.mu.Unlock()
}

// Load fetches the list and replaces both orders with the result. A
// response that arrives after a newer Load started, or after Close, is
// dropped.
func (l *List) Load(ctx context.Context, listID int64) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.generation++
	gen := l.generation
	l.listID = listID
	l.syncing++
	l.mu.Unlock()

	list, err := l.backend.GetList(ctx, listID)

	l.mu.Lock()
	l.syncing--
	if gen != l.generation || l.closed {
		l.mu.Unlock()
		l.logger.Debug("discarding stale load", "list_id", listID)
		return nil
	}
	if err != nil {
		l.mu.Unlock()
		return err
	}
	items := sortItems(list.Items)
	l.items = items
	l.serverItems = slices.Clone(items)
	l.title = list.Title
	l.isParticipant = list.IsParticipant
	l.mu.Unlock()

	l.logger.Debug("list loaded", "list_id", listID, "items", len(items))
	l.publish("loaded", listID)
	return nil
}

// reload resynchronizes after a failed change. Its own failure is only
// logged; the caller returns the error that caused it.
func (l *List) reload(ctx context.Context) {
	l.mu.RLock()
	id, closed := l.listID, l.closed
	l.mu.RUnlock()
	if closed || id == 0 {
		return
	}
	if err := l.Load(ctx, id); err != nil {
		l.logger.Warn("reload failed", "list_id", id, "error", err)
	}
}

// begin checks that the list can accept a change and marks a call in
// flight. The caller must hold mu.
func (l *List) begin() error {
	if l.closed {
		return ErrClosed
	}
	if l.listID == 0 {
		return ErrNotLoaded
	}
	l.syncing++
	return nil
}

// Move reorders the local list and persists the positions of every item
// between from and to in one batch.
func (l *List) Move(ctx context.Context, from, to int) error {
	l.mu.Lock()
	n := len(l.items)
	if from < 0 || to < 0 || from >= n || to >= n {
		l.mu.Unlock()
		return api.Errorf(api.KindValidation, "move item", "index out of range: %d -> %d with %d items", from, to, n)
	}
	if from == to {
		l.mu.Unlock()
		return nil
	}
	if err := l.begin(); err != nil {
		l.mu.Unlock()
		return err
	}
	before := l.items
	after := moveItem(before, from, to)
	changed := reposition(before, after, min(from, to), max(from, to))
	l.items = after
	listID, gen := l.listID, l.generation
	l.mu.Unlock()

	l.publish("moved", listID)

	var err error
	if len(changed) > 0 {
		err = l.backend.UpdatePositions(ctx, listID, changed)
	}

	l.mu.Lock()
	l.syncing--
	if err == nil && gen == l.generation && !l.closed {
		l.serverItems = slices.Clone(after)
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("move rejected", "list_id", listID, "from", from, "to", to, "error", err)
		l.reload(ctx)
		return err
	}
	l.logger.Debug("positions updated", "list_id", listID, "changed", len(changed))
	return nil
}

// CreateItem adds an item after the last one. The item appears locally
// only once the backend has accepted it.
func (l *List) CreateItem(ctx context.Context, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		return api.Errorf(api.KindValidation, "create item", "Item title is required.")
	}

	l.mu.Lock()
	if err := l.begin(); err != nil {
		l.mu.Unlock()
		return err
	}
	position := int64(1)
	if n := len(l.items); n > 0 {
		position = l.items[n-1].Position + 1
	}
	listID, gen := l.listID, l.generation
	l.mu.Unlock()

	item, err := l.backend.CreateItem(ctx, listID, title, position)

	l.mu.Lock()
	l.syncing--
	if err == nil && gen == l.generation && !l.closed {
		l.items = append(l.items, *item)
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("create item failed", "list_id", listID, "error", err)
		l.reload(ctx)
		return err
	}
	l.publish("item_created", listID)
	l.reload(ctx)
	return nil
}

// DeleteItem removes an item. Deleting an id that is not present, locally
// or at the backend, succeeds without doing anything.
func (l *List) DeleteItem(ctx context.Context, itemID int64) error {
	l.mu.Lock()
	idx := indexOf(l.items, itemID)
	if idx < 0 {
		l.mu.Unlock()
		return nil
	}
	if err := l.begin(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.items = slices.Delete(slices.Clone(l.items), idx, idx+1)
	listID, gen := l.listID, l.generation
	l.mu.Unlock()

	l.publish("item_deleted", listID)

	err := l.backend.DeleteItem(ctx, listID, itemID)
	if api.KindOf(err) == api.KindNotFound {
		err = nil
	}

	l.mu.Lock()
	l.syncing--
	if err == nil && gen == l.generation && !l.closed {
		if i := indexOf(l.serverItems, itemID); i >= 0 {
			l.serverItems = slices.Delete(slices.Clone(l.serverItems), i, i+1)
		}
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("delete item failed", "list_id", listID, "item_id", itemID, "error", err)
		l.reload(ctx)
		return err
	}
	return nil
}

// ToggleBought flips an item's bought flag locally and persists it.
func (l *List) ToggleBought(ctx context.Context, itemID int64) error {
	l.mu.Lock()
	idx := indexOf(l.items, itemID)
	if idx < 0 {
		l.mu.Unlock()
		return api.Errorf(api.KindNotFound, "toggle item", "item %d is not in this list", itemID)
	}
	if err := l.begin(); err != nil {
		l.mu.Unlock()
		return err
	}
	l.items = slices.Clone(l.items)
	l.items[idx].Bought = !l.items[idx].Bought
	item := l.items[idx]
	listID, gen := l.listID, l.generation
	l.mu.Unlock()

	l.publish("item_updated", listID)

	err := l.backend.UpdateItem(ctx, item)

	l.mu.Lock()
	l.syncing--
	if err == nil && gen == l.generation && !l.closed {
		if i := indexOf(l.serverItems, itemID); i >= 0 {
			l.serverItems = slices.Clone(l.serverItems)
			l.serverItems[i].Bought = item.Bought
		}
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("toggle item failed", "list_id", listID, "item_id", itemID, "error", err)
		l.reload(ctx)
		return err
	}
	return nil
}

// RenameItem persists a new title and then re-fetches the list.
func (l *List) RenameItem(ctx context.Context, itemID int64, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		return api.Errorf(api.KindValidation, "rename item", "Item title is required.")
	}

	l.mu.Lock()
	idx := indexOf(l.items, itemID)
	if idx < 0 {
		l.mu.Unlock()
		return api.Errorf(api.KindNotFound, "rename item", "item %d is not in this list", itemID)
	}
	if err := l.begin(); err != nil {
		l.mu.Unlock()
		return err
	}
	item := l.items[idx]
	item.Title = title
	listID, gen := l.listID, l.generation
	l.mu.Unlock()

	err := l.backend.UpdateItem(ctx, item)

	l.mu.Lock()
	l.syncing--
	if err == nil && gen == l.generation && !l.closed {
		l.items = retitle(l.items, itemID, title)
		l.serverItems = retitle(l.serverItems, itemID, title)
	}
	l.mu.Unlock()

	if err != nil {
		l.logger.Warn("rename item failed", "list_id", listID, "item_id", itemID, "error", err)
		l.reload(ctx)
		return err
	}
	l.publish("item_updated", listID)
	l.reload(ctx)
	return nil
}

// retitle returns a copy of items with itemID's title replaced.
func retitle(items []model.Item, itemID int64, title string) []model.Item {
	i := indexOf(items, itemID)
	if i < 0 {
		return items
	}
	items = slices.Clone(items)
	items[i].Title = title
	return items
}

func (l *List) publish(action string, listID int64) {
	if l.notify == nil {
		return
	}
	l.notify.Publish(events.New("list", action, listID))
}

// sortItems orders by position, breaking ties by id.
func sortItems(items []model.Item) []model.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.Item) int {
		if a.Position != b.Position {
			return cmp.Compare(a.Position, b.Position)
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// moveItem returns a new slice with the element at from reinserted at to.
func moveItem(items []model.Item, from, to int) []model.Item {
	out := slices.Clone(items)
	it := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, it)
}

// reposition assigns positions to after, which is before with one element
// moved within [lo, hi]. The range's existing position values are handed
// out in the new order. If they are not strictly increasing every item is
// renumbered from 1. It returns the items whose position changed.
func reposition(before, after []model.Item, lo, hi int) []model.Item {
	values := make([]int64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		values = append(values, before[i].Position)
	}

	if increasing(values) {
		for i := lo; i <= hi; i++ {
			after[i].Position = values[i-lo]
		}
	} else {
		for i := range after {
			after[i].Position = int64(i + 1)
		}
	}

	old := make(map[int64]int64, len(before))
	for _, it := range before {
		old[it.ID] = it.Position
	}
	var changed []model.Item
	for _, it := range after {
		if p, ok := old[it.ID]; !ok || p != it.Position {
			changed = append(changed, it)
		}
	}
	return changed
}

func increasing(values []int64) bool {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return false
		}
	}
	return true
}

func indexOf(items []model.Item, id int64) int {
	return slices.IndexFunc(items, func(it model.Item) bool { return it.ID == id })
}

func normalizeTitle(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
