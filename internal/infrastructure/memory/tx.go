package memory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/chainhash"
)

// view lectura consistente de un producto dentro de una transacción de solo lectura.
type view struct {
	snapshot *entity.StockSnapshot
	entries  []*entity.LedgerEntry
}

type verifyMark struct {
	productID  string
	status     entity.IntegrityStatus
	verifiedAt time.Time
	upTo       entity.ChainTail
}

// tx acumula escrituras y las aplica juntas en commit; los bloqueos viven hasta release.
type tx struct {
	store    *Store
	readOnly bool
	held     map[string]repository.LockMode
	releases []func()

	inserted     map[string][]*entity.LedgerEntry
	purged       map[string]bool
	snapshots    map[string]*entity.StockSnapshot
	baseVersions map[string]int64
	products     map[string]*entity.Product
	marks        []verifyMark
	views        map[string]*view
}

func newTx(s *Store, readOnly bool) *tx {
	return &tx{
		store:        s,
		readOnly:     readOnly,
		held:         make(map[string]repository.LockMode),
		inserted:     make(map[string][]*entity.LedgerEntry),
		purged:       make(map[string]bool),
		snapshots:    make(map[string]*entity.StockSnapshot),
		baseVersions: make(map[string]int64),
		products:     make(map[string]*entity.Product),
		views:        make(map[string]*view),
	}
}

func (t *tx) release() {
	for i := len(t.releases) - 1; i >= 0; i-- {
		t.releases[i]()
	}
	t.releases = nil
}

func (t *tx) lock(ctx context.Context, productID string, mode repository.LockMode) error {
	if held, ok := t.held[productID]; ok && (held == mode || held == repository.LockReset) {
		return nil
	}
	release, err := t.store.locks.acquire(ctx, productID, mode)
	if err != nil {
		return err
	}
	t.releases = append(t.releases, release)
	t.held[productID] = mode
	return nil
}

// capture toma snapshot y eslabones de un producto en un mismo instante.
func (t *tx) capture(productID string) *view {
	if v, ok := t.views[productID]; ok {
		return v
	}
	t.store.mu.RLock()
	v := &view{entries: t.store.committedEntries(productID)}
	if snap, ok := t.store.snapshots[productID]; ok {
		v.snapshot = snap.Clone()
	}
	t.store.mu.RUnlock()
	t.views[productID] = v
	return v
}

// entriesOf eslabones visibles para la transacción (confirmados + propios).
func (t *tx) entriesOf(productID string) []*entity.LedgerEntry {
	if t.readOnly {
		return t.capture(productID).entries
	}
	var list []*entity.LedgerEntry
	if !t.purged[productID] {
		t.store.mu.RLock()
		list = t.store.committedEntries(productID)
		t.store.mu.RUnlock()
	}
	return append(list, t.inserted[productID]...)
}

// snapshotOf snapshot visible para la transacción; nil si no existe.
func (t *tx) snapshotOf(productID string) *entity.StockSnapshot {
	if t.readOnly {
		if snap := t.capture(productID).snapshot; snap != nil {
			return snap.Clone()
		}
		return nil
	}
	if snap, ok := t.snapshots[productID]; ok {
		return snap.Clone()
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if snap, ok := t.store.snapshots[productID]; ok {
		return snap.Clone()
	}
	return nil
}

func (t *tx) productOf(id string) *entity.Product {
	if p, ok := t.products[id]; ok {
		c := *p
		return &c
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if p, ok := t.store.products[id]; ok {
		c := *p
		return &c
	}
	return nil
}

// commit verifica todo primero y luego aplica; si algo no cuadra no se aplica nada.
func (t *tx) commit() error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for pid, base := range t.baseVersions {
		var current int64
		if snap, ok := s.snapshots[pid]; ok {
			current = snap.Version
		}
		if current != base {
			return domain.ErrVersionConflict
		}
	}
	for pid, list := range t.inserted {
		var existing []*entity.LedgerEntry
		if !t.purged[pid] {
			existing = s.entries[pid]
		}
		seen := make(map[int64]bool, len(existing)+len(list))
		for _, e := range existing {
			seen[e.SequenceNumber] = true
		}
		for _, e := range list {
			if seen[e.SequenceNumber] {
				return domain.ErrVersionConflict
			}
			seen[e.SequenceNumber] = true
		}
	}
	for id := range t.products {
		if _, ok := s.products[id]; ok {
			return domain.ErrDuplicate
		}
	}

	for pid := range t.purged {
		delete(s.entries, pid)
	}
	for pid, list := range t.inserted {
		s.entries[pid] = append(s.entries[pid], list...)
	}
	for pid, snap := range t.snapshots {
		s.snapshots[pid] = snap
	}
	for id, p := range t.products {
		s.products[id] = p
	}
	for _, m := range t.marks {
		snap, ok := s.snapshots[m.productID]
		if !ok || snap.ChainEpoch != m.upTo.Epoch {
			continue
		}
		switch m.status {
		case entity.IntegrityValid:
			if snap.LastSequenceNumber != m.upTo.Sequence {
				continue
			}
		case entity.IntegrityCorrupted:
			if snap.LastSequenceNumber < m.upTo.Sequence {
				continue
			}
		}
		c := snap.Clone()
		c.IntegrityStatus = m.status
		at := m.verifiedAt
		c.LastVerified = &at
		c.Version++
		s.snapshots[m.productID] = c
	}
	return nil
}

// ── Repositorios atados a la transacción ─────────────────────────────────────

type entryRepo struct{ t *tx }

func (r *entryRepo) Insert(_ context.Context, e *entity.LedgerEntry) error {
	if r.t.readOnly {
		return errReadOnly("insert")
	}
	for _, existing := range r.t.entriesOf(e.ProductID) {
		if existing.SequenceNumber == e.SequenceNumber {
			return domain.ErrVersionConflict
		}
	}
	r.t.inserted[e.ProductID] = append(r.t.inserted[e.ProductID], copyEntry(e))
	return nil
}

func (r *entryRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.LedgerEntry, error) {
	list := r.t.entriesOf(productID)
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	out := make([]*entity.LedgerEntry, len(list))
	for i, e := range list {
		out[i] = copyEntry(e)
	}
	return out, nil
}

func (r *entryRepo) Count(_ context.Context, productID string) (int64, error) {
	return int64(len(r.t.entriesOf(productID))), nil
}

func (r *entryRepo) ListProductIDs(_ context.Context) ([]string, error) {
	return r.t.store.productIDs(), nil
}

func (r *entryRepo) DeleteByProduct(_ context.Context, productID string) (int64, error) {
	if r.t.readOnly {
		return 0, errReadOnly("delete")
	}
	n := int64(len(r.t.entriesOf(productID)))
	r.t.purged[productID] = true
	delete(r.t.inserted, productID)
	return n, nil
}

type snapshotRepo struct{ t *tx }

func (r *snapshotRepo) Get(_ context.Context, productID string) (*entity.StockSnapshot, error) {
	return r.t.snapshotOf(productID), nil
}

func (r *snapshotRepo) Lock(ctx context.Context, productID string, mode repository.LockMode) (*entity.StockSnapshot, error) {
	if r.t.readOnly && mode != repository.LockVerify {
		return nil, errReadOnly("lock")
	}
	if err := r.t.lock(ctx, productID, mode); err != nil {
		return nil, err
	}
	snap := r.t.snapshotOf(productID)
	if snap == nil && mode == repository.LockAppend {
		snap = entity.NewGenesisSnapshot(productID, chainhash.Genesis, time.Now().UTC())
		r.t.snapshots[productID] = snap.Clone()
	}
	return snap, nil
}

func (r *snapshotRepo) Save(_ context.Context, snap *entity.StockSnapshot) error {
	if r.t.readOnly {
		return errReadOnly("save")
	}
	current := r.t.snapshotOf(snap.ProductID)
	var base int64
	if current != nil {
		base = current.Version
	}
	if snap.Version != base {
		return domain.ErrVersionConflict
	}
	if _, ok := r.t.baseVersions[snap.ProductID]; !ok {
		r.t.store.mu.RLock()
		committed, exists := r.t.store.snapshots[snap.ProductID]
		r.t.store.mu.RUnlock()
		if exists {
			r.t.baseVersions[snap.ProductID] = committed.Version
		} else {
			r.t.baseVersions[snap.ProductID] = 0
		}
	}
	snap.Version++
	r.t.snapshots[snap.ProductID] = snap.Clone()
	return nil
}

func (r *snapshotRepo) MarkVerified(ctx context.Context, productID string, status entity.IntegrityStatus, verifiedAt time.Time, upTo entity.ChainTail) error {
	if r.t.readOnly {
		return errReadOnly("mark verified")
	}
	// Igual que el UPDATE en PostgreSQL: espera a los appends en curso sobre la fila.
	if err := r.t.lock(ctx, productID, repository.LockAppend); err != nil {
		return err
	}
	r.t.marks = append(r.t.marks, verifyMark{
		productID: productID, status: status, verifiedAt: verifiedAt, upTo: upTo,
	})
	return nil
}

type productRepo struct{ t *tx }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	if r.t.readOnly {
		return errReadOnly("create product")
	}
	if p.ID == "" {
		return domain.ErrInvalidInput
	}
	if r.t.productOf(p.ID) != nil {
		return domain.ErrDuplicate
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	c := *p
	r.t.products[p.ID] = &c
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return r.t.productOf(id), nil
}

func (r *productRepo) List(_ context.Context, limit, offset int) ([]*entity.Product, error) {
	r.t.store.mu.RLock()
	all := make([]*entity.Product, 0, len(r.t.store.products)+len(r.t.products))
	for _, p := range r.t.store.products {
		c := *p
		all = append(all, &c)
	}
	r.t.store.mu.RUnlock()
	for _, p := range r.t.products {
		c := *p
		all = append(all, &c)
	}
	sortProducts(all)
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}
