// Package memory implementa los puertos del libro en memoria, con la misma semántica transaccional
// y de bloqueo que el adaptador PostgreSQL (para tests y desarrollo local).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

// Store estado confirmado. Los eslabones guardados nunca se modifican en sitio.
type Store struct {
	mu        sync.RWMutex
	entries   map[string][]*entity.LedgerEntry // por producto, ordenados por sequence_number
	snapshots map[string]*entity.StockSnapshot
	products  map[string]*entity.Product
	locks     *lockTable
}

// NewStore crea un almacén vacío; lockTimeout acota la espera por el bloqueo de un producto.
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		entries:   make(map[string][]*entity.LedgerEntry),
		snapshots: make(map[string]*entity.StockSnapshot),
		products:  make(map[string]*entity.Product),
		locks:     newLockTable(lockTimeout),
	}
}

// Run ejecuta fn en una transacción de escritura: todo se confirma o nada.
func (s *Store) Run(ctx context.Context, fn ledger.TxFunc) error {
	return s.run(ctx, false, fn)
}

// RunReadOnly ejecuta fn sobre una vista estable por producto (equivalente a REPEATABLE READ).
func (s *Store) RunReadOnly(ctx context.Context, fn ledger.TxFunc) error {
	return s.run(ctx, true, fn)
}

func (s *Store) run(ctx context.Context, readOnly bool, fn ledger.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s, readOnly)
	defer t.release()
	if err := fn(&entryRepo{t: t}, &snapshotRepo{t: t}, &productRepo{t: t}); err != nil {
		return err
	}
	if readOnly {
		return nil
	}
	return t.commit()
}

// Entries repositorio sin transacción explícita (cada llamada se confirma sola).
func (s *Store) Entries() repository.LedgerEntryRepository { return autoEntries{s: s} }

// Snapshots repositorio sin transacción explícita.
func (s *Store) Snapshots() repository.StockSnapshotRepository { return autoSnapshots{s: s} }

// Products repositorio sin transacción explícita.
func (s *Store) Products() repository.ProductRepository { return autoProducts{s: s} }

// Tamper altera un eslabón ya confirmado, saltándose el libro. Solo para simular manipulación en tests.
func (s *Store) Tamper(productID string, sequence int64, mutate func(*entity.LedgerEntry)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries[productID] {
		if e.SequenceNumber == sequence {
			c := *e
			mutate(&c)
			s.entries[productID][i] = &c
			return nil
		}
	}
	return domain.ErrNotFound
}

// TamperSnapshot altera el snapshot confirmado de un producto. Solo para tests.
func (s *Store) TamperSnapshot(productID string, mutate func(*entity.StockSnapshot)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[productID]
	if !ok {
		return domain.ErrNotFound
	}
	c := snap.Clone()
	mutate(c)
	s.snapshots[productID] = c
	return nil
}

// committedEntries copia la lista confirmada de un producto. Requiere s.mu tomado.
func (s *Store) committedEntries(productID string) []*entity.LedgerEntry {
	list := s.entries[productID]
	out := make([]*entity.LedgerEntry, len(list))
	copy(out, list)
	return out
}

func (s *Store) productIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id, list := range s.entries {
		if len(list) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func copyEntry(e *entity.LedgerEntry) *entity.LedgerEntry {
	c := *e
	return &c
}

func errReadOnly(op string) error {
	return fmt.Errorf("memory: %s en transacción de solo lectura", op)
}
