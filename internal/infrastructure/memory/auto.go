package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// Repositorios sin transacción explícita: cada llamada abre y confirma su propia transacción,
// como una sentencia suelta sobre el pool en PostgreSQL.

type autoEntries struct{ s *Store }

func (a autoEntries) Insert(ctx context.Context, e *entity.LedgerEntry) error {
	return a.s.Run(ctx, func(entries repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		return entries.Insert(ctx, e)
	})
}

func (a autoEntries) ListByProduct(ctx context.Context, productID string, limit, offset int) (list []*entity.LedgerEntry, err error) {
	err = a.s.RunReadOnly(ctx, func(entries repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		list, err = entries.ListByProduct(ctx, productID, limit, offset)
		return err
	})
	return list, err
}

func (a autoEntries) Count(ctx context.Context, productID string) (n int64, err error) {
	err = a.s.RunReadOnly(ctx, func(entries repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		n, err = entries.Count(ctx, productID)
		return err
	})
	return n, err
}

func (a autoEntries) ListProductIDs(_ context.Context) ([]string, error) {
	return a.s.productIDs(), nil
}

func (a autoEntries) DeleteByProduct(ctx context.Context, productID string) (n int64, err error) {
	err = a.s.Run(ctx, func(entries repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		n, err = entries.DeleteByProduct(ctx, productID)
		return err
	})
	return n, err
}

type autoSnapshots struct{ s *Store }

func (a autoSnapshots) Get(_ context.Context, productID string) (*entity.StockSnapshot, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if snap, ok := a.s.snapshots[productID]; ok {
		return snap.Clone(), nil
	}
	return nil, nil
}

func (a autoSnapshots) Lock(ctx context.Context, productID string, mode repository.LockMode) (snap *entity.StockSnapshot, err error) {
	err = a.s.Run(ctx, func(_ repository.LedgerEntryRepository, snapshots repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		snap, err = snapshots.Lock(ctx, productID, mode)
		return err
	})
	return snap, err
}

func (a autoSnapshots) Save(ctx context.Context, snap *entity.StockSnapshot) error {
	return a.s.Run(ctx, func(_ repository.LedgerEntryRepository, snapshots repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		return snapshots.Save(ctx, snap)
	})
}

func (a autoSnapshots) MarkVerified(ctx context.Context, productID string, status entity.IntegrityStatus, verifiedAt time.Time, upTo entity.ChainTail) error {
	return a.s.Run(ctx, func(_ repository.LedgerEntryRepository, snapshots repository.StockSnapshotRepository, _ repository.ProductRepository) error {
		return snapshots.MarkVerified(ctx, productID, status, verifiedAt, upTo)
	})
}

type autoProducts struct{ s *Store }

func (a autoProducts) Create(ctx context.Context, p *entity.Product) error {
	return a.s.Run(ctx, func(_ repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, products repository.ProductRepository) error {
		return products.Create(ctx, p)
	})
}

func (a autoProducts) GetByID(_ context.Context, id string) (*entity.Product, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if p, ok := a.s.products[id]; ok {
		c := *p
		return &c, nil
	}
	return nil, nil
}

func (a autoProducts) List(ctx context.Context, limit, offset int) (list []*entity.Product, err error) {
	err = a.s.RunReadOnly(ctx, func(_ repository.LedgerEntryRepository, _ repository.StockSnapshotRepository, products repository.ProductRepository) error {
		list, err = products.List(ctx, limit, offset)
		return err
	})
	return list, err
}

func sortProducts(list []*entity.Product) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
