package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// verifySlots máximo de verificaciones simultáneas sobre un mismo producto.
const verifySlots = 1 << 16

// productLock reproduce los bloqueos de fila de PostgreSQL sobre el snapshot:
// tail ~ FOR NO KEY UPDATE (appends), chain ~ FOR KEY SHARE (verificaciones) y ambos = FOR UPDATE (reset).
type productLock struct {
	tail  *semaphore.Weighted
	chain *semaphore.Weighted
}

type lockTable struct {
	mu      sync.Mutex
	locks   map[string]*productLock
	timeout time.Duration
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{locks: make(map[string]*productLock), timeout: timeout}
}

func (t *lockTable) get(productID string) *productLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	pl, ok := t.locks[productID]
	if !ok {
		pl = &productLock{tail: semaphore.NewWeighted(1), chain: semaphore.NewWeighted(verifySlots)}
		t.locks[productID] = pl
	}
	return pl
}

// acquire toma el bloqueo en el modo pedido con espera acotada y devuelve su liberación.
func (t *lockTable) acquire(ctx context.Context, productID string, mode repository.LockMode) (func(), error) {
	pl := t.get(productID)
	switch mode {
	case repository.LockAppend:
		return t.take(ctx, productID, pl.tail, 1)
	case repository.LockVerify:
		return t.take(ctx, productID, pl.chain, 1)
	case repository.LockReset:
		releaseTail, err := t.take(ctx, productID, pl.tail, 1)
		if err != nil {
			return nil, err
		}
		releaseChain, err := t.take(ctx, productID, pl.chain, verifySlots)
		if err != nil {
			releaseTail()
			return nil, err
		}
		return func() { releaseChain(); releaseTail() }, nil
	default:
		return nil, fmt.Errorf("modo de bloqueo desconocido: %d", mode)
	}
}

func (t *lockTable) take(ctx context.Context, productID string, sem *semaphore.Weighted, n int64) (func(), error) {
	wctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	if err := sem.Acquire(wctx, n); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("bloqueo del producto %s: %w", productID, domain.ErrConcurrencyTimeout)
	}
	return func() { sem.Release(n) }, nil
}
