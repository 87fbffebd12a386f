package codec

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/breeze-rmm/codecrt/internal/logging"
	"github.com/breeze-rmm/codecrt/internal/workerpool"
)

var mlog = logging.L("codec.manager")

const defaultConcurrencyCap = 4

// Manager bounds the number of simultaneously open codec instances (created
// through it and not yet closed, whether or not they are configured) to its
// concurrency cap and tracks every instance it creates in an
// orphan registry for abnormal-shutdown cleanup.
//
// Each instance's worker loop runs as a task on a fixed-size workerpool.Pool,
// but the pool's own queue-fullness check is the wrong admission signal here:
// a worker's loop blocks for the instance's entire configured lifetime, so
// once maxWorkers loops are running, a pool with any queue slack would still
// accept (and silently strand) more submissions than it can ever service.
// sem is the real cap: a slot is reserved before Submit and released when the
// instance closes, so "no slot free" is reported as quota-exceeded at the
// moment a slot is actually unavailable, not after the queue also fills.
type Manager struct {
	pool     *workerpool.Pool
	registry *instanceRegistry
	sem      chan struct{}
}

// NewManager sizes the concurrency cap from the host's logical CPU count
// (one dedicated worker thread per instance, per §5, so the ceiling is the
// number of cores that can usefully run one each).
func NewManager() *Manager {
	return NewManagerWithCap(detectConcurrencyCap())
}

// NewManagerWithCap lets callers override the detected cap, e.g. for tests.
func NewManagerWithCap(concurrencyCap int) *Manager {
	if concurrencyCap < 1 {
		concurrencyCap = 1
	}
	mlog.Info("codec manager starting", "concurrency_cap", concurrencyCap)
	return &Manager{
		pool:     workerpool.New(concurrencyCap, concurrencyCap),
		registry: newInstanceRegistry(),
		sem:      make(chan struct{}, concurrencyCap),
	}
}

func detectConcurrencyCap() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts < 1 {
		mlog.Warn("cpu core detection failed, falling back to default cap", "error", err)
		return defaultConcurrencyCap
	}
	return counts
}

// NewEncoderInstance creates and registers an encoder instance, or returns
// quota-exceeded if the concurrency cap has been reached.
func (m *Manager) NewEncoderInstance(sink Sink) (*Instance, error) {
	return m.newManagedInstance(kindEncoder, sink)
}

// NewDecoderInstance creates and registers a decoder instance, or returns
// quota-exceeded if the concurrency cap has been reached.
func (m *Manager) NewDecoderInstance(sink Sink) (*Instance, error) {
	return m.newManagedInstance(kindDecoder, sink)
}

func (m *Manager) newManagedInstance(kind kindTag, sink Sink) (*Instance, error) {
	select {
	case m.sem <- struct{}{}:
	default:
		return nil, newError(ErrQuotaExceeded, "new-instance").WithContext("concurrency cap reached")
	}

	inst := buildInstance(kind, sink)
	inst.releaseSlot = func() { <-m.sem }

	if !m.pool.Submit(inst.wk.loop) {
		<-m.sem
		inst.out.close()
		return nil, newError(ErrQuotaExceeded, "new-instance").WithContext("pool rejected submission")
	}

	inst.owner = m.registry
	m.registry.register(inst)
	return inst, nil
}

// LiveInstances reports how many instances the manager is currently
// tracking (created and not yet closed).
func (m *Manager) LiveInstances() int {
	return m.registry.liveCount()
}

// Shutdown force-closes every still-registered instance (the orphan-cleanup
// path from the registry this is grounded on) and then drains the
// workerpool, respecting ctx's deadline.
func (m *Manager) Shutdown(ctx context.Context) {
	closed := m.registry.shutdownAll()
	if closed > 0 {
		mlog.Warn("force-closed orphaned codec instances on shutdown", "count", closed)
	}
	m.pool.Shutdown(ctx)
}
