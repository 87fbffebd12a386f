package codec

import "sync"

// instanceRegistry holds a weak-in-spirit (non-owning, best-effort) set of
// live instances per codec kind so an abnormal host shutdown can force-close
// whatever is still outstanding instead of leaking worker goroutines.
//
// Like the registry it is grounded on, this cannot reject any promise the
// host is already awaiting: forced Close() resolves pending flushes
// silently, the same "orphaned during abnormal shutdown" outcome, just
// reached without a host-runtime cleanup hook to react to.
type instanceRegistry struct {
	mu       sync.Mutex
	encoders map[*Instance]struct{}
	decoders map[*Instance]struct{}
}

func newInstanceRegistry() *instanceRegistry {
	return &instanceRegistry{
		encoders: make(map[*Instance]struct{}),
		decoders: make(map[*Instance]struct{}),
	}
}

func (r *instanceRegistry) register(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst.kind == kindEncoder {
		r.encoders[inst] = struct{}{}
	} else {
		r.decoders[inst] = struct{}{}
	}
}

func (r *instanceRegistry) unregister(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.encoders, inst)
	delete(r.decoders, inst)
}

// shutdownAll force-closes every instance still registered, e.g. during host
// teardown when the caller never closed its instances explicitly. Returns
// the number of instances that were force-closed.
func (r *instanceRegistry) shutdownAll() int {
	r.mu.Lock()
	instances := make([]*Instance, 0, len(r.encoders)+len(r.decoders))
	for inst := range r.encoders {
		instances = append(instances, inst)
	}
	for inst := range r.decoders {
		instances = append(instances, inst)
	}
	r.encoders = make(map[*Instance]struct{})
	r.decoders = make(map[*Instance]struct{})
	r.mu.Unlock()

	for _, inst := range instances {
		_ = inst.Close()
	}
	return len(instances)
}

func (r *instanceRegistry) liveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.encoders) + len(r.decoders)
}
