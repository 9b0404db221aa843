package sierra

import (
	"fmt"
	"sort"
	"sync"

	"fortio.org/safecast"
)

// Registry resolves generic ids to concrete types and libfuncs. Concrete
// types are interned: the same (generic id, args) pair always yields the
// same ConcreteTypeID. A Registry is safe for concurrent use; entries are
// never mutated once interned.
type Registry struct {
	types    map[GenericTypeID]GenericType
	libfuncs map[GenericLibfuncID]GenericLibfunc

	mu    sync.RWMutex
	infos []TypeInfo
	index map[string]ConcreteTypeID
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		types:    make(map[GenericTypeID]GenericType, 16),
		libfuncs: make(map[GenericLibfuncID]GenericLibfunc, 16),
		index:    make(map[string]ConcreteTypeID, 64),
	}
	r.infos = append(r.infos, TypeInfo{}) // reserve 0 as NoTypeID
	return r
}

// NewCoreRegistry builds a registry with every built-in type and libfunc.
func NewCoreRegistry() *Registry {
	r := NewRegistry()
	for _, t := range coreTypes() {
		r.RegisterType(t)
	}
	for _, l := range coreLibfuncs() {
		r.RegisterLibfunc(l)
	}
	return r
}

// RegisterType adds a generic type family. Registration happens once at
// startup; it panics on duplicates.
func (r *Registry) RegisterType(t GenericType) {
	if _, dup := r.types[t.ID()]; dup {
		panic(fmt.Sprintf("sierra: duplicate generic type %q", t.ID()))
	}
	r.types[t.ID()] = t
}

// RegisterLibfunc adds a generic libfunc family.
func (r *Registry) RegisterLibfunc(l GenericLibfunc) {
	if _, dup := r.libfuncs[l.ID()]; dup {
		panic(fmt.Sprintf("sierra: duplicate generic libfunc %q", l.ID()))
	}
	r.libfuncs[l.ID()] = l
}

// GenericTypeIDs lists registered type families in sorted order.
func (r *Registry) GenericTypeIDs() []GenericTypeID {
	out := make([]GenericTypeID, 0, len(r.types))
	for id := range r.types {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// GetConcreteType specializes id for args, returning the interned id.
func (r *Registry) GetConcreteType(id GenericTypeID, args []GenericArg) (ConcreteTypeID, error) {
	key := LongID{Generic: id, Args: args}.key()

	r.mu.RLock()
	cid, ok := r.index[key]
	r.mu.RUnlock()
	if ok {
		return cid, nil
	}

	gt, ok := r.types[id]
	if !ok {
		return NoTypeID, specErr(ErrUnsupportedID, string(id), "unknown generic type")
	}
	info, err := gt.Specialize(r, args)
	if err != nil {
		return NoTypeID, err
	}
	info.LongID = LongID{Generic: id, Args: append([]GenericArg(nil), args...)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cid, ok := r.index[key]; ok {
		return cid, nil
	}
	n, err := safecast.Conv[uint32](len(r.infos))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	cid = ConcreteTypeID(n)
	r.infos = append(r.infos, info)
	r.index[key] = cid
	return cid, nil
}

// TypeInfo returns the info of an interned type.
func (r *Registry) TypeInfo(id ConcreteTypeID) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == NoTypeID || int(id) >= len(r.infos) {
		return TypeInfo{}, false
	}
	return r.infos[id], true
}

// MustTypeInfo panics when id is unknown.
func (r *Registry) MustTypeInfo(id ConcreteTypeID) TypeInfo {
	info, ok := r.TypeInfo(id)
	if !ok {
		panic(fmt.Sprintf("sierra: invalid ConcreteTypeID %d", id))
	}
	return info
}

// TypeName renders the long id of a type, e.g. "Array<felt>".
func (r *Registry) TypeName(id ConcreteTypeID) string {
	info, ok := r.TypeInfo(id)
	if !ok {
		return fmt.Sprintf("type#%d", id)
	}
	return r.longIDString(info.LongID)
}

func (r *Registry) longIDString(l LongID) string {
	if len(l.Args) == 0 {
		return string(l.Generic)
	}
	s := string(l.Generic) + "<"
	for i, a := range l.Args {
		if i > 0 {
			s += ", "
		}
		switch a.Kind {
		case ArgType:
			s += r.TypeName(a.Type)
		case ArgValue:
			s += a.Value.String()
		}
	}
	return s + ">"
}

// SpecializeLibfunc resolves a generic libfunc for args into a concrete
// libfunc with a validated signature.
func (r *Registry) SpecializeLibfunc(id GenericLibfuncID, args []GenericArg) (*ConcreteLibfunc, error) {
	gl, ok := r.libfuncs[id]
	if !ok {
		return nil, specErr(ErrUnsupportedID, string(id), "unknown generic libfunc")
	}
	lf, err := gl.Specialize(r, args)
	if err != nil {
		return nil, err
	}
	if err := lf.Signature.Validate(r); err != nil {
		return nil, &SpecializationError{Kind: ErrInvalidSignature, ID: string(id), Detail: err.Error()}
	}
	return lf, nil
}
