package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store on an in-process map. It backs the service
// tests and the dev "memory" backend; a single mutex gives it the same
// atomicity guarantees the real backends provide per document.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Get(ctx context.Context, ref Ref) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(ref)
}

func (s *MemoryStore) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(collection, conds)
}

func (s *MemoryStore) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(collection, data)
}

func (s *MemoryStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(ref, data)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ref, ops)
}

func (s *MemoryStore) Delete(ctx context.Context, ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delete(ref)
	return nil
}

// RunTransaction holds the store lock for the whole callback and rolls the
// data back if fn fails, so the callback observes and produces a consistent
// snapshot exactly like a real transaction would.
func (s *MemoryStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := cloneCollections(s.collections)
	if err := fn(ctx, &memoryTx{store: s}); err != nil {
		s.collections = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// memoryTx operates on the store while the transaction lock is held.
type memoryTx struct {
	store *MemoryStore
}

func (tx *memoryTx) Get(ctx context.Context, ref Ref) (Document, error) {
	return tx.store.get(ref)
}

func (tx *memoryTx) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	return tx.store.query(collection, conds)
}

func (tx *memoryTx) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	return tx.store.create(collection, data)
}

func (tx *memoryTx) Set(ctx context.Context, ref Ref, data map[string]any) error {
	tx.store.set(ref, data)
	return nil
}

func (tx *memoryTx) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	return tx.store.update(ref, ops)
}

func (tx *memoryTx) Delete(ctx context.Context, ref Ref) error {
	tx.store.delete(ref)
	return nil
}

// Lock-free internals, callers hold the appropriate lock.

func (s *MemoryStore) get(ref Ref) (Document, error) {
	coll, ok := s.collections[ref.Collection]
	if !ok {
		return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	data, ok := coll[ref.ID]
	if !ok {
		return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return Document{Ref: ref, Data: cloneMap(data)}, nil
}

func (s *MemoryStore) query(collection string, conds []Cond) ([]Document, error) {
	var docs []Document
	for id, data := range s.collections[collection] {
		matched := true
		for _, c := range conds {
			ok, err := matchCond(data[c.Field], c)
			if err != nil {
				return nil, err
			}
			if !ok {
				matched = false
				break
			}
		}
		if matched {
			docs = append(docs, Document{
				Ref:  Ref{Collection: collection, ID: id},
				Data: cloneMap(data),
			})
		}
	}
	return docs, nil
}

func (s *MemoryStore) create(collection string, data map[string]any) (Ref, error) {
	ref := Ref{Collection: collection, ID: uuid.NewString()}
	s.set(ref, data)
	return ref, nil
}

func (s *MemoryStore) set(ref Ref, data map[string]any) {
	coll, ok := s.collections[ref.Collection]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[ref.Collection] = coll
	}
	coll[ref.ID] = cloneMap(data)
}

func (s *MemoryStore) update(ref Ref, ops []FieldOp) error {
	coll, ok := s.collections[ref.Collection]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	data, ok := coll[ref.ID]
	if !ok {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	applyOps(data, ops)
	return nil
}

func (s *MemoryStore) delete(ref Ref) {
	if coll, ok := s.collections[ref.Collection]; ok {
		delete(coll, ref.ID)
	}
}

// applyOps mutates a document body in place. Shared by the memory and
// Postgres backends, which both resolve field ops client-side under a lock.
func applyOps(data map[string]any, ops []FieldOp) {
	for _, op := range ops {
		switch op.Kind {
		case OpIncrement:
			data[op.Field] = asFloat(data[op.Field]) + asFloat(op.Value)
		case OpArrayUnion:
			arr := asSlice(data[op.Field])
			for _, v := range op.Value.([]any) {
				if !sliceContains(arr, v) {
					arr = append(arr, v)
				}
			}
			data[op.Field] = arr
		case OpArrayRemove:
			arr := asSlice(data[op.Field])
			kept := arr[:0]
			for _, e := range arr {
				if !sliceContains(op.Value.([]any), e) {
					kept = append(kept, e)
				}
			}
			data[op.Field] = kept
		default:
			data[op.Field] = op.Value
		}
	}
}

func matchCond(fieldValue any, c Cond) (bool, error) {
	switch c.Op {
	case "==":
		return valueEqual(fieldValue, c.Value), nil
	case "array-contains":
		return sliceContains(asSlice(fieldValue), c.Value), nil
	case "<":
		return asFloat(fieldValue) < asFloat(c.Value), nil
	case "<=":
		return asFloat(fieldValue) <= asFloat(c.Value), nil
	case ">":
		return asFloat(fieldValue) > asFloat(c.Value), nil
	case ">=":
		return asFloat(fieldValue) >= asFloat(c.Value), nil
	default:
		return false, fmt.Errorf("unsupported query op %q", c.Op)
	}
}

func valueEqual(a, b any) bool {
	if fa, ok := tryFloat(a); ok {
		fb, okb := tryFloat(b)
		return okb && fa == fb
	}
	return a == b
}

func sliceContains(arr []any, v any) bool {
	for _, e := range arr {
		if valueEqual(e, v) {
			return true
		}
	}
	return false
}

func asSlice(v any) []any {
	if arr, ok := v.([]any); ok {
		return arr
	}
	if arr, ok := v.([]string); ok {
		out := make([]any, len(arr))
		for i, s := range arr {
			out[i] = s
		}
		return out
	}
	return nil
}

func asFloat(v any) float64 {
	f, _ := tryFloat(v)
	return f
}

func tryFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

func cloneMap(m map[string]any) map[string]any {
	b, err := json.Marshal(m)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func cloneCollections(src map[string]map[string]map[string]any) map[string]map[string]map[string]any {
	out := make(map[string]map[string]map[string]any, len(src))
	for cname, coll := range src {
		c := make(map[string]map[string]any, len(coll))
		for id, data := range coll {
			c[id] = cloneMap(data)
		}
		out[cname] = c
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*FirestoreStore)(nil)
var _ Store = (*MongoStore)(nil)
var _ Store = (*PostgresStore)(nil)
