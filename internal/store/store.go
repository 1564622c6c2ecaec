package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by every backend. Handlers map these to HTTP statuses.
var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("document conflict")
)

// Ref is an opaque pointer-by-collection-and-ID into the document store.
// Resolving it costs an I/O round trip.
type Ref struct {
	Collection string
	ID         string
}

// NewRef creates a reference to a document in the given collection.
func NewRef(collection, id string) Ref {
	return Ref{Collection: collection, ID: id}
}

func (r Ref) IsZero() bool {
	return r.Collection == "" && r.ID == ""
}

func (r Ref) String() string {
	return r.Collection + "/" + r.ID
}

// ParseRef parses a "Collection/ID" string produced by Ref.String.
func ParseRef(s string) (Ref, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, fmt.Errorf("malformed ref %q", s)
	}
	return Ref{Collection: parts[0], ID: parts[1]}, nil
}

// Document is a raw record read from the store.
type Document struct {
	Ref  Ref
	Data map[string]any
}

// DataTo decodes the document body into dest via a JSON round trip, so every
// backend produces the same typed view regardless of its native decoding.
func (d Document) DataTo(dest any) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.Ref, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode document %s: %w", d.Ref, err)
	}
	return nil
}

// DataFrom converts a typed model into the map form every backend persists.
func DataFrom(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// OpKind selects the mutation a FieldOp applies to one field.
type OpKind int

const (
	// OpSet overwrites the field.
	OpSet OpKind = iota
	// OpIncrement adds a delta using the backend's server-side arithmetic.
	// Counters must only ever move through this op; read-modify-write of a
	// counter loses updates under concurrent voters.
	OpIncrement
	// OpArrayUnion appends values not already present.
	OpArrayUnion
	// OpArrayRemove removes all occurrences of the values.
	OpArrayRemove
)

// FieldOp is a single-field mutation inside an Update call.
type FieldOp struct {
	Field string
	Kind  OpKind
	Value any
}

// Set overwrites field with v.
func Set(field string, v any) FieldOp {
	return FieldOp{Field: field, Kind: OpSet, Value: v}
}

// Increment atomically adds delta to a numeric field.
func Increment(field string, delta int64) FieldOp {
	return FieldOp{Field: field, Kind: OpIncrement, Value: delta}
}

// ArrayUnion adds values to an array field, skipping ones already present.
func ArrayUnion(field string, values ...any) FieldOp {
	return FieldOp{Field: field, Kind: OpArrayUnion, Value: values}
}

// ArrayRemove removes values from an array field.
func ArrayRemove(field string, values ...any) FieldOp {
	return FieldOp{Field: field, Kind: OpArrayRemove, Value: values}
}

// Cond is a single query condition. Op is one of
// "==", "<", "<=", ">", ">=", "array-contains".
type Cond struct {
	Field string
	Op    string
	Value any
}

// Where builds a query condition.
func Where(field, op string, value any) Cond {
	return Cond{Field: field, Op: op, Value: value}
}

// Reader is the read half of the store, shared by Store and Tx.
type Reader interface {
	// Get resolves a reference. Returns ErrNotFound if the document is gone.
	Get(ctx context.Context, ref Ref) (Document, error)
	// Query returns all documents in a collection matching every condition.
	Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error)
}

// Writer is the write half of the store, shared by Store and Tx.
type Writer interface {
	// Create inserts a document under a freshly generated ID.
	Create(ctx context.Context, collection string, data map[string]any) (Ref, error)
	// Set writes the full document body, creating it if absent.
	Set(ctx context.Context, ref Ref, data map[string]any) error
	// Update applies field ops to an existing document.
	Update(ctx context.Context, ref Ref, ops ...FieldOp) error
	// Delete removes the document. Deleting an absent document is not an error.
	Delete(ctx context.Context, ref Ref) error
}

// Tx is the view of the store inside a transaction.
type Tx interface {
	Reader
	Writer
}

// Store abstracts document CRUD, atomic counters and transactions over a
// document database. Four backends implement it: Firestore, MongoDB,
// Postgres (JSONB documents) and an in-process map used by tests.
type Store interface {
	Reader
	Writer
	// RunTransaction executes fn atomically. Multi-document mutations
	// (vote + aggregates, delete + dereference, friend accept) must go
	// through here; fn may be retried on contention and has to be
	// side-effect free outside the transaction.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Close releases the underlying client.
	Close(ctx context.Context) error
}
