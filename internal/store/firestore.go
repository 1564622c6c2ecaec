package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Increments use the
// server-side firestore.Increment sentinel, array ops use ArrayUnion and
// ArrayRemove, and RunTransaction maps onto native Firestore transactions.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore wraps an initialized Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) doc(ref Ref) *firestore.DocumentRef {
	return s.client.Collection(ref.Collection).Doc(ref.ID)
}

func (s *FirestoreStore) Get(ctx context.Context, ref Ref) (Document, error) {
	snap, err := s.doc(ref).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return Document{}, err
	}
	return Document{Ref: ref, Data: snap.Data()}, nil
}

func (s *FirestoreStore) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	q := s.client.Collection(collection).Query
	for _, c := range conds {
		q = q.Where(c.Field, c.Op, c.Value)
	}
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{
			Ref:  Ref{Collection: collection, ID: snap.Ref.ID},
			Data: snap.Data(),
		})
	}
	return docs, nil
}

func (s *FirestoreStore) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	doc := s.client.Collection(collection).NewDoc()
	if _, err := doc.Create(ctx, data); err != nil {
		return Ref{}, err
	}
	return Ref{Collection: collection, ID: doc.ID}, nil
}

func (s *FirestoreStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	_, err := s.doc(ref).Set(ctx, data)
	return err
}

func (s *FirestoreStore) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	_, err := s.doc(ref).Update(ctx, toFirestoreUpdates(ops))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return err
}

func (s *FirestoreStore) Delete(ctx context.Context, ref Ref) error {
	_, err := s.doc(ref).Delete(ctx)
	return err
}

func (s *FirestoreStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, t *firestore.Transaction) error {
		return fn(ctx, &firestoreTx{store: s, t: t})
	})
}

func (s *FirestoreStore) Close(ctx context.Context) error {
	return s.client.Close()
}

// firestoreTx adapts a native Firestore transaction to the Tx interface.
// Firestore requires all reads before the first write; services keep to a
// read-then-write discipline so this holds.
type firestoreTx struct {
	store *FirestoreStore
	t     *firestore.Transaction
}

func (tx *firestoreTx) Get(ctx context.Context, ref Ref) (Document, error) {
	snap, err := tx.t.Get(tx.store.doc(ref))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return Document{}, err
	}
	return Document{Ref: ref, Data: snap.Data()}, nil
}

func (tx *firestoreTx) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	q := tx.store.client.Collection(collection).Query
	for _, c := range conds {
		q = q.Where(c.Field, c.Op, c.Value)
	}
	snaps, err := tx.t.Documents(q).GetAll()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{
			Ref:  Ref{Collection: collection, ID: snap.Ref.ID},
			Data: snap.Data(),
		})
	}
	return docs, nil
}

func (tx *firestoreTx) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	doc := tx.store.client.Collection(collection).NewDoc()
	if err := tx.t.Create(doc, data); err != nil {
		return Ref{}, err
	}
	return Ref{Collection: collection, ID: doc.ID}, nil
}

func (tx *firestoreTx) Set(ctx context.Context, ref Ref, data map[string]any) error {
	return tx.t.Set(tx.store.doc(ref), data)
}

func (tx *firestoreTx) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	err := tx.t.Update(tx.store.doc(ref), toFirestoreUpdates(ops))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%s: %w", ref, ErrNotFound)
	}
	return err
}

func (tx *firestoreTx) Delete(ctx context.Context, ref Ref) error {
	return tx.t.Delete(tx.store.doc(ref))
}

func toFirestoreUpdates(ops []FieldOp) []firestore.Update {
	updates := make([]firestore.Update, 0, len(ops))
	for _, op := range ops {
		u := firestore.Update{Path: op.Field}
		switch op.Kind {
		case OpIncrement:
			u.Value = firestore.Increment(op.Value)
		case OpArrayUnion:
			u.Value = firestore.ArrayUnion(op.Value.([]any)...)
		case OpArrayRemove:
			u.Value = firestore.ArrayRemove(op.Value.([]any)...)
		default:
			u.Value = op.Value
		}
		updates = append(updates, u)
	}
	return updates
}
