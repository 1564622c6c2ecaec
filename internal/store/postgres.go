package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRow is the single relational table backing the Postgres store:
// one JSONB body per (collection, doc_id) pair.
type documentRow struct {
	Collection string         `gorm:"primaryKey;size:128"`
	DocID      string         `gorm:"primaryKey;size:128;column:doc_id"`
	Data       datatypes.JSON `gorm:"type:jsonb"`
}

func (documentRow) TableName() string { return "documents" }

// PostgresStore implements Store on Postgres, persisting documents as JSONB
// rows. Field ops are applied under a SELECT ... FOR UPDATE row lock, which
// serializes concurrent increments on the same document.
type PostgresStore struct {
	db *gorm.DB
}

// NewPostgresStore wraps a GORM Postgres handle and migrates the documents table.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Get(ctx context.Context, ref Ref) (Document, error) {
	return pgGet(s.db.WithContext(ctx), ref, false)
}

func (s *PostgresStore) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	return pgQuery(s.db.WithContext(ctx), collection, conds)
}

func (s *PostgresStore) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	return pgCreate(s.db.WithContext(ctx), collection, data)
}

func (s *PostgresStore) Set(ctx context.Context, ref Ref, data map[string]any) error {
	return pgSet(s.db.WithContext(ctx), ref, data)
}

func (s *PostgresStore) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	// Standalone updates still need the row lock, so wrap in a short tx.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return pgUpdate(tx, ref, ops)
	})
}

func (s *PostgresStore) Delete(ctx context.Context, ref Ref) error {
	return s.db.WithContext(ctx).
		Delete(&documentRow{}, "collection = ? AND doc_id = ?", ref.Collection, ref.ID).Error
}

func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &postgresTx{db: tx})
	})
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// postgresTx reuses the same row operations inside one gorm transaction,
// reading with FOR UPDATE so read-then-write sequences are serializable.
type postgresTx struct {
	db *gorm.DB
}

func (tx *postgresTx) Get(ctx context.Context, ref Ref) (Document, error) {
	return pgGet(tx.db, ref, true)
}

func (tx *postgresTx) Query(ctx context.Context, collection string, conds ...Cond) ([]Document, error) {
	return pgQuery(tx.db, collection, conds)
}

func (tx *postgresTx) Create(ctx context.Context, collection string, data map[string]any) (Ref, error) {
	return pgCreate(tx.db, collection, data)
}

func (tx *postgresTx) Set(ctx context.Context, ref Ref, data map[string]any) error {
	return pgSet(tx.db, ref, data)
}

func (tx *postgresTx) Update(ctx context.Context, ref Ref, ops ...FieldOp) error {
	return pgUpdate(tx.db, ref, ops)
}

func (tx *postgresTx) Delete(ctx context.Context, ref Ref) error {
	return tx.db.Delete(&documentRow{}, "collection = ? AND doc_id = ?", ref.Collection, ref.ID).Error
}

func pgGet(db *gorm.DB, ref Ref, forUpdate bool) (Document, error) {
	q := db
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row documentRow
	err := q.First(&row, "collection = ? AND doc_id = ?", ref.Collection, ref.ID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return Document{}, err
	}
	var data map[string]any
	if err := json.Unmarshal(row.Data, &data); err != nil {
		return Document{}, fmt.Errorf("decode jsonb for %s: %w", ref, err)
	}
	return Document{Ref: ref, Data: data}, nil
}

func pgQuery(db *gorm.DB, collection string, conds []Cond) ([]Document, error) {
	q := db.Where("collection = ?", collection)
	for _, c := range conds {
		switch c.Op {
		case "==":
			b, err := json.Marshal(map[string]any{c.Field: c.Value})
			if err != nil {
				return nil, err
			}
			q = q.Where("data @> ?", string(b))
		case "array-contains":
			b, err := json.Marshal(map[string]any{c.Field: []any{c.Value}})
			if err != nil {
				return nil, err
			}
			q = q.Where("data @> ?", string(b))
		case "<", "<=", ">", ">=":
			switch c.Value.(type) {
			case int, int32, int64, float32, float64:
				q = q.Where(fmt.Sprintf("(data->>?)::numeric %s ?", c.Op), c.Field, c.Value)
			default:
				q = q.Where(fmt.Sprintf("data->>? %s ?", c.Op), c.Field, c.Value)
			}
		default:
			return nil, fmt.Errorf("unsupported query op %q", c.Op)
		}
	}
	var rows []documentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		var data map[string]any
		if err := json.Unmarshal(row.Data, &data); err != nil {
			return nil, fmt.Errorf("decode jsonb for %s/%s: %w", row.Collection, row.DocID, err)
		}
		docs = append(docs, Document{
			Ref:  Ref{Collection: collection, ID: row.DocID},
			Data: data,
		})
	}
	return docs, nil
}

func pgCreate(db *gorm.DB, collection string, data map[string]any) (Ref, error) {
	ref := Ref{Collection: collection, ID: uuid.NewString()}
	if err := pgSet(db, ref, data); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

func pgSet(db *gorm.DB, ref Ref, data map[string]any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	row := documentRow{Collection: ref.Collection, DocID: ref.ID, Data: b}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data"}),
	}).Create(&row).Error
}

func pgUpdate(db *gorm.DB, ref Ref, ops []FieldOp) error {
	doc, err := pgGet(db, ref, true)
	if err != nil {
		return err
	}
	applyOps(doc.Data, ops)
	return pgSet(db, ref, doc.Data)
}
