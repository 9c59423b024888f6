package store

import (
	"context"

	"teledb/pkg/model"
)

// Table is a view of the store bound to one table name. It holds no
// state of its own, every call goes straight through to the store.
type Table struct {
	store *Store
	name  string
}

// Table returns a view bound to the given table name.
func (s *Store) Table(name string) *Table {
	return &Table{store: s, name: name}
}

// Name returns the bound table name.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) Insert(ctx context.Context, doc model.Document) Result {
	return t.store.Insert(ctx, doc, t.name)
}

func (t *Table) InsertMany(ctx context.Context, docs []model.Document, opts InsertManyOptions) []Result {
	return t.store.InsertMany(ctx, docs, t.name, opts)
}

func (t *Table) Find(ctx context.Context, filter model.Filter) ([]model.Document, error) {
	return t.store.Find(ctx, filter, t.name)
}

func (t *Table) FindOne(ctx context.Context, filter model.Filter) (model.Document, error) {
	return t.store.FindOne(ctx, filter, t.name)
}

func (t *Table) FindByID(ctx context.Context, id string) (model.Document, error) {
	return t.store.FindByID(ctx, id, t.name)
}

func (t *Table) Count(ctx context.Context, filter model.Filter) (int, error) {
	return t.store.Count(ctx, filter, t.name)
}

func (t *Table) Update(ctx context.Context, filter model.Filter, patch model.Document, opts UpdateOptions) Result {
	return t.store.Update(ctx, filter, patch, t.name, opts)
}

func (t *Table) UpdateByID(ctx context.Context, id string, patch model.Document, opts UpdateOptions) Result {
	return t.store.UpdateByID(ctx, id, patch, t.name, opts)
}

func (t *Table) Delete(ctx context.Context, filter model.Filter) Result {
	return t.store.Delete(ctx, filter, t.name)
}

func (t *Table) DeleteByID(ctx context.Context, id string) Result {
	return t.store.DeleteByID(ctx, id, t.name)
}

func (t *Table) DeleteAll(ctx context.Context) Result {
	return t.store.DeleteAll(ctx, t.name)
}

func (t *Table) Stats(ctx context.Context) (Stats, error) {
	return t.store.GetStats(ctx, t.name)
}
