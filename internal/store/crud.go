package store

import (
	"context"
	"fmt"
	"time"

	"teledb/internal/index"
	"teledb/internal/query"
	"teledb/pkg/model"
)

// InsertManyOptions tunes sequential batch inserts.
type InsertManyOptions struct {
	// Delay overrides the configured inter-item pause. The pause
	// throttles against the channel's send-rate ceiling; batch inserts
	// are always sequential, never concurrent. Zero means use config.
	Delay time.Duration

	// StopOnError halts the batch at the first failed insert.
	StopOnError bool
}

// UpdateOptions tunes update behavior.
type UpdateOptions struct {
	// Upsert inserts a document synthesized from the filter's literal
	// fields and the patch when nothing matches.
	Upsert bool

	// Replace substitutes the patch for the whole document instead of
	// deep-merging. The id and table fields are always preserved.
	Replace bool
}

// Stats summarizes a table, or the whole store when table is empty.
type Stats struct {
	TotalDocuments int
	TotalMessages  int
	Oldest         model.Document
	Newest         model.Document
}

// Insert stores a document in the given table. A missing id is
// assigned; the table field is stamped. On send failure the index is
// left untouched, no partial insert is ever visible.
func (s *Store) Insert(ctx context.Context, doc model.Document, table string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return failure("store initialization failed", err)
	}

	res := s.insertLocked(ctx, doc, table)
	if res.Success {
		s.publishSnapshot(ctx)
	}
	return res
}

func (s *Store) insertLocked(ctx context.Context, doc model.Document, table string) Result {
	if table == "" || table == model.SystemTable {
		return failure(fmt.Sprintf("invalid table %q", table), model.ErrInvalidFilter)
	}
	if err := doc.Validate(); err != nil {
		return failure(err.Error(), err)
	}

	stored := doc.Clone()
	stored.GenerateIDIfEmpty()
	stored.SetTable(table)
	if stored.IsSystem() {
		return failure("reserved document identity", model.ErrInvalidFilter)
	}

	payload, err := s.codec.Encode(stored)
	if err != nil {
		return failure(err.Error(), err)
	}

	msgID, err := s.sendWithRetry(ctx, payload)
	if err != nil {
		return failure(fmt.Sprintf("send failed for %q", stored.GetID()), err)
	}

	s.idx.Upsert(stored.Clone(), msgID)

	res := success(fmt.Sprintf("inserted %q into %q", stored.GetID(), table), stored)
	res.MessageID = msgID
	return res
}

// InsertMany inserts documents sequentially with an inter-item pause.
// Each outcome is recorded independently unless StopOnError halts the
// sequence.
func (s *Store) InsertMany(ctx context.Context, docs []model.Document, table string, opts InsertManyOptions) []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return []Result{failure("store initialization failed", err)}
	}

	delay := s.cfg.InsertDelay
	if opts.Delay > 0 {
		delay = opts.Delay
	}

	results := make([]Result, 0, len(docs))
	anySuccess := false
	for i, doc := range docs {
		res := s.insertLocked(ctx, doc, table)
		results = append(results, res)
		anySuccess = anySuccess || res.Success

		if !res.Success && opts.StopOnError {
			break
		}
		if i < len(docs)-1 {
			if err := sleep(ctx, delay); err != nil {
				results = append(results, failure("batch aborted", err))
				break
			}
		}
	}

	if anySuccess {
		s.publishSnapshot(ctx)
	}
	return results
}

// Find returns every document in the table matching the filter. An
// empty index triggers exactly one rehydration pass before the scan;
// an empty result after that is legitimate.
func (s *Store) Find(ctx context.Context, filter model.Filter, table string) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return nil, err
	}

	entries := s.matchLocked(filter, table)
	out := make([]model.Document, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Doc.Clone())
	}
	return out, nil
}

// FindOne returns the first matching document, or model.ErrNotFound.
func (s *Store) FindOne(ctx context.Context, filter model.Filter, table string) (model.Document, error) {
	docs, err := s.Find(ctx, filter, table)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, model.ErrNotFound
	}
	return docs[0], nil
}

// FindByID is FindOne on the id field.
func (s *Store) FindByID(ctx context.Context, id string, table string) (model.Document, error) {
	return s.FindOne(ctx, model.Filter{"id": id}, table)
}

// Count returns the number of matching documents. The filter is
// evaluated client-side against the index, not pushed down.
func (s *Store) Count(ctx context.Context, filter model.Filter, table string) (int, error) {
	docs, err := s.Find(ctx, filter, table)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// Update applies a patch to every document matching the filter. An
// update is delete-old-message plus send-new-message, never an edit in
// place. Failed sends do not abort the remaining matches; the Result's
// document list reports only the successes.
func (s *Store) Update(ctx context.Context, filter model.Filter, patch model.Document, table string, opts UpdateOptions) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return failure("store initialization failed", err)
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return failure("rehydration failed", err)
	}

	entries := s.matchLocked(filter, table)
	if len(entries) == 0 {
		if opts.Upsert {
			return s.upsertLocked(ctx, filter, patch, table)
		}
		return failure("no documents found", model.ErrNoDocuments)
	}

	var updated []model.Document
	var lastErr error
	for _, entry := range entries {
		merged := mergeForUpdate(entry.Doc, patch, opts.Replace)

		payload, err := s.codec.Encode(merged)
		if err != nil {
			lastErr = err
			continue
		}

		// Delete-then-send: the old message must not survive as a
		// duplicate revision in history.
		s.deleteBestEffort(ctx, entry.MessageID)

		msgID, err := s.sendWithRetry(ctx, payload)
		if err != nil {
			lastErr = err
			continue
		}

		s.idx.Upsert(merged.Clone(), msgID)
		updated = append(updated, merged)
	}

	if len(updated) > 0 {
		s.publishSnapshot(ctx)
	}
	if len(updated) == 0 {
		return failure("all updates failed", lastErr)
	}

	res := success(fmt.Sprintf("updated %d of %d documents", len(updated), len(entries)), updated...)
	res.Err = lastErr
	return res
}

// UpdateByID updates a single document by id.
func (s *Store) UpdateByID(ctx context.Context, id string, patch model.Document, table string, opts UpdateOptions) Result {
	return s.Update(ctx, model.Filter{"id": id}, patch, table, opts)
}

// upsertLocked synthesizes a new document from the filter's literal
// fields deep-merged with the patch. Filters carrying operator objects
// cannot seed a document and are rejected.
func (s *Store) upsertLocked(ctx context.Context, filter model.Filter, patch model.Document, table string) Result {
	if filter.HasOperators() {
		return failure("cannot upsert from a filter containing operators", model.ErrInvalidFilter)
	}

	seed := model.Document{}
	seed.Merge(filter.Literals())
	seed.Merge(patch)
	delete(seed, "table")

	res := s.insertLocked(ctx, seed, table)
	if res.Success {
		s.publishSnapshot(ctx)
	}
	return res
}

// Delete removes every matching document. Index removal is
// unconditional so deletion is locally visible immediately even when
// the remote delete fails; DeletedCount reports only the matches whose
// channel message is known gone.
func (s *Store) Delete(ctx context.Context, filter model.Filter, table string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(ctx, filter, table)
}

func (s *Store) deleteLocked(ctx context.Context, filter model.Filter, table string) Result {
	if err := s.ensureInitLocked(ctx); err != nil {
		return failure("store initialization failed", err)
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return failure("rehydration failed", err)
	}

	entries := s.matchLocked(filter, table)
	if len(entries) == 0 {
		return failure("no documents found", model.ErrNoDocuments)
	}

	removed := make([]model.Document, 0, len(entries))
	deletedCount := 0
	for _, entry := range entries {
		if s.deleteBestEffort(ctx, entry.MessageID) {
			deletedCount++
		}
		s.idx.Remove(entry.Doc.GetID())
		removed = append(removed, entry.Doc.Clone())
	}

	s.publishSnapshot(ctx)

	res := success(fmt.Sprintf("deleted %d documents", len(removed)), removed...)
	res.DeletedCount = deletedCount
	return res
}

// DeleteByID deletes a single document by id.
func (s *Store) DeleteByID(ctx context.Context, id string, table string) Result {
	return s.Delete(ctx, model.Filter{"id": id}, table)
}

// DeleteAll deletes every document in the table.
func (s *Store) DeleteAll(ctx context.Context, table string) Result {
	return s.Delete(ctx, model.Filter{}, table)
}

// DropTable removes a table by deleting every member document. Tables
// are a derived partition of the document set, there is no separate
// metadata object to remove.
func (s *Store) DropTable(ctx context.Context, table string) Result {
	return s.DeleteAll(ctx, table)
}

// GetTables lists the tables currently holding documents. Reserved
// identities are excluded.
func (s *Store) GetTables(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return nil, err
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return nil, err
	}
	return s.idx.Tables(), nil
}

// GetStats summarizes the store, or a single table when table is
// non-empty. Oldest and newest are determined by the numeric timestamp
// prefix of the document id; true ties are broken by scan order.
func (s *Store) GetStats(ctx context.Context, table string) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return Stats{}, err
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return Stats{}, err
	}

	var stats Stats
	var oldestMs, newestMs int64
	for _, entry := range s.idx.All() {
		doc := entry.Doc
		if doc.IsSystem() {
			continue
		}
		if table != "" && doc.GetTable() != table {
			continue
		}
		stats.TotalDocuments++

		ms, ok := model.IDTimestamp(doc.GetID())
		if !ok {
			continue
		}
		if stats.Oldest == nil || ms < oldestMs {
			stats.Oldest = doc.Clone()
			oldestMs = ms
		}
		if stats.Newest == nil || ms > newestMs {
			stats.Newest = doc.Clone()
			newestMs = ms
		}
	}

	stats.TotalMessages = stats.TotalDocuments
	if table == "" && s.idx.SnapshotMessageID() != 0 {
		stats.TotalMessages++
	}
	return stats, nil
}

// Clear drops every table. The aggregate succeeds only if every
// sub-operation succeeded.
func (s *Store) Clear(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitLocked(ctx); err != nil {
		return failure("store initialization failed", err)
	}
	if err := s.rehydrateIfEmptyLocked(ctx); err != nil {
		return failure("rehydration failed", err)
	}

	tables := s.idx.Tables()
	if len(tables) == 0 {
		return success("store already empty")
	}

	agg := Result{Success: true}
	for _, table := range tables {
		res := s.deleteLocked(ctx, model.Filter{}, table)
		agg.Documents = append(agg.Documents, res.Documents...)
		agg.DeletedCount += res.DeletedCount
		if !res.Success {
			agg.Success = false
			agg.Err = res.Err
		}
	}
	agg.Message = fmt.Sprintf("cleared %d tables, %d documents", len(tables), len(agg.Documents))
	return agg
}

// matchLocked resolves the filter client-side against the index scan,
// augmented with the table constraint.
func (s *Store) matchLocked(filter model.Filter, table string) []index.Entry {
	augmented := filter.WithTable(table)

	var out []index.Entry
	for _, entry := range s.idx.All() {
		if entry.Doc.IsSystem() {
			continue
		}
		if query.Matches(entry.Doc, augmented) {
			out = append(out, entry)
		}
	}
	return out
}

// mergeForUpdate computes the post-update document. Replace swaps the
// whole document for the patch; merge folds the patch in key by key.
// Either way id and table survive.
func mergeForUpdate(existing model.Document, patch model.Document, replace bool) model.Document {
	var merged model.Document
	if replace {
		merged = patch.Clone()
	} else {
		merged = existing.Clone()
		merged.Merge(patch)
	}
	merged.SetID(existing.GetID())
	merged.SetTable(existing.GetTable())
	return merged
}
