// Package file implements the ledger store as a single JSON document on
// disk, the storage the community ran on before Postgres. It also backs the
// engine's tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
)

type document struct {
	Users map[string]*entity.UserRecord `json:"users"`
}

// Store keeps the full ledger in memory and rewrites the backing file on
// every committed update.
type Store struct {
	path string

	mu    sync.RWMutex // guards users
	users map[string]*entity.UserRecord

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	// commitMu serializes the copy-persist-commit sequence across users so a
	// commit can never be built from a map snapshot that predates another
	// user's committed write.
	commitMu sync.Mutex
}

var _ ledger.Store = (*Store)(nil)

// New loads (or initializes) a file-backed store. An empty path keeps the
// ledger purely in memory, which is what tests use.
func New(path string) (*Store, error) {
	s := &Store{
		path:  path,
		users: map[string]*entity.UserRecord{},
		locks: map[string]*sync.Mutex{},
	}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file %s: %w", path, err)
	}
	for uid, rec := range doc.Users {
		if rec == nil {
			rec = entity.NewUserRecord()
		}
		rec.Normalize()
		s.users[uid] = rec
	}
	return s, nil
}

func (s *Store) userLock(uid string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[uid]
	if !ok {
		l = &sync.Mutex{}
		s.locks[uid] = l
	}
	return l
}

func (s *Store) Update(ctx context.Context, uid string, fn ledger.UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Per-user critical section: two events for one user never interleave.
	lock := s.userLock(uid)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	current, ok := s.users[uid]
	s.mu.RUnlock()

	var work *entity.UserRecord
	if ok {
		work = current.Clone()
	} else {
		work = entity.NewUserRecord()
	}

	changed, err := fn(work)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	// The file write is the durability point; commit the in-memory state
	// only after it lands so a failed write leaves the ledger unchanged.
	// Commits for different users serialize here, so the persisted document
	// always contains every previously committed record.
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.RLock()
	next := make(map[string]*entity.UserRecord, len(s.users)+1)
	for id, rec := range s.users {
		next[id] = rec
	}
	s.mu.RUnlock()
	next[uid] = work

	if err := s.persist(next); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}

	// Set only this user's entry; replacing the whole map here would erase
	// records committed by other users since the snapshot above was taken.
	s.mu.Lock()
	s.users[uid] = work
	s.mu.Unlock()
	return nil
}

// persist writes the full document; callers hold commitMu.
func (s *Store) persist(users map[string]*entity.UserRecord) error {
	if s.path == "" {
		return nil
	}

	raw, err := json.MarshalIndent(document{Users: users}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *Store) Get(ctx context.Context, uid string) (*entity.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.users[uid]; ok {
		return rec.Clone(), nil
	}
	return entity.NewUserRecord(), nil
}

func (s *Store) UserIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.users))
	for uid := range s.users {
		ids = append(ids, uid)
	}
	return ids, nil
}

func (s *Store) TotalsBetween(ctx context.Context, start, end string) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]int, len(s.users))
	for uid, rec := range s.users {
		sum := 0
		for date, day := range rec.Activity {
			if date >= start && date <= end {
				sum += day.Total
			}
		}
		totals[uid] = sum
	}
	return totals, nil
}

func (s *Store) Dump(ctx context.Context) (map[string]*entity.UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*entity.UserRecord, len(s.users))
	for uid, rec := range s.users {
		out[uid] = rec.Clone()
	}
	return out, nil
}

func (s *Store) Replace(ctx context.Context, users map[string]*entity.UserRecord, wipe bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Taking commitMu fences out in-flight Update commits: an Update that
	// committed before the restore is included in the snapshot below, one
	// after it re-reads the replaced map.
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	s.mu.RLock()
	next := map[string]*entity.UserRecord{}
	if !wipe {
		for uid, rec := range s.users {
			next[uid] = rec
		}
	}
	s.mu.RUnlock()

	for uid, rec := range users {
		cp := rec.Clone()
		cp.Normalize()
		next[uid] = cp
	}

	if err := s.persist(next); err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrStorage, err)
	}

	s.mu.Lock()
	s.users = next
	s.mu.Unlock()
	return nil
}
