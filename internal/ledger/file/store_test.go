package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	store, err := New(path)
	require.NoError(t, err)

	err = store.Update(context.Background(), "user-1", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-10").Add("free-chat", 2)
		rec.Attendance = append(rec.Attendance, "2025-09-10")
		return true, nil
	})
	require.NoError(t, err)

	reopened, err := New(path)
	require.NoError(t, err)

	rec, err := reopened.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Activity["2025-09-10"].Total)
	assert.True(t, rec.HasAttendance("2025-09-10"))
}

func TestUpdateUnchangedSkipsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	store, err := New(path)
	require.NoError(t, err)

	err = store.Update(context.Background(), "user-1", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-10").Add("free-chat", 2)
		// Reporting no change discards the mutation entirely.
		return false, nil
	})
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "a rejected update must not create the file")

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, rec.Activity)
}

func TestUpdateErrorDiscardsMutation(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = store.Update(context.Background(), "user-1", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-10").Add("free-chat", 2)
		return true, boom
	})
	assert.ErrorIs(t, err, boom)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, rec.Activity)
}

func TestGetUnknownUserReturnsEmptyRecord(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Attendance)
	assert.Empty(t, rec.Activity)
	assert.Empty(t, rec.Notified)
}

func TestGetReturnsACopy(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	err = store.Update(context.Background(), "user-1", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-10").Add("free-chat", 2)
		return true, nil
	})
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	rec.Day("2025-09-10").Add("free-chat", 100)

	again, err := store.Get(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Activity["2025-09-10"].Total, "callers must not mutate stored state")
}

func TestTotalsBetween(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	seed := func(uid, date string, pts int) {
		err := store.Update(context.Background(), uid, func(rec *entity.UserRecord) (bool, error) {
			rec.Day(date).Add("free-chat", pts)
			return true, nil
		})
		require.NoError(t, err)
	}
	seed("alice", "2025-09-08", 3)
	seed("alice", "2025-09-14", 2)
	seed("alice", "2025-09-15", 9) // outside the window
	seed("bob", "2025-09-10", 1)

	totals, err := store.TotalsBetween(context.Background(), "2025-09-08", "2025-09-14")
	require.NoError(t, err)
	assert.Equal(t, 5, totals["alice"])
	assert.Equal(t, 1, totals["bob"])
}

func TestReplaceMergeAndWipe(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	err = store.Update(context.Background(), "alice", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-10").Add("free-chat", 1)
		return true, nil
	})
	require.NoError(t, err)

	incoming := map[string]*entity.UserRecord{"bob": entity.NewUserRecord()}

	require.NoError(t, store.Replace(context.Background(), incoming, false))
	ids, err := store.UserIDs(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	require.NoError(t, store.Replace(context.Background(), incoming, true))
	ids, err = store.UserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)
}

func TestUpdateConcurrentDistinctUsersLosesNothing(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	const users = 16
	const updates = 100

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		uid := fmt.Sprintf("user-%02d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < updates; i++ {
				err := store.Update(context.Background(), uid, func(rec *entity.UserRecord) (bool, error) {
					rec.Day("2025-09-10").Add("free-chat", 1)
					rec.MarkNotified("2025-W37", rec.Activity["2025-09-10"].Total)
					return true, nil
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	// Every committed update must survive commits by other users.
	for u := 0; u < users; u++ {
		uid := fmt.Sprintf("user-%02d", u)
		rec, err := store.Get(context.Background(), uid)
		require.NoError(t, err)
		require.NotNil(t, rec.Activity["2025-09-10"], "%s: record vanished", uid)
		assert.Equal(t, updates, rec.Activity["2025-09-10"].Total, "%s lost committed updates", uid)
		assert.True(t, rec.HasNotified("2025-W37", updates), "%s lost notified markers", uid)
	}
}

func TestReplaceConcurrentWithUpdates(t *testing.T) {
	store, err := New("")
	require.NoError(t, err)

	require.NoError(t, store.Update(context.Background(), "restored", func(rec *entity.UserRecord) (bool, error) {
		rec.Day("2025-09-01").Add("free-chat", 1)
		return true, nil
	}))

	incoming := map[string]*entity.UserRecord{"restored": entity.NewUserRecord()}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			err := store.Update(context.Background(), "writer", func(rec *entity.UserRecord) (bool, error) {
				rec.Day("2025-09-10").Add("free-chat", 1)
				return true, nil
			})
			if err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		if err := store.Replace(context.Background(), incoming, false); err != nil {
			t.Error(err)
		}
	}()
	wg.Wait()

	// The writer's updates are never erased by the merge restore.
	rec, err := store.Get(context.Background(), "writer")
	require.NoError(t, err)
	require.NotNil(t, rec.Activity["2025-09-10"])
	assert.Equal(t, 50, rec.Activity["2025-09-10"].Total)
}

func TestNewRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path)
	assert.Error(t, err)
}
