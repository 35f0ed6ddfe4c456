package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dulgistudio/dulgi/internal/calendar"
	"github.com/dulgistudio/dulgi/internal/entity"
	"github.com/dulgistudio/dulgi/internal/ledger"
	"github.com/dulgistudio/dulgi/pkg/apperror"
	"github.com/dulgistudio/dulgi/pkg/storage"
	"github.com/google/uuid"
)

// Version is the current snapshot wire-format version. Older blobs without
// the field restore as version 1.
const Version = 1

// Snapshot is the write-once backup artifact: the full ledger labelled with
// its capture instant.
type Snapshot struct {
	Version     int                           `json:"version"`
	ID          uuid.UUID                     `json:"id"`
	GeneratedAt time.Time                     `json:"generated_at"`
	Users       map[string]*entity.UserRecord `json:"users"`
}

// restoreBlob mirrors Snapshot but keeps Users a pointer so a blob that
// lacks the users object entirely is distinguishable from an empty ledger.
type restoreBlob struct {
	Version     int                            `json:"version"`
	ID          uuid.UUID                      `json:"id"`
	GeneratedAt time.Time                      `json:"generated_at"`
	Users       *map[string]*entity.UserRecord `json:"users"`
}

// CaptureResult describes one produced snapshot artifact.
type CaptureResult struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Filename    string    `json:"filename"`
	UserCount   int       `json:"user_count"`
	LocalPath   string    `json:"local_path,omitempty"`
	UploadURL   string    `json:"upload_url,omitempty"`
}

type SnapshotService interface {
	// Capture takes a consistent dump of the whole ledger, stores it under
	// the snapshot directory and uploads it when blob storage is configured.
	Capture(ctx context.Context) (CaptureResult, error)

	// Encode serializes the current ledger without persisting an artifact.
	Encode(ctx context.Context) ([]byte, error)

	// Restore validates a snapshot blob and installs its user records.
	// Validation happens before any mutation; a malformed blob leaves the
	// store untouched. Returns the number of restored users.
	Restore(ctx context.Context, blob []byte, replaceAll bool) (int, error)
}

type snapshotService struct {
	store ledger.Store
	dir   string
	blobs storage.BlobStorage
}

// NewSnapshotService builds the snapshot component. dir may be empty to skip
// local artifacts, blobs may be nil to skip uploads.
func NewSnapshotService(store ledger.Store, dir string, blobs storage.BlobStorage) SnapshotService {
	return &snapshotService{store: store, dir: dir, blobs: blobs}
}

func (s *snapshotService) Encode(ctx context.Context) ([]byte, error) {
	users, err := s.store.Dump(ctx)
	if err != nil {
		return nil, err
	}
	snap := Snapshot{
		Version:     Version,
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Users:       users,
	}
	return json.MarshalIndent(snap, "", "  ")
}

func (s *snapshotService) Capture(ctx context.Context) (CaptureResult, error) {
	users, err := s.store.Dump(ctx)
	if err != nil {
		return CaptureResult{}, err
	}

	snap := Snapshot{
		Version:     Version,
		ID:          uuid.New(),
		GeneratedAt: time.Now(),
		Users:       users,
	}
	blob, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return CaptureResult{}, err
	}

	result := CaptureResult{
		ID:          snap.ID,
		GeneratedAt: snap.GeneratedAt,
		Filename:    fmt.Sprintf("snapshot_%s.json", calendar.LogicalDateString(snap.GeneratedAt, calendar.DayStartHour)),
		UserCount:   len(users),
	}

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return CaptureResult{}, err
		}
		path := filepath.Join(s.dir, result.Filename)
		if err := os.WriteFile(path, blob, 0o644); err != nil {
			return CaptureResult{}, err
		}
		result.LocalPath = path
	}

	if s.blobs != nil {
		url, err := s.blobs.UploadBlob(ctx, result.Filename, blob)
		if err != nil {
			// The local artifact already exists; a failed upload is logged,
			// not fatal.
			log.Printf("❌ snapshot upload failed: %v", err)
		} else {
			result.UploadURL = url
		}
	}

	return result, nil
}

func (s *snapshotService) Restore(ctx context.Context, blob []byte, replaceAll bool) (int, error) {
	var decoded restoreBlob
	if err := json.Unmarshal(blob, &decoded); err != nil {
		return 0, fmt.Errorf("%w: %v", apperror.ErrInvalidSnapshot, err)
	}
	if decoded.Users == nil {
		return 0, fmt.Errorf("%w: missing users object", apperror.ErrInvalidSnapshot)
	}
	if decoded.Version > Version {
		return 0, fmt.Errorf("%w: unsupported version %d", apperror.ErrInvalidSnapshot, decoded.Version)
	}

	users := make(map[string]*entity.UserRecord, len(*decoded.Users))
	for uid, rec := range *decoded.Users {
		if uid == "" {
			return 0, fmt.Errorf("%w: empty user id", apperror.ErrInvalidSnapshot)
		}
		if rec == nil {
			rec = entity.NewUserRecord()
		}
		// Older blobs may lack notified (or other newer fields); they
		// restore with defaults rather than failing.
		rec.Normalize()
		users[uid] = rec
	}

	if err := s.store.Replace(ctx, users, replaceAll); err != nil {
		return 0, err
	}
	return len(users), nil
}

// Name and Schedule make the snapshot service a scheduler job: one backup
// per day at the logical-day boundary.
func (s *snapshotService) Name() string { return "daily-snapshot" }

func (s *snapshotService) Schedule() string { return "0 6 * * *" }

func (s *snapshotService) Execute(ctx context.Context) error {
	result, err := s.Capture(ctx)
	if err != nil {
		return err
	}
	log.Printf("🧷 snapshot %s captured (%d users)", result.Filename, result.UserCount)
	return nil
}
