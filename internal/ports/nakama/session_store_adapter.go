package nakama

import (
	"context"
	"fmt"

	"turnkeeper/internal/domain"
	"turnkeeper/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

const sessionCollection = "turnkeeper_sessions"

// storageModule is the slice of runtime.NakamaModule the store needs.
type storageModule interface {
	StorageRead(ctx context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error)
	StorageWrite(ctx context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error)
	StorageDelete(ctx context.Context, deletes []*runtime.StorageDelete) error
}

// NakamaSessionStore keeps snapshots as system-owned storage objects.
type NakamaSessionStore struct {
	nk storageModule
}

func NewNakamaSessionStore(nk storageModule) *NakamaSessionStore {
	return &NakamaSessionStore{nk: nk}
}

func (s *NakamaSessionStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	value, err := domain.MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	_, err = s.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      sessionCollection,
			Key:             snap.SessionID,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", snap.SessionID, err)
	}
	return nil
}

func (s *NakamaSessionStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	objects, err := s.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: sessionCollection, Key: sessionID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	if len(objects) == 0 {
		return nil, ports.ErrSessionNotFound
	}
	return domain.UnmarshalSnapshot([]byte(objects[0].GetValue()))
}

func (s *NakamaSessionStore) Delete(ctx context.Context, sessionID string) error {
	err := s.nk.StorageDelete(ctx, []*runtime.StorageDelete{
		{Collection: sessionCollection, Key: sessionID},
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

var _ ports.SessionStore = (*NakamaSessionStore)(nil)
