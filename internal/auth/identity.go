package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// DeviceIDKey is the storage key under which the device identifier is persisted.
const DeviceIDKey = "plex-client-id"

// KeyValueStore is the durable storage the auth package needs.
// storage.FileStore, storage.Memory and sqlite.Store satisfy it.
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	DeleteItem(ctx context.Context, key string) error
}

// DeviceIdentity returns the installation's device identifier, creating it on first use.
// The read-generate-write path is serialised so concurrent first logins in one process
// agree on a single identifier.
type DeviceIdentity struct {
	store  KeyValueStore
	random io.Reader

	mu     sync.Mutex
	cached DeviceID
}

// NewDeviceIdentity creates a DeviceIdentity backed by store.
// random is the byte source for new identifiers; nil means crypto/rand.
func NewDeviceIdentity(store KeyValueStore, random io.Reader) *DeviceIdentity {
	if random == nil {
		random = rand.Reader
	}
	return &DeviceIdentity{store: store, random: random}
}

// Get returns the persisted identifier. On first call against an empty store it generates
// a UUID-v4 and writes it. Storage errors are returned as-is; the caller decides they are fatal.
func (d *DeviceIdentity) Get(ctx context.Context) (DeviceID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != "" {
		return d.cached, nil
	}

	stored, ok, err := d.store.GetItem(ctx, DeviceIDKey)
	if err != nil {
		return "", fmt.Errorf("reading device id: %w", err)
	}
	if ok && stored != "" {
		d.cached = DeviceID(stored)
		return d.cached, nil
	}

	id, err := uuid.NewRandomFromReader(d.random)
	if err != nil {
		return "", fmt.Errorf("generating device id: %w", err)
	}
	if err := d.store.SetItem(ctx, DeviceIDKey, id.String()); err != nil {
		return "", fmt.Errorf("saving device id: %w", err)
	}
	log.WithField("device_id", id.String()).Info("created device identifier")

	d.cached = DeviceID(id.String())
	return d.cached, nil
}
