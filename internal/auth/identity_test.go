package auth_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/seerrdeck/internal/auth"
	"github.com/waabox/seerrdeck/internal/storage"
)

func TestDeviceIdentity_Get_CreatesValidUUIDv4AndPersistsIt(t *testing.T) {
	store := storage.NewMemory()
	identity := auth.NewDeviceIdentity(store, nil)

	id, err := identity.Get(context.Background())
	require.NoError(t, err)

	parsed, err := uuid.Parse(string(id))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
	assert.Equal(t, uuid.RFC4122, parsed.Variant())

	stored, ok, err := store.GetItem(context.Background(), auth.DeviceIDKey)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, string(id), stored)
}

func TestDeviceIdentity_Get_ReturnsSameValueTwice(t *testing.T) {
	store := storage.NewMemory()

	first, err := auth.NewDeviceIdentity(store, nil).Get(context.Background())
	require.NoError(t, err)
	// A fresh instance over the same storage, as after an app restart.
	second, err := auth.NewDeviceIdentity(store, nil).Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDeviceIdentity_Get_UsesInjectedRandomSource(t *testing.T) {
	random := bytes.NewReader(bytes.Repeat([]byte{0x01}, 16))
	id, err := auth.NewDeviceIdentity(storage.NewMemory(), random).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.DeviceID("01010101-0101-4101-8101-010101010101"), id)
}

func TestDeviceIdentity_Get_ReadsExistingValueWithoutWriting(t *testing.T) {
	rec := &recorder{}
	mem := storage.NewMemory()
	require.NoError(t, mem.SetItem(context.Background(), auth.DeviceIDKey, "d1"))

	id, err := auth.NewDeviceIdentity(&recordingStore{inner: mem, rec: rec}, nil).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth.DeviceID("d1"), id)
	assert.Equal(t, []string{"storage.get"}, rec.list())
}

func TestDeviceIdentity_Get_StorageFailureIsReturned(t *testing.T) {
	_, err := auth.NewDeviceIdentity(brokenStore{}, nil).Get(context.Background())
	assert.ErrorIs(t, err, errStorageDown)
}

func TestDeviceIdentity_Get_ConcurrentFirstCallsAgree(t *testing.T) {
	identity := auth.NewDeviceIdentity(storage.NewMemory(), nil)

	const n = 16
	ids := make([]auth.DeviceID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := identity.Get(context.Background())
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
