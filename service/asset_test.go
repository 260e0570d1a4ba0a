package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/infra/storage"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

func uploadInput(name, mime string, size int) UploadInput {
	return UploadInput{
		Content:  bytes.NewReader(make([]byte, size)),
		Size:     int64(size),
		Filename: name,
		MimeType: mime,
	}
}

func (f *fixture) seed(t *testing.T, owner entity.User, name string, shared bool) entity.Asset {
	t.Helper()
	asset, err := f.service.Upload(context.Background(), owner.Identity(), uploadInput(name, "image/png", 16))
	require.NoError(t, err)
	if shared {
		_, err = f.service.Share(context.Background(), owner.Identity(), asset.ID)
		require.NoError(t, err)
	}
	f.background.Wait()
	stored, err := f.assets.FindByID(context.Background(), asset.ID)
	require.NoError(t, err)
	return *stored
}

func TestAssetService_UploadPhoto(t *testing.T) {
	owner := newUser("uma", policy.RoleUser)
	f := newFixture(owner)

	asset, err := f.service.Upload(context.Background(), owner.Identity(), uploadInput("photo.jpg", "image/jpeg", 2048))
	require.NoError(t, err)
	f.background.Wait()

	assert.Equal(t, entity.AssetTypeImage, asset.AssetType)
	assert.False(t, asset.IsShared)
	assert.Nil(t, asset.SharedURL)
	assert.Equal(t, owner.ID, asset.OwnerID)
	assert.True(t, strings.HasPrefix(asset.StorageKey, owner.ID.String()+"/"))
	assert.True(t, f.assets.has(asset.ID))

	uploads := f.activity.byKind(entity.ActivityUpload)
	require.Len(t, uploads, 1)
	assert.Equal(t, owner.ID.String(), uploads[0].ActorID)
	require.NotNil(t, uploads[0].AssetID)
	assert.Equal(t, asset.ID.String(), *uploads[0].AssetID)

	events := f.notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, EventAssetUploaded, events[0].Event)
	assert.EqualValues(t, 2048, events[0].Data["size"])
	assert.Equal(t, "image", events[0].Data["asset_type"])
	assert.Equal(t, "photo.jpg", events[0].Data["filename"])
}

func TestAssetService_UploadKeysAreUnique(t *testing.T) {
	owner := newUser("uma", policy.RoleUser)
	f := newFixture(owner)

	keys := map[string]bool{}
	for i := 0; i < 20; i++ {
		asset, err := f.service.Upload(context.Background(), owner.Identity(), uploadInput("same.txt", "text/plain", 4))
		require.NoError(t, err)
		assert.False(t, keys[asset.StorageKey], "duplicate key %s", asset.StorageKey)
		keys[asset.StorageKey] = true
	}
	f.background.Wait()
	assert.Equal(t, 20, f.store.blobCount())
}

func TestAssetService_UploadRejections(t *testing.T) {
	owner := newUser("uma", policy.RoleUser)
	viewer := newUser("vic", policy.RoleViewer)
	stranger := newUser("ghost", policy.RoleUser)
	f := newFixture(owner, viewer)

	_, err := f.service.Upload(context.Background(), viewer.Identity(), uploadInput("a.png", "image/png", 1))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.Upload(context.Background(), owner.Identity(), UploadInput{Filename: "a.png"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Upload(context.Background(), owner.Identity(), uploadInput("  ", "image/png", 1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.Upload(context.Background(), stranger.Identity(), uploadInput("a.png", "image/png", 1))
	assert.ErrorIs(t, err, ErrNotFound)

	f.background.Wait()
	assert.Zero(t, f.store.blobCount())
}

func TestAssetService_UploadBlobFailure(t *testing.T) {
	owner := newUser("uma", policy.RoleUser)
	f := newFixture(owner)
	f.store.uploadErr = errors.New("bucket unreachable")

	_, err := f.service.Upload(context.Background(), owner.Identity(), uploadInput("a.png", "image/png", 8))
	require.ErrorIs(t, err, ErrStorageFailure)
	assert.NotContains(t, err.Error(), "bucket unreachable")
	f.background.Wait()

	rows, _ := f.assets.List(context.Background(), repository.AssetFilter{})
	assert.Empty(t, rows)
	failures := f.activity.byKind(entity.ActivityFailedUpload)
	require.Len(t, failures, 1)
	require.NotNil(t, failures[0].Error)
	assert.Contains(t, *failures[0].Error, "bucket unreachable")
	assert.Empty(t, f.notifier.sent())
}

func TestAssetService_UploadCompensatesOnMetadataFailure(t *testing.T) {
	owner := newUser("uma", policy.RoleUser)
	f := newFixture(owner)
	f.assets.createErr = errors.New("connection reset")

	_, err := f.service.Upload(context.Background(), owner.Identity(), uploadInput("a.png", "image/png", 8))
	require.ErrorIs(t, err, ErrStorageFailure)

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "persist metadata", storageErr.Op)

	f.background.Wait()
	assert.Zero(t, f.store.blobCount())
	assert.Len(t, f.activity.byKind(entity.ActivityFailedUpload), 1)
}

func TestAssetService_ViewerListsOnlyShared(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	viewer := newUser("vic", policy.RoleViewer)
	f := newFixture(alice, bob, viewer)

	sharedA := f.seed(t, alice, "a.png", true)
	f.seed(t, alice, "private.png", false)
	sharedB := f.seed(t, bob, "b.png", true)

	for _, scope := range []string{"", "own", "shared"} {
		assets, err := f.service.List(context.Background(), viewer.Identity(), ListQuery{Scope: scope})
		require.NoError(t, err)
		require.Len(t, assets, 2)
		assert.Equal(t, sharedB.ID, assets[0].ID)
		assert.Equal(t, sharedA.ID, assets[1].ID)
	}

	_, err := f.service.List(context.Background(), viewer.Identity(), ListQuery{Scope: "all"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAssetService_ListScopesAndFilters(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	admin := newUser("root", policy.RoleAdmin)
	f := newFixture(alice, bob, admin)

	f.seed(t, alice, "a.png", false)
	_, err := f.service.Upload(context.Background(), alice.Identity(), uploadInput("a.pdf", "application/pdf", 4))
	require.NoError(t, err)
	f.seed(t, bob, "b.png", true)
	f.background.Wait()

	own, err := f.service.List(context.Background(), alice.Identity(), ListQuery{})
	require.NoError(t, err)
	assert.Len(t, own, 2)

	docs, err := f.service.List(context.Background(), alice.Identity(), ListQuery{AssetType: "Document"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.pdf", docs[0].Filename)

	shared, err := f.service.List(context.Background(), alice.Identity(), ListQuery{Scope: "shared"})
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, bob.ID, shared[0].OwnerID)

	_, err = f.service.List(context.Background(), alice.Identity(), ListQuery{Scope: "all"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.service.List(context.Background(), alice.Identity(), ListQuery{Scope: "everything"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.List(context.Background(), alice.Identity(), ListQuery{AssetType: "spreadsheet"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	adminOwn, err := f.service.List(context.Background(), admin.Identity(), ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, adminOwn)

	all, err := f.service.List(context.Background(), admin.Identity(), ListQuery{Scope: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAssetService_GetDistinguishesNotFoundAndForbidden(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	admin := newUser("root", policy.RoleAdmin)
	f := newFixture(alice, bob, admin)
	private := f.seed(t, alice, "a.png", false)

	_, err := f.service.Get(context.Background(), bob.Identity(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Get(context.Background(), bob.Identity(), private.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.service.Get(context.Background(), admin.Identity(), private.ID)
	require.NoError(t, err)
	assert.Equal(t, private.ID, got.ID)

	got, err = f.service.Get(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.png", got.Filename)
}

func TestAssetService_IssueURLs(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	viewer := newUser("vic", policy.RoleViewer)
	f := newFixture(alice, viewer)
	private := f.seed(t, alice, "report.png", false)

	download, err := f.service.IssueDownloadURL(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, download.URL)
	assert.Equal(t, "report.png", f.store.lastSign().DownloadName)
	assert.Equal(t, private.StorageKey, f.store.lastSign().Key)
	f.background.Wait()

	view, err := f.service.IssueViewURL(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, view.URL)
	assert.Empty(t, f.store.lastSign().DownloadName)
	assert.False(t, view.ExpiresAt.IsZero())

	_, err = f.service.IssueViewURL(context.Background(), viewer.Identity(), private.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	f.background.Wait()
	views := f.activity.byKind(entity.ActivityView)
	require.Len(t, views, 2)
	assert.Equal(t, "download", views[0].Metadata["mode"])
	assert.Equal(t, "view", views[1].Metadata["mode"])

	_, err = f.service.Share(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)
	_, err = f.service.IssueViewURL(context.Background(), viewer.Identity(), private.ID)
	assert.NoError(t, err)
	f.background.Wait()
}

func TestAssetService_UpdateMetadataPartial(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	admin := newUser("root", policy.RoleAdmin)
	f := newFixture(alice, admin)

	asset, err := f.service.Upload(context.Background(), alice.Identity(), UploadInput{
		Content:     strings.NewReader("hello"),
		Size:        5,
		Filename:    "notes.txt",
		MimeType:    "text/plain",
		Tags:        "draft",
		Description: "first pass",
	})
	require.NoError(t, err)

	tags := "final, q3"
	updated, err := f.service.UpdateMetadata(context.Background(), alice.Identity(), asset.ID, MetadataPatch{Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "final, q3", updated.Tags)
	assert.Equal(t, "first pass", updated.Description)

	stored, err := f.assets.FindByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "final, q3", stored.Tags)
	assert.Equal(t, "first pass", stored.Description)

	unchanged, err := f.service.UpdateMetadata(context.Background(), alice.Identity(), asset.ID, MetadataPatch{})
	require.NoError(t, err)
	assert.Equal(t, "final, q3", unchanged.Tags)

	description := "hijack"
	_, err = f.service.UpdateMetadata(context.Background(), admin.Identity(), asset.ID, MetadataPatch{Description: &description})
	assert.ErrorIs(t, err, ErrForbidden)

	f.background.Wait()
	assert.Len(t, f.activity.byKind(entity.ActivityUpdate), 1)
}

func TestAssetService_ShareAndPublicFetch(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	admin := newUser("root", policy.RoleAdmin)
	f := newFixture(alice, bob, admin)
	asset := f.seed(t, alice, "poster.png", false)

	_, err := f.service.GetShared(context.Background(), asset.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.service.Share(context.Background(), admin.Identity(), asset.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.service.Share(context.Background(), bob.Identity(), asset.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	shared, err := f.service.Share(context.Background(), alice.Identity(), asset.ID)
	require.NoError(t, err)
	assert.True(t, shared.IsShared)
	require.NotNil(t, shared.SharedURL)

	access, err := f.service.GetShared(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, access.Asset.ID)
	assert.Equal(t, "poster.png", f.store.lastSign().DownloadName)

	got, err := f.service.Get(context.Background(), bob.Identity(), asset.ID)
	require.NoError(t, err)
	assert.True(t, got.IsShared)

	listed, err := f.service.List(context.Background(), bob.Identity(), ListQuery{Scope: "shared"})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	again, err := f.service.Share(context.Background(), alice.Identity(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, *shared.SharedURL, *again.SharedURL)

	_, err = f.service.GetShared(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	f.background.Wait()
	assert.Len(t, f.activity.byKind(entity.ActivityShare), 2)
	var sharedEvents int
	for _, e := range f.notifier.sent() {
		if e.Event == EventAssetShared {
			sharedEvents++
		}
	}
	assert.Equal(t, 2, sharedEvents)
}

func TestAssetService_ShareFailureLeavesAssetPrivate(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	f := newFixture(alice)
	asset := f.seed(t, alice, "poster.png", false)
	f.store.publishErr = errors.New("acl denied")

	_, err := f.service.Share(context.Background(), alice.Identity(), asset.ID)
	require.ErrorIs(t, err, ErrStorageFailure)

	stored, err := f.assets.FindByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsShared)
	f.background.Wait()
	assert.Len(t, f.activity.byKind(entity.ActivityFailedShare), 1)
}

func TestAssetService_DeleteAuthorization(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	admin := newUser("root", policy.RoleAdmin)
	f := newFixture(alice, bob, admin)
	asset := f.seed(t, alice, "a.png", false)

	err := f.service.Delete(context.Background(), bob.Identity(), asset.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.True(t, f.assets.has(asset.ID))

	require.NoError(t, f.service.Delete(context.Background(), admin.Identity(), asset.ID))
	assert.False(t, f.assets.has(asset.ID))
	assert.Zero(t, f.store.blobCount())

	err = f.service.Delete(context.Background(), admin.Identity(), asset.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	f.background.Wait()
	deletes := f.activity.byKind(entity.ActivityDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, admin.ID.String(), deletes[0].ActorID)

	var deleted []sentEvent
	for _, e := range f.notifier.sent() {
		if e.Event == EventAssetDeleted {
			deleted = append(deleted, e)
		}
	}
	require.Len(t, deleted, 1)
	assert.Equal(t, asset.ID.String(), deleted[0].Data["id"])
}

func TestAssetService_DeleteKeepsMetadataWhenBlobDeleteFails(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	f := newFixture(alice)
	asset := f.seed(t, alice, "y.png", false)
	f.store.deleteErr[asset.StorageKey] = errors.New("store timeout")

	err := f.service.Delete(context.Background(), alice.Identity(), asset.ID)
	require.ErrorIs(t, err, ErrStorageFailure)

	stored, err := f.assets.FindByID(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset, *stored)

	f.background.Wait()
	assert.Len(t, f.activity.byKind(entity.ActivityFailedDelete), 1)
	assert.Empty(t, f.activity.byKind(entity.ActivityDelete))
	for _, e := range f.notifier.sent() {
		assert.NotEqual(t, EventAssetDeleted, e.Event)
	}
}

func TestAssetService_PurgeOwnerAssetsSkipsFailures(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	bob := newUser("bob", policy.RoleUser)
	f := newFixture(alice, bob)
	stuck := f.seed(t, alice, "stuck.png", false)
	f.seed(t, alice, "one.png", true)
	f.seed(t, alice, "two.png", false)
	other := f.seed(t, bob, "keep.png", false)
	f.store.deleteErr[stuck.StorageKey] = errors.New("locked")

	report, err := f.service.PurgeOwnerAssets(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, PurgeReport{Deleted: 2, Failed: 1}, report)

	assert.True(t, f.assets.has(stuck.ID))
	assert.True(t, f.assets.has(other.ID))
	remaining, err := f.assets.FindByOwner(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
	f.background.Wait()
}

func TestAssetService_ActivityFailureDoesNotFailOperation(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	f := newFixture(alice)
	f.activity.insertErr = errors.New("activity store down")
	f.notifier.err = errors.New("sink down")

	asset, err := f.service.Upload(context.Background(), alice.Identity(), uploadInput("a.png", "image/png", 4))
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(context.Background(), alice.Identity(), asset.ID))
	f.background.Wait()
}

type mapURLCache struct {
	mu     sync.Mutex
	values map[string]string
}

func (m *mapURLCache) GetString(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapURLCache) SetString(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mapURLCache) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if strings.HasPrefix(k, prefix) {
			delete(m.values, k)
		}
	}
	return nil
}

func TestAssetService_CachedURLKeepsSignedExpiry(t *testing.T) {
	alice := newUser("alice", policy.RoleUser)
	f := newFixture(alice)
	private := f.seed(t, alice, "report.pdf", false)

	signedAt := time.Now()
	f.store.clock = func() time.Time { return signedAt }
	cached := NewAssetService(AssetServiceDeps{
		Assets:       f.assets,
		Principals:   f.principals,
		Store:        storage.NewCachedStore(f.store, &mapURLCache{values: map[string]string{}}),
		Activity:     NewActivityRecorder(f.activity, nopLogger{}),
		Background:   f.background,
		Logger:       nopLogger{},
		SignedURLTTL: 30 * time.Minute,
	})

	first, err := cached.IssueDownloadURL(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)

	// a later signing would carry a later expiry; the cached URL must not
	f.store.clock = func() time.Time { return signedAt.Add(5 * time.Minute) }
	second, err := cached.IssueDownloadURL(context.Background(), alice.Identity(), private.ID)
	require.NoError(t, err)

	assert.Equal(t, first.URL, second.URL)
	assert.True(t, first.ExpiresAt.Equal(second.ExpiresAt), "%s != %s", first.ExpiresAt, second.ExpiresAt)
	assert.Equal(t, signedAt.Add(30*time.Minute).Unix(), second.ExpiresAt.Unix())
	assert.Equal(t, 1, f.store.signCount())
	f.background.Wait()
}
