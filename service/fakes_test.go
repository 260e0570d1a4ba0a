package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/infra/storage"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

type nopLogger struct{}

func (nopLogger) InfoWithContextf(context.Context, string, ...interface{}) {}
func (nopLogger) WarningWithContextf(context.Context, string, ...interface{}) {}
func (nopLogger) ErrorWithContextf(context.Context, error, string, ...interface{}) {}

type recordingLogger struct {
	nopLogger
	mu       sync.Mutex
	warnings []string
}

func (l *recordingLogger) WarningWithContextf(_ context.Context, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) recorded() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warnings...)
}

type memAssetStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]entity.Asset
	createErr error
	deleteErr error
	clock     time.Time
}

func newMemAssetStore() *memAssetStore {
	return &memAssetStore{rows: map[uuid.UUID]entity.Asset{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memAssetStore) Create(_ context.Context, asset *entity.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.clock = m.clock.Add(time.Second)
	asset.CreatedAt = m.clock
	asset.UpdatedAt = m.clock
	m.rows[asset.ID] = *asset
	return nil
}

func (m *memAssetStore) put(asset entity.Asset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	asset.CreatedAt = m.clock
	m.rows[asset.ID] = asset
}

func (m *memAssetStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memAssetStore) List(_ context.Context, filter repository.AssetFilter) ([]entity.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Asset
	for _, row := range m.rows {
		if filter.OwnerID != nil && row.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.SharedOnly && !row.IsShared {
			continue
		}
		if filter.AssetType != "" && row.AssetType != filter.AssetType {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memAssetStore) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Asset, error) {
	return m.List(ctx, repository.AssetFilter{OwnerID: &ownerID})
}

func (m *memAssetStore) UpdateMetadata(_ context.Context, id uuid.UUID, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v, ok := updates["tags"].(string); ok {
		row.Tags = v
	}
	if v, ok := updates["description"].(string); ok {
		row.Description = v
	}
	m.rows[id] = row
	return nil
}

func (m *memAssetStore) MarkShared(_ context.Context, id uuid.UUID, sharedURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	row.IsShared = true
	row.SharedURL = &sharedURL
	m.rows[id] = row
	return nil
}

func (m *memAssetStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memAssetStore) has(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

type memObjectStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	public     map[string]bool
	uploadErr  error
	deleteErr  map[string]error
	publishErr error
	signed     []signCall
	clock      func() time.Time
}

type signCall struct {
	Key          string
	TTL          time.Duration
	DownloadName string
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{
		blobs:     map[string][]byte{},
		public:    map[string]bool{},
		deleteErr: map[string]error{},
		clock:     time.Now,
	}
}

func (m *memObjectStore) Upload(_ context.Context, content io.Reader, _ int64, ownerID, originalName, _ string) (*storage.UploadResult, error) {
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	key := storage.BuildObjectKey(ownerID, originalName)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[key]; exists {
		return nil, storage.ErrKeyExists
	}
	m.blobs[key] = data
	return &storage.UploadResult{Key: key, Location: "mem://" + key, StoreID: fmt.Sprintf("%d", len(data))}, nil
}

func (m *memObjectStore) SignedURL(_ context.Context, key string, ttl time.Duration, downloadName string) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signed = append(m.signed, signCall{Key: key, TTL: ttl, DownloadName: downloadName})
	expiresAt := m.clock().Add(ttl)
	return fmt.Sprintf("https://signed.example/%s?download=%s&expires=%d", key, downloadName, expiresAt.Unix()), expiresAt, nil
}

func (m *memObjectStore) MakePublic(_ context.Context, key string) (string, error) {
	if m.publishErr != nil {
		return "", m.publishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.public[key] = true
	return "https://public.example/" + key, nil
}

func (m *memObjectStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.blobs, key)
	return nil
}

func (m *memObjectStore) Name() string { return "memory" }

func (m *memObjectStore) blobCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func (m *memObjectStore) signCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.signed)
}

func (m *memObjectStore) lastSign() signCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signed[len(m.signed)-1]
}

type memPrincipals struct {
	mu        sync.Mutex
	users     map[uuid.UUID]entity.User
	createErr error
}

func newMemPrincipals(users ...entity.User) *memPrincipals {
	m := &memPrincipals{users: map[uuid.UUID]entity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memPrincipals) Create(_ context.Context, user *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.users[user.ID]; ok {
		return errors.New("duplicate key")
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memPrincipals) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *memPrincipals) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *memPrincipals) List(_ context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memPrincipals) UpdateRole(_ context.Context, id uuid.UUID, role policy.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memPrincipals) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type memActivity struct {
	mu        sync.Mutex
	entries   []entity.ActivityLog
	insertErr error
}

func (m *memActivity) Insert(_ context.Context, entry *entity.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memActivity) ListByActor(_ context.Context, actorID string, limit int) ([]entity.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ActivityLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].ActorID == actorID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memActivity) ListRecent(_ context.Context, limit int) ([]entity.ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ActivityLog
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memActivity) CountByKind(_ context.Context) ([]entity.ActivityKindCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[entity.ActivityKind]int64{}
	for _, e := range m.entries {
		counts[e.Kind]++
	}
	var out []entity.ActivityKindCount
	for kind, n := range counts {
		out = append(out, entity.ActivityKindCount{Kind: kind, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (m *memActivity) DeleteByActor(_ context.Context, actorID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var removed int64
	for _, e := range m.entries {
		if e.ActorID == actorID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

func (m *memActivity) kinds() []entity.ActivityKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.ActivityKind, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Kind)
	}
	return out
}

func (m *memActivity) byKind(kind entity.ActivityKind) []entity.ActivityLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.ActivityLog
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type sentEvent struct {
	Event string
	Data  map[string]interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sentEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event string, data map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, sentEvent{Event: event, Data: data})
	return r.err
}

func (r *recordingNotifier) sent() []sentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentEvent(nil), r.events...)
}

type fixture struct {
	assets     *memAssetStore
	store      *memObjectStore
	principals *memPrincipals
	activity   *memActivity
	notifier   *recordingNotifier
	background *BackgroundRunner
	service    *AssetService
}

func newFixture(users ...entity.User) *fixture {
	f := &fixture{
		assets:     newMemAssetStore(),
		store:      newMemObjectStore(),
		principals: newMemPrincipals(users...),
		activity:   &memActivity{},
		notifier:   &recordingNotifier{},
		background: NewBackgroundRunner(nopLogger{}),
	}
	f.service = NewAssetService(AssetServiceDeps{
		Assets:       f.assets,
		Principals:   f.principals,
		Store:        f.store,
		Activity:     NewActivityRecorder(f.activity, nopLogger{}),
		Notifier:     f.notifier,
		Background:   f.background,
		Logger:       nopLogger{},
		SignedURLTTL: 15 * time.Minute,
	})
	return f
}

func newUser(name string, role policy.Role) entity.User {
	return entity.User{ID: uuid.New(), DisplayName: name, Role: role}
}
