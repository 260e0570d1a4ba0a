package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tnqbao/gau-asset-service/entity"
	"github.com/tnqbao/gau-asset-service/infra/storage"
	"github.com/tnqbao/gau-asset-service/policy"
	"github.com/tnqbao/gau-asset-service/repository"
)

const defaultMimeType = "application/octet-stream"

// AssetStore is the metadata store the orchestrator needs.
type AssetStore interface {
	Create(ctx context.Context, asset *entity.Asset) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Asset, error)
	List(ctx context.Context, filter repository.AssetFilter) ([]entity.Asset, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]entity.Asset, error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	MarkShared(ctx context.Context, id uuid.UUID, sharedURL string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PrincipalLookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type UploadInput struct {
	Content     io.Reader
	Size        int64
	Filename    string
	MimeType    string
	Tags        string
	Description string
}

type ListQuery struct {
	Scope     string
	AssetType string
}

// MetadataPatch carries only the fields the caller supplied.
type MetadataPatch struct {
	Tags        *string
	Description *string
}

func (p MetadataPatch) Empty() bool {
	return p.Tags == nil && p.Description == nil
}

type SignedAccess struct {
	Asset     *entity.Asset `json:"asset"`
	URL       string        `json:"url"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type PurgeReport struct {
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

type AssetService struct {
	assets       AssetStore
	principals   PrincipalLookup
	store        storage.ObjectStore
	activity     *ActivityRecorder
	notifier     Notifier
	background   *BackgroundRunner
	logger       Logger
	signedURLTTL time.Duration
	tracer       trace.Tracer
	now          func() time.Time
}

type AssetServiceDeps struct {
	Assets       AssetStore
	Principals   PrincipalLookup
	Store        storage.ObjectStore
	Activity     *ActivityRecorder
	Notifier     Notifier
	Background   *BackgroundRunner
	Logger       Logger
	SignedURLTTL time.Duration
}

func NewAssetService(deps AssetServiceDeps) *AssetService {
	ttl := deps.SignedURLTTL
	if ttl <= 0 {
		ttl = storage.DefaultSignedURLTTL
	}
	return &AssetService{
		assets:       deps.Assets,
		principals:   deps.Principals,
		store:        deps.Store,
		activity:     deps.Activity,
		notifier:     deps.Notifier,
		background:   deps.Background,
		logger:       deps.Logger,
		signedURLTTL: ttl,
		tracer:       otel.Tracer("github.com/tnqbao/gau-asset-service/service"),
		now:          time.Now,
	}
}

func (s *AssetService) startSpan(ctx context.Context, name string, actor policy.Identity) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "AssetService."+name, trace.WithAttributes(
		attribute.String("actor.id", actor.UserID.String()),
		attribute.String("actor.role", string(actor.Role)),
	))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *AssetService) Upload(ctx context.Context, actor policy.Identity, in UploadInput) (asset *entity.Asset, err error) {
	ctx, span := s.startSpan(ctx, "Upload", actor)
	defer func() { finishSpan(span, err) }()

	if !policy.CanPerform(actor.Role, policy.OpUpload, policy.Ownership{}).Allowed() {
		return nil, ErrForbidden
	}
	if in.Content == nil {
		return nil, invalidInput("file content is required")
	}
	if in.Size < 0 {
		return nil, invalidInput("file size must not be negative")
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, invalidInput("filename is required")
	}
	mimeType := strings.TrimSpace(in.MimeType)
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	exists, err := s.principals.Exists(ctx, actor.UserID)
	if err != nil {
		return nil, storageFailure("load owner", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	started := s.now()
	result, err := s.store.Upload(ctx, in.Content, in.Size, actor.UserID.String(), filename, mimeType)
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Blob upload failed for %s via %s: %v", filename, s.store.Name(), err)
		s.recordFailure(ctx, entity.ActivityFailedUpload, actor, "", filename, err)
		return nil, storageFailure("upload", err)
	}

	asset = &entity.Asset{
		ID:          uuid.New(),
		Filename:    filename,
		StorageKey:  result.Key,
		Location:    result.Location,
		StoreID:     result.StoreID,
		Size:        in.Size,
		MimeType:    mimeType,
		AssetType:   storage.Classify(mimeType),
		Tags:        strings.TrimSpace(in.Tags),
		Description: strings.TrimSpace(in.Description),
		OwnerID:     actor.UserID,
		IsShared:    false,
	}
	if err = s.assets.Create(ctx, asset); err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Metadata persist failed for key %s, removing blob: %v", result.Key, err)
		if delErr := s.store.Delete(context.WithoutCancel(ctx), result.Key); delErr != nil {
			s.logger.ErrorWithContextf(ctx, delErr, "[Asset] Compensating delete failed, orphaned blob %s: %v", result.Key, delErr)
		}
		s.recordFailure(ctx, entity.ActivityFailedUpload, actor, "", filename, err)
		return nil, storageFailure("persist metadata", err)
	}

	took := s.now().Sub(started)
	uploaded := *asset
	s.background.Go(ctx, "activity.upload", func(ctx context.Context) error {
		s.activity.RecordUpload(ctx, actor, &uploaded, took)
		return nil
	})
	s.notify(ctx, EventAssetUploaded, map[string]interface{}{
		"id":         asset.ID.String(),
		"filename":   asset.Filename,
		"owner_id":   asset.OwnerID.String(),
		"size":       asset.Size,
		"asset_type": string(asset.AssetType),
	})

	s.logger.InfoWithContextf(ctx, "[Asset] Uploaded %s (%d bytes) as %s", asset.Filename, asset.Size, asset.ID)
	return asset, nil
}

func (s *AssetService) List(ctx context.Context, actor policy.Identity, q ListQuery) (assets []entity.Asset, err error) {
	ctx, span := s.startSpan(ctx, "List", actor)
	defer func() { finishSpan(span, err) }()

	if !policy.CanPerform(actor.Role, policy.OpList, policy.Ownership{}).Allowed() {
		return nil, ErrForbidden
	}

	requested, ok := policy.ParseListScope(q.Scope)
	if !ok {
		return nil, invalidInput("unknown list scope %q", q.Scope)
	}
	scope, ok := policy.ListScopeFor(actor.Role, requested)
	if !ok {
		return nil, ErrForbidden
	}

	filter := repository.AssetFilter{}
	switch scope {
	case policy.ScopeOwn:
		owner := actor.UserID
		filter.OwnerID = &owner
	case policy.ScopeShared:
		filter.SharedOnly = true
	}
	if q.AssetType != "" {
		assetType := entity.AssetType(strings.ToLower(strings.TrimSpace(q.AssetType)))
		if !assetType.Valid() {
			return nil, invalidInput("unknown asset type %q", q.AssetType)
		}
		filter.AssetType = assetType
	}
	span.SetAttributes(attribute.String("list.scope", string(scope)))

	assets, err = s.assets.List(ctx, filter)
	if err != nil {
		return nil, storageFailure("list metadata", err)
	}
	return assets, nil
}

// load fetches an asset and checks op against the caller's relation to it.
// A missing row is always ErrNotFound, a denied op is ErrForbidden.
func (s *AssetService) load(ctx context.Context, actor policy.Identity, id uuid.UUID, op policy.Operation) (*entity.Asset, error) {
	asset, err := s.assets.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageFailure("load metadata", err)
	}
	ownership := policy.Ownership{IsOwner: asset.OwnerID == actor.UserID, IsShared: asset.IsShared}
	if !policy.CanPerform(actor.Role, op, ownership).Allowed() {
		return nil, ErrForbidden
	}
	return asset, nil
}

func (s *AssetService) Get(ctx context.Context, actor policy.Identity, id uuid.UUID) (asset *entity.Asset, err error) {
	ctx, span := s.startSpan(ctx, "Get", actor)
	defer func() { finishSpan(span, err) }()

	return s.load(ctx, actor, id, policy.OpView)
}

func (s *AssetService) IssueDownloadURL(ctx context.Context, actor policy.Identity, id uuid.UUID) (*SignedAccess, error) {
	return s.issueURL(ctx, actor, id, true)
}

func (s *AssetService) IssueViewURL(ctx context.Context, actor policy.Identity, id uuid.UUID) (*SignedAccess, error) {
	return s.issueURL(ctx, actor, id, false)
}

func (s *AssetService) issueURL(ctx context.Context, actor policy.Identity, id uuid.UUID, download bool) (access *SignedAccess, err error) {
	mode := "view"
	if download {
		mode = "download"
	}
	ctx, span := s.startSpan(ctx, "IssueURL", actor)
	span.SetAttributes(attribute.String("url.mode", mode))
	defer func() { finishSpan(span, err) }()

	asset, err := s.load(ctx, actor, id, policy.OpIssueURL)
	if err != nil {
		return nil, err
	}

	access, err = s.sign(ctx, asset, download)
	if err != nil {
		return nil, err
	}

	s.background.Go(ctx, "activity.view", func(ctx context.Context) error {
		s.activity.RecordView(ctx, actor, asset, mode)
		return nil
	})
	return access, nil
}

func (s *AssetService) sign(ctx context.Context, asset *entity.Asset, download bool) (*SignedAccess, error) {
	downloadName := ""
	if download {
		downloadName = asset.Filename
	}
	url, expiresAt, err := s.store.SignedURL(ctx, asset.StorageKey, s.signedURLTTL, downloadName)
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Failed to sign URL for %s: %v", asset.ID, err)
		return nil, storageFailure("sign url", err)
	}
	return &SignedAccess{Asset: asset, URL: url, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *AssetService) UpdateMetadata(ctx context.Context, actor policy.Identity, id uuid.UUID, patch MetadataPatch) (asset *entity.Asset, err error) {
	ctx, span := s.startSpan(ctx, "UpdateMetadata", actor)
	defer func() { finishSpan(span, err) }()

	asset, err = s.load(ctx, actor, id, policy.OpUpdateMetadata)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return asset, nil
	}

	updates := map[string]interface{}{}
	if patch.Tags != nil {
		updates["tags"] = strings.TrimSpace(*patch.Tags)
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if err = s.assets.UpdateMetadata(ctx, id, updates); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFailure("update metadata", err)
	}
	if tags, ok := updates["tags"].(string); ok {
		asset.Tags = tags
	}
	if description, ok := updates["description"].(string); ok {
		asset.Description = description
	}
	asset.UpdatedAt = s.now().UTC()

	updated := *asset
	s.background.Go(ctx, "activity.update", func(ctx context.Context) error {
		s.activity.Record(ctx, entity.ActivityUpdate, actor.UserID.String(), actor.DisplayName, ActivityDetails{
			AssetID:       updated.ID.String(),
			AssetFilename: updated.Filename,
			Metadata:      updates,
		})
		return nil
	})
	return asset, nil
}

// Delete removes the blob first and the metadata row second. A failed blob
// removal leaves the row untouched.
func (s *AssetService) Delete(ctx context.Context, actor policy.Identity, id uuid.UUID) (err error) {
	ctx, span := s.startSpan(ctx, "Delete", actor)
	defer func() { finishSpan(span, err) }()

	asset, err := s.load(ctx, actor, id, policy.OpDelete)
	if err != nil {
		return err
	}

	if err = s.store.Delete(ctx, asset.StorageKey); err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Blob delete failed for %s, metadata kept: %v", asset.ID, err)
		s.recordFailure(ctx, entity.ActivityFailedDelete, actor, asset.ID.String(), asset.Filename, err)
		return storageFailure("delete blob", err)
	}

	if err = s.assets.Delete(ctx, asset.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Metadata delete failed for %s after blob removal: %v", asset.ID, err)
		s.recordFailure(ctx, entity.ActivityFailedDelete, actor, asset.ID.String(), asset.Filename, err)
		return storageFailure("delete metadata", err)
	}

	s.background.Go(ctx, "activity.delete", func(ctx context.Context) error {
		s.activity.RecordDelete(ctx, actor, asset)
		return nil
	})
	s.notify(ctx, EventAssetDeleted, map[string]interface{}{
		"id":       asset.ID.String(),
		"filename": asset.Filename,
		"owner_id": asset.OwnerID.String(),
	})
	return nil
}

// Share publishes the blob and stores its permanent URL. Sharing an already
// shared asset republishes it and overwrites the stored URL.
func (s *AssetService) Share(ctx context.Context, actor policy.Identity, id uuid.UUID) (asset *entity.Asset, err error) {
	ctx, span := s.startSpan(ctx, "Share", actor)
	defer func() { finishSpan(span, err) }()

	asset, err = s.load(ctx, actor, id, policy.OpShare)
	if err != nil {
		return nil, err
	}

	publicURL, err := s.store.MakePublic(ctx, asset.StorageKey)
	if err != nil {
		s.logger.ErrorWithContextf(ctx, err, "[Asset] Failed to publish %s: %v", asset.ID, err)
		s.recordFailure(ctx, entity.ActivityFailedShare, actor, asset.ID.String(), asset.Filename, err)
		return nil, storageFailure("publish blob", err)
	}
	if err = s.assets.MarkShared(ctx, asset.ID, publicURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.recordFailure(ctx, entity.ActivityFailedShare, actor, asset.ID.String(), asset.Filename, err)
		return nil, storageFailure("persist share", err)
	}
	asset.IsShared = true
	asset.SharedURL = &publicURL
	asset.UpdatedAt = s.now().UTC()

	shared := *asset
	s.background.Go(ctx, "activity.share", func(ctx context.Context) error {
		s.activity.RecordShare(ctx, actor, &shared)
		return nil
	})
	s.notify(ctx, EventAssetShared, map[string]interface{}{
		"id":         asset.ID.String(),
		"filename":   asset.Filename,
		"owner_id":   asset.OwnerID.String(),
		"shared_url": publicURL,
	})
	return asset, nil
}

// GetShared serves the unauthenticated path. Unshared and missing assets are
// indistinguishable to the caller.
func (s *AssetService) GetShared(ctx context.Context, id uuid.UUID) (access *SignedAccess, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.GetShared")
	defer func() { finishSpan(span, err) }()

	asset, err := s.assets.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageFailure("load metadata", err)
	}
	if !asset.IsShared {
		return nil, ErrNotFound
	}
	return s.sign(ctx, asset, true)
}

// PurgeOwnerAssets deletes every asset of an owner that is being removed.
// Individual failures are logged and skipped.
func (s *AssetService) PurgeOwnerAssets(ctx context.Context, ownerID uuid.UUID) (report PurgeReport, err error) {
	ctx, span := s.tracer.Start(ctx, "AssetService.PurgeOwnerAssets", trace.WithAttributes(
		attribute.String("owner.id", ownerID.String()),
	))
	defer func() { finishSpan(span, err) }()

	assets, err := s.assets.FindByOwner(ctx, ownerID)
	if err != nil {
		return report, storageFailure("list owner assets", err)
	}

	for i := range assets {
		asset := assets[i]
		if err := s.store.Delete(ctx, asset.StorageKey); err != nil {
			s.logger.WarningWithContextf(ctx, "[Asset] Purge: blob delete failed for %s, skipping: %v", asset.ID, err)
			report.Failed++
			continue
		}
		if err := s.assets.Delete(ctx, asset.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.WarningWithContextf(ctx, "[Asset] Purge: metadata delete failed for %s, skipping: %v", asset.ID, err)
			report.Failed++
			continue
		}
		report.Deleted++
		s.notify(ctx, EventAssetDeleted, map[string]interface{}{
			"id":       asset.ID.String(),
			"filename": asset.Filename,
			"owner_id": asset.OwnerID.String(),
		})
	}

	s.logger.InfoWithContextf(ctx, "[Asset] Purged owner %s: %d deleted, %d failed", ownerID, report.Deleted, report.Failed)
	return report, nil
}

func (s *AssetService) recordFailure(ctx context.Context, kind entity.ActivityKind, actor policy.Identity, assetID, filename string, cause error) {
	s.background.Go(ctx, "activity."+string(kind), func(ctx context.Context) error {
		s.activity.RecordFailure(ctx, kind, actor, assetID, filename, cause)
		return nil
	})
}

func (s *AssetService) notify(ctx context.Context, event string, data map[string]interface{}) {
	if s.notifier == nil {
		return
	}
	s.background.Go(ctx, "notify."+event, func(ctx context.Context) error {
		return s.notifier.Notify(ctx, event, data)
	})
}
