package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tnqbao/gau-asset-service/config"
)

const publicSharedSid = "PublicSharedAssets"

type minioAPI interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	GetBucketPolicy(ctx context.Context, bucketName string) (string, error)
	SetBucketPolicy(ctx context.Context, bucketName, policy string) error
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

type MinioStore struct {
	client   minioAPI
	bucket   string
	endpoint string
	useSSL   bool

	// bucket policy edits are read-modify-write
	policyMu sync.Mutex
}

func NewMinioStore(ctx context.Context, cfg *config.EnvConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Minio.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Minio.RootUser, cfg.Minio.RootPassword, ""),
		Secure: cfg.Minio.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	if err := ensureBucket(ctx, client, cfg.Minio.Bucket); err != nil {
		return nil, err
	}

	return newMinioStore(client, cfg.Minio.Bucket, cfg.Minio.Endpoint, cfg.Minio.UseSSL), nil
}

func newMinioStore(client minioAPI, bucket, endpoint string, useSSL bool) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, endpoint: endpoint, useSSL: useSSL}
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

func (m *MinioStore) Name() string { return "minio" }

func (m *MinioStore) Upload(ctx context.Context, content io.Reader, size int64, ownerID, originalName, mimeType string) (*UploadResult, error) {
	key := BuildObjectKey(ownerID, originalName)

	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err == nil {
		return nil, ErrKeyExists
	} else if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return nil, fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	info, err := m.client.PutObject(ctx, m.bucket, key, content, size, minio.PutObjectOptions{
		ContentType: mimeType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object %s: %w", key, err)
	}

	return &UploadResult{Key: key, Location: m.bucket, StoreID: info.ETag}, nil
}

func (m *MinioStore) SignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, time.Time, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", contentDisposition(downloadName))
	}

	ttl = normalizeTTL(ttl)
	expiresAt := time.Now().Add(ttl)
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, ttl, params)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u.String(), expiresAt, nil
}

func (m *MinioStore) MakePublic(ctx context.Context, key string) (string, error) {
	m.policyMu.Lock()
	defer m.policyMu.Unlock()

	if err := m.editPolicy(ctx, key, addPublicObject); err != nil {
		return "", err
	}
	return m.publicURL(key), nil
}

// editPolicy applies edit to the bucket policy and writes it back when it
// changed. An empty result removes the policy.
func (m *MinioStore) editPolicy(ctx context.Context, key string, edit func(current, bucket, key string) (string, error)) error {
	current, err := m.client.GetBucketPolicy(ctx, m.bucket)
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchBucketPolicy" {
		return fmt.Errorf("failed to read bucket policy: %w", err)
	}

	updated, err := edit(current, m.bucket, key)
	if err != nil {
		return err
	}
	if updated == current {
		return nil
	}

	if err := m.client.SetBucketPolicy(ctx, m.bucket, updated); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

func (m *MinioStore) publicURL(key string) string {
	scheme := "http"
	if m.useSSL {
		scheme = "https"
	}
	escaped := (&url.URL{Path: key}).EscapedPath()
	return fmt.Sprintf("%s://%s/%s/%s", scheme, m.endpoint, m.bucket, escaped)
}

// Delete revokes any public grant for key before removing the object, and
// restores the grant if the removal fails.
func (m *MinioStore) Delete(ctx context.Context, key string) error {
	m.policyMu.Lock()
	defer m.policyMu.Unlock()

	current, err := m.client.GetBucketPolicy(ctx, m.bucket)
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchBucketPolicy" {
		return fmt.Errorf("failed to read bucket policy: %w", err)
	}
	wasPublic := hasPublicObject(current, m.bucket, key)
	if wasPublic {
		if err := m.editPolicy(ctx, key, removePublicObject); err != nil {
			return err
		}
	}

	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil
		}
		if wasPublic {
			_ = m.editPolicy(ctx, key, addPublicObject)
		}
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string          `json:"Sid,omitempty"`
	Effect    string          `json:"Effect"`
	Principal json.RawMessage `json:"Principal,omitempty"`
	Action    json.RawMessage `json:"Action"`
	Resource  json.RawMessage `json:"Resource"`
	Condition json.RawMessage `json:"Condition,omitempty"`
}

func objectARN(bucket, key string) string {
	return fmt.Sprintf("arn:aws:s3:::%s/%s", bucket, key)
}

func parseBucketPolicy(current string) (bucketPolicy, error) {
	policy := bucketPolicy{Version: "2012-10-17"}
	if strings.TrimSpace(current) != "" {
		if err := json.Unmarshal([]byte(current), &policy); err != nil {
			return bucketPolicy{}, fmt.Errorf("failed to parse bucket policy: %w", err)
		}
	}
	return policy, nil
}

// publicStatement returns the index of the shared-assets statement and its
// resources, or -1 when the policy has none.
func publicStatement(policy bucketPolicy) (int, []string, error) {
	for i, st := range policy.Statement {
		if st.Sid != publicSharedSid {
			continue
		}
		var resources []string
		if len(st.Resource) > 0 {
			if err := json.Unmarshal(st.Resource, &resources); err != nil {
				var single string
				if err := json.Unmarshal(st.Resource, &single); err != nil {
					return 0, nil, fmt.Errorf("failed to parse policy resources: %w", err)
				}
				resources = []string{single}
			}
		}
		return i, resources, nil
	}
	return -1, nil, nil
}

func encodeBucketPolicy(policy bucketPolicy) (string, error) {
	out, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket policy: %w", err)
	}
	return string(out), nil
}

func hasPublicObject(current, bucket, key string) bool {
	policy, err := parseBucketPolicy(current)
	if err != nil {
		return false
	}
	_, resources, err := publicStatement(policy)
	if err != nil {
		return false
	}
	return slices.Contains(resources, objectARN(bucket, key))
}

// addPublicObject grants anonymous s3:GetObject on one object, keeping every
// other statement in the policy untouched.
func addPublicObject(current, bucket, key string) (string, error) {
	policy, err := parseBucketPolicy(current)
	if err != nil {
		return "", err
	}
	idx, resources, err := publicStatement(policy)
	if err != nil {
		return "", err
	}

	resource := objectARN(bucket, key)
	if slices.Contains(resources, resource) {
		return current, nil
	}
	if idx < 0 {
		policy.Statement = append(policy.Statement, policyStatement{
			Sid:       publicSharedSid,
			Effect:    "Allow",
			Principal: json.RawMessage(`{"AWS":["*"]}`),
			Action:    json.RawMessage(`["s3:GetObject"]`),
		})
		idx = len(policy.Statement) - 1
	}

	encoded, err := json.Marshal(append(resources, resource))
	if err != nil {
		return "", err
	}
	policy.Statement[idx].Resource = encoded
	return encodeBucketPolicy(policy)
}

// removePublicObject drops the grant added by addPublicObject. The statement
// goes away with its last resource, and the policy with its last statement.
func removePublicObject(current, bucket, key string) (string, error) {
	policy, err := parseBucketPolicy(current)
	if err != nil {
		return "", err
	}
	idx, resources, err := publicStatement(policy)
	if err != nil {
		return "", err
	}

	resource := objectARN(bucket, key)
	if idx < 0 || !slices.Contains(resources, resource) {
		return current, nil
	}

	remaining := slices.DeleteFunc(resources, func(r string) bool { return r == resource })
	if len(remaining) == 0 {
		policy.Statement = slices.Delete(policy.Statement, idx, idx+1)
	} else {
		encoded, err := json.Marshal(remaining)
		if err != nil {
			return "", err
		}
		policy.Statement[idx].Resource = encoded
	}

	if len(policy.Statement) == 0 {
		return "", nil
	}
	return encodeBucketPolicy(policy)
}
