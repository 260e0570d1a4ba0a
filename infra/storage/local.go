package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tnqbao/gau-asset-service/utils"
)

const publicMarkerDir = ".public"

var (
	ErrSignatureInvalid = errors.New("invalid signature")
	ErrURLExpired       = errors.New("url expired")
)

// LocalStore keeps blobs under a root directory and serves them through
// HMAC-signed URLs. Public objects are flagged by a marker file under
// <root>/.public mirroring the key.
type LocalStore struct {
	root       string
	baseURL    string
	signingKey string
	now        func() time.Time
}

func NewLocalStore(root, baseURL, signingKey string) (*LocalStore, error) {
	if signingKey == "" {
		return nil, errors.New("local storage signing key is not configured")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &LocalStore{
		root:       root,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		signingKey: signingKey,
		now:        time.Now,
	}, nil
}

func (l *LocalStore) Name() string { return "local" }

func (l *LocalStore) pathFor(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key || strings.HasPrefix(clean, "/"+publicMarkerDir+"/") {
		return "", ErrInvalidKey
	}
	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

func (l *LocalStore) markerFor(key string) (string, error) {
	if _, err := l.pathFor(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, publicMarkerDir, filepath.FromSlash(path.Clean("/"+key))), nil
}

func (l *LocalStore) Upload(ctx context.Context, content io.Reader, size int64, ownerID, originalName, mimeType string) (*UploadResult, error) {
	key := BuildObjectKey(ownerID, originalName)
	dst, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrKeyExists
		}
		return nil, fmt.Errorf("failed to create %s: %w", key, err)
	}

	hasher := sha256.New()
	_, copyErr := io.Copy(io.MultiWriter(f, hasher), readerWithContext(ctx, content))
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to write %s: %w", key, errors.Join(copyErr, closeErr))
	}

	return &UploadResult{
		Key:      key,
		Location: "local",
		StoreID:  hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

func (l *LocalStore) signature(key string, expires int64, download string) string {
	msg := key + "|" + strconv.FormatInt(expires, 10) + "|" + download
	return utils.ComputeHMACSHA256(l.signingKey, []byte(msg))
}

func (l *LocalStore) SignedURL(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, time.Time, error) {
	if _, err := l.pathFor(key); err != nil {
		return "", time.Time{}, err
	}
	expires := l.now().Add(normalizeTTL(ttl)).Unix()

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	if downloadName != "" {
		q.Set("download", downloadName)
	}
	q.Set("sig", l.signature(key, expires, downloadName))

	signed := fmt.Sprintf("%s/files/%s?%s", l.baseURL, (&url.URL{Path: key}).EscapedPath(), q.Encode())
	return signed, time.Unix(expires, 0), nil
}

// VerifySignedURL checks the query of a URL produced by SignedURL.
func (l *LocalStore) VerifySignedURL(key string, query url.Values) error {
	expires, err := strconv.ParseInt(query.Get("expires"), 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	expected := l.signature(key, expires, query.Get("download"))
	if !utils.SecureCompare(expected, query.Get("sig")) {
		return ErrSignatureInvalid
	}
	if l.now().Unix() > expires {
		return ErrURLExpired
	}
	return nil
}

func (l *LocalStore) MakePublic(ctx context.Context, key string) (string, error) {
	src, err := l.pathFor(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", key, err)
	}

	marker, _ := l.markerFor(key)
	if err := os.MkdirAll(filepath.Dir(marker), 0o755); err != nil {
		return "", fmt.Errorf("failed to create public marker dir: %w", err)
	}
	if err := os.WriteFile(marker, nil, 0o644); err != nil {
		return "", fmt.Errorf("failed to mark %s public: %w", key, err)
	}

	return fmt.Sprintf("%s/public/%s", l.baseURL, (&url.URL{Path: key}).EscapedPath()), nil
}

func (l *LocalStore) IsPublic(key string) bool {
	marker, err := l.markerFor(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(marker)
	return err == nil
}

// Open returns the blob for key; callers close it.
func (l *LocalStore) Open(key string) (*os.File, error) {
	p, err := l.pathFor(key)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (l *LocalStore) Delete(ctx context.Context, key string) error {
	p, err := l.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	marker, _ := l.markerFor(key)
	if err := os.Remove(marker); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete public marker for %s: %w", key, err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
