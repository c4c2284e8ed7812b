package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"

	"github.com/tbourn/portal-rpa/internal/domain"
)

// Objects tagged visibility=public are readable anonymously through the
// bucket policy installed by NewMinioStore.
const (
	visibilityTag    = "visibility"
	visibilityPublic = "public"
	// maxPresignExpiry is the S3 limit for presigned URLs.
	maxPresignExpiry = 7 * 24 * time.Hour
)

// MinioStore implements the artifact object store on MinIO/S3.
type MinioStore struct {
	client *minio.Client
	bucket string
	// publicBase, when set, is used to build unsigned links
	// (e.g. "https://cdn.example.com"); otherwise links are presigned.
	publicBase string
}

// MinioOptions configures NewMinioStore.
type MinioOptions struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// NewMinioStore connects to MinIO, ensures the bucket exists and installs the
// tag-gated public-read policy.
func NewMinioStore(ctx context.Context, o MinioOptions) (*MinioStore, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, o.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}
	policy, err := publicReadPolicy(o.Bucket)
	if err != nil {
		return nil, err
	}
	if err := client.SetBucketPolicy(ctx, o.Bucket, policy); err != nil {
		return nil, fmt.Errorf("set bucket policy: %w", err)
	}
	return &MinioStore{client: client, bucket: o.Bucket, publicBase: strings.TrimRight(o.PublicBaseURL, "/")}, nil
}

// Upload puts the object under name and returns the object key.
func (m *MinioStore) Upload(ctx context.Context, r io.Reader, size int64, name string, mime domain.MimeKind) (string, error) {
	key := objectKey(name, time.Now())
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{ContentType: string(mime)})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

// SetPublicRead tags the object so the bucket policy exposes it.
func (m *MinioStore) SetPublicRead(ctx context.Context, key string) error {
	t, err := tags.NewTags(map[string]string{visibilityTag: visibilityPublic}, true)
	if err != nil {
		return err
	}
	if err := m.client.PutObjectTagging(ctx, m.bucket, key, t, minio.PutObjectTaggingOptions{}); err != nil {
		return fmt.Errorf("tag object: %w", err)
	}
	return nil
}

// Link returns a public URL when a base is configured, else a presigned GET.
func (m *MinioStore) Link(ctx context.Context, key string) (string, error) {
	if m.publicBase != "" {
		return publicURL(m.publicBase, m.bucket, key), nil
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, maxPresignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return u.String(), nil
}

// objectKey groups artifacts by month: artifacts/2025/11/<name>.
func objectKey(name string, at time.Time) string {
	return fmt.Sprintf("artifacts/%04d/%02d/%s", at.UTC().Year(), int(at.UTC().Month()), name)
}

func publicURL(base, bucket, key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + url.PathEscape(bucket) + "/" + strings.Join(segs, "/")
}

type policyStatement struct {
	Effect    string                       `json:"Effect"`
	Principal map[string][]string          `json:"Principal"`
	Action    []string                     `json:"Action"`
	Resource  []string                     `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func publicReadPolicy(bucket string) (string, error) {
	p := bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/*"},
			Condition: map[string]map[string]string{
				"StringEquals": {"s3:ExistingObjectTag/" + visibilityTag: visibilityPublic},
			},
		}},
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal bucket policy: %w", err)
	}
	return string(b), nil
}
