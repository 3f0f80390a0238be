// Package blobstore stores opaque blobs in content-addressed
// S3-compatible storage, keyed by the hex SHA-256 of their bytes
// (SPEC_FULL.md §4 domain stack: "Large-payload content-addressed
// offload"). It is a standalone store: pkg/dag keeps full payloads in
// its own maps, and internal/store's applier does not read from it.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectInfo is the metadata recorded alongside a stored blob.
type ObjectInfo struct {
	CID      string            `json:"cid"`
	Size     int64             `json:"size"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store is a content-addressed blob store backed by any S3-compatible
// endpoint via minio-go.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to endpoint and ensures bucket exists, creating it if
// necessary.
func New(endpoint, accessKey, secretKey, bucket string, useTLS bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("blobstore: create client: %w", err)
	}

	s := &Store{client: client, bucket: bucket}
	if err := s.ensureBucket(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("blobstore: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("blobstore: create bucket: %w", err)
	}
	return nil
}

// Put stores data under its content hash and returns the resulting
// ObjectInfo. Puts are idempotent: storing the same bytes twice
// returns the same CID without a second upload.
func (s *Store) Put(ctx context.Context, data []byte, metadata map[string]string) (ObjectInfo, error) {
	cid := contentID(data)

	exists, err := s.Has(ctx, cid)
	if err != nil {
		return ObjectInfo{}, err
	}
	info := ObjectInfo{CID: cid, Size: int64(len(data)), Metadata: metadata}
	if exists {
		return info, nil
	}

	reader := bytes.NewReader(data)
	if _, err := s.client.PutObject(ctx, s.bucket, objectKey(cid), reader, int64(len(data)), minio.PutObjectOptions{}); err != nil {
		return ObjectInfo{}, fmt.Errorf("blobstore: put object %s: %w", cid, err)
	}

	encodedInfo, err := json.Marshal(info)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("blobstore: encode metadata: %w", err)
	}
	metaReader := bytes.NewReader(encodedInfo)
	if _, err := s.client.PutObject(ctx, s.bucket, metadataKey(cid), metaReader, int64(len(encodedInfo)), minio.PutObjectOptions{}); err != nil {
		return ObjectInfo{}, fmt.Errorf("blobstore: put metadata %s: %w", cid, err)
	}

	return info, nil
}

// Get retrieves the bytes stored under cid.
func (s *Store) Get(ctx context.Context, cid string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(cid), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("blobstore: get object %s: %w", cid, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read object %s: %w", cid, err)
	}
	return data, nil
}

// Info retrieves the metadata recorded for cid.
func (s *Store) Info(ctx context.Context, cid string) (ObjectInfo, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, metadataKey(cid), minio.GetObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("blobstore: get metadata %s: %w", cid, err)
	}
	defer obj.Close()

	var info ObjectInfo
	if err := json.NewDecoder(obj).Decode(&info); err != nil {
		return ObjectInfo{}, fmt.Errorf("blobstore: decode metadata %s: %w", cid, err)
	}
	return info, nil
}

// Has reports whether cid is already stored.
func (s *Store) Has(ctx context.Context, cid string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectKey(cid), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("blobstore: stat object %s: %w", cid, err)
	}
	return true, nil
}

// Delete removes both the object and its metadata for cid.
func (s *Store) Delete(ctx context.Context, cid string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey(cid), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blobstore: delete object %s: %w", cid, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, metadataKey(cid), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("blobstore: delete metadata %s: %w", cid, err)
	}
	return nil
}

func contentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func objectKey(cid string) string {
	return path.Join("objects", cid[:2], cid[2:4], cid)
}

func metadataKey(cid string) string {
	return path.Join("metadata", cid[:2], cid[2:4], cid+".json")
}
