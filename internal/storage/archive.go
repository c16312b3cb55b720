package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"organlink/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client the archive uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AuditArchive uploads audit entries to an S3 bucket as JSON lines.
type AuditArchive struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewAuditArchive(client ObjectPutter, bucket string) *AuditArchive {
	return &AuditArchive{client: client, bucket: bucket, prefix: "audit"}
}

// Key names the object for entries archived at the given time,
// partitioned by UTC day.
func (a *AuditArchive) Key(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%s.jsonl", a.prefix, at.Format("2006/01/02"), at.Format("20060102T150405Z"))
}

// Upload writes entries to a single object and returns its key. An empty
// batch uploads nothing and returns an empty key.
func (a *AuditArchive) Upload(ctx context.Context, entries []*types.AuditEntry, at time.Time) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	body, err := EncodeJSONLines(entries)
	if err != nil {
		return "", err
	}

	key := a.Key(at)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/x-ndjson"),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload audit archive %s: %w", key, err)
	}

	return key, nil
}

func EncodeJSONLines(entries []*types.AuditEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("failed to encode audit entry %s: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}
