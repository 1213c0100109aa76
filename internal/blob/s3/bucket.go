package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/alanyoungcy/hiram/internal/domain"
)

// minPartSize is the smallest part S3 accepts in a multipart upload.
const minPartSize int64 = 5 * 1024 * 1024

// Bucket reads, writes and deletes objects in the client's bucket.
type Bucket struct {
	api  *s3.Client
	name string
}

// NewBucket binds a Bucket to c.
func NewBucket(c *Client) *Bucket {
	return &Bucket{api: c.S3(), name: c.Bucket()}
}

func (b *Bucket) object(path string) (*string, *string) {
	return aws.String(b.name), aws.String(path)
}

// Put uploads data with a single PutObject.
func (b *Bucket) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	bucket, key := b.object(path)
	in := &s3.PutObjectInput{Bucket: bucket, Key: key, Body: data}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := b.api.PutObject(ctx, in); err != nil {
		return fmt.Errorf("s3blob: put %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads data in concurrent parts of partSize bytes, raised
// to the S3 minimum when smaller.
func (b *Bucket) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	up := manager.NewUploader(b.api, func(u *manager.Uploader) {
		u.PartSize = max(partSize, minPartSize)
	})
	bucket, key := b.object(path)
	if _, err := up.Upload(ctx, &s3.PutObjectInput{Bucket: bucket, Key: key, Body: data}); err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", path, err)
	}
	return nil
}

// Get opens the object at path; the caller closes the body. A missing
// object is reported as domain.ErrNotFound.
func (b *Bucket) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	bucket, key := b.object(path)
	out, err := b.api.GetObject(ctx, &s3.GetObjectInput{Bucket: bucket, Key: key})
	switch {
	case err == nil:
		return out.Body, nil
	case isNotFound(err):
		return nil, fmt.Errorf("s3blob: get %s: %w", path, domain.ErrNotFound)
	default:
		return nil, fmt.Errorf("s3blob: get %s: %w", path, err)
	}
}

// List returns every object under prefix across all result pages.
func (b *Bucket) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	pages := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(prefix),
	})

	var infos []domain.BlobInfo
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, domain.BlobInfo{
				Path:         aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return infos, nil
}

// Delete removes the object at path. Deleting a missing object succeeds.
func (b *Bucket) Delete(ctx context.Context, path string) error {
	bucket, key := b.object(path)
	if _, err := b.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: bucket, Key: key}); err != nil && !isNotFound(err) {
		return fmt.Errorf("s3blob: delete %s: %w", path, err)
	}
	return nil
}

// isNotFound matches NoSuchKey, the typed NotFound, and bare 404 responses
// from S3-compatible providers.
func isNotFound(err error) bool {
	var (
		noKey *types.NoSuchKey
		nf    *types.NotFound
		resp  *smithyhttp.ResponseError
	)
	switch {
	case errors.As(err, &noKey), errors.As(err, &nf):
		return true
	case errors.As(err, &resp):
		return resp.HTTPStatusCode() == http.StatusNotFound
	}
	return false
}

var (
	_ domain.BlobWriter  = (*Bucket)(nil)
	_ domain.BlobReader  = (*Bucket)(nil)
	_ domain.BlobDeleter = (*Bucket)(nil)
)
