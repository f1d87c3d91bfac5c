package s3source

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ProjectAlita/indexpipe/document"
	"github.com/ProjectAlita/indexpipe/source"
)

// S3Source loads documents from an S3 bucket prefix. LoadBase lists objects
// and yields lightweight descriptors; object bodies are fetched only through
// ResolveContent, so unchanged objects are never downloaded.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Source(client *s3.Client, bucket, prefix string) *S3Source {
	return &S3Source{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// LoadBase lists the bucket prefix and returns one descriptor per object. The
// object's last-modified instant becomes the change marker.
func (s *S3Source) LoadBase(ctx context.Context, opts ...source.Option) ([]document.Document, error) {
	options := &source.LoadOptions{}
	for _, opt := range opts {
		opt(options)
	}

	input := &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &s.prefix,
	}

	var documents []document.Document
	paginator := s3.NewListObjectsV2Paginator(s.client, input)

	for paginator.HasMorePages() {
		if options.MaxItems > 0 && len(documents) >= options.MaxItems {
			break
		}

		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &source.SourceError{
				Source:  "s3",
				Op:      "LoadBase",
				Err:     err,
				Code:    source.ErrCodeInternal,
				Message: "failed to list objects",
			}
		}

		for _, obj := range page.Contents {
			if options.MaxItems > 0 && len(documents) >= options.MaxItems {
				break
			}

			key := *obj.Key
			if strings.HasSuffix(key, "/") {
				continue
			}
			if !options.Recursive && filepath.Dir(key) != strings.TrimSuffix(s.prefix, "/") {
				continue
			}

			metadata := map[string]interface{}{
				"bucket": s.bucket,
				"key":    key,
				"source": "s3://" + s.bucket + "/" + key,
			}
			if obj.Size != nil {
				metadata["size"] = *obj.Size
			}
			if obj.ETag != nil {
				metadata["etag"] = *obj.ETag
			}

			if options.Filter != nil && !options.Filter(metadata) {
				continue
			}

			var marker string
			if obj.LastModified != nil {
				marker = obj.LastModified.UTC().Format(time.RFC3339)
			}

			documents = append(documents, document.Document{
				ID:          "s3://" + s.bucket + "/" + key,
				Kind:        document.KindBase,
				UpdatedOn:   marker,
				ContentType: strings.ToLower(filepath.Ext(key)),
				Metadata:    metadata,
			})
		}
	}

	return documents, nil
}

// ResolveContent downloads the object body for a descriptor produced by
// LoadBase.
func (s *S3Source) ResolveContent(ctx context.Context, doc *document.Document) (string, []byte, error) {
	key, _ := doc.Metadata["key"].(string)
	if key == "" {
		return "", nil, &source.SourceError{
			Source:  "s3",
			Op:      "ResolveContent",
			Code:    source.ErrCodeInvalidSource,
			Message: "document has no object key",
		}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return "", nil, &source.SourceError{
			Source:  "s3",
			Op:      "ResolveContent",
			Err:     err,
			Code:    source.ErrCodeNotFound,
			Message: "failed to get object " + key,
		}
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return "", nil, &source.SourceError{
			Source:  "s3",
			Op:      "ResolveContent",
			Err:     err,
			Code:    source.ErrCodeInternal,
			Message: "failed to read object body",
		}
	}

	return strings.ToLower(filepath.Ext(key)), content, nil
}
