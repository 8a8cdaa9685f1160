package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of the S3 client used by S3Object. *s3.Client
// satisfies it.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// NewS3Client creates an S3 client using the default AWS configuration chain.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// S3Object reads an S3 object with ranged GETs.
type S3Object struct {
	ctx    context.Context
	client S3API
	bucket string
	key    string
	size   int64
	closed bool
}

// OpenS3 looks up the object size and returns a Source for it. ctx also
// bounds every later ReadAt.
func OpenS3(ctx context.Context, client S3API, bucket, key string) (*S3Object, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head object s3://%s/%s: %w", bucket, key, err)
	}

	size := aws.ToInt64(head.ContentLength)
	if size < 0 {
		return nil, fmt.Errorf("head object s3://%s/%s: negative content length %d", bucket, key, size)
	}

	return &S3Object{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   size,
	}, nil
}

// ReadAt fetches len(p) bytes starting at off with a single ranged GET.
func (o *S3Object) ReadAt(p []byte, off int64) (int, error) {
	if o.closed {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if len(p) == 0 {
		return 0, nil
	}
	if off >= o.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	if end >= o.size {
		end = o.size - 1
	}

	resp, err := o.client.GetObject(o.ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(o.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, fmt.Errorf("get object s3://%s/%s range %d-%d: %w", o.bucket, o.key, off, end, err)
	}
	defer resp.Body.Close()

	want := int(end - off + 1)
	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, fmt.Errorf("read object s3://%s/%s range %d-%d: %w", o.bucket, o.key, off, end, err)
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the object size.
func (o *S3Object) Size() int64 {
	return o.size
}

// Close marks the object closed. No connection is held between reads.
func (o *S3Object) Close() error {
	if o.closed {
		return ErrClosed
	}
	o.closed = true
	return nil
}

// FetchS3 downloads a whole compressed object and decompresses it into memory.
func FetchS3(ctx context.Context, client S3API, bucket, key string, c Compression) (Source, error) {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	defer resp.Body.Close()

	src, err := Decompress(resp.Body, c)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return src, nil
}

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	path := strings.TrimPrefix(uri, "s3://")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}
	if len(parts) < 2 || parts[1] == "" {
		return "", "", errors.New("invalid S3 URI: missing object key")
	}

	return parts[0], parts[1], nil
}

// OpenURI opens s3://bucket/key URIs with a default-config S3 client and
// everything else as a local path via OpenFile.
func OpenURI(ctx context.Context, uri string) (Source, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return OpenFile(uri)
	}

	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	client, err := NewS3Client(ctx)
	if err != nil {
		return nil, err
	}
	if c := DetectCompression(key); c != CompressionNone {
		return FetchS3(ctx, client, bucket, key, c)
	}
	obj, err := OpenS3(ctx, client, bucket, key)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
