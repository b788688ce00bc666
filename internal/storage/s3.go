package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tagflow/internal/catalog"
)

// S3Options are the library options understood by the s3 protocol.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// ParseS3Options reads S3Options from already unsealed library options.
func ParseS3Options(opts map[string]string) (S3Options, error) {
	o := S3Options{
		Region:          opts["region"],
		Endpoint:        opts["endpoint"],
		AccessKeyID:     opts["access_key_id"],
		SecretAccessKey: opts["secret_access_key"],
	}
	if v := opts["use_path_style"]; v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return S3Options{}, fmt.Errorf("invalid use_path_style %q: %w", v, err)
		}
		o.UsePathStyle = b
	}
	if (o.AccessKeyID == "") != (o.SecretAccessKey == "") {
		return S3Options{}, fmt.Errorf("access_key_id and secret_access_key must be set together")
	}
	return o, nil
}

// SplitBucketPath splits "bucket[/prefix]" into the bucket name and a key
// prefix that is empty or ends with a slash.
func SplitBucketPath(basePath string) (bucket, prefix string, err error) {
	trimmed := strings.Trim(strings.TrimPrefix(basePath, "s3://"), "/")
	if trimmed == "" {
		return "", "", fmt.Errorf("s3 base_path must name a bucket")
	}
	bucket, prefix, _ = strings.Cut(trimmed, "/")
	if prefix != "" {
		prefix = strings.Trim(prefix, "/") + "/"
	}
	return bucket, prefix, nil
}

// keyToPath strips prefix from key. ok is false for keys outside the prefix
// and for the prefix marker itself.
func keyToPath(prefix, key string) (rel string, isDir, ok bool) {
	if !strings.HasPrefix(key, prefix) {
		return "", false, false
	}
	rel = strings.TrimPrefix(key, prefix)
	isDir = strings.HasSuffix(rel, "/")
	rel = strings.TrimSuffix(rel, "/")
	if rel == "" {
		return "", false, false
	}
	return rel, isDir, true
}

func pathToKey(prefix, rel string) string {
	return prefix + strings.TrimPrefix(rel, "/")
}

// s3Client is the subset of the S3 API the adapter uses.
type s3Client interface {
	s3.ListObjectsV2APIClient
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Adapter serves a library stored under a bucket prefix.
type S3Adapter struct {
	client s3Client
	bucket string
	prefix string
	ignore *IgnoreMatcher

	// Listing already carries size and mtime; Stat answers from it
	// before falling back to HeadObject.
	mu    sync.RWMutex
	known map[string]catalog.Metadata
}

var _ catalog.StorageAdapter = (*S3Adapter)(nil)

// NewS3Adapter builds an S3 client from opts and the default AWS
// configuration chain.
func NewS3Adapter(ctx context.Context, basePath string, opts S3Options, patterns []string) (*S3Adapter, error) {
	bucket, prefix, err := SplitBucketPath(basePath)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading aws config: %v", catalog.ErrConnectionFailed, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})
	return newS3AdapterWithClient(client, bucket, prefix, patterns), nil
}

func newS3AdapterWithClient(client s3Client, bucket, prefix string, patterns []string) *S3Adapter {
	return &S3Adapter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		ignore: NewIgnoreMatcher(patterns),
		known:  make(map[string]catalog.Metadata),
	}
}

func (a *S3Adapter) Validate(ctx context.Context) error {
	if _, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)}); err != nil {
		return fmt.Errorf("%w: bucket %s: %v", catalog.ErrConnectionFailed, a.bucket, err)
	}
	return nil
}

// ListRecursive pages through ListObjectsV2 lazily, one page per request.
func (a *S3Adapter) ListRecursive(ctx context.Context) (catalog.EntryIterator, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(a.bucket)}
	if a.prefix != "" {
		input.Prefix = aws.String(a.prefix)
	}
	return &s3Iterator{
		ctx:       ctx,
		adapter:   a,
		paginator: s3.NewListObjectsV2Paginator(a.client, input),
	}, nil
}

func (a *S3Adapter) Stat(ctx context.Context, rel string) (catalog.Metadata, error) {
	a.mu.RLock()
	meta, ok := a.known[rel]
	a.mu.RUnlock()
	if ok {
		return meta, nil
	}

	out, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(pathToKey(a.prefix, rel)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return catalog.Metadata{}, fmt.Errorf("stat %s: %w", rel, fs.ErrNotExist)
		}
		return catalog.Metadata{}, fmt.Errorf("head object %s: %w", rel, err)
	}

	meta = catalog.Metadata{Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		meta.ModTime = out.LastModified.Unix()
	}
	return meta, nil
}

// Materialize downloads the object into a temporary file.
func (a *S3Adapter) Materialize(ctx context.Context, rel string) (string, func(), error) {
	tmp, err := os.CreateTemp("", "tagflow-s3-*"+path.Ext(rel))
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}
	name := tmp.Name()
	cleanup := func() { os.Remove(name) }

	downloader := manager.NewDownloader(a.client)
	_, err = downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(pathToKey(a.prefix, rel)),
	})
	closeErr := tmp.Close()
	if err != nil {
		cleanup()
		if isS3NotFound(err) {
			return "", nil, fmt.Errorf("download %s: %w", rel, fs.ErrNotExist)
		}
		return "", nil, fmt.Errorf("download %s: %w", rel, err)
	}
	if closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}
	return name, cleanup, nil
}

func (a *S3Adapter) remember(rel string, meta catalog.Metadata) {
	a.mu.Lock()
	a.known[rel] = meta
	a.mu.Unlock()
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

type s3Iterator struct {
	ctx       context.Context
	adapter   *S3Adapter
	paginator *s3.ListObjectsV2Paginator
	page      []types.Object
	idx       int
	err       error
	seenDirs  map[string]bool
}

func (it *s3Iterator) Next() (catalog.Entry, bool) {
	for {
		if it.err != nil {
			return catalog.Entry{}, false
		}
		if it.idx >= len(it.page) {
			if !it.paginator.HasMorePages() {
				return catalog.Entry{}, false
			}
			out, err := it.paginator.NextPage(it.ctx)
			if err != nil {
				it.err = fmt.Errorf("listing s3://%s/%s: %w", it.adapter.bucket, it.adapter.prefix, err)
				return catalog.Entry{}, false
			}
			it.page, it.idx = out.Contents, 0
			continue
		}

		obj := it.page[it.idx]
		it.idx++

		rel, isDir, ok := keyToPath(it.adapter.prefix, aws.ToString(obj.Key))
		if !ok || it.adapter.ignore.Match(rel) || it.ignoredParent(rel) {
			continue
		}
		if !isDir {
			meta := catalog.Metadata{Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				meta.ModTime = obj.LastModified.Unix()
			}
			it.adapter.remember(rel, meta)
		}
		return catalog.Entry{Path: rel, IsDir: isDir}, true
	}
}

// ignoredParent reports whether any ancestor directory of rel is ignored,
// which a filesystem walk would have skipped wholesale.
func (it *s3Iterator) ignoredParent(rel string) bool {
	for dir := path.Dir(rel); dir != "."; dir = path.Dir(dir) {
		if it.seenDirs == nil {
			it.seenDirs = make(map[string]bool)
		}
		ignored, ok := it.seenDirs[dir]
		if !ok {
			ignored = it.adapter.ignore.Match(dir)
			it.seenDirs[dir] = ignored
		}
		if ignored {
			return true
		}
	}
	return false
}

func (it *s3Iterator) Err() error   { return it.err }
func (it *s3Iterator) Close() error { return nil }
