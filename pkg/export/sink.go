package export

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Destination kinds.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// Location is a parsed export destination.
type Location struct {
	Scheme string
	Bucket string
	// Key is the object key for object stores, or the file path.
	Key string
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// ParseLocation parses a local path, an s3://bucket/key URL or a
// gs://bucket/object URL.
func ParseLocation(dest string) (Location, error) {
	if dest == "" {
		return Location{}, fmt.Errorf("destination is required")
	}
	if !strings.Contains(dest, "://") {
		return Location{Scheme: SchemeFile, Key: dest}, nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return Location{}, fmt.Errorf("invalid destination %q: %w", dest, err)
	}
	switch u.Scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("destination %q must name a bucket and an object", dest)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, fmt.Errorf("unsupported destination scheme %q", u.Scheme)
	}
}

// S3Uploader uploads objects to S3. *manager.Uploader satisfies it.
type S3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// GCSOpener opens a writer on a GCS object.
type GCSOpener func(ctx context.Context, bucket, object string) (io.WriteCloser, error)

// openFile creates the file and any missing parent directories.
func openFile(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &fileWriter{File: f}, nil
}

// fileWriter is a local export file that is removed when aborted.
type fileWriter struct {
	*os.File
}

// Abort closes and removes the partial file.
func (w *fileWriter) Abort(error) {
	_ = w.File.Close()
	_ = os.Remove(w.File.Name())
}

// gcsWriter ties an object writer to the context it was opened with.
// Cancelling that context before Close discards the upload instead of
// committing it.
type gcsWriter struct {
	io.WriteCloser
	cancel context.CancelFunc
}

func openGCS(ctx context.Context, open GCSOpener, loc Location) (io.WriteCloser, error) {
	ctx, cancel := context.WithCancel(ctx)
	w, err := open(ctx, loc.Bucket, loc.Key)
	if err != nil {
		cancel()
		return nil, err
	}
	return &gcsWriter{WriteCloser: w, cancel: cancel}, nil
}

// Abort cancels the upload; the object is not created.
func (w *gcsWriter) Abort(error) {
	w.cancel()
	_ = w.WriteCloser.Close()
}

func (w *gcsWriter) Close() error {
	defer w.cancel()
	return w.WriteCloser.Close()
}

// s3Writer streams writes into a multipart upload running in the background.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func openS3(ctx context.Context, up S3Uploader, loc Location, contentType string) io.WriteCloser {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1)}
	go func() {
		_, err := up.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(loc.Bucket),
			Key:         aws.String(loc.Key),
			Body:        pr,
			ContentType: aws.String(contentType),
		})
		pr.CloseWithError(err)
		w.done <- err
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Abort fails the upload with cause and waits for it to stop.
func (w *s3Writer) Abort(cause error) {
	_ = w.pw.CloseWithError(cause)
	<-w.done
}

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}

// newS3Uploader builds an uploader from the default AWS credential chain.
func newS3Uploader(ctx context.Context, region string) (S3Uploader, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return manager.NewUploader(s3.NewFromConfig(cfg), func(u *manager.Uploader) {
		u.PartSize = 16 * 1024 * 1024
		u.Concurrency = 4
	}), nil
}

// newGCSOpener builds an opener backed by a storage client.
func newGCSOpener(ctx context.Context, credentialsFile string) (GCSOpener, func() error, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	opener := func(ctx context.Context, bucket, object string) (io.WriteCloser, error) {
		return client.Bucket(bucket).Object(object).NewWriter(ctx), nil
	}
	return opener, client.Close, nil
}
