package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string // для MinIO и прочих совместимых
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Prefix       string
}

type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(cfg S3Config) *S3Store {
	opts := s3.Options{
		Region:                     cfg.Region,
		UsePathStyle:               cfg.UsePathStyle,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if cfg.AccessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3Store{client: s3.New(opts), bucket: cfg.Bucket, prefix: cfg.Prefix}
}

// Upload кладёт объект в бакет и возвращает s3://bucket/key.
func (s *S3Store) Upload(ctx context.Context, roomID, name, contentType string, body io.Reader, _ int64) (string, error) {
	// тело читается целиком: подписи нужен seekable поток, размер ограничен на входе
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := path.Join(s.prefix, path.Base(roomID), objectName(name))
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Remove удаляет объект по ссылке s3://bucket/key, выданной Upload.
func (s *S3Store) Remove(ctx context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, "s3://"+s.bucket+"/")
	if !ok || key == "" {
		return fmt.Errorf("remove %s: not an object of bucket %s", ref, s.bucket)
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}
