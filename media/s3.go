package media

import (
	"context"
	"fmt"
	"io"

	"blog/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Storage хранит картинки в бакете S3 (или совместимом, через Endpoint)
type S3Storage struct {
	bucket    string
	publicURL string
	uploader  *s3manager.Uploader
	client    *s3.S3
}

func NewS3Storage(conf config.S3Config) (*S3Storage, error) {
	awsConf := &aws.Config{
		Region:           aws.String(conf.Region),
		S3ForcePathStyle: aws.Bool(conf.ForcePathStyle),
	}
	if conf.Endpoint != "" {
		awsConf.Endpoint = aws.String(conf.Endpoint)
	}
	sess, err := session.NewSession(awsConf)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	publicURL := conf.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Bucket, conf.Region)
	}
	return &S3Storage{
		bucket:    conf.Bucket,
		publicURL: publicURL,
		uploader:  s3manager.NewUploader(sess),
		client:    s3.New(sess),
	}, nil
}

func (s *S3Storage) Save(ctx context.Context, key string, contentType string, body io.Reader) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s from s3: %w", key, err)
	}
	return nil
}

func (s *S3Storage) URL(key string) string {
	return joinURL(s.publicURL, key)
}

// New выбирает бэкенд по конфигу
func New(conf config.MediaConfig) (Storage, error) {
	switch conf.Backend {
	case "s3":
		s3Storage, err := NewS3Storage(conf.S3)
		if err != nil {
			return nil, err
		}
		return s3Storage, nil
	default:
		local, err := NewLocalStorage(conf.Root, conf.URLPrefix)
		if err != nil {
			return nil, err
		}
		return local, nil
	}
}
