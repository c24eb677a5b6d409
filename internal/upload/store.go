// Package upload stores treatment report files and hands back the reference a
// completed slot carries.
package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FileRef identifies an uploaded report. It is what a completed slot stores;
// the file body stays in object storage.
type FileRef struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
}

// UploadError wraps a failed upload so handlers can tell it apart from local
// validation problems. A failed upload blocks the Complete transition.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload report: %v", e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store writes report files to S3 under a generated per-file key.
type Store struct {
	bucket   string
	s3Client S3API
	logger   zerolog.Logger
}

func NewStore(s3Client S3API, bucket string, logger zerolog.Logger) *Store {
	return &Store{
		bucket:   bucket,
		s3Client: s3Client,
		logger:   logger.With().Str("component", "upload_store").Logger(),
	}
}

// Upload stores one report file and returns its reference. Nothing is written
// to the schedule here; the caller commits the slot transition only after this
// returns successfully.
func (s *Store) Upload(ctx context.Context, fileName, contentType string, body io.Reader) (FileRef, error) {
	if fileName == "" {
		return FileRef{}, &UploadError{Err: fmt.Errorf("file name is required")}
	}

	fileID := uuid.NewString()
	key := fmt.Sprintf("reports/%s/%s", fileID, fileName)

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return FileRef{}, &UploadError{Err: fmt.Errorf("s3 put %s: %w", key, err)}
	}

	s.logger.Info().
		Str("file_id", fileID).
		Str("file_name", fileName).
		Str("s3_key", key).
		Msg("report uploaded")

	return FileRef{FileID: fileID, FileName: fileName}, nil
}
