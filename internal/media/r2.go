// Package media menyimpan foto profil / banner ke Cloudflare R2 (S3-compatible).
package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"ppob-backend/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// MaxImageSize: 5MB
const MaxImageSize = 5 << 20

// ObjectPutter: *s3.Client memenuhi interface ini
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// PublicURL: domain publik bucket (r2.dev / custom domain)
	PublicURL string
}

type Uploader struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

func NewUploader(client ObjectPutter, bucket, publicURL string) *Uploader {
	return &Uploader{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

// NewR2Client membuat S3 client yang diarahkan ke endpoint R2
func NewR2Client(ctx context.Context, cfg R2Config) (*s3.Client, error) {
	if cfg.AccountID == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, atau R2_SECRET_ACCESS_KEY belum diatur")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"), // wajib diisi SDK, R2 mengabaikan region
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("gagal load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	}), nil
}

// UploadImage memvalidasi isi file (harus gambar, maks 5MB) lalu upload.
// Mengembalikan URL publik object.
func (u *Uploader) UploadImage(ctx context.Context, folder, uid string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperr.InvalidInput("File kosong")
	}
	if len(data) > MaxImageSize {
		return "", apperr.InvalidInput("Ukuran file maksimal 5MB")
	}

	// Content-Type diambil dari isi file, bukan dari header / nama file
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", apperr.InvalidInput("File harus berupa gambar")
	}

	key := fmt.Sprintf("%s/%s-%s%s", folder, uid, uuid.NewString(), mt.Extension())
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(mt.String()),
	})
	if err != nil {
		log.Printf("[R2] upload %s gagal: %v", key, err)
		return "", apperr.Wrap(apperr.KindInternal, "Gagal upload file", err)
	}

	return u.publicURL + "/" + key, nil
}
