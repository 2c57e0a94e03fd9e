package media

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"ppob-backend/internal/apperr"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakePutter struct {
	PutFunc func(in *s3.PutObjectInput) error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if err := f.PutFunc(in); err != nil {
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

// header PNG minimal, cukup untuk dikenali mimetype
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestUploadImage(t *testing.T) {
	var got *s3.PutObjectInput
	u := NewUploader(&fakePutter{PutFunc: func(in *s3.PutObjectInput) error {
		got = in
		return nil
	}}, "ppob", "https://cdn.example.com/")

	url, err := u.UploadImage(context.Background(), "avatars", "u1", pngBytes)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/avatars/u1-") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected url %s", url)
	}
	if *got.Bucket != "ppob" || *got.ContentType != "image/png" {
		t.Fatalf("unexpected put input: bucket=%s type=%s", *got.Bucket, *got.ContentType)
	}
}

func TestUploadImageRejectsNonImages(t *testing.T) {
	u := NewUploader(&fakePutter{PutFunc: func(*s3.PutObjectInput) error {
		t.Fatal("must not upload")
		return nil
	}}, "ppob", "https://cdn.example.com")

	cases := map[string][]byte{
		"empty": nil,
		"text":  []byte("hello, this is plain text"),
		"large": append(append([]byte{}, pngBytes...), make([]byte, MaxImageSize)...),
	}
	for name, data := range cases {
		if _, err := u.UploadImage(context.Background(), "avatars", "u1", data); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("%s: expected InvalidInput, got %v", name, err)
		}
	}
}

func TestUploadImageStorageFailure(t *testing.T) {
	u := NewUploader(&fakePutter{PutFunc: func(*s3.PutObjectInput) error {
		return errors.New("503")
	}}, "ppob", "https://cdn.example.com")
	if _, err := u.UploadImage(context.Background(), "banners", "u1", pngBytes); apperr.KindOf(err) != apperr.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
