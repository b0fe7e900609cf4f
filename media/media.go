// Package media хранит картинки постов: проверка формата и бэкенды хранения.
package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var ErrNotImage = errors.New("upload a valid image: the file is either not an image or a corrupted image")

// UploadDir - каталог для картинок постов
const UploadDir = "posts"

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Storage сохраняет файлы по ключу и строит публичный URL
type Storage interface {
	Save(ctx context.Context, key string, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Upload - загруженный файл в памяти
type Upload struct {
	Filename string
	Data     []byte
}

// Image - проверенная картинка, готовая к сохранению
type Image struct {
	Key         string
	ContentType string
	Width       int
	Height      int
	Data        []byte
}

// Validate проверяет, что данные - поддерживаемая картинка, и выдает ключ хранения
func Validate(upload Upload) (*Image, error) {
	if len(upload.Data) == 0 {
		return nil, ErrNotImage
	}
	detected := mimetype.Detect(upload.Data)
	var contentType, ext string
	for mime, e := range imageExtensions {
		if detected.Is(mime) {
			contentType, ext = mime, e
			break
		}
	}
	if contentType == "" {
		return nil, ErrNotImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		return nil, ErrNotImage
	}
	return &Image{
		Key:         NewKey(ext),
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        upload.Data,
	}, nil
}

// NewKey - уникальный ключ вида posts/<uuid><ext>
func NewKey(ext string) string {
	return path.Join(UploadDir, uuid.NewString()+ext)
}

func (img *Image) SaveTo(ctx context.Context, storage Storage) error {
	return storage.Save(ctx, img.Key, img.ContentType, bytes.NewReader(img.Data))
}

// Store проверяет загрузку и сохраняет ее, возвращая ключ
func Store(ctx context.Context, storage Storage, upload Upload) (string, error) {
	img, err := Validate(upload)
	if err != nil {
		return "", err
	}
	if err := img.SaveTo(ctx, storage); err != nil {
		return "", err
	}
	return img.Key, nil
}

func joinURL(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(key, "/")
}
