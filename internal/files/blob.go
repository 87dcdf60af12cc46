package files

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	ErrInvalidKey = errors.New("invalid blob key")
	ErrNotFound   = errors.New("blob not found")
)

// Object: результат загрузки; Key кладётся в значение file/image поля
type Object struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type BlobStore interface {
	Put(name string, r io.Reader) (Object, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
}

// LocalBlobStore хранит файлы под Root: <yyyy>/<mm>/<ulid>/<имя>
type LocalBlobStore struct {
	Root string
	now  func() time.Time
}

func NewLocal(root string) *LocalBlobStore {
	return &LocalBlobStore{Root: root, now: func() time.Time { return time.Now().UTC() }}
}

func (s *LocalBlobStore) Put(name string, r io.Reader) (Object, error) {
	now := s.now()
	name = SafeName(name)
	key := path.Join(fmt.Sprintf("%04d/%02d", now.Year(), int(now.Month())), ulid.Make().String(), name)
	full, err := s.path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	f, err := os.Create(full)
	if err != nil {
		return Object{}, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		_ = os.Remove(full)
		return Object{}, err
	}
	return Object{Key: key, Name: name, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *LocalBlobStore) Open(key string) (io.ReadCloser, error) {
	full, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalBlobStore) Delete(key string) error {
	full, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	return nil
}

// path не выпускает ключ за пределы Root
func (s *LocalBlobStore) path(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	clean := path.Clean(key)
	if key == "" || clean == "." || clean != key || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean)), nil
}

// SafeName: базовое имя без каталогов
func SafeName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}

// NameFromHeader: имя файла из multipart-заголовка
func NameFromHeader(h *multipart.FileHeader) string {
	if h == nil {
		return "file"
	}
	return SafeName(h.Filename)
}
