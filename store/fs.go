package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

type fsStore struct {
	dir string
}

// interface guard
var _ Store = (*fsStore)(nil)

// NewFSFactory stores objects as files under root/bucket.
func NewFSFactory(root, bucket string) Factory {
	dir := filepath.Join(root, bucket)
	return func(context.Context) (Store, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create bucket directory %s", dir)
		}
		return &fsStore{dir: dir}, nil
	}
}

// path maps key to a file under the bucket directory, rejecting keys that
// would resolve outside it.
func (s *fsStore) path(key string) (string, error) {
	p := filepath.Join(s.dir, filepath.FromSlash(key))
	if !strings.HasPrefix(p, s.dir+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrInvalidKey, "%q escapes the bucket directory", key)
	}
	return p, nil
}

func (s *fsStore) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "fs put %s", key)
	}
	f, err := os.Create(p)
	if err != nil {
		return errors.Wrapf(err, "fs put %s", key)
	}
	n, err := io.Copy(f, io.LimitReader(body, size))
	if erc := f.Close(); err == nil {
		err = erc
	}
	if err == nil && n != size {
		err = errors.Errorf("short body: %d of %d bytes", n, size)
	}
	return errors.Wrapf(err, "fs put %s", key)
}

func (s *fsStore) Get(ctx context.Context, key string, w io.Writer) (int64, error) {
	f, err := s.open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := io.Copy(w, f)
	return n, errors.Wrapf(err, "fs get %s", key)
}

func (s *fsStore) GetRange(ctx context.Context, key string, off, length int64, w io.Writer) (int64, error) {
	f, err := s.open(ctx, key)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return 0, errors.Wrapf(err, "fs get %s", key)
	}
	if length < 0 {
		n, err := io.Copy(w, f)
		return n, errors.Wrapf(err, "fs get %s", key)
	}
	n, err := io.CopyN(w, f, length)
	if err == io.EOF {
		// like an HTTP range past the end: return what exists
		err = nil
	}
	return n, errors.Wrapf(err, "fs get %s", key)
}

func (s *fsStore) open(ctx context.Context, key string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrNotFound, "fs get %s", key)
	}
	return f, errors.Wrapf(err, "fs get %s", key)
}

func (s *fsStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if os.IsNotExist(err) {
		return errors.Wrapf(ErrNotFound, "fs delete %s", key)
	}
	return errors.Wrapf(err, "fs delete %s", key)
}

func (*fsStore) Close() error { return nil }
