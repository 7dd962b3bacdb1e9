package imagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/mholt/archives"
)

// Archive writes every indexed image to w as a zip file. Images are read
// one at a time while the archive is written, so memory use does not grow
// with the job size. An image removed by a concurrent reset makes the
// archive fail.
func (s *Store) Archive(ctx context.Context, w io.Writer) error {
	names := s.List()
	files := make([]archives.FileInfo, 0, len(names))
	modTime := time.Now()
	for _, name := range names {
		info := blobInfo{name: name, modTime: modTime}
		files = append(files, archives.FileInfo{
			FileInfo:      info,
			NameInArchive: name,
			Open: func() (fs.File, error) {
				data, err := s.Fetch(name)
				if err != nil {
					return nil, err
				}
				info.size = int64(len(data))
				return &blobFile{Reader: bytes.NewReader(data), info: info}, nil
			},
		})
	}

	if err := (archives.Zip{}).Archive(ctx, w, files); err != nil {
		return fmt.Errorf("failed to write image archive: %w", err)
	}
	return nil
}

// blobInfo describes a blob as a regular file. The size is only known
// once the blob has been read.
type blobInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (i blobInfo) Name() string       { return i.name }
func (i blobInfo) Size() int64        { return i.size }
func (i blobInfo) Mode() fs.FileMode  { return 0644 }
func (i blobInfo) ModTime() time.Time { return i.modTime }
func (i blobInfo) IsDir() bool        { return false }
func (i blobInfo) Sys() any           { return nil }

type blobFile struct {
	*bytes.Reader
	info blobInfo
}

func (f *blobFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *blobFile) Close() error               { return nil }
