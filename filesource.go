package mirror

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/esimov/mirror/utils"
)

var errWalkCancelled = errors.New("directory walk cancelled")

// FileSource reads frames from an image file, from a directory of images
// (walked recursively in lexical order) or from a remote image URL.
type FileSource struct {
	paths   <-chan string
	errc    <-chan error
	done    chan struct{}
	tmpFile string
	once    sync.Once

	exhausted bool
	walkErr   error
}

// NewFileSource opens the image source found at path.
func NewFileSource(ctx context.Context, path string) (*FileSource, error) {
	s := &FileSource{done: make(chan struct{})}

	// Check if source path is a local image or URL.
	if utils.IsValidUrl(path) {
		f, err := utils.DownloadImage(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load the source image: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		s.tmpFile = f.Name()
		path = f.Name()
	}

	fi, err := os.Stat(path)
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load the source image: %w", err)
	}

	switch mode := fi.Mode(); {
	case mode.IsDir():
		s.paths, s.errc = walkDir(s.done, path)
	case mode.IsRegular():
		if s.tmpFile == "" && !isValidExtension(path) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
		}
		paths := make(chan string, 1)
		errc := make(chan error, 1)
		paths <- path
		close(paths)
		errc <- nil
		s.paths, s.errc = paths, errc
	default:
		s.cleanup()
		return nil, fmt.Errorf("%s is neither a regular file nor a directory", path)
	}

	return s, nil
}

// Next decodes the next image. It returns io.EOF after the last one.
func (s *FileSource) Next(ctx context.Context) (image.Image, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case path, ok := <-s.paths:
		if !ok {
			return nil, s.finish()
		}
		return decodeImg(path)
	}
}

// finish collects the result of the directory walk once the paths are consumed.
func (s *FileSource) finish() error {
	if !s.exhausted {
		s.exhausted = true
		if err := <-s.errc; err != nil && !errors.Is(err, errWalkCancelled) {
			s.walkErr = fmt.Errorf("walking the source directory: %w", err)
		}
	}
	if s.walkErr != nil {
		return s.walkErr
	}
	return io.EOF
}

// Close stops the directory walk and removes the downloaded file, if any.
func (s *FileSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.cleanup()
	})
	return err
}

func (s *FileSource) cleanup() error {
	if s.tmpFile == "" {
		return nil
	}
	if err := os.Remove(s.tmpFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// walkDir starts a new goroutine to walk the specified directory tree
// in recursive manner and sends the path of each supported image file to a new channel.
// It finishes in case the done channel is getting closed.
func walkDir(done <-chan struct{}, src string) (<-chan string, <-chan error) {
	pathChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		// Close the paths channel after Walk returns.
		defer close(pathChan)

		errChan <- filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() || !isValidExtension(path) {
				return nil
			}

			select {
			case <-done:
				return errWalkCancelled
			case pathChan <- path:
			}
			return nil
		})
	}()
	return pathChan, errChan
}
