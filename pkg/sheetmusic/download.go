package sheetmusic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

func (s *service) DownloadObject(ctx context.Context, url string) (string, error) {
	if s.loader == nil {
		return "", &ResourceError{URL: url, Op: "resolve", Err: errors.New("no resource loader configured")}
	}

	resource, err := s.loader.GetResource(ctx, url)
	if err != nil {
		return "", &ResourceError{URL: url, Op: "resolve", Err: err}
	}

	name := filepath.Base(resource.Filename())
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", &ResourceError{URL: url, Op: "resolve", Err: fmt.Errorf("%w: no filename", ErrResourceNotFound)}
	}

	reader, err := resource.Open(ctx)
	if err != nil {
		return "", &ResourceError{URL: url, Op: "open", Err: err}
	}
	defer reader.Close()

	localPath := filepath.Join(s.downloadDir, name)
	file, err := os.Create(localPath)
	if err != nil {
		return "", &ResourceError{URL: url, Op: "create", Err: err}
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		return "", &ResourceError{URL: url, Op: "copy", Err: err}
	}
	if err := file.Close(); err != nil {
		return "", &ResourceError{URL: url, Op: "close", Err: err}
	}

	s.logger.Info("downloaded object", "url", url, "path", localPath)
	return localPath, nil
}
