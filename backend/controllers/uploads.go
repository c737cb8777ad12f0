package controllers

import (
	"mime/multipart"
	"strings"

	"learning-platform/backend/models"
	"learning-platform/backend/storage"

	"github.com/pkg/errors"
)

type upload struct {
	Key  string
	Size int64
}

func saveUpload(store storage.Storage, prefix string, fh *multipart.FileHeader) (*upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "open upload")
	}
	defer f.Close()

	key := storage.NewKey(prefix, fh.Filename)
	n, err := store.Save(key, f)
	if err != nil {
		return nil, errors.Wrapf(err, "store %s", fh.Filename)
	}
	return &upload{Key: key, Size: n}, nil
}

// fillChapterFile points the chapter at a stored upload and counts pages
// for PDFs.
func fillChapterFile(store storage.Storage, chapter *models.Chapter, fileName string, up *upload) {
	chapter.FileName = fileName
	chapter.S3Key = up.Key
	if chapter.ContentType == "" {
		if models.MaterialTypeFor(fileName, "") == models.MaterialPDF {
			chapter.ContentType = models.ContentPDF
		} else {
			chapter.ContentType = models.ContentVideo
		}
	}
	if chapter.ContentType == models.ContentPDF && chapter.PageCount == 0 {
		if path, err := store.Path(up.Key); err == nil {
			if pages, err := storage.PDFPageCount(path); err == nil {
				chapter.PageCount = pages
			}
		}
	}
}

// isStoredKey reports whether key refers to our storage rather than an
// external URL.
func isStoredKey(key string) bool {
	return key != "" && !strings.HasPrefix(key, "http://") && !strings.HasPrefix(key, "https://")
}

// keyAllowed reports whether a client may point a chapter at key. Stored
// keys are only produced by uploads, so a client may keep the chapter's
// current key or name an external URL, never another stored file.
func keyAllowed(key, current string) bool {
	return !isStoredKey(key) || key == current
}

const keyNotAllowed = "s3Key must be an http(s) URL; stored files are attached by upload"
