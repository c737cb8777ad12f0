package storage

import (
	"github.com/pkg/errors"
	"rsc.io/pdf"
)

// PDFPageCount returns the number of pages of the PDF stored at path.
func PDFPageCount(path string) (pages int, err error) {
	defer func() {
		// rsc.io/pdf panics on some malformed cross-reference tables
		if r := recover(); r != nil {
			pages, err = 0, errors.Errorf("read pdf %s: %v", path, r)
		}
	}()

	doc, err := pdf.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open pdf")
	}
	return doc.NumPage(), nil
}
