package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// PublicPrefix is the path every stored image reference starts with.
const PublicPrefix = "uploads/images"

// sniffLen is how much of an upload is inspected to decide its type.
const sniffLen = 3072

var (
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrInvalidRef      = errors.New("invalid image reference")
)

// Store keeps uploaded profile images.
type Store interface {
	// Save stores the image and returns its reference.
	Save(ctx context.Context, r io.Reader) (string, error)
	Delete(ctx context.Context, ref string) error
}

// allowed maps accepted content types to the file extension they are stored under.
var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpeg",
}

// detect sniffs the image type and returns a reader that still yields the full content.
func detect(r io.Reader) (ext string, contentType string, body io.Reader, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	for ct, e := range allowed {
		if mtype.Is(ct) {
			return e, ct, io.MultiReader(bytes.NewReader(head), r), nil
		}
	}

	return "", "", nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
}
