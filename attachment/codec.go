// Package attachment converts file payloads into self-contained message
// attachments and back. Content is inlined into the URL as a base64 data
// URI so an attachment travels with its message and needs no blob storage.
package attachment

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"team-mail/domain"
	"team-mail/errors"
)

const scheme = "data:"

// File is a named payload about to be attached.
type File struct {
	Name string
	Data []byte
}

// Encode produces a self-contained attachment. The media type is sniffed
// from the content, Size is the original byte length, not the encoded one.
// Encoding is deterministic and lossless.
func Encode(f File) (domain.Attachment, error) {
	if f.Name == "" {
		return domain.Attachment{}, fmt.Errorf("%w: attachment without a name", errors.ErrEncoding)
	}

	mt := mimetype.Detect(f.Data)
	url := scheme + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(f.Data)

	return domain.Attachment{
		Name: f.Name,
		URL:  url,
		Size: int64(len(f.Data)),
	}, nil
}

// EncodeAll encodes every file independently. Each file is its own failure
// domain: one broken file is reported in the error slice while the
// remaining attachments are still produced and sent.
func EncodeAll(files []File) ([]domain.Attachment, []error) {
	var (
		encoded []domain.Attachment
		failed  []error
	)
	for _, f := range files {
		a, err := Encode(f)
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		encoded = append(encoded, a)
	}
	return encoded, failed
}

// Decode recovers the original bytes from an attachment URL.
func Decode(a domain.Attachment) ([]byte, error) {
	if !strings.HasPrefix(a.URL, scheme) {
		return nil, fmt.Errorf("%w: %s is not a data URI", errors.ErrEncoding, a.Name)
	}

	header, payload, found := strings.Cut(a.URL[len(scheme):], ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: %s has a malformed data URI header", errors.ErrEncoding, a.Name)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrEncoding, a.Name, err)
	}
	return data, nil
}
