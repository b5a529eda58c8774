package attachment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"team-mail/domain"
	"team-mail/errors"
)

func TestCodec_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"report.txt", []byte("quarterly numbers attached")},
		{"empty.bin", []byte{}},
		{"binary.dat", []byte{0x00, 0xff, 0x10, 0x80, 0x7f}},
		{"отчёт.pdf", []byte("%PDF-1.4 not really a pdf")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)

			a, err := Encode(File{Name: tc.name, Data: tc.data})
			req.NoError(err)
			req.Equal(tc.name, a.Name)
			req.Equal(int64(len(tc.data)), a.Size, "size must be the original length, not the encoded one")
			req.True(strings.HasPrefix(a.URL, "data:"))

			got, err := Decode(a)
			req.NoError(err)
			if len(tc.data) == 0 {
				req.Empty(got)
			} else {
				req.Equal(tc.data, got)
			}
		})
	}
}

func TestEncode_IsDeterministic(t *testing.T) {
	req := require.New(t)
	f := File{Name: "notes.txt", Data: []byte("same bytes, same attachment")}

	first, err := Encode(f)
	req.NoError(err)
	second, err := Encode(f)
	req.NoError(err)
	req.Equal(first, second)
}

func TestEncodeAll_IsolatesFailures(t *testing.T) {
	req := require.New(t)

	files := []File{
		{Name: "good.txt", Data: []byte("fine")},
		{Name: "", Data: []byte("nameless")},
		{Name: "also-good.txt", Data: []byte("also fine")},
	}

	encoded, failed := EncodeAll(files)
	req.Len(encoded, 2, "one failing file must not abort the others")
	req.Len(failed, 1)
	req.ErrorIs(failed[0], errors.ErrEncoding)
	req.Equal("good.txt", encoded[0].Name)
	req.Equal("also-good.txt", encoded[1].Name)
}

func TestDecode_RejectsMalformedURLs(t *testing.T) {
	t.Run("should reject non data URIs", func(t *testing.T) {
		req := require.New(t)
		_, err := Decode(domain.Attachment{Name: "f", URL: "https://example.com/f"})
		req.ErrorIs(err, errors.ErrEncoding)
	})

	t.Run("should reject a missing base64 marker", func(t *testing.T) {
		req := require.New(t)
		_, err := Decode(domain.Attachment{Name: "f", URL: "data:text/plain,hello"})
		req.ErrorIs(err, errors.ErrEncoding)
	})

	t.Run("should reject invalid base64 payloads", func(t *testing.T) {
		req := require.New(t)
		_, err := Decode(domain.Attachment{Name: "f", URL: "data:text/plain;base64,&&&&"})
		req.ErrorIs(err, errors.ErrEncoding)
	})
}
