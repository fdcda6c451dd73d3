package domain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Converter renders HTML markup into PDF bytes.
type Converter interface {
	Convert(ctx context.Context, markup string) ([]byte, error)
}

// Store uploads bytes to path and returns the store's response body verbatim.
type Store interface {
	Upload(ctx context.Context, path string, data []byte) (json.RawMessage, error)
}

// ConverterFunc adapts a function to Converter.
type ConverterFunc func(ctx context.Context, markup string) ([]byte, error)

func (f ConverterFunc) Convert(ctx context.Context, markup string) ([]byte, error) {
	return f(ctx, markup)
}

// PDF is a rendered or client-supplied document.
type PDF []byte

// Base64 encodes the document with standard padded base64.
func (p PDF) Base64() string {
	return base64.StdEncoding.EncodeToString(p)
}

// DecodePDF decodes a base64 payload the lenient way browsers and Node do.
// It never fails: characters outside both alphabets are skipped, standard and
// URL-safe alphabets may be mixed, decoding stops at the first '=' and a
// dangling final character is dropped.
func DecodePDF(payload string) PDF {
	var b strings.Builder
	b.Grow(len(payload))
	for i := 0; i < len(payload); i++ {
		ch := payload[i]
		switch {
		case ch == '=':
			i = len(payload)
			continue
		case ch == '-':
			ch = '+'
		case ch == '_':
			ch = '/'
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '+', ch == '/':
		default:
			continue
		}
		b.WriteByte(ch)
	}

	s := b.String()
	if len(s)%4 == 1 {
		s = s[:len(s)-1]
	}
	// Only alphabet characters remain, so decoding cannot fail.
	out, _ := base64.RawStdEncoding.DecodeString(s)
	return PDF(out)
}
