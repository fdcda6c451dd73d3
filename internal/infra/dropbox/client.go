// Package dropbox uploads documents to the Dropbox content API.
package dropbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfrelay/internal/config"
	"pdfrelay/internal/infra/upstream"
)

// Service names the upstream in errors, logs and metrics.
const Service = "dropbox"

// uploadArg is sent in the Dropbox-API-Arg header. Mode "add" with autorename
// never overwrites: a conflicting name is stored as "name (1).pdf".
type uploadArg struct {
	Path       string `json:"path"`
	Mode       string `json:"mode"`
	Autorename bool   `json:"autorename"`
	Mute       bool   `json:"mute"`
}

type Client struct {
	uploadURL string
	token     string
	timeout   time.Duration

	http *fiber.Client
}

func New(cfg config.Config) *Client {
	return &Client{
		uploadURL: cfg.Storage.UploadURL,
		token:     cfg.Storage.AccessToken,
		timeout:   cfg.Storage.Timeout,
		http:      upstream.NewHTTPClient(),
	}
}

// Upload stores data at path and returns the file metadata Dropbox replies with.
func (c *Client) Upload(ctx context.Context, path string, data []byte) (json.RawMessage, error) {
	arg, err := headerArg(uploadArg{Path: path, Mode: "add", Autorename: true, Mute: false})
	if err != nil {
		return nil, err
	}

	a := c.http.Post(c.uploadURL).
		Set(fiber.HeaderAuthorization, "Bearer "+c.token).
		Set("Dropbox-API-Arg", arg).
		ContentType(fiber.MIMEOctetStream).
		Body(data)

	body, err := upstream.Do(ctx, Service, a, c.timeout)
	if err != nil {
		return nil, err
	}
	return rawJSON(body), nil
}

// headerArg encodes v as JSON with every non-ASCII rune escaped, since HTTP
// header values must stay ASCII.
func headerArg(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, r := range string(b) {
		switch {
		case r < 0x80:
			sb.WriteRune(r)
		case r > 0xFFFF:
			r -= 0x10000
			fmt.Fprintf(&sb, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
		default:
			fmt.Fprintf(&sb, `\u%04x`, r)
		}
	}
	return sb.String(), nil
}

// rawJSON passes JSON bodies through and wraps anything else as a JSON string.
func rawJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(string(body))
	return json.RawMessage(b)
}
