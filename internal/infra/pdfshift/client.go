// Package pdfshift is the hosted HTML to PDF converter client.
package pdfshift

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdfrelay/internal/config"
	"pdfrelay/internal/infra/upstream"
)

// Service names the upstream in errors, logs and metrics.
const Service = "pdfshift"

type margin struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

type convertRequest struct {
	Source    string `json:"source"`
	Landscape bool   `json:"landscape"`
	UsePrint  bool   `json:"use_print"`
	Margin    margin `json:"margin"`
}

// Client converts markup with fixed layout options taken from the config.
type Client struct {
	endpoint  string
	apiKey    string
	timeout   time.Duration
	landscape bool
	usePrint  bool
	margin    margin

	http *fiber.Client
}

func New(cfg config.Config) *Client {
	m := cfg.Converter.Margin
	return &Client{
		endpoint:  cfg.Converter.Endpoint,
		apiKey:    cfg.Converter.APIKey,
		timeout:   cfg.Converter.Timeout,
		landscape: cfg.Converter.Landscape,
		usePrint:  cfg.Converter.UsePrint,
		margin:    margin{Top: m.Top, Right: m.Right, Bottom: m.Bottom, Left: m.Left},
		http:      upstream.NewHTTPClient(),
	}
}

// Convert posts markup to the converter and returns the raw PDF bytes.
func (c *Client) Convert(ctx context.Context, markup string) ([]byte, error) {
	a := c.http.Post(c.endpoint).
		Set("X-API-Key", c.apiKey).
		Set(fiber.HeaderAccept, "application/pdf").
		JSON(convertRequest{
			Source:    markup,
			Landscape: c.landscape,
			UsePrint:  c.usePrint,
			Margin:    c.margin,
		})

	return upstream.Do(ctx, Service, a, c.timeout)
}
