package chrome

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrelay/internal/config"
	"pdfrelay/internal/domain"
)

func TestLayoutFromConfig_DefaultMargins(t *testing.T) {
	l := LayoutFromConfig(config.Default())

	assert.Equal(t, a4Width, l.Width)
	assert.Equal(t, a4Height, l.Height)
	assert.InDelta(t, 20.0/96.0, l.MarginTop, 1e-9)
	assert.InDelta(t, 20.0/96.0, l.MarginLeft, 1e-9)
	assert.False(t, l.Landscape)
	assert.True(t, l.PrintBackground)
}

func TestPxToInches_InvalidValues(t *testing.T) {
	assert.Equal(t, 0.0, pxToInches(""))
	assert.Equal(t, 0.0, pxToInches("abc"))
	assert.Equal(t, 0.0, pxToInches("-5"))
	assert.Equal(t, 1.0, pxToInches("96"))
}

func TestNew_DefaultTimeout(t *testing.T) {
	c := New(config.Default())
	assert.Equal(t, defaultTimeout, c.timeout)

	cfg := config.Default()
	cfg.Converter.Timeout = 3 * time.Second
	assert.Equal(t, 3*time.Second, New(cfg).timeout)
}

func TestConvert_ErrorWhenBinaryMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Converter.Backend = config.BackendChrome
	cfg.Converter.ChromePath = "/definitely/missing/chrome"
	cfg.Converter.Timeout = time.Second

	_, err := New(cfg).Convert(context.Background(), "<html>hello world</html>")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestRenderInTab_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := renderInTab(ctx, "<html>hello world</html>", LayoutFromConfig(config.Default()))
	require.Error(t, err)
}
