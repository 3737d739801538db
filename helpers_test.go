package textpage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tsawler/textpage/engine"
	"github.com/tsawler/textpage/internal/testpdf"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestCore(t *testing.T, opts ...Option) *Core {
	t.Helper()
	base := []Option{
		WithEngineOptions(engine.WithTempDir(t.TempDir())),
		WithLogger(quietLogger()),
	}
	return NewCore(append(base, opts...)...)
}

func openDoc(t *testing.T, c *Core, data []byte) *Document {
	t.Helper()
	d, err := c.NewDocument(context.Background(), data)
	require.NoError(t, err)
	return d
}

func openPage(t *testing.T, c *Core, data []byte, index int) *TextPage {
	t.Helper()
	d := openDoc(t, c, data)
	t.Cleanup(func() { d.Close() })
	p, err := d.OpenTextPage(context.Background(), index)
	require.NoError(t, err)
	return p
}

// helloPage shows "Hello" at (72, 700) and "world" at (72, 680), size 10.
// Characters are 6 points wide: index i of "Hello" spans x 72+6i to 78+6i.
func helloPage() []byte {
	return testpdf.Build(testpdf.Line(72, 700, 10, "Hello") + testpdf.Line(72, 680, 10, "world"))
}
