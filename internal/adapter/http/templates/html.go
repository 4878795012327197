package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// html writes markup and keeps the first error, the way generated templ
// components thread their buffer.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) attr(name, value string) {
	h.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

// url writes an href/src attribute, replacing unsafe schemes.
func (h *html) url(name, value string) {
	h.attr(name, string(templ.URL(value)))
}

func (h *html) render(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}
