package workers

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/getmockd/scriptd/pkg/response"
)

// Private scripts the stock workers forward to.
const (
	CalcScript = "/private/pages/calc.smscr"
	HomeScript = "/private/pages/home.smscr"
)

// DefaultBackground is the page colour until a client picks one.
const DefaultBackground = "7F7F7F"

// Hello greets the caller and measures the name parameter.
type Hello struct {
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (w *Hello) ProcessRequest(ctx *response.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	var sb strings.Builder
	sb.WriteString("<html><body>\n<h1>Hello!</h1>\n")
	fmt.Fprintf(&sb, "<p>Now is: %s</p>\n", now().Format("2006-01-02 15:04:05"))
	if name, ok := ctx.Param("name"); ok && strings.TrimSpace(name) != "" {
		fmt.Fprintf(&sb, "<p>Your name has %d letters.</p>\n", utf8.RuneCountInString(strings.TrimSpace(name)))
	} else {
		sb.WriteString("<p>You did not send me your name!</p>\n")
	}
	sb.WriteString("</body></html>\n")

	_, err := ctx.WriteString(sb.String())
	return err
}

// EchoParams prints the request parameters as a table.
type EchoParams struct{}

func (w *EchoParams) ProcessRequest(ctx *response.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}
	var sb strings.Builder
	sb.WriteString("<html><body>\n<table border=\"1\">\n<tr><th>Name</th><th>Value</th></tr>\n")
	for _, name := range ctx.ParamNames() {
		v, _ := ctx.Param(name)
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td></tr>\n", html.EscapeString(name), html.EscapeString(v))
	}
	sb.WriteString("</table>\n</body></html>\n")

	_, err := ctx.WriteString(sb.String())
	return err
}

// Sum adds the integer parameters a and b and renders the result through
// the calc script. Missing or malformed operands default to 1 and 2.
type Sum struct{}

func (w *Sum) ProcessRequest(ctx *response.Context) error {
	a := intParam(ctx, "a", 1)
	b := intParam(ctx, "b", 2)

	ctx.SetTempParam("a", strconv.Itoa(a))
	ctx.SetTempParam("b", strconv.Itoa(b))
	ctx.SetTempParam("sum", strconv.Itoa(a+b))
	return ctx.Dispatch(CalcScript)
}

func intParam(ctx *response.Context, name string, def int) int {
	raw, ok := ctx.Param(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

var hexColor = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// BgColor stores a valid bgcolor parameter in the session.
type BgColor struct{}

func (w *BgColor) ProcessRequest(ctx *response.Context) error {
	if err := ctx.SetMimeType("text/html"); err != nil {
		return err
	}
	msg := "Color not updated."
	if color, ok := ctx.Param("bgcolor"); ok && hexColor.MatchString(color) {
		ctx.SetPersistentParam("bgcolor", strings.ToUpper(color))
		msg = "Color updated."
	}
	_, err := fmt.Fprintf(ctx, "<html><body>\n<p>%s</p>\n<p><a href=\"/index2.html\">Back to home</a></p>\n</body></html>\n", msg)
	return err
}

// Home renders the home script with the session's background colour.
type Home struct{}

func (w *Home) ProcessRequest(ctx *response.Context) error {
	bg, ok := ctx.PersistentParam("bgcolor")
	if !ok {
		bg = DefaultBackground
	}
	ctx.SetTempParam("background", bg)
	return ctx.Dispatch(HomeScript)
}
