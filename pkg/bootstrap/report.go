package bootstrap

import (
	"fmt"
	"io"

	"github.com/gookit/color"
)

// Reporter prints the human-facing progress lines of setup and run.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) Info(format string, args ...any) {
	r.print(color.Blue, "[INFO]", format, args...)
}

func (r *Reporter) Success(format string, args ...any) {
	r.print(color.Green, "[SUCCESS]", format, args...)
}

func (r *Reporter) Warn(format string, args ...any) {
	r.print(color.Yellow, "[WARNING]", format, args...)
}

func (r *Reporter) Error(format string, args ...any) {
	r.print(color.Red, "[ERROR]", format, args...)
}

func (r *Reporter) Plain(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Reporter) print(c color.Color, tag, format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", c.Sprint(tag), fmt.Sprintf(format, args...))
}
