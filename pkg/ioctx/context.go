// Package ioctx carries the standard streams of a command through a
// context.Context, so drivers and tests can swap them without globals.
package ioctx

import (
	"context"
	"io"
	"strings"
)

type stdinKey struct{}
type stdoutKey struct{}
type stderrKey struct{}

// StdinFromContext returns the input stream, or an empty reader if none was
// set.
func StdinFromContext(ctx context.Context) io.Reader {
	if r, ok := ctx.Value(stdinKey{}).(io.Reader); ok {
		return r
	}
	return strings.NewReader("")
}

func StdinToContext(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey{}, r)
}

// StdoutFromContext returns the output stream, or io.Discard if none was set.
func StdoutFromContext(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stdoutKey{}).(io.Writer); ok {
		return w
	}
	return io.Discard
}

func StdoutToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey{}, w)
}

// StderrFromContext returns the error stream, or io.Discard if none was set.
func StderrFromContext(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(stderrKey{}).(io.Writer); ok {
		return w
	}
	return io.Discard
}

func StderrToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey{}, w)
}
