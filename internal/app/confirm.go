package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Confirmer asks the operator to approve the charge.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ConsoleConfirmer reads one line from in; only "yes" (any case) approves.
type ConsoleConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsoleConfirmer returns a confirmer over the given streams.
func NewConsoleConfirmer(in io.Reader, out io.Writer) *ConsoleConfirmer {
	return &ConsoleConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements Confirmer.
func (c *ConsoleConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := fmt.Fprint(c.out, prompt); err != nil {
		return false, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return isAffirmative(line), nil
}

// StaticConfirmer answers every prompt with the same text.
type StaticConfirmer string

// Confirm implements Confirmer.
func (s StaticConfirmer) Confirm(context.Context, string) (bool, error) {
	return isAffirmative(string(s)), nil
}

func isAffirmative(answer string) bool {
	return strings.EqualFold(strings.TrimRight(answer, "\r\n"), "yes")
}
