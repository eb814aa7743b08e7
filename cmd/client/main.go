// Command client is an interactive line client for the cargo tracking server.
//
//	client [host] [port]
//
// Lines typed on stdin are sent as commands; every line from the server is
// printed, with EVENT notifications highlighted.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"
)

const (
	defaultHost = "localhost"
	defaultPort = 5000
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	flags := pflag.NewFlagSet("client", pflag.ContinueOnError)
	noColor := flags.Bool("no-color", false, "disable colored output")
	if err := flags.Parse(args); err != nil {
		return err
	}
	addr, err := address(flags.Args())
	if err != nil {
		return err
	}
	if *noColor {
		color.NoColor = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	p := newPrinter(out)
	received := make(chan error, 1)
	go func() { received <- p.copyLines(conn) }()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	sent := make(chan error, 1)
	go func() { sent <- sendLines(in, conn) }()

	select {
	case err := <-received:
		p.info("Connection closed by server")
		return err
	case err := <-sent:
		p.info("Exiting client...")
		return err
	case <-ctx.Done():
		p.info("Exiting client...")
		return nil
	}
}

// address builds host:port from the optional positional arguments.
func address(args []string) (string, error) {
	host, port := defaultHost, defaultPort
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 || n > 65535 {
			return "", fmt.Errorf("invalid port %q", args[1])
		}
		port = n
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

func sendLines(in io.Reader, conn io.Writer) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := io.WriteString(conn, line+"\n"); err != nil {
			return fmt.Errorf("failed to send: %w", err)
		}
	}
	return scanner.Err()
}

// printer colors server lines by their leading token.
type printer struct {
	out   io.Writer
	ok    *color.Color
	err   *color.Color
	event *color.Color
	note  *color.Color
}

func newPrinter(out io.Writer) *printer {
	return &printer{
		out:   out,
		ok:    color.New(color.FgGreen),
		err:   color.New(color.FgRed, color.Bold),
		event: color.New(color.FgCyan),
		note:  color.New(color.Faint),
	}
}

func (p *printer) render(line string) string {
	switch {
	case strings.HasPrefix(line, "EVENT "):
		return p.event.Sprint(line)
	case strings.HasPrefix(line, "ERR"):
		return p.err.Sprint(line)
	case strings.HasPrefix(line, "OK"):
		return p.ok.Sprint(line)
	default:
		return line
	}
}

func (p *printer) copyLines(conn io.Reader) error {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		fmt.Fprintln(p.out, p.render(scanner.Text()))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (p *printer) info(msg string) {
	fmt.Fprintln(p.out, p.note.Sprint(msg))
}
