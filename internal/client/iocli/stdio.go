package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio реализует IO поверх терминала.
// Пароль читается без эха, если вход является терминалом.
type Stdio struct {
	in     *bufio.Reader
	out    io.Writer
	fd     int
	isTerm func(fd int) bool
}

// NewStdio создает IO для os.Stdin и os.Stdout
func NewStdio() IO {
	return newStdio(os.Stdin, os.Stdout, int(os.Stdin.Fd()))
}

// NewStream создает IO для произвольных потоков, эхо не отключается
func NewStream(in io.Reader, out io.Writer) IO {
	return newStdio(in, out, -1)
}

func newStdio(in io.Reader, out io.Writer, fd int) *Stdio {
	return &Stdio{
		in:     bufio.NewReader(in),
		out:    out,
		fd:     fd,
		isTerm: term.IsTerminal,
	}
}

func (s *Stdio) Println(a ...any) {
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	return s.readLine()
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	s.Printf("%s", prompt)

	if s.fd < 0 || !s.isTerm(s.fd) {
		// Не терминал (pipe, тесты): читаем строку как есть
		return s.readLine()
	}

	pwBytes, err := term.ReadPassword(s.fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) readLine() (string, error) {
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
