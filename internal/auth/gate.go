// Package auth implements the interactive password gate in front of the
// analysis and dashboard commands.
package auth

import (
	"bufio"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// ErrAccessDenied is returned after MaxAttempts wrong passwords.
var ErrAccessDenied = errors.New("auth: access denied")

// PromptFunc reads one password attempt.
type PromptFunc func(prompt string) (string, error)

// Gate checks a password typed by the operator against either a bcrypt hash
// or a plain password. PasswordHash wins when both are set.
type Gate struct {
	Password     string
	PasswordHash string
	MaxAttempts  int
	Prompt       PromptFunc
	Out          io.Writer
}

// NewGate returns a Gate reading from the terminal and writing to stderr.
func NewGate(password, passwordHash string, maxAttempts int) *Gate {
	return &Gate{
		Password:     password,
		PasswordHash: passwordHash,
		MaxAttempts:  maxAttempts,
		Prompt:       TerminalPrompt,
		Out:          os.Stderr,
	}
}

// Enabled reports whether a password is configured.
func (g *Gate) Enabled() bool {
	return g.Password != "" || g.PasswordHash != ""
}

// Authenticate asks for the password until it matches or MaxAttempts is
// reached. It succeeds immediately when no password is configured.
func (g *Gate) Authenticate() error {
	if !g.Enabled() {
		return nil
	}
	attempts := g.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	fmt.Fprintln(g.Out, "\n🔐 Authentication required to access market analysis")
	for i := 1; i <= attempts; i++ {
		input, err := g.Prompt("Enter password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if g.matches(input) {
			fmt.Fprintln(g.Out, "✅ Authentication successful!")
			return nil
		}
		fmt.Fprintf(g.Out, "❌ Incorrect password! %d attempts remaining.\n", attempts-i)
	}
	fmt.Fprintln(g.Out, "\n🛑 Authentication failed. Access denied.")
	return ErrAccessDenied
}

func (g *Gate) matches(input string) bool {
	if g.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.PasswordHash), []byte(input)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.Password), []byte(input)) == 1
}

// HashPassword returns a bcrypt hash suitable for auth.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("auth: empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

var stdinReader = bufio.NewReader(os.Stdin)

// TerminalPrompt reads a password without echo when stdin is a terminal and
// falls back to reading a line otherwise.
func TerminalPrompt(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := stdinReader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
