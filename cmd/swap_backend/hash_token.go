package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/SscSPs/swap_exchange_app/internal/middleware"
)

const hashTokenCommand = "hash-token"

// runHashToken prints the SERVICE_TOKEN_HASH value for a settlement token given
// as the only argument, or on the first line of stdin.
func runHashToken(args []string, stdin io.Reader, stdout io.Writer) error {
	var token string
	switch len(args) {
	case 0:
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read token: %w", err)
		}
		token = strings.TrimSpace(line)
	case 1:
		token = strings.TrimSpace(args[0])
	default:
		return fmt.Errorf("usage: swap_backend %s [token]", hashTokenCommand)
	}
	if token == "" {
		return errors.New("token must not be empty")
	}

	hash, err := middleware.HashServiceToken(token)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
