// Command hashtoken prints a bcrypt hash of an access token for use as
// ACCESS_TOKEN_HASH, so the plain token need not be kept in the environment.
//
//	hashtoken <token>
//	echo -n <token> | hashtoken
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/imgtext/internal/auth"
)

func main() {
	token, err := readToken()
	if err != nil {
		slog.Error("failed to read token", "err", err)
		os.Exit(1)
	}
	if token == "" {
		slog.Error("usage: hashtoken <token>")
		os.Exit(2)
	}

	hash, err := auth.Hash(token)
	if err != nil {
		slog.Error("failed to hash token", "err", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readToken() (string, error) {
	if len(os.Args) > 1 {
		return os.Args[1], nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
