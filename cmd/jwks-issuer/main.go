package main

import (
	"log/slog"
	"os"

	"github.com/TwigBush/jwks-issuer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error("jwks-issuer", "err", err)
		os.Exit(1)
	}
}
