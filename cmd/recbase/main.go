package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"recbase/internal/services"
)

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", services.OutcomeName(err), err)
		}
		os.Exit(1)
	}
}
