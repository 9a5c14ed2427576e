// Package main provides larder, an operator tool for on-disk larder caches.
package main

import (
	"os"
	"strings"

	"github.com/LavishGent/larder/internal/cli"
)

func main() {
	environ := os.Environ()
	env := make(map[string]string, len(environ))

	for _, e := range environ {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	os.Exit(cli.Run(os.Stdout, os.Stderr, os.Args, env))
}
