package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/downfa11-org/go-kvs/pkg/engine"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/downfa11-org/go-kvs/util"
	"github.com/urfave/cli/v2"
)

// kvs operates directly on a data directory without a server.
func main() {
	dirFlag := &cli.StringFlag{
		Name:  "data-dir",
		Value: ".",
		Usage: "data directory",
	}

	withStore := func(c *cli.Context, fn func(s *engine.KvStore) error) error {
		s, err := engine.Open(c.String("data-dir"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer func() {
			if err := s.Close(); err != nil {
				util.Error("close store: %v", err)
			}
		}()
		return fn(s)
	}

	app := &cli.App{
		Name:    "kvs",
		Usage:   "a log-structured key-value store",
		Version: "0.1.0",
		Flags:   []cli.Flag{dirFlag},
		Before: func(c *cli.Context) error {
			util.SetLevel(util.LogLevelWarn)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set the value of a string key to a string",
				ArgsUsage: "<KEY> <VALUE>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: kvs set <KEY> <VALUE>", 2)
					}
					return withStore(c, func(s *engine.KvStore) error {
						if err := s.Set(c.Args().Get(0), c.Args().Get(1)); err != nil {
							return cli.Exit(err.Error(), 1)
						}
						return nil
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Get the string value of a given string key",
				ArgsUsage: "<KEY>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: kvs get <KEY>", 2)
					}
					return withStore(c, func(s *engine.KvStore) error {
						value, ok, err := s.Get(c.Args().First())
						if err != nil {
							return cli.Exit(err.Error(), 1)
						}
						if !ok {
							fmt.Println("Key not found")
							return nil
						}
						fmt.Println(value)
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a given key",
				ArgsUsage: "<KEY>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: kvs rm <KEY>", 2)
					}
					return withStore(c, func(s *engine.KvStore) error {
						err := s.Remove(c.Args().First())
						if errors.Is(err, types.ErrKeyNotFound) {
							fmt.Println("Key not found")
							return cli.Exit("", 1)
						}
						if err != nil {
							return cli.Exit(err.Error(), 1)
						}
						return nil
					})
				},
			},
			{
				Name:  "compact",
				Usage: "Rewrite live entries and drop superseded segments",
				Action: func(c *cli.Context) error {
					return withStore(c, func(s *engine.KvStore) error {
						if err := s.Compact(); err != nil {
							return cli.Exit(err.Error(), 1)
						}
						st := s.Stats()
						fmt.Printf("keys=%d segments=%d active=%d\n", st.Keys, st.Segments, st.ActiveGeneration)
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
