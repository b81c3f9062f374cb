package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"github.com/downfa11-org/go-kvs/pkg/client"
	"github.com/downfa11-org/go-kvs/pkg/types"
	"github.com/urfave/cli/v2"
)

const defaultAddr = "127.0.0.1:4000"

var connFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "addr",
		Value: defaultAddr,
		Usage: "server address (IP:PORT)",
	},
	&cli.BoolFlag{
		Name:    "tls",
		Usage:   "connect over TLS",
		EnvVars: []string{"KVS_USE_TLS"},
	},
	&cli.StringFlag{
		Name:    "tls-ca",
		Usage:   "PEM bundle of CAs trusted for the server certificate (implies --tls)",
		EnvVars: []string{"KVS_TLS_CA_PATH"},
	},
	&cli.StringFlag{
		Name:  "tls-server-name",
		Usage: "name to verify in the server certificate",
	},
	&cli.BoolFlag{
		Name:  "tls-insecure",
		Usage: "skip server certificate verification (implies --tls)",
	},
}

func withClient(c *cli.Context, fn func(kc *client.KvsClient) error) error {
	var tlsConfig *tls.Config
	if c.Bool("tls") || c.String("tls-ca") != "" || c.Bool("tls-insecure") {
		cfg, err := client.LoadTLSConfig(c.String("tls-ca"), c.String("tls-server-name"), c.Bool("tls-insecure"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		tlsConfig = cfg
	}

	kc, err := client.Connect(c.String("addr"), tlsConfig)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer kc.Close()
	return fn(kc)
}

func main() {
	app := &cli.App{
		Name:    "kvs-client",
		Usage:   "talk to a kvs-server",
		Version: "0.1.0",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Get the string value of a given string key",
				ArgsUsage: "<KEY>",
				Flags:     connFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: kvs-client get <KEY>", 2)
					}
					return withClient(c, func(kc *client.KvsClient) error {
						value, ok, err := kc.Get(c.Args().First())
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
				Name:      "set",
				Usage:     "Set the value of a string key to a string",
				ArgsUsage: "<KEY> <VALUE>",
				Flags:     connFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: kvs-client set <KEY> <VALUE>", 2)
					}
					return withClient(c, func(kc *client.KvsClient) error {
						if err := kc.Set(c.Args().Get(0), c.Args().Get(1)); err != nil {
							return cli.Exit(err.Error(), 1)
						}
						return nil
					})
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a given string key",
				ArgsUsage: "<KEY>",
				Flags:     connFlags,
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: kvs-client rm <KEY>", 2)
					}
					return withClient(c, func(kc *client.KvsClient) error {
						err := kc.Remove(c.Args().First())
						if errors.Is(err, types.ErrKeyNotFound) {
							return cli.Exit("Key not found", 1)
						}
						if err != nil {
							return cli.Exit(err.Error(), 1)
						}
						return nil
					})
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
