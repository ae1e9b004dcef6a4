package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	atcrypto "github.com/bluesky-social/indigo/atproto/crypto"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/urfave/cli/v3"

	"github.com/pilacorp/go-siop-sdk/siop/common/jwt"
	"github.com/pilacorp/go-siop-sdk/siop/common/provider"
	verificationmethod "github.com/pilacorp/go-siop-sdk/siop/common/verification-method"
	"github.com/pilacorp/go-siop-sdk/siop/config"
	"github.com/pilacorp/go-siop-sdk/siop/response"
)

func main() {
	app := cli.Command{
		Name:  "siopctl",
		Usage: "inspect DIDs, SIOP tokens and error responses",
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "resolver-url",
			Usage:   "base URL of the universal DID resolver",
			Value:   config.DefaultResolverURL,
			Sources: cli.EnvVars(config.EnvResolverURL),
		},
	}
	app.Flags = append(app.Flags, loggingFlags()...)
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		setupLogging(cmd)
		return ctx, nil
	}
	app.Commands = []*cli.Command{
		{
			Name:      "resolve",
			Usage:     "resolve a DID and print its document",
			ArgsUsage: "<did>",
			Action:    runResolve,
		},
		{
			Name:      "keys",
			Usage:     "resolve a DID and print the canonical form of its authentication keys",
			ArgsUsage: "<did>",
			Action:    runKeys,
		},
		{
			Name:      "decode",
			Usage:     "decode a compact token without verifying it",
			ArgsUsage: "<token>",
			Action:    runDecode,
		},
		{
			Name:   "keygen",
			Usage:  "generate a fresh private key",
			Action: runKeyGen,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "type",
					Usage: "key type; one of 'secp256k1' or 'ed25519'",
					Value: "secp256k1",
				},
			},
		},
		{
			Name:      "error",
			Usage:     "encode a catalog error response, or decode one with --decode",
			ArgsUsage: "<code|encoded>",
			Action:    runError,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "decode",
					Usage: "decode the argument instead of encoding it",
				},
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "one of debug, info, warn, error (default $" + config.EnvLogLevel + " or info)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "text or json (default $" + config.EnvLogFormat + " or text)",
		},
	}
}

// setupLogging installs the default logger. Flags override the environment.
func setupLogging(cmd *cli.Command) {
	level := config.LogLevel()
	if cmd.IsSet("log-level") {
		if err := level.UnmarshalText([]byte(cmd.String("log-level"))); err != nil {
			level = slog.LevelInfo
		}
	}

	format := config.LogFormat()
	if cmd.IsSet("log-format") {
		format = cmd.String("log-format")
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func newResolver(cmd *cli.Command) provider.Resolver {
	universal := provider.NewCachingResolver(
		provider.NewUniversalResolver(cmd.String("resolver-url")),
		config.ResolverCacheSize(),
		0,
	)

	return provider.NewChain(slog.Default(), provider.NewKeyResolver(), universal)
}

func printJSON(v interface{}) error {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(jsonBytes))
	return nil
}

func runResolve(ctx context.Context, cmd *cli.Command) error {
	did := cmd.Args().First()
	if did == "" {
		return fmt.Errorf("need to provide DID as an argument")
	}

	doc, err := newResolver(cmd).Resolve(ctx, did)
	if err != nil {
		return err
	}

	return printJSON(doc)
}

func runKeys(ctx context.Context, cmd *cli.Command) error {
	did := cmd.Args().First()
	if did == "" {
		return fmt.Errorf("need to provide DID as an argument")
	}

	doc, err := newResolver(cmd).Resolve(ctx, did)
	if err != nil {
		return err
	}

	type keyLine struct {
		ID        string `json:"id"`
		KeyFamily string `json:"keyFamily,omitempty"`
		Algorithm string `json:"alg,omitempty"`
		Format    string `json:"format,omitempty"`
		PublicKey string `json:"publicKey,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	var lines []keyLine
	for _, vm := range doc.AuthenticationMethods() {
		key, err := verificationmethod.Extract(vm)
		if err != nil {
			lines = append(lines, keyLine{ID: vm.ID, Error: err.Error()})
			continue
		}
		lines = append(lines, keyLine{
			ID:        key.ID,
			KeyFamily: string(key.KeyFamily),
			Algorithm: key.Algorithm,
			Format:    string(key.Format),
			PublicKey: key.PublicKey,
		})
	}

	return printJSON(lines)
}

func runDecode(ctx context.Context, cmd *cli.Command) error {
	token := cmd.Args().First()
	if token == "" {
		return fmt.Errorf("need to provide a token as an argument")
	}

	decoded, err := jwt.Decode(token)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"header":  decoded.Header,
		"payload": decoded.Payload,
	})
}

func runKeyGen(ctx context.Context, cmd *cli.Command) error {
	t := cmd.String("type")
	switch t {
	case "secp256k1", "K-256", "k256":
		priv, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return err
		}
		compressed := priv.PubKey().SerializeCompressed()
		out := map[string]string{
			"privateKeyHex":   hex.EncodeToString(priv.Serialize()),
			"publicKeyHex":    hex.EncodeToString(compressed),
			"ethereumAddress": ethcrypto.PubkeyToAddress(priv.ToECDSA().PublicKey).Hex(),
		}
		if pub, err := atcrypto.ParsePublicBytesK256(compressed); err == nil {
			out["didKey"] = pub.DIDKey()
		}
		return printJSON(out)
	case "ed25519", "Ed25519":
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{
			"privateKeyBase58": base58.Encode(priv.Seed()),
			"publicKeyBase58":  base58.Encode(pub),
		})
	default:
		return fmt.Errorf("unknown key type: %s", t)
	}
}

func runError(ctx context.Context, cmd *cli.Command) error {
	arg := cmd.Args().First()
	if arg == "" {
		return fmt.Errorf("need to provide an error code or encoded error response")
	}

	if cmd.Bool("decode") {
		e, err := response.DecodeErrorResponse(arg)
		if err != nil {
			return err
		}
		return printJSON(e)
	}

	e, ok := response.LookupErrorResponse(arg)
	if !ok {
		return fmt.Errorf("unknown error code: %s", arg)
	}
	fmt.Println(e.Encode())
	return nil
}
