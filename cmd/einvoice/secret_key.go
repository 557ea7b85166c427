package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/superset-studio/einvoice-vault/internal/secrets"
)

func runSecretKey(args []string) {
	if len(args) < 1 {
		printSecretKeyUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "generate":
		runSecretKeyGenerate(args[1:])
	case "check":
		runSecretKeyCheck(args[1:])
	case "help", "-h", "--help":
		printSecretKeyUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown secret-key subcommand: %s\n\n", args[0])
		printSecretKeyUsage()
		os.Exit(1)
	}
}

func printSecretKeyUsage() {
	fmt.Println(`Usage: einvoice secret-key <subcommand> [options]

Subcommands:
  generate  Print a new random secret key
  check     Verify that the configured EINVOICE_SECRET_KEY is usable

Run 'einvoice secret-key <subcommand> --help' for more information.`)
}

func runSecretKeyGenerate(args []string) {
	fs := flag.NewFlagSet("secret-key generate", flag.ExitOnError)
	fs.Parse(args)

	key, err := secrets.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(key)
}

func runSecretKeyCheck(args []string) {
	fs := flag.NewFlagSet("secret-key check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	cipher, err := secrets.NewFernetCipher(cfg.Secrets.SecretKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tok, err := cipher.EncryptPassword("check")
	if err == nil {
		_, err = cipher.DecryptPassword(tok)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: secret key failed self-test: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s is valid.\n", secrets.KeyEnvVar)
}
