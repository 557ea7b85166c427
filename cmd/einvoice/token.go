package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/superset-studio/einvoice-vault/internal/secrets"
)

func runToken(args []string) {
	if len(args) < 1 {
		printTokenUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "encrypt":
		runTokenEncrypt(args[1:])
	case "decrypt":
		runTokenDecrypt(args[1:])
	case "help", "-h", "--help":
		printTokenUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown token subcommand: %s\n\n", args[0])
		printTokenUsage()
		os.Exit(1)
	}
}

func printTokenUsage() {
	fmt.Println(`Usage: einvoice token <subcommand> [options]

Subcommands:
  encrypt   Encrypt a password (read from stdin unless --password is set)
  decrypt   Decrypt a token (read from stdin unless --token is set)

Run 'einvoice token <subcommand> --help' for more information.`)
}

func loadCipher(configPath string) *secrets.FernetCipher {
	cfg := loadConfig(configPath)

	cipher, err := secrets.NewFernetCipher(cfg.Secrets.SecretKey, secrets.WithMaxAge(cfg.Secrets.MaxTokenAge))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cipher
}

// readLine returns the first line of r without its line ending.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runTokenEncrypt(args []string) {
	fs := flag.NewFlagSet("token encrypt", flag.ExitOnError)
	password := fs.String("password", "", "Password to encrypt (default: read from stdin)")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	plaintext := *password
	if plaintext == "" {
		line, err := readLine(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
		plaintext = line
	}

	tok, err := loadCipher(*configPath).EncryptPassword(plaintext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encrypting: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tok.String())
}

func runTokenDecrypt(args []string) {
	fs := flag.NewFlagSet("token decrypt", flag.ExitOnError)
	token := fs.String("token", "", "Token to decrypt (default: read from stdin)")
	showTime := fs.Bool("show-time", false, "Also print when the token was created")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	raw := *token
	if raw == "" {
		line, err := readLine(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
			os.Exit(1)
		}
		raw = line
	}

	tok := secrets.ParseToken(raw)
	plaintext, err := loadCipher(*configPath).DecryptPassword(tok)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *showTime {
		if ts, err := secrets.TokenTimestamp(tok); err == nil {
			fmt.Fprintf(os.Stderr, "Created: %s\n", ts.UTC().Format(time.RFC3339))
		}
	}
	fmt.Println(plaintext)
}
