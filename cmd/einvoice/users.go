package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/superset-studio/einvoice-vault/internal/auth"
	"github.com/superset-studio/einvoice-vault/internal/models"
)

func runUsers(args []string) {
	if len(args) < 1 {
		printUsersUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "create":
		runUsersCreate(args[1:])
	case "list":
		runUsersList(args[1:])
	case "help", "-h", "--help":
		printUsersUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown users subcommand: %s\n\n", args[0])
		printUsersUsage()
		os.Exit(1)
	}
}

func printUsersUsage() {
	fmt.Println(`Usage: einvoice users <subcommand> [options]

Subcommands:
  create    Create a new user
  list      List all users

Run 'einvoice users <subcommand> --help' for more information.`)
}

func runUsersCreate(args []string) {
	fs := flag.NewFlagSet("users create", flag.ExitOnError)
	email := fs.String("email", "", "Email address (required)")
	password := fs.String("password", "", "Password (required)")
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	if *email == "" {
		fmt.Fprintln(os.Stderr, "Error: --email is required")
		fs.Usage()
		os.Exit(1)
	}

	if *password == "" {
		fmt.Fprintln(os.Stderr, "Error: --password is required")
		fs.Usage()
		os.Exit(1)
	}

	if err := auth.ValidatePassword(*password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	hash, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost).Hash(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing password: %v\n", err)
		os.Exit(1)
	}

	store := connectDB(*configPath)
	defer store.Close()

	user, err := store.CreateUser(context.Background(), &models.CreateUserInput{
		Email:        *email,
		PasswordHash: hash,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating user: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("User created successfully!")
	fmt.Println()
	fmt.Printf("ID:    %s\n", user.ID)
	fmt.Printf("Email: %s\n", user.Email)
	fmt.Println()
}

func runUsersList(args []string) {
	fs := flag.NewFlagSet("users list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	store := connectDB(*configPath)
	defer store.Close()

	users, err := store.ListUsers(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing users: %v\n", err)
		os.Exit(1)
	}

	if len(users) == 0 {
		fmt.Println("No users found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tCREATED")
	for _, u := range users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			u.ID, u.Email, status,
			u.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()
}
