package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add USERNAME",
	Short: "Register an account (prompts for the password)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pass := confirmPassword()
		v := openVault()
		if err := v.Auth.AddUser(context.Background(), args[0], pass); err != nil {
			fatal("Failed to add user", err)
		}
		fmt.Printf("User '%s' added.\n", args[0])
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd USERNAME",
	Short: "Change the password of an account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pass := confirmPassword()
		v := openVault()
		if err := v.Auth.SetPassword(context.Background(), args[0], pass); err != nil {
			fatal("Failed to change password", err)
		}
		fmt.Printf("Password for '%s' changed.\n", args[0])
	},
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v := openVault()
		names, err := v.Auth.Users(context.Background())
		if err != nil {
			fatal("Failed to list users", err)
		}
		if asJSON {
			printJSON(names)
			return
		}
		for _, n := range names {
			fmt.Println(n)
		}
	},
}

var signinCmd = &cobra.Command{
	Use:   "signin USERNAME",
	Short: "Check credentials and print a session token",
	Long: `Sign-in tokens live in memory only, so the token printed here is valid
for as long as this process runs; the command mainly verifies a password.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pass, err := promptPassword("Password: ")
		if err != nil {
			fatal("Failed to read password", err)
		}
		v := openVault()
		tok, err := v.Auth.SignIn(context.Background(), args[0], pass)
		if err != nil {
			fatal("Sign-in failed", err)
		}
		if asJSON {
			printJSON(tok)
			return
		}
		fmt.Printf("Signed in as %s until %s\n", tok.Username, tok.ExpiresAt.Format("2006-01-02 15:04:05"))
	},
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}

func confirmPassword() string {
	pass, err := promptPassword("Password: ")
	if err != nil {
		fatal("Failed to read password", err)
	}
	again, err := promptPassword("Repeat password: ")
	if err != nil {
		fatal("Failed to read password", err)
	}
	if pass != again {
		fatal("Failed to read password", errors.New("passwords do not match"))
	}
	return pass
}

func init() {
	userCmd.AddCommand(userAddCmd, userPasswdCmd, userListCmd)
	rootCmd.AddCommand(userCmd, signinCmd)
}
