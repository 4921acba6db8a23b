package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/service"
	"golang.org/x/term"
)

const minPasscodeLength = 6

// Prints a bcrypt hash for OPERATOR_PASSCODE_HASH. Nothing is stored.
func main() {
	cost := flag.Int("cost", 0, "bcrypt cost (default: BCRYPT_COST)")
	flag.Parse()

	if *cost == 0 {
		*cost = config.Load().BcryptCost
	}

	fmt.Println("=== Operator Passcode ===")

	fmt.Fprint(os.Stderr, "Enter Passcode: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error reading passcode")
		os.Exit(1)
	}
	if len(first) < minPasscodeLength {
		fmt.Fprintf(os.Stderr, "Error: Passcode must be at least %d characters\n", minPasscodeLength)
		os.Exit(1)
	}

	fmt.Fprint(os.Stderr, "Confirm Passcode: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil || string(first) != string(second) {
		fmt.Fprintln(os.Stderr, "Error: Passcodes do not match")
		os.Exit(1)
	}

	hash, err := service.HashPasscode(string(first), *cost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error hashing passcode: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OPERATOR_PASSCODE_HASH=%s\n", hash)
}
