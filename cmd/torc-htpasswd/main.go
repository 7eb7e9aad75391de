// Command torc-htpasswd manages the bcrypt-hashed htpasswd file
// internal/auth reads at startup. Grounded in original_source's
// torc-server/src/bin/torc-htpasswd.rs: same four subcommands (add,
// remove, list, verify), same username:bcrypt_hash line format and
// "# Torc htpasswd file" header, reimplemented with bufio/os instead of
// a CLI-parsing crate since the teacher corpus never reaches for one
// either (every teacher main.go parses os.Args or env vars directly).
package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "add":
		err = runAdd(os.Args[2:])
	case "remove":
		err = runRemove(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: torc-htpasswd <add|remove|list|verify> -file PATH [args...]")
}

func readEntries(path string) (map[string]string, error) {
	entries := make(map[string]string)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, digest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		entries[user] = digest
	}
	return entries, scanner.Err()
}

func writeEntries(path string, entries map[string]string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# Torc htpasswd file")
	fmt.Fprintln(w, "# Format: username:bcrypt_hash")

	users := make([]string, 0, len(entries))
	for u := range entries {
		users = append(users, u)
	}
	sort.Strings(users)
	for _, u := range users {
		fmt.Fprintf(w, "%s:%s\n", u, entries[u])
	}
	return w.Flush()
}

func promptPassword(username string) (string, error) {
	fmt.Fprintf(os.Stderr, "Password for %q: ", username)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func runAdd(args []string) error {
	file, username, password, cost, rest := parseCommon(args, true)
	if file == "" || len(rest) < 1 {
		return fmt.Errorf("usage: add -file PATH [-password PASSWORD] [-cost N] USERNAME")
	}
	username = rest[0]
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if password == "" {
		var err error
		password, err = promptPassword(username)
		if err != nil {
			return err
		}
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	entries, err := readEntries(file)
	if err != nil {
		return err
	}
	_, existed := entries[username]
	entries[username] = string(digest)
	if err := writeEntries(file, entries); err != nil {
		return err
	}
	if existed {
		fmt.Printf("Updated user %q in %s\n", username, file)
	} else {
		fmt.Printf("Added user %q to %s\n", username, file)
	}
	return nil
}

func runRemove(args []string) error {
	file, username, _, _, rest := parseCommon(args, false)
	if file == "" || len(rest) < 1 {
		return fmt.Errorf("usage: remove -file PATH USERNAME")
	}
	username = rest[0]

	entries, err := readEntries(file)
	if err != nil {
		return err
	}
	if _, ok := entries[username]; !ok {
		return fmt.Errorf("user %q not found in %s", username, file)
	}
	delete(entries, username)
	if err := writeEntries(file, entries); err != nil {
		return err
	}
	fmt.Printf("Removed user %q from %s\n", username, file)
	return nil
}

func runList(args []string) error {
	file, _, _, _, _ := parseCommon(args, false)
	if file == "" {
		return fmt.Errorf("usage: list -file PATH")
	}
	entries, err := readEntries(file)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("No users found in %s\n", file)
		return nil
	}
	users := make([]string, 0, len(entries))
	for u := range entries {
		users = append(users, u)
	}
	sort.Strings(users)
	fmt.Printf("Users in %s:\n", file)
	for _, u := range users {
		fmt.Printf("  - %s\n", u)
	}
	return nil
}

func runVerify(args []string) error {
	file, username, password, _, rest := parseCommon(args, true)
	if file == "" || len(rest) < 1 {
		return fmt.Errorf("usage: verify -file PATH [-password PASSWORD] USERNAME")
	}
	username = rest[0]
	if password == "" {
		var err error
		password, err = promptPassword(username)
		if err != nil {
			return err
		}
	}

	entries, err := readEntries(file)
	if err != nil {
		return err
	}
	digest, ok := entries[username]
	if !ok {
		return fmt.Errorf("user %q not found in %s", username, file)
	}
	if bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) != nil {
		fmt.Printf("Password is incorrect for user %q\n", username)
		os.Exit(1)
	}
	fmt.Printf("Password is correct for user %q\n", username)
	return nil
}

// parseCommon does minimal -file/-password/-cost flag extraction, leaving
// positional args (the username) in rest. auth.HashPassword is not reused
// directly here because this CLI needs the caller-supplied cost factor;
// it mirrors auth.HashPassword's bcrypt call at a configurable cost.
func parseCommon(args []string, withPassword bool) (file, username, password string, cost int, rest []string) {
	cost = bcrypt.DefaultCost
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-file":
			i++
			if i < len(args) {
				file = args[i]
			}
		case "-password":
			if withPassword {
				i++
				if i < len(args) {
					password = args[i]
				}
			}
		case "-cost":
			i++
			if i < len(args) {
				if c, err := strconv.Atoi(args[i]); err == nil {
					cost = c
				}
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return file, username, password, cost, rest
}
