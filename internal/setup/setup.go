// Package setup writes an initial beacon config file, prompting for the
// hub endpoint when it was not given on the command line.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/watchtowerx/beacon/internal/config"
)

// ErrExists is returned when the target config file already exists and
// Force is not set.
var ErrExists = errors.New("config file already exists")

// Options holds the CLI flags passed to -init.
type Options struct {
	Mode    string // "local", "user", "system", or "" (interactive)
	URL     string // Hub URL or "" (interactive)
	Token   string // Hub token or "" (interactive)
	AppName string // Identity reported to the hub; defaults to the config default
	Path    string // Explicit config path; overrides Mode
	Force   bool   // Overwrite an existing file
}

// Run executes the setup wizard and returns the path written. Prompts are
// read from in and written to out; when every value is supplied no prompt
// is shown.
func Run(version string, opts Options, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprintf(out, "\nBeacon Setup %s\n", version)
	fmt.Fprintln(out, strings.Repeat("─", 30))
	fmt.Fprintln(out)

	reader := bufio.NewReader(in)

	// 1. Determine the target file
	path := opts.Path
	if path == "" {
		mode, err := resolveMode(opts.Mode, reader, out)
		if err != nil {
			return "", err
		}
		if err := CheckElevation(mode); err != nil {
			return "", err
		}
		path = ResolveConfigPath(mode)
	}
	if _, err := os.Stat(path); err == nil && !opts.Force {
		return "", fmt.Errorf("%s: %w (use -force to overwrite)", path, ErrExists)
	}

	// 2. Get hub URL and token
	cfg := config.DefaultConfig()
	url, err := resolveValue(opts.URL, "Hub URL", "", reader, out)
	if err != nil {
		return "", err
	}
	token, err := resolveValue(opts.Token, "Hub token", "", reader, out)
	if err != nil {
		return "", err
	}
	name, err := resolveValue(opts.AppName, "Application name", cfg.App.Name, reader, out)
	if err != nil {
		return "", err
	}
	cfg.Hub.URL = url
	cfg.Hub.Token = token
	cfg.App.Name = name

	if err := cfg.Validate(); err != nil {
		return "", err
	}

	// 3. Write config
	if err := config.WriteConfig(cfg, path); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(out, "  ✓ Written config → %s\n", path)
	fmt.Fprintln(out, "\nDone! Run beacon -print to preview a report.")
	return path, nil
}

// resolveMode determines the install mode from flag or interactive prompt.
func resolveMode(flagValue string, reader *bufio.Reader, out io.Writer) (InstallMode, error) {
	if flagValue != "" {
		return ParseMode(flagValue)
	}
	fmt.Fprintln(out, "Config location:")
	fmt.Fprintf(out, "  [1] Local (%s)\n", ResolveConfigPath(ModeLocal))
	fmt.Fprintf(out, "  [2] User (%s)\n", ResolveConfigPath(ModeUser))
	fmt.Fprintf(out, "  [3] System (%s) — requires root/admin\n", ResolveConfigPath(ModeSystem))
	fmt.Fprint(out, "> ")
	choice, _ := reader.ReadString('\n')
	choice = strings.TrimSpace(choice)
	switch choice {
	case "1", "":
		return ModeLocal, nil
	case "2":
		return ModeUser, nil
	case "3":
		return ModeSystem, nil
	default:
		return 0, fmt.Errorf("invalid choice %q", choice)
	}
}

// resolveValue gets a value from flag or interactive prompt.
func resolveValue(flagValue, prompt, defaultVal string, reader *bufio.Reader, out io.Writer) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", prompt)
	}
	val, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(prompt), err)
	}
	val = strings.TrimSpace(val)
	if val == "" {
		return defaultVal, nil
	}
	return val, nil
}
