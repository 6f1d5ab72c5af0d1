package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var secretFile string

	cmd := &cobra.Command{
		Use:   "login <identity>",
		Short: "Authenticate the kiosk with the clinic backend",
		Long: `Establish a session for the given identity and persist it locally.

The secret is read from --secret-file when given, otherwise from a prompt.
Only the rotating token pair is stored on the device; the secret itself is
never written to disk.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, args[0], secretFile)
		},
	}

	cmd.Flags().StringVar(&secretFile, "secret-file", "", "file containing the secret (first line)")

	return cmd
}

func runLogin(cmd *cobra.Command, identity, secretFile string) error {
	cfg, _, err := resolveConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	secret, err := readSecret(secretFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	mgr, _ := buildSessionManager(ctx, cfg, logger)

	if err := mgr.Login(ctx, identity, secret); err != nil {
		return err
	}

	statusf("Logged in as %s (expires %s)\n", identity, mgr.Expiry().Local().Format("Jan _2 15:04"))

	return nil
}

// readSecret obtains the secret from a file or an interactive prompt.
func readSecret(secretFile string) (string, error) {
	if secretFile != "" {
		data, err := os.ReadFile(secretFile)
		if err != nil {
			return "", fmt.Errorf("reading secret file: %w", err)
		}

		secret := strings.TrimSpace(strings.SplitN(string(data), "\n", 2)[0])
		if secret == "" {
			return "", fmt.Errorf("secret file %s is empty", secretFile)
		}

		return secret, nil
	}

	fmt.Fprint(os.Stderr, "Secret: ")

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}

	secret := strings.TrimSpace(line)
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}

	return secret, nil
}
