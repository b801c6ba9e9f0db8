package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"certporter/internal/pfx"
)

// acquirePassword resolves the container password in precedence order:
// the --password flag, the variable named by --password-env, then an
// interactive no-echo prompt. The caller owns the returned secret and
// zeroes it after the run.
func acquirePassword(flagValue, envVar, prompt string) (*pfx.Secret, error) {
	if flagValue != "" {
		fmt.Fprintln(os.Stderr, "Warning: passwords passed with --password are visible in the process list; prefer --password-env or the prompt")
		return pfx.NewSecretString(flagValue), nil
	}

	if envVar != "" {
		value, ok := os.LookupEnv(envVar)
		if !ok {
			return nil, fmt.Errorf("environment variable %s is not set", envVar)
		}
		return pfx.NewSecretString(value), nil
	}

	return promptPassword(prompt)
}

// promptPassword reads a password from the terminal with echo disabled.
func promptPassword(prompt string) (*pfx.Secret, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	secret := pfx.NewSecret(raw)
	for i := range raw {
		raw[i] = 0
	}
	return secret, nil
}

// warnIfWeak prints the advisory for short passwords. Never an error.
func warnIfWeak(secret *pfx.Secret) {
	if secret != nil && secret.Weak() {
		fmt.Fprintf(os.Stderr, "Warning: password is shorter than %d characters\n", pfx.WeakPasswordLength)
	}
}
