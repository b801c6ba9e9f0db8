package cli

import (
	"testing"
)

func TestAcquirePasswordPrefersFlag(t *testing.T) {
	t.Setenv("CERTPORTER_TEST_PW", "from-env")

	secret, err := acquirePassword("from-flag", "CERTPORTER_TEST_PW", "")
	if err != nil {
		t.Fatalf("acquirePassword: %v", err)
	}
	defer secret.Zero()
	if string(secret.Bytes()) != "from-flag" {
		t.Errorf("secret = %q, want the flag value", secret.Bytes())
	}
}

func TestAcquirePasswordFromEnv(t *testing.T) {
	t.Setenv("CERTPORTER_TEST_PW", "from-env")

	secret, err := acquirePassword("", "CERTPORTER_TEST_PW", "")
	if err != nil {
		t.Fatalf("acquirePassword: %v", err)
	}
	defer secret.Zero()
	if string(secret.Bytes()) != "from-env" {
		t.Errorf("secret = %q, want the env value", secret.Bytes())
	}
}

func TestAcquirePasswordUnsetEnvVarFails(t *testing.T) {
	if _, err := acquirePassword("", "CERTPORTER_TEST_PW_UNSET", ""); err == nil {
		t.Fatal("expected error for unset environment variable")
	}
}
