package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestIdentity(t *testing.T) (string, *Unsealer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys", "tagflow.key")
	if _, err := GenerateIdentity(path); err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	u, err := NewUnsealerFromFile(path)
	if err != nil {
		t.Fatalf("NewUnsealerFromFile() error = %v", err)
	}
	return path, u
}

func TestGenerateIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "tagflow.key")

	recipient, err := GenerateIdentity(path)
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	if !strings.HasPrefix(recipient, "age1") {
		t.Errorf("recipient = %q, want age1 prefix", recipient)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("identity file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("identity file mode = %o, want 600", perm)
	}

	if _, err := GenerateIdentity(path); err == nil {
		t.Error("GenerateIdentity() over existing file expected error")
	}

	ids, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("LoadIdentities() error = %v", err)
	}
	r, err := RecipientForIdentities(ids)
	if err != nil {
		t.Fatalf("RecipientForIdentities() error = %v", err)
	}
	if r.(interface{ String() string }).String() != recipient {
		t.Errorf("derived recipient = %v, want %s", r, recipient)
	}
}

func TestSealUnseal(t *testing.T) {
	path, u := newTestIdentity(t)

	ids, err := LoadIdentities(path)
	if err != nil {
		t.Fatalf("LoadIdentities() error = %v", err)
	}
	recipient, err := RecipientForIdentities(ids)
	if err != nil {
		t.Fatalf("RecipientForIdentities() error = %v", err)
	}

	sealed, err := Seal(recipient, "s3cr3t-key")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if !IsSealed(sealed) {
		t.Fatalf("IsSealed(%q) = false", sealed)
	}
	if strings.Contains(sealed, "s3cr3t-key") {
		t.Error("sealed value contains the plaintext")
	}

	got, err := u.Unseal(sealed)
	if err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if got != "s3cr3t-key" {
		t.Errorf("Unseal() = %q, want %q", got, "s3cr3t-key")
	}
}

func TestUnseal_PlainValuePassesThrough(t *testing.T) {
	u := NewUnsealer()

	got, err := u.Unseal("AKIAPLAIN")
	if err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if got != "AKIAPLAIN" {
		t.Errorf("Unseal() = %q, want unchanged value", got)
	}
}

func TestUnseal_SealedWithoutIdentity(t *testing.T) {
	path, _ := newTestIdentity(t)
	ids, _ := LoadIdentities(path)
	recipient, _ := RecipientForIdentities(ids)
	sealed, err := Seal(recipient, "value")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	_, err = NewUnsealer().Unseal(sealed)
	if !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Unseal() error = %v, want ErrNoIdentity", err)
	}
}

func TestUnseal_WrongIdentity(t *testing.T) {
	pathA, _ := newTestIdentity(t)
	_, unsealerB := newTestIdentity(t)

	ids, _ := LoadIdentities(pathA)
	recipient, _ := RecipientForIdentities(ids)
	sealed, err := Seal(recipient, "value")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	if _, err := unsealerB.Unseal(sealed); err == nil {
		t.Error("Unseal() with a foreign identity expected error")
	}
}

func TestUnsealMap(t *testing.T) {
	path, u := newTestIdentity(t)
	ids, _ := LoadIdentities(path)
	recipient, _ := RecipientForIdentities(ids)
	sealed, err := Seal(recipient, "hidden")
	if err != nil {
		t.Fatalf("Seal() error = %v", err)
	}

	in := map[string]string{"region": "eu-west-1", "secret_access_key": sealed}
	if !HasSealed(in) {
		t.Error("HasSealed() = false, want true")
	}

	out, err := u.UnsealMap(in)
	if err != nil {
		t.Fatalf("UnsealMap() error = %v", err)
	}
	if out["region"] != "eu-west-1" || out["secret_access_key"] != "hidden" {
		t.Errorf("UnsealMap() = %v", out)
	}
	if in["secret_access_key"] != sealed {
		t.Error("UnsealMap() modified its input")
	}
}

func TestParseRecipient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "id.key")
	recipient, err := GenerateIdentity(path)
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	if _, err := ParseRecipient(recipient + "\n"); err != nil {
		t.Errorf("ParseRecipient() error = %v", err)
	}
	if _, err := ParseRecipient("not-a-recipient"); err == nil {
		t.Error("ParseRecipient() expected error for garbage")
	}
}
