package directory

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSignupURLExactAfterSuffixStrip(t *testing.T) {
	d := Default()
	got, ok := d.SignupURL("Gexa Energy, L.P.")
	if !ok || got != "https://www.gexaenergy.com/electricity-plans" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	got, ok = d.SignupURL("RHYTHM ENERGY INC")
	if !ok || got != "https://www.gotrhythm.com/electricity-plans" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestSignupURLFuzzy(t *testing.T) {
	d := Default()
	got, ok := d.SignupURL("Reliant Energys")
	if !ok || got != "https://www.reliant.com/en/public/residential/electricity-plans.jsp" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}

func TestSignupURLUnknown(t *testing.T) {
	d := Default()
	if got, ok := d.SignupURL("Acme Power Cooperative"); ok {
		t.Fatalf("unexpected match %q", got)
	}
	if _, ok := d.SignupURL(""); ok {
		t.Fatalf("empty provider must not match")
	}
	var nilDir *Directory
	if _, ok := nilDir.SignupURL("TXU Energy"); ok {
		t.Fatalf("nil directory must not match")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "providers.yaml")
	body := "- provider: Acme Power\n  signup_url: https://acme.example/enroll\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("len=%d", d.Len())
	}
	got, ok := d.SignupURL("ACME POWER LLC")
	if !ok || got != "https://acme.example/enroll" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
}
