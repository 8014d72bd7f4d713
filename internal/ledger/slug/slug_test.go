package slug

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"Accounts Receivable", "accounts_receivable"},
		{"  Cash -- on hand!! ", "cash_--_on_hand"},
		{"accounts-receivable", "accounts-receivable"},
		{"Piutang Usaha (USD)", "piutang_usaha_usd"},
		{"___already_clean___", "already_clean"},
		{"Ümlaut Bank", "mlaut_bank"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugifyTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 100; i++ {
		long += "a"
	}
	if got := Slugify(long); len(got) != MaxLen {
		t.Fatalf("expected %d chars, got %d", MaxLen, len(got))
	}
}

func TestJoin(t *testing.T) {
	if got := Join("accounts-receivable", "USD"); got != "accounts-receivable_usd" {
		t.Fatalf("unexpected slug %q", got)
	}
	if got := Join("accounts-payable", ""); got != "accounts-payable" {
		t.Fatalf("empty parts must be skipped, got %q", got)
	}
}

func TestIsSlug(t *testing.T) {
	if !IsSlug("accounts-receivable_usd") {
		t.Fatal("expected valid slug")
	}
	for _, s := range []string{"", "a", "Upper", "has space"} {
		if IsSlug(s) {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestDerive(t *testing.T) {
	if got := Derive("asset", "Petty Cash"); got != "petty_cash" {
		t.Fatalf("plain names keep their slug, got %q", got)
	}
	if got := Derive("asset", "A"); got != "asset_a" {
		t.Fatalf("short names take the kind prefix, got %q", got)
	}
	kas := Derive("asset", "現金")
	if !IsSlug(kas) || !strings.HasPrefix(kas, "asset_") {
		t.Fatalf("non-latin name must yield a valid prefixed slug, got %q", kas)
	}
	if again := Derive("asset", "現金"); again != kas {
		t.Fatalf("derived slug must be stable, got %q then %q", kas, again)
	}
	if other := Derive("asset", "預金"); other == kas {
		t.Fatalf("distinct names must not collide, both %q", kas)
	}
	for _, name := range []string{"!", "x", "", "🙂"} {
		if got := Derive("", name); !IsSlug(got) {
			t.Fatalf("Derive(%q) = %q is not a slug", name, got)
		}
	}
}
