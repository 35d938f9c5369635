package mysqlauth

import "testing"

func TestResolveCharsetPrefersClientName(t *testing.T) {
	got := resolveCharset("utf8mb4_unicode_ci", 33)
	if got != 224 {
		t.Fatalf("got %d, want 224", got)
	}
}

func TestResolveCharsetFallsBackToServerDefault(t *testing.T) {
	got := resolveCharset("", 8)
	if got != 8 {
		t.Fatalf("got %d, want 8", got)
	}
}

func TestResolveCharsetUnknownClientNameFallsBackToServer(t *testing.T) {
	got := resolveCharset("not_a_real_collation", 33)
	if got != 33 {
		t.Fatalf("got %d, want server default 33", got)
	}
}

func TestResolveCharsetFinalFallbackIsUTF8MB4(t *testing.T) {
	got := resolveCharset("", 0)
	if got != collations[defaultClientCollation] {
		t.Fatalf("got %d, want %d", got, collations[defaultClientCollation])
	}
}
