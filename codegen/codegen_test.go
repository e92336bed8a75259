package codegen

import (
	"strings"
	"sync"
	"testing"
)

func TestNewRandom(t *testing.T) {
	t.Run("empty alphabet falls back to default", func(t *testing.T) {
		gen, err := NewRandom("")
		if err != nil {
			t.Fatalf("NewRandom(\"\") unexpected error: %v", err)
		}
		if gen == nil {
			t.Fatal("NewRandom(\"\") returned nil generator")
		}
	})

	t.Run("rejects single-character alphabet", func(t *testing.T) {
		if _, err := NewRandom("a"); err == nil {
			t.Error("NewRandom(\"a\") expected error, got nil")
		}
	})

	t.Run("rejects duplicate characters", func(t *testing.T) {
		if _, err := NewRandom("abca"); err == nil {
			t.Error("NewRandom(\"abca\") expected error, got nil")
		}
	})

	t.Run("rejects non-ASCII alphabet", func(t *testing.T) {
		if _, err := NewRandom("abcé"); err == nil {
			t.Error("NewRandom with non-ASCII expected error, got nil")
		}
	})
}

func TestRandomGenerator_Generate(t *testing.T) {
	t.Run("generates code of correct length", func(t *testing.T) {
		gen, err := NewRandom("")
		if err != nil {
			t.Fatalf("NewRandom() unexpected error: %v", err)
		}

		lengths := []int{1, 5, 6, 7, 10, 20, 64}
		for _, length := range lengths {
			code, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			if len(code) != length {
				t.Errorf("Generate(%d) returned length %d, want %d", length, len(code), length)
			}
		}
	})

	t.Run("generates unique codes", func(t *testing.T) {
		gen, _ := NewRandom("")
		seen := make(map[string]bool)

		for i := 0; i < 1000; i++ {
			code, err := gen.Generate(10)
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}
			if seen[code] {
				t.Errorf("Generate() produced duplicate code: %q", code)
			}
			seen[code] = true
		}

		if len(seen) != 1000 {
			t.Errorf("expected 1000 unique codes, got %d", len(seen))
		}
	})

	t.Run("generates only alphabet characters", func(t *testing.T) {
		const alphabet = "abc123"
		gen, err := NewRandom(alphabet)
		if err != nil {
			t.Fatalf("NewRandom(%q) unexpected error: %v", alphabet, err)
		}

		for _, length := range []int{10, 50, 100} {
			code, err := gen.Generate(length)
			if err != nil {
				t.Fatalf("Generate(%d) unexpected error: %v", length, err)
			}
			for i, char := range code {
				if !strings.ContainsRune(alphabet, char) {
					t.Errorf("Generate(%d) produced character %c outside alphabet at position %d", length, char, i)
				}
			}
		}
	})

	t.Run("returns error for zero length", func(t *testing.T) {
		gen, _ := NewRandom("")
		if _, err := gen.Generate(0); err == nil {
			t.Error("Generate(0) expected error, got nil")
		}
	})

	t.Run("returns error for negative length", func(t *testing.T) {
		gen, _ := NewRandom("")
		if _, err := gen.Generate(-1); err == nil {
			t.Error("Generate(-1) expected error, got nil")
		}
	})

	t.Run("safe for concurrent use", func(t *testing.T) {
		gen, _ := NewRandom("")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					if _, err := gen.Generate(8); err != nil {
						t.Errorf("Generate() unexpected error: %v", err)
						return
					}
				}
			}()
		}
		wg.Wait()
	})
}

func TestValidateAlias(t *testing.T) {
	tests := []struct {
		name    string
		alias   string
		wantErr bool
	}{
		{"valid alias", "promo", false},
		{"valid mixed case", "PromoXyz", false},
		{"minimum length", "a", false},
		{"empty alias", "", true},
		{"too long", strings.Repeat("a", 65), true},
		{"character outside alphabet", "pro-mo", true},
		{"ambiguous character excluded from default alphabet", "pr0mo", true},
		{"space", "pro mo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAlias(tt.alias, "", MinCodeLength, MaxCodeLength)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAlias(%q) error = %v, wantErr %v", tt.alias, err, tt.wantErr)
			}
		})
	}

	t.Run("custom alphabet", func(t *testing.T) {
		if err := ValidateAlias("abc", "abc", 1, 10); err != nil {
			t.Errorf("ValidateAlias with custom alphabet unexpected error: %v", err)
		}
		if err := ValidateAlias("abd", "abc", 1, 10); err == nil {
			t.Error("ValidateAlias with character outside custom alphabet expected error, got nil")
		}
	})
}
