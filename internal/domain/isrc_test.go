package domain

import (
	"errors"
	"testing"
)

func TestParseISRC(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ISRC
		wantErr bool
	}{
		{name: "valid upper", raw: "USRC11700001", want: "USRC11700001"},
		{name: "lower normalized", raw: "usrc11700001", want: "USRC11700001"},
		{name: "surrounding space trimmed", raw: " USRC11700001 ", want: "USRC11700001"},
		{name: "too short", raw: "USRC117", wantErr: true},
		{name: "too long", raw: "USRC117000012", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "hyphenated", raw: "US-RC1-17-00001", wantErr: true},
		{name: "non-alphanumeric", raw: "USRC117000!1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseISRC(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseISRC(%q) expected error", tt.raw)
				}
				if !errors.Is(err, ErrInvalidISRC) {
					t.Errorf("error = %v, want ErrInvalidISRC", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseISRC(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseISRC(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDocumentID_Deterministic(t *testing.T) {
	a, err := ParseISRC("USRC11700001")
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseISRC("usrc11700001")
	if err != nil {
		t.Fatal(err)
	}

	if a.DocumentID() != b.DocumentID() {
		t.Errorf("DocumentID differs for case variants: %q vs %q", a.DocumentID(), b.DocumentID())
	}
	if a.DocumentID() == "" {
		t.Error("DocumentID is empty")
	}

	other, _ := ParseISRC("GBUM71029601")
	if a.DocumentID() == other.DocumentID() {
		t.Error("distinct ISRCs mapped to the same document id")
	}
}
