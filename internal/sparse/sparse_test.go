package sparse

import "testing"

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantTerms int
	}{
		{name: "empty", text: "", wantTerms: 0},
		{name: "only short tokens", text: "a b c", wantTerms: 0},
		{name: "one surviving token", text: "a b c test", wantTerms: 1},
		{name: "distinct terms", text: "uplifting songs about hope", wantTerms: 4},
		{name: "punctuation splits", text: "don't-stop believin'", wantTerms: 3},
		{name: "case folded", text: "Hope HOPE hope", wantTerms: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Build(tt.text)
			if len(v.Indices) != tt.wantTerms {
				t.Errorf("len(Indices) = %d, want %d", len(v.Indices), tt.wantTerms)
			}
			if len(v.Indices) != len(v.Values) {
				t.Fatalf("parallel arrays differ: %d indices, %d values",
					len(v.Indices), len(v.Values))
			}
		})
	}
}

func TestBuild_WeightsNormalized(t *testing.T) {
	v := Build("hope hope hope despair")

	if len(v.Values) != 2 {
		t.Fatalf("len(Values) = %d, want 2", len(v.Values))
	}

	var sum float32
	for _, w := range v.Values {
		if w <= 0 || w > 1 {
			t.Errorf("weight %f outside (0, 1]", w)
		}
		sum += w
	}
	if sum < 0.999 || sum > 1.001 {
		t.Errorf("weights sum = %f, want 1", sum)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := Build("melancholy rainy day piano")
	b := Build("melancholy rainy day piano")

	if len(a.Indices) != len(b.Indices) {
		t.Fatal("non-deterministic index count")
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] || a.Values[i] != b.Values[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Don't Stop Me Now!")
	want := []string{"don", "stop", "me", "now"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenize_SingleRuneFiltered(t *testing.T) {
	got := Tokenize("é côté à sea")
	want := []string{"côté", "sea"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuild_EmptyIsNotNil(t *testing.T) {
	v := Build("")
	if v.Indices == nil || v.Values == nil {
		t.Error("empty vector must carry zero-length arrays, not nil")
	}
	if !v.IsEmpty() {
		t.Error("IsEmpty() = false for empty input")
	}
}
