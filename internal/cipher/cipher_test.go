package cipher

import (
	"errors"
	"math"
	"strings"
	"testing"
)

var sampleValues = []float64{
	0, 1, 2, 3, 4, -7, 0.5, 67.5, 101.25, 904, 1e-9, 123456789.125,
	math.MaxFloat64, math.SmallestNonzeroFloat64, -0.1,
}

func TestRoundTrip(t *testing.T) {
	schemes := map[string]Scheme{
		"tagged": Tagged{},
		"keyed":  NewKeyed([]byte("session-secret")),
	}
	for name, s := range schemes {
		for _, v := range sampleValues {
			ct := s.Encode(v)
			got, err := s.Decode(ct)
			if err != nil {
				t.Fatalf("%s: Decode(%q) error: %v", name, ct, err)
			}
			if got != v {
				t.Errorf("%s: round trip of %v gave %v", name, v, got)
			}
		}
	}
}

func TestTaggedFormat(t *testing.T) {
	// "4" in base64 is "NA==".
	if got := (Tagged{}).Encode(4); got != "FHE-NA==" {
		t.Errorf("Encode(4) = %q, want FHE-NA==", got)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	k := NewKeyed([]byte("k"))
	if k.Encode(3) != k.Encode(3) {
		t.Error("keyed encoding is not deterministic")
	}
	if !strings.HasPrefix(k.Encode(3), KeyedPrefix) {
		t.Error("keyed encoding lacks its tag")
	}
}

func TestDecodeUntaggedNumber(t *testing.T) {
	got, err := Tagged{}.Decode("42.5")
	if err != nil || got != 42.5 {
		t.Errorf("Decode(42.5) = %v, %v", got, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	k := NewKeyed([]byte("a"))
	other := NewKeyed([]byte("b"))
	cases := []struct {
		name   string
		scheme Scheme
		input  string
	}{
		{"garbage", Tagged{}, "not-a-number"},
		{"empty", Tagged{}, ""},
		{"bad base64", Tagged{}, "FHE-***"},
		{"non numeric payload", Tagged{}, "FHE-aGVsbG8="},
		{"keyed garbage", k, "xyz"},
		{"wrong key", other, k.Encode(12345.678)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.scheme.Decode(tc.input)
			if !errors.Is(err, ErrMalformedCiphertext) {
				t.Errorf("Decode(%q) err = %v, want ErrMalformedCiphertext", tc.input, err)
			}
		})
	}
}

func TestByName(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
	}{
		{"", TaggedPrefix},
		{"tagged", TaggedPrefix},
		{"Keyed", KeyedPrefix},
	}
	for _, tc := range cases {
		s, err := ByName(tc.name, nil)
		if err != nil {
			t.Fatalf("ByName(%q): %v", tc.name, err)
		}
		ct := s.Encode(42)
		if !strings.HasPrefix(ct, tc.prefix) {
			t.Errorf("ByName(%q) encoded %q, want prefix %s", tc.name, ct, tc.prefix)
		}
		if v, err := s.Decode(ct); err != nil || v != 42 {
			t.Errorf("ByName(%q) round trip gave %v, %v", tc.name, v, err)
		}
	}

	if _, err := ByName("rot13", nil); !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}

	a, _ := ByName("keyed", []byte("shared"))
	b, _ := ByName("keyed", []byte("shared"))
	if v, err := b.Decode(a.Encode(7)); err != nil || v != 7 {
		t.Errorf("same secret should decode across instances, got %v, %v", v, err)
	}
}
