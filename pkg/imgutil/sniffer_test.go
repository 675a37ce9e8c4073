package imgutil

import (
	"bytes"
	"testing"
)

func TestDetectHeader(t *testing.T) {
	cases := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}, KindJPEG},
		{"png", []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d}, KindPNG},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBP"), KindWebP},
		{"heic", append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic")...), KindHEIF},
		{"heif mif1", append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmif1")...), KindHEIF},
		{"mp4 is not heif", append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypisom")...), KindUnknown},
		{"garbage", []byte("not an image"), KindUnknown},
	}

	for _, tc := range cases {
		got, err := DetectHeader(tc.header)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDetectHeaderShort(t *testing.T) {
	if _, err := DetectHeader([]byte{0xff, 0xd8}); err == nil {
		t.Fatal("expected error for short header")
	}
}

func TestSniffReader(t *testing.T) {
	buf := append([]byte("RIFF\x00\x00\x00\x00WEBP"), bytes.Repeat([]byte{0}, 16)...)
	kind, err := SniffReader(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("SniffReader: %v", err)
	}
	if kind != KindWebP {
		t.Fatalf("got %v, want webp", kind)
	}
}

func TestKindMIME(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindJPEG, "image/jpeg"},
		{KindPNG, "image/png"},
		{KindWebP, "image/webp"},
		{KindHEIF, "image/heif"},
		{KindUnknown, ""},
	}

	for _, tc := range cases {
		if got := tc.kind.MIME(); got != tc.want {
			t.Errorf("%v.MIME() = %q, want %q", tc.kind, got, tc.want)
		}
	}

	// Every non-empty MIME must itself pass admission, so a sniffed
	// type can stand in for a missing declared type.
	for _, tc := range cases {
		if tc.want == "" {
			continue
		}
		if !IsSupported("", tc.want) {
			t.Errorf("MIME %q is not admissible", tc.want)
		}
	}
}

func TestIsSupported(t *testing.T) {
	cases := []struct {
		name     string
		declared string
		want     bool
	}{
		{"photo.jpg", "image/jpeg", true},
		{"photo.jpg", "", true},
		{"photo", "image/jpeg", true},
		{"photo.JPEG", "", true},
		{"photo.png", "", true},
		{"photo.webp", "", true},
		{"photo.heic", "", true},
		{"photo.heif", "", true},
		{"photo", "image/heif", true},
		{"photo", "IMAGE/PNG", true},
		{"notes.txt", "", false},
		{"clip.mp4", "video/mp4", false},
		{"photo", "", false},
	}

	for _, tc := range cases {
		if got := IsSupported(tc.name, tc.declared); got != tc.want {
			t.Errorf("IsSupported(%q, %q) = %v, want %v", tc.name, tc.declared, got, tc.want)
		}
	}
}
