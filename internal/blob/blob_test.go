package blob

import (
	"io"
	"strings"
	"testing"
)

func TestPutAndOpen(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	key, err := s.Put("dados.csv", []byte("cpf,nome\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(key, ".csv") {
		t.Fatalf("key %q should carry the extension", key)
	}

	rc, err := s.Open(key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "cpf,nome\n" {
		t.Fatalf("content = %q", got)
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	k1, err := s.Put("a.csv", []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	k2, err := s.Put("b.csv", []byte("same"))
	if err != nil {
		t.Fatal(err)
	}
	if k1 != k2 {
		t.Fatalf("same content, different keys: %q vs %q", k1, k2)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Open("../etc/passwd"); err == nil {
		t.Fatal("path traversal must be rejected")
	}
}
