package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestBlobStores(t *testing.T) {
	fsStore, err := NewFSStore(t.TempDir(), "http://localhost:5000/api/files/")
	if err != nil {
		t.Fatal(err)
	}
	stores := map[string]BlobStore{"fs": fsStore, "memory": NewMemoryStore()}
	ctx := context.Background()

	for name, bs := range stores {
		t.Run(name, func(t *testing.T) {
			key := "test-abc/1700000000000-x1.txt"
			if err := bs.Put(ctx, key, strings.NewReader("hello"), "text/plain"); err != nil {
				t.Fatal(err)
			}
			rc, err := bs.Get(ctx, key)
			if err != nil {
				t.Fatal(err)
			}
			b, _ := io.ReadAll(rc)
			_ = rc.Close()
			if string(b) != "hello" {
				t.Fatalf("got %q", b)
			}

			if _, err := bs.Get(ctx, "test-abc/missing.txt"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("missing: %v", err)
			}
			for _, bad := range []string{"", "../etc/passwd", "a/../../b"} {
				if err := bs.Put(ctx, bad, strings.NewReader("x"), ""); err == nil {
					t.Fatalf("key %q accepted", bad)
				}
			}
		})
	}

	if got := fsStore.PublicURL("test-abc/f.pdf"); got != "http://localhost:5000/api/files/test-abc/f.pdf" {
		t.Fatalf("fs url = %s", got)
	}
}

func TestPublicGCSURL(t *testing.T) {
	cases := []struct{ host, want string }{
		{"", "https://storage.googleapis.com/bucket/test-1/a.png"},
		{"http://localhost:4443", "http://localhost:4443/bucket/test-1/a.png"},
	}
	for _, tc := range cases {
		if got := publicGCSURL(tc.host, "bucket", "/test-1/a.png"); got != tc.want {
			t.Fatalf("url = %s, want %s", got, tc.want)
		}
	}
}
