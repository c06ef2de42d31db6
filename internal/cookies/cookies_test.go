package cookies

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.yaml")
	store := NewStore(path)

	in := []Cookie{
		{Name: "ews_key", Value: "abc", Domain: "www.esjzone.one", Path: "/"},
		{Name: "ews_token", Value: "def", Domain: "www.esjzone.one", Path: "/"},
	}
	if err := store.Save(in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("cookie file mode = %v, want 0600", info.Mode().Perm())
	}

	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(out) != 2 || out[0].Name != "ews_key" || out[1].Value != "def" {
		t.Errorf("Load() = %+v", out)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.yaml"))
	out, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out != nil {
		t.Errorf("Load() = %v, want nil for missing file", out)
	}
}

func TestDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.yaml")
	store := NewStore(path)
	if err := store.Save([]Cookie{{Name: "a", Value: "b"}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("cookie file still exists after Delete()")
	}
	// Deleting again must not fail.
	if err := store.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestHTTPConversion(t *testing.T) {
	hc := []*http.Cookie{{Name: "k", Value: "v", Domain: "example.com", Path: "/x"}}
	cs := FromHTTP(hc)
	if len(cs) != 1 || cs[0].Name != "k" || cs[0].Path != "/x" {
		t.Fatalf("FromHTTP() = %+v", cs)
	}

	back := ToHTTP(cs)
	if len(back) != 1 || back[0].Value != "v" || back[0].Domain != "example.com" {
		t.Fatalf("ToHTTP() = %+v", back)
	}

	// Empty path defaults to "/".
	back = ToHTTP([]Cookie{{Name: "a", Value: "b"}})
	if back[0].Path != "/" {
		t.Errorf("ToHTTP() default path = %q, want /", back[0].Path)
	}
}
