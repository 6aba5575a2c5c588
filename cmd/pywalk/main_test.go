package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/pywalk/pyobj"
	"github.com/chazu/pywalk/registry"
	"github.com/chazu/pywalk/walker"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("pywalk %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

// writeStream walks a small graph and writes its binary stream.
func writeStream(t *testing.T, dir string) string {
	t.Helper()
	reg := registry.NewBinary()
	w, err := walker.New(reg, nil, walker.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	d := pyobj.NewDict()
	d.Set(pyobj.NewStr("xs"), pyobj.Range(3))
	d.Set(pyobj.NewStr("err"), pyobj.NewException(pyobj.BuiltinClass("ValueError"), pyobj.NewStr("bad")))
	if _, err := w.Walk(d); err != nil {
		t.Fatal(err)
	}
	data, err := reg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "graph.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDumpAndConvert(t *testing.T) {
	dir := t.TempDir()
	bin := writeStream(t, dir)

	out := run(t, "dump", bin)
	for _, want := range []string{"root 0", "primitive-list", "[0, 1, 2]", "ValueError"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump output missing %q:\n%s", want, out)
		}
	}

	snap := filepath.Join(dir, "graph.cbor")
	hash := strings.TrimSpace(run(t, "convert", "--format", "cbor", bin, snap))
	back := filepath.Join(dir, "back.bin")
	if again := strings.TrimSpace(run(t, "convert", "--format", "binary", snap, back)); again != hash {
		t.Errorf("hash after round trip = %s, want %s", again, hash)
	}
	orig, _ := os.ReadFile(bin)
	rewritten, _ := os.ReadFile(back)
	if !bytes.Equal(orig, rewritten) {
		t.Error("binary stream changed after a CBOR round trip")
	}
}

func TestStorePutGetList(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PYWALK_STORE", filepath.Join(dir, "graphs.db"))
	bin := writeStream(t, dir)

	hash := strings.TrimSpace(run(t, "store", "put", "--label", "first", bin))
	run(t, "store", "put", "--label", "second", bin)

	list := run(t, "store", "list")
	if !strings.Contains(list, "first") || !strings.Contains(list, "second") || !strings.Contains(list, hash[:12]) {
		t.Errorf("store list:\n%s", list)
	}

	out := filepath.Join(dir, "out.bin")
	run(t, "store", "get", "--format", "binary", hash, out)
	orig, _ := os.ReadFile(bin)
	got, _ := os.ReadFile(out)
	if !bytes.Equal(orig, got) {
		t.Error("stored graph differs from the original stream")
	}
}

func TestFreevars(t *testing.T) {
	src := "import os\n\ndef f(x):\n    return os.path.join(x, len(y))\n\nwith ctx:\n    z = f(1)\n    return z\n"
	path := filepath.Join(t.TempDir(), "m.py")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out := run(t, "freevars", path, "3")
	for _, want := range []string{"os.path.join", "len  (builtin)", "y"} {
		if !strings.Contains(out, want) {
			t.Errorf("freevars output missing %q:\n%s", want, out)
		}
	}

	conf := filepath.Join(t.TempDir(), "pywalk.toml")
	toml := "[walker]\nexclude = [\"len\"]\n\n[purity]\nopaque-modules = [\"os\"]\n"
	if err := os.WriteFile(conf, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	out = run(t, "--config", conf, "freevars", path, "3")
	for _, want := range []string{"os.path.join  (opaque)", "len  (excluded)"} {
		if !strings.Contains(out, want) {
			t.Errorf("configured freevars output missing %q:\n%s", want, out)
		}
	}

	out = run(t, "freevars", "--kind", "with", path, "6")
	if !strings.Contains(out, "z  (bound)") || !strings.Contains(out, "return not allowed") {
		t.Errorf("with block output:\n%s", out)
	}
}
