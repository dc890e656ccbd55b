package pthash

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pthasherrors "github.com/clayne/pthash/errors"
)

func buildTestSingle(t *testing.T, minimal bool, opts ...Option) (*SinglePHF, [][]byte) {
	t.Helper()
	keys := [][]byte{
		[]byte("alpha"), []byte("beta"), []byte("gamma"),
		[]byte("delta"), []byte("epsilon"),
	}
	f := NewSinglePHF(minimal, XXH3Hasher{}, opts...)
	cfg := DefaultBuildConfig()
	cfg.Seed = 0xDEADBEEF
	cfg.MinimalOutput = minimal
	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return f, keys
}

func TestSingleRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name    string
		minimal bool
		opts    []Option
	}{
		{"minimal compact", true, nil},
		{"non-minimal compact", false, nil},
		{"minimal dictionary", true, []Option{WithEncoder(EncoderDictionary)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, keys := buildTestSingle(t, tc.minimal, tc.opts...)

			var buf bytes.Buffer
			if err := f.Serialize(&buf); err != nil {
				t.Fatalf("serialize failed: %v", err)
			}

			g := NewSinglePHF(tc.minimal, XXH3Hasher{})
			if err := g.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
				t.Fatalf("deserialize failed: %v", err)
			}

			if g.NumKeys() != f.NumKeys() || g.TableSize() != f.TableSize() || g.Seed() != f.Seed() {
				t.Fatal("round-trip changed artifact parameters")
			}
			if g.Encoder() != f.Encoder() {
				t.Fatalf("round-trip changed encoder: %v vs %v", g.Encoder(), f.Encoder())
			}
			for _, key := range keys {
				if f.Lookup(key) != g.Lookup(key) {
					t.Fatalf("round-trip changed position of key %q", key)
				}
			}

			// Re-serializing the reloaded artifact reproduces the bytes.
			var buf2 bytes.Buffer
			if err := g.Serialize(&buf2); err != nil {
				t.Fatalf("re-serialize failed: %v", err)
			}
			if !bytes.Equal(buf.Bytes(), buf2.Bytes()) {
				t.Fatal("round-trip changed the serialized bytes")
			}
		})
	}
}

func TestPartitionedRoundTrip(t *testing.T) {
	keys := genKeys(50000)
	f := NewPartitionedPHF(true, XXH3Hasher{})
	cfg := DefaultBuildConfig()
	cfg.Seed = 6
	cfg.MinimalOutput = true
	cfg.NumPartitions = 8
	cfg.MinPartitionSize = 1000
	cfg.NumThreads = 4
	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	g := NewPartitionedPHF(true, XXH3Hasher{})
	if err := g.Deserialize(bytes.NewReader(buf.Bytes())); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}

	if g.NumPartitions() != f.NumPartitions() {
		t.Fatalf("NumPartitions() = %d, want %d", g.NumPartitions(), f.NumPartitions())
	}
	for _, key := range keys {
		if f.Lookup(key) != g.Lookup(key) {
			t.Fatalf("round-trip changed position of key %q", key)
		}
	}
}

func TestDeserializeTruncated(t *testing.T) {
	f, _ := buildTestSingle(t, true)
	var buf bytes.Buffer
	if err := f.Serialize(&buf); err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	g := NewSinglePHF(true, XXH3Hasher{})
	if err := g.Deserialize(bytes.NewReader(buf.Bytes()[:buf.Len()/2])); err == nil {
		t.Fatal("deserialize of truncated stream succeeded")
	}
}

func TestFileRoundTrip(t *testing.T) {
	f, keys := buildTestSingle(t, true)
	path := filepath.Join(t.TempDir(), "single.phf")
	if err := f.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	g := NewSinglePHF(true, XXH3Hasher{})
	if err := g.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	for _, key := range keys {
		if f.Lookup(key) != g.Lookup(key) {
			t.Fatalf("file round-trip changed position of key %q", key)
		}
	}
}

func TestPartitionedFileRoundTrip(t *testing.T) {
	keys := genKeys(60000)
	f := NewPartitionedPHF(true, XXH3Hasher{})
	cfg := DefaultBuildConfig()
	cfg.Seed = 8
	cfg.MinimalOutput = true
	cfg.NumPartitions = 4
	cfg.MinPartitionSize = 1000
	if _, err := f.BuildFromKeys(keys, cfg); err != nil {
		t.Fatalf("build failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "partitioned.phf")
	if err := f.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	g := NewPartitionedPHF(true, XXH3Hasher{})
	if err := g.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	for _, key := range keys {
		if f.Lookup(key) != g.Lookup(key) {
			t.Fatalf("file round-trip changed position of key %q", key)
		}
	}
}

func TestFileCorruption(t *testing.T) {
	f, _ := buildTestSingle(t, true)
	path := filepath.Join(t.TempDir(), "single.phf")
	if err := f.SaveFile(path); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	t.Run("flipped byte", func(t *testing.T) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		data[len(data)/2] ^= 0xFF
		bad := filepath.Join(t.TempDir(), "bad.phf")
		if err := os.WriteFile(bad, data, 0o644); err != nil {
			t.Fatal(err)
		}
		g := NewSinglePHF(true, XXH3Hasher{})
		if err := g.LoadFile(bad); !errors.Is(err, pthasherrors.ErrChecksumFailed) {
			t.Fatalf("got %v, want ErrChecksumFailed", err)
		}
	})

	t.Run("bad magic", func(t *testing.T) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		data[0] ^= 0xFF
		bad := filepath.Join(t.TempDir(), "bad.phf")
		if err := os.WriteFile(bad, data, 0o644); err != nil {
			t.Fatal(err)
		}
		g := NewSinglePHF(true, XXH3Hasher{})
		if err := g.LoadFile(bad); !errors.Is(err, pthasherrors.ErrInvalidMagic) {
			t.Fatalf("got %v, want ErrInvalidMagic", err)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		bad := filepath.Join(t.TempDir(), "bad.phf")
		if err := os.WriteFile(bad, data[:4], 0o644); err != nil {
			t.Fatal(err)
		}
		g := NewSinglePHF(true, XXH3Hasher{})
		if err := g.LoadFile(bad); !errors.Is(err, pthasherrors.ErrTruncatedFile) {
			t.Fatalf("got %v, want ErrTruncatedFile", err)
		}
	})

	t.Run("kind mismatch", func(t *testing.T) {
		g := NewPartitionedPHF(true, XXH3Hasher{})
		if err := g.LoadFile(path); !errors.Is(err, pthasherrors.ErrCorruptedData) {
			t.Fatalf("got %v, want ErrCorruptedData", err)
		}
	})
}
