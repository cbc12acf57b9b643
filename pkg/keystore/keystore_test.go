package keystore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

func TestEnsureKeyPairIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ks := New(storage.NewMemoryStore())

	first, err := ks.EnsureKeyPair(ctx, "0xAlice")
	if err != nil {
		t.Fatalf("EnsureKeyPair: %v", err)
	}
	if first.Identity != "0xalice" {
		t.Errorf("identity should be normalized, got %q", first.Identity)
	}

	second, err := ks.EnsureKeyPair(ctx, "  0xalice ")
	if err != nil {
		t.Fatalf("EnsureKeyPair again: %v", err)
	}
	if first.PublicKey != second.PublicKey || first.SecretKey != second.SecretKey {
		t.Error("second call must return the stored pair")
	}
}

func TestEnsureKeyPairConcurrent(t *testing.T) {
	ctx := context.Background()
	ks := New(storage.NewMemoryStore())

	const workers = 16
	results := make([]*KeyPair, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kp, err := ks.EnsureKeyPair(ctx, "0xbob")
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = kp
		}(i)
	}
	wg.Wait()

	stored, found, err := ks.LoadKeyPair(ctx, "0xBOB")
	if err != nil || !found {
		t.Fatalf("LoadKeyPair = %v, %v", found, err)
	}
	for i, kp := range results {
		if kp == nil {
			continue
		}
		if kp.PublicKey != stored.PublicKey {
			t.Errorf("worker %d returned a pair that is not the stored one", i)
		}
	}
}

func TestLoadKeyPairDoesNotGenerate(t *testing.T) {
	ctx := context.Background()
	ks := New(storage.NewMemoryStore())

	kp, found, err := ks.LoadKeyPair(ctx, "0xcarol")
	if err != nil {
		t.Fatalf("LoadKeyPair: %v", err)
	}
	if found || kp != nil {
		t.Fatal("LoadKeyPair must not create a pair")
	}
}

func TestEmptyIdentityRejected(t *testing.T) {
	ctx := context.Background()
	ks := New(storage.NewMemoryStore())

	if _, err := ks.EnsureKeyPair(ctx, "   "); !apperrors.IsValidation(err) {
		t.Errorf("EnsureKeyPair: expected validation error, got %v", err)
	}
	if _, _, err := ks.LoadKeyPair(ctx, ""); !apperrors.IsValidation(err) {
		t.Errorf("LoadKeyPair: expected validation error, got %v", err)
	}
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.Set(ctx, keyPrefix+"0xdave", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	_, _, err := New(store).LoadKeyPair(ctx, "0xdave")
	if !apperrors.IsCorrupt(err) {
		t.Errorf("expected corrupt error, got %v", err)
	}
}

func TestParsePublicKey(t *testing.T) {
	kp, err := New(storage.NewMemoryStore()).EnsureKeyPair(context.Background(), "0xerin")
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParsePublicKey(kp.PublicKeyBase64())
	if err != nil {
		t.Fatalf("ParsePublicKey: %v", err)
	}
	if got != kp.PublicKey {
		t.Error("round trip mismatch")
	}

	if _, err := ParsePublicKey("short"); err == nil {
		t.Error("expected error for invalid key")
	}
	if _, err := ParsePublicKey("AAAA"); err == nil {
		t.Error("expected error for wrong length")
	}
}

func TestExportImportFile(t *testing.T) {
	ctx := context.Background()
	kp, err := New(storage.NewMemoryStore()).EnsureKeyPair(ctx, "0xfrank")
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "keys", "0xfrank.json")
	if err := ExportFile(path, kp); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600, got %o", perm)
	}

	restored, err := ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if restored.SecretKey != kp.SecretKey || restored.Identity != kp.Identity {
		t.Error("restored pair differs")
	}

	other := New(storage.NewMemoryStore())
	if err := other.Import(ctx, restored); err != nil {
		t.Fatalf("Import: %v", err)
	}
	loaded, found, _ := other.LoadKeyPair(ctx, "0xfrank")
	if !found || loaded.PublicKey != kp.PublicKey {
		t.Error("imported pair not loadable")
	}

	conflicting, _ := New(storage.NewMemoryStore()).EnsureKeyPair(ctx, "0xfrank")
	if err := other.Import(ctx, conflicting); !apperrors.IsConflict(err) {
		t.Errorf("expected conflict importing a different pair, got %v", err)
	}
}

func TestImportFileRejectsMismatchedKeys(t *testing.T) {
	ctx := context.Background()
	a, _ := New(storage.NewMemoryStore()).EnsureKeyPair(ctx, "0xa")
	b, _ := New(storage.NewMemoryStore()).EnsureKeyPair(ctx, "0xb")
	a.PublicKey = b.PublicKey

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := ExportFile(path, a); err != nil {
		t.Fatal(err)
	}
	if _, err := ImportFile(path); !apperrors.IsCorrupt(err) {
		t.Errorf("expected corrupt error, got %v", err)
	}
}
