package alert

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestNewSoundPlayer_MissingFile(t *testing.T) {
	p, err := NewSoundPlayer(filepath.Join(t.TempDir(), "alert.mp3"))
	if !errors.Is(err, ErrSoundMissing) {
		t.Fatalf("expected ErrSoundMissing, got %v", err)
	}
	if _, ok := p.(NopPlayer); !ok {
		t.Errorf("expected NopPlayer fallback, got %T", p)
	}
	if err := p.Play(); err != nil {
		t.Errorf("NopPlayer.Play() error = %v", err)
	}
}

func TestNewSoundPlayer_EmptyPath(t *testing.T) {
	if _, err := NewSoundPlayer(""); !errors.Is(err, ErrSoundMissing) {
		t.Errorf("expected ErrSoundMissing for empty path, got %v", err)
	}
}
