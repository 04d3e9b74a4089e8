package config

import (
	"context"
	"os"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "width = 100\nheight = 100\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 10)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nopLogger{}, func(cfg Config) { changes <- cfg })
	}()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("width = 64\nheight = 32\n"), 0644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Width == 64 && cfg.Height == 32 {
				cancel()
				if err := <-done; err != nil {
					t.Errorf("Watch returned error: %v", err)
				}
				return
			}
		case <-timeout:
			t.Fatal("Timeout waiting for config reload")
		}
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	path := writeConfig(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nopLogger{}, func(Config) {})
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error on cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_SkipsEmptyWrite(t *testing.T) {
	path := writeConfig(t, "width = 100\nheight = 100\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 10)
	go Watch(ctx, path, nopLogger{}, func(cfg Config) { changes <- cfg })

	time.Sleep(100 * time.Millisecond)
	// Truncate as editors do before rewriting
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		t.Fatalf("Expected empty file to be ignored, got reload %dx%d", cfg.Width, cfg.Height)
	case <-time.After(10 * ReloadDelay):
	}

	if err := os.WriteFile(path, []byte("width = 64\nheight = 32\n"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case cfg := <-changes:
		if cfg.Width != 64 || cfg.Height != 32 {
			t.Errorf("Expected 64x32 after rewrite, got %dx%d", cfg.Width, cfg.Height)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for config reload")
	}
}

func TestWatch_CoalescesWrites(t *testing.T) {
	path := writeConfig(t, "width = 100\nheight = 100\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Config, 10)
	go Watch(ctx, path, nopLogger{}, func(cfg Config) { changes <- cfg })

	time.Sleep(100 * time.Millisecond)
	// Truncate then rewrite within the reload delay
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("width = 8\nheight = 4\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changes:
		if cfg.Width != 8 || cfg.Height != 4 {
			t.Errorf("Expected 8x4, got %dx%d", cfg.Width, cfg.Height)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for config reload")
	}
}
