package library

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-lint/internal/vlnv"
)

func TestWatchReindexesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "uart.xml"), componentXML("uart", "1.0"))

	s, err := Open(context.Background(), []string{dir}, WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Change, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(c Change) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	spi := vlnv.New(vlnv.Component, "acme", "ip", "spi", "1.0")
	deadline := time.After(5 * time.Second)
	for !s.Contains(spi) {
		// The watcher may not be registered yet; rewrite until it notices.
		writeFile(t, filepath.Join(dir, "spi.xml"), componentXML("spi", "1.0"))
		select {
		case c := <-changes:
			if c.Added == spi {
				assert.Equal(t, filepath.Join(dir, "spi.xml"), c.Path)
			}
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher did not pick up new document")
		}
	}
	assert.True(t, s.Contains(vlnv.New(vlnv.Component, "acme", "ip", "uart", "1.0")))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchSkipsFilesRejectedByFilter(t *testing.T) {
	dir := t.TempDir()
	uartPath := filepath.Join(dir, "uart.xml")
	spiPath := filepath.Join(dir, "vendor", "spi.xml")
	writeFile(t, uartPath, componentXML("uart", "1.0"))
	writeFile(t, spiPath, componentXML("spi", "1.0"))

	topLevel := func(path string) bool { return filepath.Dir(path) == dir }
	s, err := Open(context.Background(), []string{uartPath}, WithLogger(quietLogger()), WithFilter(topLevel))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []string
	var mu sync.Mutex
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(c Change) {
			mu.Lock()
			seen = append(seen, c.Path)
			mu.Unlock()
		})
	}()

	// Events arrive in order, so once i2c.xml is indexed the earlier write to
	// spi.xml has been handled too.
	i2c := vlnv.New(vlnv.Component, "acme", "ip", "i2c", "1.0")
	deadline := time.After(5 * time.Second)
	for !s.Contains(i2c) {
		writeFile(t, spiPath, componentXML("spi", "1.0"))
		writeFile(t, filepath.Join(dir, "i2c.xml"), componentXML("i2c", "1.0"))
		select {
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("watcher did not pick up new document")
		}
	}

	assert.False(t, s.Contains(vlnv.New(vlnv.Component, "acme", "ip", "spi", "1.0")))
	assert.Empty(t, s.GetPath(vlnv.New(vlnv.Component, "acme", "ip", "spi", "1.0")))
	mu.Lock()
	assert.NotContains(t, seen, spiPath)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
