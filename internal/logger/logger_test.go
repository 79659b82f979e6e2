package logger

import (
	"bytes"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// capture redirects logger output to a buffer for the duration of a test
// and restores the defaults afterwards.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestVerboseToggle(t *testing.T) {
	capture(t)

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_SuppressedWhenQuiet(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Debug("job %s: page %d done", "job-1", 3)

	assert.Zero(t, buf.Len())
}

func TestMessageFormats(t *testing.T) {
	buf := capture(t)
	SetVerbose(true)

	Section("Sync org-1/document")
	Info("job %s: %d records expected", "job-1", 500)
	Debug("job %s: page %d done, %d/%d records", "job-1", 2, 1000, 2500)
	Warn("indexing record %s: %v", "rec-9", errors.New("disk full"))

	assert.Equal(t,
		"\n=== Sync org-1/document ===\n"+
			"[INFO] job job-1: 500 records expected\n"+
			"[DEBUG] job job-1: page 2 done, 1000/2500 records\n"+
			"[WARN] indexing record rec-9: disk full\n",
		buf.String())
}

func TestSection_SuppressedWhenQuiet(t *testing.T) {
	buf := capture(t)
	SetVerbose(false)

	Section("Sync org-1/ticket")

	assert.Zero(t, buf.Len())
}

func TestConcurrentUse(t *testing.T) {
	capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(true)
			Debug("worker %d: fetched page", n)
			IsVerbose()
			SetVerbose(false)
		}(i)
	}
	wg.Wait()
}
