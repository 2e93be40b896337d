package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"quickpic/pkg/cmcloud"
)

// StatusTracker renders a single updating status line while files are
// processed. It satisfies the migrator's progress observer.
type StatusTracker struct {
	mu         sync.Mutex
	downloaded int
	skipped    int
	bytes      int64
	current    string
	startTime  time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		startTime: time.Now(),
	}
}

// OnSkip records a file that was already present locally
func (st *StatusTracker) OnSkip(record cmcloud.FileRecord) {
	st.mu.Lock()
	st.skipped++
	st.current = record.FileName
	line := st.line()
	st.mu.Unlock()

	write(false, "\r%s", line)
}

// OnDownloaded records a file that was fetched and dated
func (st *StatusTracker) OnDownloaded(record cmcloud.FileRecord, bytes int64) {
	st.mu.Lock()
	st.downloaded++
	st.bytes += bytes
	st.current = record.FileName
	line := st.line()
	st.mu.Unlock()

	write(false, "\r%s", line)
}

// line builds the status line; callers hold mu
func (st *StatusTracker) line() string {
	parts := []string{
		successStyle.Render(fmt.Sprintf("%d downloaded", st.downloaded)),
		dimStyle.Render(fmt.Sprintf("%d skipped", st.skipped)),
		humanize.Bytes(uint64(st.bytes)),
	}
	if rate := st.rateLocked(); rate > 0 {
		parts = append(parts, fmt.Sprintf("%.1f/min", rate))
	}
	if st.current != "" {
		parts = append(parts, dimStyle.Render(st.current))
	}
	return strings.Join(parts, " • ") + "\033[K"
}

func (st *StatusTracker) rateLocked() float64 {
	elapsed := time.Since(st.startTime).Minutes()
	if elapsed == 0 {
		return 0
	}
	return float64(st.downloaded) / elapsed
}

// Counts returns the number of downloaded and skipped files so far
func (st *StatusTracker) Counts() (downloaded, skipped int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.downloaded, st.skipped
}

// Bytes returns the number of bytes written so far
func (st *StatusTracker) Bytes() int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.bytes
}

// Finish ends the status line and prints the run summary
func (st *StatusTracker) Finish(downloaded, skipped int, bytes int64, elapsed time.Duration) {
	write(false, "\n\n%s Downloaded %s photos (%s), skipped %s already present\n",
		successStyle.Render("✓"),
		humanize.Comma(int64(downloaded)),
		humanize.Bytes(uint64(bytes)),
		humanize.Comma(int64(skipped)),
	)
	write(false, "  %s finished in %s\n", dimStyle.Render("•"), elapsed.Round(time.Second))
}
