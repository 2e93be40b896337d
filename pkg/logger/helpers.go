package logger

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// LogRequest logs HTTP request information
func LogRequest(log Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("HTTP request completed", fields)
	case statusCode >= 400 && statusCode < 500:
		log.WarnWithFields("HTTP request client error", fields)
	case statusCode >= 500:
		log.ErrorWithFields("HTTP request server error", fields)
	default:
		log.InfoWithFields("HTTP request returned unexpected status", fields)
	}
}

// LogDownload logs the outcome of a single photo download
func LogDownload(log Logger, fileName, dateGroup string, size int, err error) {
	l := log.WithFields(map[string]interface{}{
		"file":       fileName,
		"date_group": dateGroup,
	})

	if err != nil {
		l.WithError(err).Error("Download failed")
		return
	}
	l.InfoWithFields("Download completed", map[string]interface{}{
		"size": humanize.Bytes(uint64(size)),
	})
}

// LogRetry logs a failed attempt that is about to be retried after a fresh login
func LogRetry(log Logger, op, target string, attempt, maxAttempts int, err error) {
	log.WarnWithFields(fmt.Sprintf("%s attempt #%d failed, will retry...", op, attempt), map[string]interface{}{
		"op":           op,
		"target":       target,
		"attempt":      attempt,
		"max_attempts": maxAttempts,
		"error":        err.Error(),
	})
}

// LogPageProgress logs catalogue pagination progress
func LogPageProgress(log Logger, offset, itemTotal, records int) {
	percentage := 0.0
	if itemTotal > 0 {
		percentage = float64(offset) / float64(itemTotal) * 100
	}

	log.InfoWithFields("Metadata page fetched", map[string]interface{}{
		"offset":     offset,
		"item_total": itemTotal,
		"records":    records,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogRunSummary logs totals for a finished run
func LogRunSummary(log Logger, downloaded, skipped int, bytes int64, elapsed time.Duration) {
	log.InfoWithFields("Run finished", map[string]interface{}{
		"downloaded": downloaded,
		"skipped":    skipped,
		"bytes":      humanize.Bytes(uint64(bytes)),
		"elapsed":    elapsed.Round(time.Second).String(),
	})
}
