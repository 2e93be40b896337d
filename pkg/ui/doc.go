// Package ui renders terminal output for the downloader: styled messages,
// the per-file status line and desktop notifications.
package ui
