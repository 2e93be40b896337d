// Package migrate runs the download pipeline.
//
// For every record of the catalogue, in listing order, the Migrator skips
// files that already exist locally and otherwise resolves the download URL,
// fetches the image and restores its timestamp. Everything happens on the
// calling goroutine. The first fatal error ends the run; re-running resumes
// where it stopped because finished files are skipped.
package migrate
