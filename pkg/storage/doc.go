// Package storage manages the download directory.
//
// A file counts as already downloaded when a non-empty regular file with the
// same name exists; there is no manifest and no checksum. Writes go through
// a temporary file and a rename so an interrupted run never leaves a
// non-empty partial file behind. SetTimestamp restores the capture date of
// a photo from its date group label, parsed in the local time zone.
//
// Usage:
//
//	manager, err := storage.NewManager("photos", log)
//	if err != nil {
//	    return err
//	}
//
//	if !manager.Exists("IMG_0001.jpg") {
//	    if _, err := manager.SavePhoto(data, "IMG_0001.jpg"); err != nil {
//	        return err
//	    }
//	    err = manager.SetTimestamp("IMG_0001.jpg", "2020-05-01")
//	}
package storage
