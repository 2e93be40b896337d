package cmcloud

import (
	"fmt"
	"net/url"
)

const (
	// DefaultBaseURL is the root of the CM Cloud service
	DefaultBaseURL = "https://cloud.cmcm.com/"

	// LoginEndpoint accepts the account credentials
	LoginEndpoint = "cmbpc/login/login"

	// DiskEndpoint serves both the photo catalogue and download URLs
	DiskEndpoint = "cmbpc/disk/file"

	// DefaultPageSize is the number of catalogue entries requested per page
	DefaultPageSize = 100

	catalogueID = "cm_photo"
	downloadID  = "cm_photo_download"

	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"
)

// LoginForm builds the login request body
func LoginForm(email, password string) string {
	params := url.Values{}
	params.Set("email", email)
	params.Set("password", password)
	return params.Encode()
}

// MetadataForm builds the body requesting one catalogue page
func MetadataForm(pageSize, offset int) string {
	return fmt.Sprintf("id=%s&pagesize=%d&offset=%d", catalogueID, pageSize, offset)
}

// DownloadForm builds the body asking for the download URL of a single
// file. The service expects PHP-style nested array keys with the brackets
// percent-encoded.
func DownloadForm(dateGroup, contentHash string) string {
	return "id=" + downloadID +
		"&groups%5B0%5D%5Bgroupname%5D=" + url.QueryEscape(dateGroup) +
		"&groups%5B0%5D%5Ball%5D=0" +
		"&groups%5B0%5D%5Bkeys%5D%5B%5D=" + url.QueryEscape(contentHash)
}
