package cmcloud

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// retCode is the service status code. Some responses send it as a string.
type retCode int

func (r *retCode) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*r = 0
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return fmt.Errorf("invalid ret code %q: %w", data, err)
	}
	*r = retCode(n)
	return nil
}

// envelope is the JSON wrapper around every API response. A missing ret
// counts as success.
type envelope struct {
	Ret  retCode         `json:"ret"`
	Msg  string          `json:"msg,omitempty"`
	Data json.RawMessage `json:"data"`
}

func (e *envelope) ok() bool {
	return e.Ret == 0
}

// MetadataPage is one page of the photo catalogue
type MetadataPage struct {
	ItemTotal int     `json:"itemTotal"`
	Groups    []Group `json:"list"`
}

// Group collects the files captured on one date
type Group struct {
	GroupName string      `json:"groupname"`
	Files     []FileEntry `json:"list"`
}

// FileEntry is a single file as listed in a catalogue group
type FileEntry struct {
	FileName string `json:"file_name"`
	Key      string `json:"key"`
}

// FileRecord is a file annotated with the date group it was listed under
type FileRecord struct {
	FileName    string
	ContentHash string
	DateGroup   string
}

// Records flattens the page's groups in listing order
func (p *MetadataPage) Records() []FileRecord {
	var records []FileRecord
	for _, group := range p.Groups {
		for _, file := range group.Files {
			records = append(records, FileRecord{
				FileName:    file.FileName,
				ContentHash: file.Key,
				DateGroup:   group.GroupName,
			})
		}
	}
	return records
}

// Len returns the number of files on the page
func (p *MetadataPage) Len() int {
	n := 0
	for _, group := range p.Groups {
		n += len(group.Files)
	}
	return n
}

type downloadLink struct {
	URL string `json:"url"`
}
