package models

import (
	"path/filepath"
	"strings"
)

// UploadedFile is a document received in a single request. It is never
// persisted.
type UploadedFile struct {
	Name    string
	Content []byte
}

func NewUploadedFile(name string, content []byte) UploadedFile {
	return UploadedFile{Name: name, Content: content}
}

// Extension returns the lower-cased extension including the dot, e.g. ".pdf".
func (f UploadedFile) Extension() string {
	return strings.ToLower(filepath.Ext(f.Name))
}
