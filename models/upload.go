package models

import (
	"path"
	"strings"
)

// UploadEvent describes a blob that finished uploading to storage.
type UploadEvent struct {
	Bucket      string            `json:"bucket"`
	ObjectPath  string            `json:"objectPath"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DocumentID returns the docId metadata value, or the object's file name
// without its extension when no id was attached.
func (e UploadEvent) DocumentID() string {
	if id := e.Metadata["docId"]; id != "" {
		return id
	}
	if id := e.Metadata["docid"]; id != "" {
		return id
	}
	if e.ObjectPath == "" {
		return ""
	}
	name := path.Base(e.ObjectPath)
	return strings.TrimSuffix(name, path.Ext(name))
}

// Extension is the lowercased extension of the object path, including the dot.
func (e UploadEvent) Extension() string {
	return strings.ToLower(path.Ext(e.ObjectPath))
}
