package model

import "time"

// Audio is a finished capture handed from the recording session to the
// extraction pipeline.
type Audio struct {
	Data     []byte
	Format   string // file extension without the dot, e.g. "m4a"
	Name     string
	Duration time.Duration
}

// Empty reports whether the capture carries no audio bytes.
func (a Audio) Empty() bool {
	return len(a.Data) == 0
}

// Filename returns a name suitable for a multipart upload.
func (a Audio) Filename() string {
	if a.Name != "" {
		return a.Name
	}
	format := a.Format
	if format == "" {
		format = "m4a"
	}
	return "recording." + format
}
