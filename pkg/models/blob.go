package models

// ContentBlob is the immutable metadata for stored document bytes. The hash
// is the hex SHA-256 digest of the raw bytes and doubles as the storage key,
// so byte-identical uploads always land on the same locator.
type ContentBlob struct {
	Hash         string `json:"hash"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	StoragePath  string `json:"storage_path"`
	Deduplicated bool   `json:"deduplicated"`
	Filename     string `json:"filename"`
}
