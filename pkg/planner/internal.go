package planner

import "github.com/yuya-takeyama/strict-fs-sync/pkg/snapshot"

// ItemRef pairs the source and destination records sharing a key.
// Either side may be the zero record.
type ItemRef struct {
	Key    string
	Source snapshot.FileRecord
	Dest   snapshot.FileRecord
}

type Phase1Result struct {
	NewItems     []ItemRef
	DeletedItems []ItemRef
	SizeMismatch []ItemRef
	NeedChecksum []ItemRef
	Identical    []ItemRef
}

type ChecksumData struct {
	ItemRef        ItemRef
	SourceChecksum string
	DestChecksum   string
	Err            error
}

// Hasher resolves the content checksum of a record
type Hasher func(rec snapshot.FileRecord) (string, error)
