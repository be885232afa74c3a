package types

// FileID is the server-assigned identifier of a file or folder. 0 is the root.
type FileID int64

// RootID is the id of the remote root folder.
const RootID FileID = 0

// EntryKind mirrors the vendor "Type" field.
type EntryKind int

const (
	KindFile   EntryKind = 0
	KindFolder EntryKind = 1
)

func (k EntryKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// Entry is one record of a remote folder listing. JSON tags follow the
// vendor payload so entries can be sent back verbatim (trash, download_info).
type Entry struct {
	ID          FileID    `json:"FileId"`
	Name        string    `json:"FileName"`
	Kind        EntryKind `json:"Type"`
	Size        int64     `json:"Size"`
	Etag        string    `json:"Etag"`
	S3KeyFlag   string    `json:"S3KeyFlag"`
	AbsPath     string    `json:"AbsPath,omitempty"`
	DownloadURL string    `json:"DownloadUrl,omitempty"`
}

// IsFolder reports whether the entry is a folder.
func (e Entry) IsFolder() bool {
	return e.Kind == KindFolder
}

// NavFrame is one element of the navigation stack.
type NavFrame struct {
	ID   FileID
	Name string
}

// DuplicatePolicy is the vendor "duplicate" flag of an upload request.
type DuplicatePolicy int

const (
	DuplicateFail      DuplicatePolicy = 0
	DuplicateOverwrite DuplicatePolicy = 1
	DuplicateKeepBoth  DuplicatePolicy = 2
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateOverwrite:
		return "overwrite"
	case DuplicateKeepBoth:
		return "keep-both"
	default:
		return "fail"
	}
}

// UploadSession is the state handed out by a successful upload request.
type UploadSession struct {
	Bucket         string
	StorageNode    string
	Key            string
	UploadID       string
	FileID         FileID
	PartSize       int64
	NextPartNumber int
}
