package common

//File is a unit of scanning: a relative path and the raw content found at that path
type File struct {
	//Path is the path of the file relative to the root of the bundle or repository
	Path string `json:"path"`
	//Content is the raw file content; it may be binary
	Content []byte `json:"-"`
}

//Size returns the size of the content in bytes
func (f File) Size() int {
	return len(f.Content)
}

// SourceType describes where a bundle of files came from
type SourceType int

const (
	//UploadSource describes files submitted directly by a caller
	UploadSource SourceType = iota
	//RepositorySource describes files fetched from a hosted code repository
	RepositorySource
)

func (st SourceType) String() string {
	switch st {
	case UploadSource:
		return "upload"
	case RepositorySource:
		return "repository"
	default:
		return "unknown"
	}
}

// ScanRequest is a container for a triage scan
type ScanRequest struct {
	Type       SourceType
	Files      []File // for UploadSource type
	Repository string // for RepositorySource type, the hosted repository URL
}
