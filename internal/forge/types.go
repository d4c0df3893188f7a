package forge

// EntryType distinguishes files from directories in a contents listing.
type EntryType string

const (
	EntryFile EntryType = "file"
	EntryDir  EntryType = "dir"
)

// Entry is one row of a repository contents listing.
type Entry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Type        EntryType `json:"type"`
	DownloadURL string    `json:"download_url"`
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool { return e.Type == EntryFile }

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == EntryDir }

type githubTag struct {
	Name string `json:"name"`
}
