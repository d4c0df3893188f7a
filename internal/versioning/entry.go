package versioning

// LatestSlug is the directory of the rolling default-branch version.
const (
	LatestSlug  = "latest"
	LatestLabel = "Latest"
)

// Entry is a resolved sync target.
type Entry struct {
	Slug  string `json:"slug"`  // on-disk directory
	Ref   string `json:"ref"`   // git ref to fetch
	Label string `json:"label"` // display name
}

// IsLatest reports whether the entry tracks the default branch.
func (e Entry) IsLatest() bool { return e.Slug == LatestSlug }

// BuildEntries returns the latest entry for defaultBranch followed by one
// entry per tagged version, in the given order.
func BuildEntries(defaultBranch string, versions []ParsedVersion) []Entry {
	entries := make([]Entry, 0, len(versions)+1)
	entries = append(entries, Entry{Slug: LatestSlug, Ref: defaultBranch, Label: LatestLabel})
	for _, v := range versions {
		entries = append(entries, Entry{Slug: v.Tag, Ref: v.Tag, Label: v.Tag})
	}
	return entries
}
