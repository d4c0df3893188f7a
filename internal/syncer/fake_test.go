package syncer

import (
	"context"
	"path"

	"github.com/evolvinglmms-lab/docsync/internal/forge"
	"github.com/evolvinglmms-lab/docsync/internal/foundation/errors"
)

// fakeRemote serves directory listings keyed by "ref:dir" and file bodies
// keyed by URL.
type fakeRemote struct {
	dirs      map[string][]forge.Entry
	files     map[string]string
	downloads []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{dirs: map[string][]forge.Entry{}, files: map[string]string{}}
}

func (f *fakeRemote) ListDirectory(_ context.Context, dirPath, ref string) ([]forge.Entry, error) {
	entries, ok := f.dirs[ref+":"+dirPath]
	if !ok {
		return nil, errors.NotFoundError("GitHub API error: 404 Not Found").WithContext("path", dirPath).Build()
	}
	return entries, nil
}

func (f *fakeRemote) Download(_ context.Context, url string) (string, error) {
	f.downloads = append(f.downloads, url)
	body, ok := f.files[url]
	if !ok {
		return "", errors.NotFoundError("GitHub API error: 404 Not Found").WithContext("url", url).Build()
	}
	return body, nil
}

func (f *fakeRemote) RawURL(ref, filePath string) string {
	return "raw/" + ref + "/" + filePath
}

// addFile registers a file under dir at ref, served from its raw URL.
func (f *fakeRemote) addFile(ref, dir, name, body string) {
	p := path.Join(dir, name)
	f.dirs[ref+":"+dir] = append(f.dirs[ref+":"+dir], forge.Entry{Name: name, Path: p, Type: forge.EntryFile})
	f.files[f.RawURL(ref, p)] = body
}

// addTreeFile registers a file that is fetched through its download URL.
func (f *fakeRemote) addTreeFile(ref, dir, name, body string) {
	p := path.Join(dir, name)
	url := "dl/" + p
	f.dirs[ref+":"+dir] = append(f.dirs[ref+":"+dir], forge.Entry{Name: name, Path: p, Type: forge.EntryFile, DownloadURL: url})
	f.files[url] = body
}

func (f *fakeRemote) addDir(ref, dir, name string) {
	p := path.Join(dir, name)
	f.dirs[ref+":"+dir] = append(f.dirs[ref+":"+dir], forge.Entry{Name: name, Path: p, Type: forge.EntryDir})
	if _, ok := f.dirs[ref+":"+p]; !ok {
		f.dirs[ref+":"+p] = []forge.Entry{}
	}
}

type fakeTags struct {
	tags []string
	err  error
}

func (f fakeTags) ListTags(context.Context) ([]string, error) { return f.tags, f.err }
