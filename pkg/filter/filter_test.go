package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

func fileAt(rel string, depth int, size int64, age time.Duration) entry.FileEntry {
	return entry.FileEntry{
		Path:    "/scan/" + rel,
		RelPath: rel,
		Depth:   depth,
		Size:    size,
		ModTime: time.Now().Add(-age),
		Ext:     entry.NormalizeExt(rel),
	}
}

func TestCompileRejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad include glob", func() Options {
			o := DefaultOptions()
			o.Include = []string{"src/[abc"}
			return o
		}()},
		{"bad exclude glob", func() Options {
			o := DefaultOptions()
			o.Exclude = []string{"{unclosed"}
			return o
		}()},
		{"inverted size range", func() Options {
			o := DefaultOptions()
			o.MinSize = 100
			o.MaxSize = 10
			return o
		}()},
		{"inverted age range", func() Options {
			o := DefaultOptions()
			o.MinAgeDays = 30
			o.MaxAgeDays = 7
			return o
		}()},
		{"negative depth", func() Options {
			o := DefaultOptions()
			o.MaxDepth = -2
			return o
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.opts, nil)
			assert.Error(t, err)
		})
	}
}

func TestMatchDepth(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 1
	f, err := Compile(opts, nil)
	require.NoError(t, err)

	assert.True(t, f.Match(fileAt("top.txt", 1, 10, 0)))
	assert.False(t, f.Match(fileAt("sub/deep/file.txt", 3, 10, 0)))

	sub := fileAt("sub", 1, 0, 0)
	sub.IsDir = true
	assert.True(t, f.Match(sub))
}

func TestMatchHidden(t *testing.T) {
	f, err := Compile(DefaultOptions(), nil)
	require.NoError(t, err)

	assert.False(t, f.Match(fileAt(".env", 1, 10, 0)))
	assert.False(t, f.Match(fileAt(".git/config", 2, 10, 0)))
	assert.True(t, f.Match(fileAt("visible.txt", 1, 10, 0)))

	opts := DefaultOptions()
	opts.IncludeHidden = true
	g, err := Compile(opts, nil)
	require.NoError(t, err)
	assert.True(t, g.Match(fileAt(".env", 1, 10, 0)))
}

func TestMatchSizeWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.MinSize = 1 << 20
	opts.MaxSize = 10 << 20
	f, err := Compile(opts, nil)
	require.NoError(t, err)

	assert.False(t, f.Match(fileAt("small.bin", 1, 500<<10, 0)))
	assert.True(t, f.Match(fileAt("medium.bin", 1, 2<<20, 0)))
	assert.False(t, f.Match(fileAt("huge.bin", 1, 20<<20, 0)))

	// Directories are not size-checked.
	dir := fileAt("dir", 1, 0, 0)
	dir.IsDir = true
	assert.True(t, f.Match(dir))
}

func TestMatchAgeWindow(t *testing.T) {
	opts := DefaultOptions()
	opts.MinAgeDays = 7
	opts.MaxAgeDays = 60
	f, err := Compile(opts, nil)
	require.NoError(t, err)

	assert.False(t, f.Match(fileAt("fresh.txt", 1, 10, time.Hour)))
	assert.True(t, f.Match(fileAt("aging.txt", 1, 10, 30*24*time.Hour)))
	assert.False(t, f.Match(fileAt("ancient.txt", 1, 10, 365*24*time.Hour)))
}

func TestMatchPatterns(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		rel     string
		want    bool
	}{
		{"no patterns accepts", nil, nil, "a/b.txt", true},
		{"include match", []string{"**/*.go"}, nil, "pkg/x/y.go", true},
		{"include miss", []string{"**/*.go"}, nil, "pkg/x/y.txt", false},
		{"bare pattern matches base at depth", nil, []string{"*.log"}, "var/log/app.log", false},
		{"exclude beats include", []string{"**/*.go"}, []string{"vendor/**"}, "vendor/a/b.go", false},
		{"doublestar segment", nil, []string{"**/node_modules/**"}, "web/node_modules/pkg/index.js", false},
		{"exact relative path", []string{"docs/readme.md"}, nil, "docs/readme.md", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Include = tt.include
			opts.Exclude = tt.exclude
			f, err := Compile(opts, nil)
			require.NoError(t, err)

			e := fileAt(tt.rel, len(splitDepth(tt.rel)), 10, 0)
			assert.Equal(t, tt.want, f.Match(e))
		})
	}
}

func splitDepth(rel string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(rel); i++ {
		if rel[i] == '/' {
			segs = append(segs, rel[start:i])
			start = i + 1
		}
	}
	return append(segs, rel[start:])
}

func TestMatchGitStatus(t *testing.T) {
	opts := DefaultOptions()
	opts.GitStatuses = []entry.GitStatus{entry.GitModified, entry.GitUntracked}
	f, err := Compile(opts, nil)
	require.NoError(t, err)

	modified := fileAt("main.go", 1, 10, 0)
	modified.GitStatus = entry.GitModified
	assert.True(t, f.Match(modified))

	tracked := fileAt("go.sum", 1, 10, 0)
	tracked.GitStatus = entry.GitTracked
	assert.False(t, f.Match(tracked))

	// Directories bypass the git filter; git status is per file.
	dir := fileAt("pkg", 1, 0, 0)
	dir.IsDir = true
	dir.GitStatus = entry.GitUnknown
	assert.True(t, f.Match(dir))
}

// Round-trip property: filtering an externally generated entry set with
// Match yields exactly the entries Match accepts, independent of order.
func TestMatchIsPure(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 2
	opts.MinSize = 5
	opts.Exclude = []string{"tmp/**"}
	f, err := Compile(opts, nil)
	require.NoError(t, err)

	entries := []entry.FileEntry{
		fileAt("a.txt", 1, 10, 0),
		fileAt("tmp/b.txt", 2, 10, 0),
		fileAt("c/d.txt", 2, 3, 0),
		fileAt("e/f/g.txt", 3, 10, 0),
	}

	var first []bool
	for _, e := range entries {
		first = append(first, f.Match(e))
	}
	for i := len(entries) - 1; i >= 0; i-- {
		assert.Equal(t, first[i], f.Match(entries[i]))
	}
	assert.Equal(t, []bool{true, false, false, false}, first)
}
