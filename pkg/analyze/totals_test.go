package analyze

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

func sized(path string, size int64) entry.FileEntry {
	return entry.FileEntry{Path: path, RelPath: path, Ext: entry.NormalizeExt(path), Size: size}
}

func TestStatsAdd(t *testing.T) {
	s := NewStats(10)
	s.Add(sized("a.go", 100), nil)
	s.Add(sized("b.go", 200), nil)
	s.Add(sized("c.txt", 50), []Tag{TagCompressible})
	s.Add(entry.FileEntry{Path: "d", IsDir: true}, nil)
	s.Add(entry.FileEntry{Path: "l", IsSymlink: true}, nil)

	assert.Equal(t, int64(3), s.Files)
	assert.Equal(t, int64(1), s.Dirs)
	assert.Equal(t, int64(1), s.Symlinks)
	assert.Equal(t, int64(350), s.TotalSize)
	assert.Equal(t, int64(1), s.Storage.CompressibleCount)
	assert.Equal(t, int64(50), s.Storage.CompressibleSize)

	exts := s.Extensions()
	require.Len(t, exts, 2)
	assert.Equal(t, ExtStat{Ext: ".go", Count: 2, Size: 300}, exts[0])
	assert.Equal(t, ExtStat{Ext: ".txt", Count: 1, Size: 50}, exts[1])
}

func TestStatsTopNBoundedAndOrdered(t *testing.T) {
	s := NewStats(3)
	for i := 0; i < 10; i++ {
		s.Add(sized(fmt.Sprintf("f%02d.bin", i), int64(i*10)), nil)
	}

	top := s.TopFiles()
	require.Len(t, top, 3)
	assert.Equal(t, "f09.bin", top[0].Path)
	assert.Equal(t, "f08.bin", top[1].Path)
	assert.Equal(t, "f07.bin", top[2].Path)
}

func TestStatsTopNTieBreakByPath(t *testing.T) {
	s := NewStats(2)
	s.Add(sized("c.bin", 100), nil)
	s.Add(sized("a.bin", 100), nil)
	s.Add(sized("b.bin", 100), nil)

	top := s.TopFiles()
	require.Len(t, top, 2)
	assert.Equal(t, "a.bin", top[0].Path)
	assert.Equal(t, "b.bin", top[1].Path)
}

func TestStatsMergeIdentity(t *testing.T) {
	s := NewStats(5)
	s.Add(sized("a.go", 100), []Tag{TagTemp})
	before := *s

	s.Merge(NewStats(5))
	assert.Equal(t, before.Files, s.Files)
	assert.Equal(t, before.TotalSize, s.TotalSize)
	assert.Equal(t, before.Storage, s.Storage)
}

// Folding a stream in one accumulator must equal splitting it across
// several and merging, regardless of the partition.
func TestStatsMergeMatchesSequentialFold(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var entries []entry.FileEntry
	for i := 0; i < 200; i++ {
		entries = append(entries, sized(fmt.Sprintf("dir/f%03d.dat", i), rng.Int63n(10000)))
	}

	sequential := NewStats(10)
	for _, e := range entries {
		sequential.Add(e, nil)
	}

	for _, parts := range []int{2, 3, 7} {
		partials := make([]*Stats, parts)
		for i := range partials {
			partials[i] = NewStats(10)
		}
		for i, e := range entries {
			partials[i%parts].Add(e, nil)
		}
		merged := partials[0]
		for _, p := range partials[1:] {
			merged.Merge(p)
		}

		assert.Equal(t, sequential.Files, merged.Files)
		assert.Equal(t, sequential.TotalSize, merged.TotalSize)
		assert.Equal(t, sequential.Extensions(), merged.Extensions())
		assert.Equal(t, sequential.TopFiles(), merged.TopFiles())
	}
}

func TestStorageExamplesBoundedAndDeterministic(t *testing.T) {
	sequential := NewStats(5)
	var entries []entry.FileEntry
	for i := 9; i >= 0; i-- {
		entries = append(entries, sized(fmt.Sprintf("t%d.tmp", i), 10))
	}
	for _, e := range entries {
		sequential.Add(e, []Tag{TagTemp})
	}

	want := []string{"t0.tmp", "t1.tmp", "t2.tmp", "t3.tmp", "t4.tmp"}
	assert.Equal(t, want, sequential.Storage.TempExamples)
	assert.Equal(t, int64(10), sequential.Storage.TempCount)

	left, right := NewStats(5), NewStats(5)
	for i, e := range entries {
		if i%2 == 0 {
			left.Add(e, []Tag{TagTemp})
		} else {
			right.Add(e, []Tag{TagTemp})
		}
	}
	left.Merge(right)
	assert.Equal(t, want, left.Storage.TempExamples)
}

func TestStatsGitCounts(t *testing.T) {
	s := NewStats(5)
	e := sized("a.go", 10)
	e.GitStatus = entry.GitModified
	s.Add(e, nil)
	e2 := sized("b.go", 10)
	e2.GitStatus = entry.GitModified
	s.Add(e2, nil)

	counts := s.GitCounts()
	assert.Equal(t, int64(2), counts[entry.GitModified])
}

func TestStatsZeroTopN(t *testing.T) {
	s := NewStats(0)
	s.Add(sized("a.go", 100), nil)
	assert.Empty(t, s.TopFiles())
}
