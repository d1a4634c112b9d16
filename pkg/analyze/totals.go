package analyze

import (
	"container/heap"
	"sort"

	"github.com/Maverick-D-Aece/dirstat-pro/pkg/entry"
)

// ExtStat is the per-extension rollup. The empty extension groups files
// without one.
type ExtStat struct {
	Ext   string `json:"ext" yaml:"ext"`
	Count int64  `json:"count" yaml:"count"`
	Size  int64  `json:"size" yaml:"size"`
}

// maxStorageExamples bounds the example paths kept per storage class.
const maxStorageExamples = 5

// StorageStats tallies the classifier findings. Example lists keep the
// lexically smallest paths so parallel folds arrive at the same result
// regardless of partitioning.
type StorageStats struct {
	TempCount         int64 `json:"tempCount" yaml:"tempCount"`
	TempSize          int64 `json:"tempSize" yaml:"tempSize"`
	BackupCount       int64 `json:"backupCount" yaml:"backupCount"`
	BackupSize        int64 `json:"backupSize" yaml:"backupSize"`
	CompressibleCount int64 `json:"compressibleCount" yaml:"compressibleCount"`
	CompressibleSize  int64 `json:"compressibleSize" yaml:"compressibleSize"`

	TempExamples         []string `json:"tempExamples,omitempty" yaml:"tempExamples,omitempty"`
	BackupExamples       []string `json:"backupExamples,omitempty" yaml:"backupExamples,omitempty"`
	CompressibleExamples []string `json:"compressibleExamples,omitempty" yaml:"compressibleExamples,omitempty"`
}

func (s *StorageStats) merge(o StorageStats) {
	s.TempCount += o.TempCount
	s.TempSize += o.TempSize
	s.BackupCount += o.BackupCount
	s.BackupSize += o.BackupSize
	s.CompressibleCount += o.CompressibleCount
	s.CompressibleSize += o.CompressibleSize

	for _, p := range o.TempExamples {
		s.TempExamples = addExample(s.TempExamples, p)
	}
	for _, p := range o.BackupExamples {
		s.BackupExamples = addExample(s.BackupExamples, p)
	}
	for _, p := range o.CompressibleExamples {
		s.CompressibleExamples = addExample(s.CompressibleExamples, p)
	}
}

// addExample inserts path into a bounded sorted list, dropping the
// lexically largest entry on overflow.
func addExample(list []string, path string) []string {
	i := sort.SearchStrings(list, path)
	if i < len(list) && list[i] == path {
		return list
	}
	if i == maxStorageExamples {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = path
	if len(list) > maxStorageExamples {
		list = list[:maxStorageExamples]
	}
	return list
}

// Stats is the streaming accumulator behind a Report. Folding entries
// one at a time and merging partial accumulators built in parallel
// produce identical results; a fresh Stats is the identity for Merge.
// Not safe for concurrent use; give each worker its own and Merge.
type Stats struct {
	topN int

	Files     int64
	Dirs      int64
	Symlinks  int64
	TotalSize int64

	byExt     map[string]*ExtStat
	gitCounts map[entry.GitStatus]int64
	top       *topHeap
	Storage   StorageStats
}

// NewStats creates an empty accumulator keeping the topN largest files.
func NewStats(topN int) *Stats {
	return &Stats{
		topN:      topN,
		byExt:     make(map[string]*ExtStat),
		gitCounts: make(map[entry.GitStatus]int64),
		top:       newTopHeap(topN),
	}
}

// Add folds one entry and its classification tags into the totals.
func (s *Stats) Add(e entry.FileEntry, tags []Tag) {
	switch {
	case e.IsDir:
		s.Dirs++
		return
	case e.IsSymlink:
		s.Symlinks++
		return
	}

	s.Files++
	s.TotalSize += e.Size
	s.gitCounts[e.GitStatus]++

	stat, ok := s.byExt[e.Ext]
	if !ok {
		stat = &ExtStat{Ext: e.Ext}
		s.byExt[e.Ext] = stat
	}
	stat.Count++
	stat.Size += e.Size

	s.top.offer(e)

	for _, tag := range tags {
		switch tag {
		case TagTemp:
			s.Storage.TempCount++
			s.Storage.TempSize += e.Size
			s.Storage.TempExamples = addExample(s.Storage.TempExamples, e.RelPath)
		case TagBackup:
			s.Storage.BackupCount++
			s.Storage.BackupSize += e.Size
			s.Storage.BackupExamples = addExample(s.Storage.BackupExamples, e.RelPath)
		case TagCompressible:
			s.Storage.CompressibleCount++
			s.Storage.CompressibleSize += e.Size
			s.Storage.CompressibleExamples = addExample(s.Storage.CompressibleExamples, e.RelPath)
		}
	}
}

// Merge folds another accumulator into this one and returns the
// receiver. The argument is consumed and must not be reused.
func (s *Stats) Merge(o *Stats) *Stats {
	s.Files += o.Files
	s.Dirs += o.Dirs
	s.Symlinks += o.Symlinks
	s.TotalSize += o.TotalSize
	s.Storage.merge(o.Storage)

	for ext, stat := range o.byExt {
		mine, ok := s.byExt[ext]
		if !ok {
			s.byExt[ext] = stat
			continue
		}
		mine.Count += stat.Count
		mine.Size += stat.Size
	}
	for status, n := range o.gitCounts {
		s.gitCounts[status] += n
	}
	for _, e := range o.top.items {
		s.top.offer(e)
	}
	return s
}

// Extensions returns the per-extension rollup ordered by size
// descending, extension ascending on ties.
func (s *Stats) Extensions() []ExtStat {
	exts := make([]ExtStat, 0, len(s.byExt))
	for _, stat := range s.byExt {
		exts = append(exts, *stat)
	}
	sort.Slice(exts, func(i, j int) bool {
		if exts[i].Size != exts[j].Size {
			return exts[i].Size > exts[j].Size
		}
		return exts[i].Ext < exts[j].Ext
	})
	return exts
}

// TopFiles returns the retained largest files ordered by size
// descending, path ascending on ties.
func (s *Stats) TopFiles() []entry.FileEntry {
	top := make([]entry.FileEntry, len(s.top.items))
	copy(top, s.top.items)
	sort.Slice(top, func(i, j int) bool {
		if top[i].Size != top[j].Size {
			return top[i].Size > top[j].Size
		}
		return top[i].Path < top[j].Path
	})
	return top
}

// GitCounts returns the per-status file tally.
func (s *Stats) GitCounts() map[entry.GitStatus]int64 {
	counts := make(map[entry.GitStatus]int64, len(s.gitCounts))
	for status, n := range s.gitCounts {
		counts[status] = n
	}
	return counts
}

// topHeap is a bounded min-heap over file size; the root is the weakest
// retained entry, evicted when something larger arrives. Equal sizes
// rank by path so the retained set is deterministic under any fold
// order.
type topHeap struct {
	capacity int
	items    []entry.FileEntry
}

func newTopHeap(capacity int) *topHeap {
	return &topHeap{capacity: capacity}
}

func (h *topHeap) offer(e entry.FileEntry) {
	if h.capacity <= 0 {
		return
	}
	if len(h.items) < h.capacity {
		heap.Push(h, e)
		return
	}
	if weaker(h.items[0], e) {
		h.items[0] = e
		heap.Fix(h, 0)
	}
}

// weaker reports whether a ranks below b: smaller size, or the
// lexically later path on equal size.
func weaker(a, b entry.FileEntry) bool {
	if a.Size != b.Size {
		return a.Size < b.Size
	}
	return a.Path > b.Path
}

func (h *topHeap) Len() int            { return len(h.items) }
func (h *topHeap) Less(i, j int) bool  { return weaker(h.items[i], h.items[j]) }
func (h *topHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topHeap) Push(x interface{})  { h.items = append(h.items, x.(entry.FileEntry)) }
func (h *topHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}
