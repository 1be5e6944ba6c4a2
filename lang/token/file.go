package token

import "sort"

// File represents one loaded source text within a FileSet: its name, its
// base offset into the FileSet's shared Pos space, its size, and a per-line
// index of byte offsets built up as the lexer scans the file.
type File struct {
	name  string
	base  int
	size  int
	lines []int // offsets of line starts after line 1 (line 1 starts at 0 and is not stored)
}

// Name returns the file's name as given to FileSet.AddFile.
func (f *File) Name() string { return f.name }

// Base returns the file's base offset in its FileSet's Pos space.
func (f *File) Base() int { return f.base }

// Size returns the file's size in bytes.
func (f *File) Size() int { return f.size }

// AddLine records that a new line begins at the given byte offset (relative
// to the start of this file). Offsets must be added in increasing order;
// out-of-order or duplicate offsets are ignored.
func (f *File) AddLine(offset int) {
	if offset <= 0 || offset >= f.size {
		return
	}
	if n := len(f.lines); n > 0 && f.lines[n-1] >= offset {
		return
	}
	f.lines = append(f.lines, offset)
}

// Pos returns the Pos value for a byte offset within this file.
func (f *File) Pos(offset int) Pos { return Pos(f.base + offset) }

// Offset returns the byte offset within this file for a Pos value owned by
// this file.
func (f *File) Offset(p Pos) int { return int(p) - f.base }

// Position resolves a Pos owned by this file to a line/column pair.
func (f *File) Position(p Pos) Position {
	offset := f.Offset(p)
	if offset < 0 {
		offset = 0
	}
	// lines[i] is the offset of the first byte of line i+2 (line 1 starts at 0)
	i := sort.Search(len(f.lines), func(i int) bool { return f.lines[i] > offset })
	line := i + 1
	lineStart := 0
	if i > 0 {
		lineStart = f.lines[i-1]
	}
	return Position{Filename: f.name, Line: line, Column: offset - lineStart + 1}
}

// FileSet manages a set of loaded Files sharing a single monotonic Pos
// space, mirroring go/token.FileSet's design.
type FileSet struct {
	files []*File
	base  int
}

// NewFileSet creates an empty FileSet. Pos 0 (NoPos) is reserved.
func NewFileSet() *FileSet {
	return &FileSet{base: 1}
}

// AddFile adds a new file of the given size (in bytes) to the set and
// returns it, ready to receive AddLine calls as it is scanned.
func (s *FileSet) AddFile(name string, size int) *File {
	f := &File{name: name, base: s.base, size: size + 1, lines: make([]int, 0, 16)}
	s.base += f.size
	s.files = append(s.files, f)
	return f
}

// File returns the File owning the given Pos, or nil if none does.
func (s *FileSet) File(p Pos) *File {
	i := sort.Search(len(s.files), func(i int) bool { return s.files[i].base+s.files[i].size > int(p) })
	if i < len(s.files) && int(p) >= s.files[i].base {
		return s.files[i]
	}
	return nil
}

// Position resolves a Pos to a full Position, searching for the owning file.
func (s *FileSet) Position(p Pos) Position {
	if f := s.File(p); f != nil {
		return f.Position(p)
	}
	return Position{}
}
