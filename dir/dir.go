// Package dir encodes directory entries and splits paths.
//
// A directory is a file holding a flat, unsorted array of DENTRYSZ-byte
// entries: a 32-bit inode number followed by a zero-padded name. Removed
// entries are zeroed in place and read back as free.
package dir

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-kfs/common"
)

type Dentry struct {
	Inum common.Inum
	Name string
}

func MkDentry(inum common.Inum, name string) Dentry {
	return Dentry{Inum: inum, Name: name}
}

func (de Dentry) IsFree() bool {
	return de.Inum == common.NULLINUM
}

func (de Dentry) Encode() []byte {
	enc := marshal.NewEnc(4)
	enc.PutInt32(uint32(de.Inum))
	data := make([]byte, common.DENTRYSZ)
	copy(data, enc.Finish())
	copy(data[4:], de.Name)
	return data
}

func Decode(data []byte) Dentry {
	dec := marshal.NewDec(data[:4])
	inum := common.Inum(dec.GetInt32())
	name := data[4:common.DENTRYSZ]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Dentry{Inum: inum, Name: string(name)}
}

// ValidName checks that name fits in a directory entry.
func ValidName(name string) error {
	if name == "" || uint64(len(name)) > common.NAMELEN ||
		strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("name %q: %w", name, common.ErrInvalidPath)
	}
	return nil
}

// Path is a split path. Abs paths start at the root, others at the working
// directory.
type Path struct {
	Abs   bool
	Comps []string
}

func (p Path) String() string {
	s := strings.Join(p.Comps, "/")
	if p.Abs {
		return "/" + s
	}
	return s
}

// Parent splits off the last component. ok is false for an empty path.
func (p Path) Parent() (parent Path, name string, ok bool) {
	if len(p.Comps) == 0 {
		return p, "", false
	}
	n := len(p.Comps) - 1
	return Path{Abs: p.Abs, Comps: p.Comps[:n]}, p.Comps[n], true
}

// SplitPath splits path on '/', ignoring empty components. A path of more
// than NTERM components, or with a component longer than NAMELEN, is invalid.
func SplitPath(path string) (Path, error) {
	if path == "" {
		return Path{}, fmt.Errorf("empty path: %w", common.ErrInvalidPath)
	}
	p := Path{Abs: strings.HasPrefix(path, "/")}
	for _, c := range strings.Split(path, "/") {
		if c == "" {
			continue
		}
		if err := ValidName(c); err != nil {
			return Path{}, fmt.Errorf("path %q: %w", path, err)
		}
		p.Comps = append(p.Comps, c)
	}
	if uint64(len(p.Comps)) > common.NTERM {
		return Path{}, fmt.Errorf("path %q: %d components: %w", path, len(p.Comps), common.ErrInvalidPath)
	}
	return p, nil
}

// Locate returns the direct block index and byte offset of entry i.
func Locate(i uint64) (blk uint64, off uint64) {
	return i / common.DENTRYBLK, (i % common.DENTRYBLK) * common.DENTRYSZ
}
