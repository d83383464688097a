package metadata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/opencontainers/go-digest"
)

// Number of leading bytes inspected to detect the image format.
const headerSize = 8

// Reference kind. Only assemblies are cached.
type Kind uint8

const (
	AssemblyKind Kind = iota
	ModuleKind
)

// Returns the string representation of the kind.
func (k Kind) String() string {
	if k == ModuleKind {
		return "module"
	}
	return "assembly"
}

// Options for reading metadata.
type Properties struct {
	Kind     Kind // Reference kind.
	Prefetch bool // Read the whole image into memory instead of streaming it.
}

// Identity proxy for the contents of a file.
type FileKey struct {
	Path      string // Absolute path.
	LastWrite int64  // Modification time in Unix nanoseconds.
	Size      int64  // Size in bytes.
}

// Builds the key of the file at path.
func NewFileKey(path string) (FileKey, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileKey{}, err
	}
	return FileKey{Path: path, LastWrite: info.ModTime().UnixNano(), Size: info.Size()}, nil
}

// Returns a string form of the key, unique per key value.
func (k FileKey) String() string {
	return fmt.Sprintf("%s@%d:%d", k.Path, k.LastWrite, k.Size)
}

// Parsed metadata of a binary image.
type Metadata struct {
	Key    FileKey       // Key the metadata was read under. Zero if the file could not be stat'ed.
	Kind   Kind          // Reference kind.
	Format string        // Detected container format ("elf", "pe", "macho", "wasm" or "unknown").
	MVID   digest.Digest // Module version id: digest of the image contents.
	Image  []byte        // Whole image, only when prefetched.
}

// Returns the modification time recorded in the key.
func (m *Metadata) LastWrite() time.Time {
	return time.Unix(0, m.Key.LastWrite)
}

// Opens the file at path and parses its metadata.
func parse(path string, key FileKey, props Properties) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	defer f.Close()

	md := &Metadata{Key: key, Kind: props.Kind}

	if props.Prefetch {
		image, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
		}
		md.Image = image
		md.Format = detectFormat(image)
		md.MVID = digest.FromBytes(image)
		return md, nil
	}

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	md.Format = detectFormat(header[:n])

	d, err := digest.Canonical.FromReader(io.MultiReader(bytes.NewReader(header[:n]), f))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadata, err)
	}
	md.MVID = d
	return md, nil
}

// Identifies the container format from the leading bytes of an image.
func detectFormat(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte("\x7fELF")):
		return "elf"
	case bytes.HasPrefix(b, []byte("MZ")):
		return "pe"
	case bytes.HasPrefix(b, []byte("\x00asm")):
		return "wasm"
	case bytes.HasPrefix(b, []byte{0xcf, 0xfa, 0xed, 0xfe}),
		bytes.HasPrefix(b, []byte{0xce, 0xfa, 0xed, 0xfe}),
		bytes.HasPrefix(b, []byte{0xca, 0xfe, 0xba, 0xbe}):
		return "macho"
	default:
		return "unknown"
	}
}
