package pkg

import (
	"encoding/binary"
	"io"
	"os"
	"path"
	"sort"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

// Site bundle layout: a 16 byte header (magic, version, TOC offset, entry
// count) followed by brotli-compressed file contents and a trailing table of
// contents. Directory entries carry zero offsets; a ".." entry closes the
// last opened directory.

const distMagic = "ASMB"

const distVersion = 1

// distEntry contains the metadata for a single file entry
type distEntry struct {
	offset  int32
	size    int32
	decSize int32
}

// distFolder contains an index of the available sub-folders and files
type distFolder struct {
	folders map[string]*distFolder
	files   map[string]*distEntry
}

func newDistFolder() *distFolder {
	return &distFolder{
		folders: map[string]*distFolder{},
		files:   map[string]*distEntry{},
	}
}

// DistWriter writes site bundles
type DistWriter struct {
	hdl      *os.File
	root     *distFolder
	dirStack []*distFolder
	current  *distFolder
	buffer   []byte
}

// NewDistWriter creates a new DistWriter instance and opens it for writing
func NewDistWriter(filename string) (*DistWriter, error) {
	hdl, err := os.Create(filename)
	if err != nil {
		return nil, err
	}

	root := newDistFolder()

	// skip the header, it's written last
	_, err = hdl.Seek(16, io.SeekStart)
	if err != nil {
		hdl.Close()
		return nil, err
	}

	return &DistWriter{
		hdl:      hdl,
		root:     root,
		dirStack: []*distFolder{root},
		current:  root,
		buffer:   make([]byte, 4096),
	}, nil
}

// OpenDirectory creates a new directory entry. Anything created until the
// next CloseDirectory() call will be created inside this directory.
func (w *DistWriter) OpenDirectory(dirname string) {
	dir := newDistFolder()

	w.current.folders[dirname] = dir
	w.dirStack = append(w.dirStack, dir)
	w.current = dir
}

// CloseDirectory closes the directory that was last opened
func (w *DistWriter) CloseDirectory() error {
	stackLen := len(w.dirStack)
	if stackLen < 2 {
		return eris.New("No directory left on stack")
	}

	w.dirStack = w.dirStack[:stackLen-1]
	w.current = w.dirStack[stackLen-2]
	return nil
}

// WriteFile creates a new file in the current bundle directory
func (w *DistWriter) WriteFile(filename string, reader io.Reader) error {
	item := new(distEntry)
	offset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	item.offset = int32(offset)
	brw := brotli.NewWriterLevel(w.hdl, brotli.BestCompression)

	decSize, err := io.CopyBuffer(brw, reader, w.buffer)
	if err != nil {
		return err
	}

	err = brw.Close()
	if err != nil {
		return err
	}

	newPos, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	item.size = int32(newPos - offset)
	item.decSize = int32(decSize)
	w.current.files[filename] = item

	return nil
}

// Close writes the central index and closes the bundle
func (w *DistWriter) Close() error {
	if len(w.dirStack) != 1 {
		w.hdl.Close()
		return eris.New("Open directories left over!")
	}

	items := int32(0)
	buffer := make([]byte, 48)
	tocOffset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		w.hdl.Close()
		return err
	}

	err = writeDirectoryEntries(w.root, w.hdl, &items, buffer)
	if err != nil {
		w.hdl.Close()
		return err
	}

	_, err = w.hdl.Seek(0, io.SeekStart)
	if err != nil {
		w.hdl.Close()
		return err
	}

	copy(buffer, distMagic)
	binary.LittleEndian.PutUint32(buffer[4:8], distVersion)
	binary.LittleEndian.PutUint32(buffer[8:12], uint32(tocOffset))
	binary.LittleEndian.PutUint32(buffer[12:16], uint32(items))

	_, err = w.hdl.Write(buffer[:16])
	if err != nil {
		w.hdl.Close()
		return err
	}

	return w.hdl.Close()
}

func writeTocEntry(hdl *os.File, buffer []byte, name string, entry *distEntry) error {
	binary.LittleEndian.PutUint32(buffer[:4], uint32(entry.offset))
	binary.LittleEndian.PutUint32(buffer[4:8], uint32(entry.size))
	binary.LittleEndian.PutUint32(buffer[8:12], uint32(entry.decSize))
	binary.LittleEndian.PutUint16(buffer[12:14], uint16(len(name)))

	_, err := hdl.Write(buffer[:14])
	if err != nil {
		return err
	}

	_, err = hdl.WriteString(name)
	return err
}

func writeDirectoryEntries(folder *distFolder, hdl *os.File, items *int32, buffer []byte) error {
	var dirMarker distEntry

	names := make([]string, 0, len(folder.folders))
	for name := range folder.folders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		err := writeTocEntry(hdl, buffer, name, &dirMarker)
		if err != nil {
			return err
		}

		err = writeDirectoryEntries(folder.folders[name], hdl, items, buffer)
		if err != nil {
			return err
		}

		err = writeTocEntry(hdl, buffer, "..", &dirMarker)
		if err != nil {
			return err
		}
	}

	names = names[:0]
	for name := range folder.files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		err := writeTocEntry(hdl, buffer, name, folder.files[name])
		if err != nil {
			return err
		}
	}

	*items += int32(len(folder.folders)*2 + len(folder.files))
	return nil
}

// DistItem describes a single file in a site bundle.
type DistItem struct {
	Path    string
	Size    int32
	DecSize int32
	offset  int32
}

// ListDistItems reads the table of contents of a bundle created by
// DistWriter and returns its file entries.
func ListDistItems(filename string) ([]DistItem, error) {
	hdl, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer hdl.Close()

	header := make([]byte, 16)
	_, err = io.ReadFull(hdl, header)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read bundle header")
	}

	if string(header[:4]) != distMagic {
		return nil, eris.Errorf("%s is not a site bundle", filename)
	}

	if version := binary.LittleEndian.Uint32(header[4:8]); version != distVersion {
		return nil, eris.Errorf("unsupported bundle version %d", version)
	}

	tocOffset := binary.LittleEndian.Uint32(header[8:12])
	itemCount := binary.LittleEndian.Uint32(header[12:16])

	_, err = hdl.Seek(int64(tocOffset), io.SeekStart)
	if err != nil {
		return nil, err
	}

	items := make([]DistItem, 0, itemCount)
	entryBuf := make([]byte, 14)
	prefix := ""
	for idx := uint32(0); idx < itemCount; idx++ {
		_, err = io.ReadFull(hdl, entryBuf)
		if err != nil {
			return nil, eris.Wrap(err, "failed to read TOC entry")
		}

		nameLen := binary.LittleEndian.Uint16(entryBuf[12:14])
		nameBuf := make([]byte, nameLen)
		_, err = io.ReadFull(hdl, nameBuf)
		if err != nil {
			return nil, eris.Wrap(err, "failed to read TOC entry name")
		}

		name := string(nameBuf)
		offset := int32(binary.LittleEndian.Uint32(entryBuf[:4]))
		size := int32(binary.LittleEndian.Uint32(entryBuf[4:8]))

		if offset == 0 && size == 0 {
			// directory marker
			if name == ".." {
				prefix = path.Dir(prefix)
				if prefix == "." {
					prefix = ""
				}
			} else {
				prefix = path.Join(prefix, name)
			}
			continue
		}

		items = append(items, DistItem{
			Path:    path.Join(prefix, name),
			Size:    size,
			DecSize: int32(binary.LittleEndian.Uint32(entryBuf[8:12])),
			offset:  offset,
		})
	}

	return items, nil
}

// ReadDistItem returns the decompressed content of the given bundle entry.
func ReadDistItem(filename string, item DistItem) ([]byte, error) {
	hdl, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer hdl.Close()

	_, err = hdl.Seek(int64(item.offset), io.SeekStart)
	if err != nil {
		return nil, err
	}

	content := make([]byte, item.DecSize)
	_, err = io.ReadFull(brotli.NewReader(io.LimitReader(hdl, int64(item.Size))), content)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to decompress %s", item.Path)
	}

	return content, nil
}
