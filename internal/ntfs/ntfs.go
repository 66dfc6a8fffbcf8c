// Package ntfs implements a read-only NTFS forensic carving pipeline: volume
// boot sector parsing, MFT traversal with multi-sector-transfer fixup,
// resident/non-resident attribute decoding, and a byte-pattern carver over
// $INDEX_ALLOCATION slack space. It never writes to the image and never
// recovers file content — only directory-index metadata.
package ntfs

import (
	"errors"
)

// Core attribute type codes, as laid out in every MFT record's attribute list.
const (
	AttrStandardInformation = 0x10
	AttrAttributeList       = 0x20
	AttrFileName            = 0x30
	AttrObjectID            = 0x40
	AttrSecurityDescriptor  = 0x50
	AttrVolumeName          = 0x60
	AttrVolumeInformation   = 0x70
	AttrData                = 0x80
	AttrIndexRoot           = 0x90
	AttrIndexAllocation     = 0xA0
	AttrBitmap              = 0xB0
	AttrReparsePoint        = 0xC0
	AttrEAInformation       = 0xD0
	AttrEA                  = 0xE0
	AttrLoggedUtilityStream = 0x100

	attrEndMarker = 0xFFFFFFFF
)

// $FILE_NAME namespaces.
const (
	NamespacePOSIX    = 0
	NamespaceWin32    = 1
	NamespaceDOS      = 2
	NamespaceWin32DOS = 3
)

// MFT record header flags.
const (
	recordFlagInUse     = 0x0001
	recordFlagDirectory = 0x0002
)

// Index entry header flags.
const (
	entryFlagPointsToSubnode = 0x0001
	entryFlagLastEntry       = 0x0002
)

const recordMagic = "FILE"
const indexMagic = "INDX"

// nodeHeaderOffset is the fixed distance from the start of an index record
// to its node header, per the on-disk $INDEX_ALLOCATION layout.
const nodeHeaderOffset = 24

// indexEntryHeaderSize is the fixed 16-byte header preceding a $FILE_NAME
// attribute inside an index entry (file reference + sizes + flags).
const indexEntryHeaderSize = 16

// filenameAttributeFixedSize is the length of a $FILE_NAME attribute before
// its variable-length UTF-16LE name.
const filenameAttributeFixedSize = 66

var (
	// ErrBadVolume is returned when the boot sector is missing the "NTFS" magic.
	ErrBadVolume = errors.New("ntfs: boot sector missing NTFS signature")
	// ErrBadFirstRecord is returned when MFT record 0 is invalid or fails fixup.
	ErrBadFirstRecord = errors.New("ntfs: first MFT record is invalid or failed fixup")
	// ErrEmptyNonResident signals a non-resident attribute with no data runs;
	// callers treat it as "skip this attribute", never as a fatal error.
	ErrEmptyNonResident = errors.New("ntfs: non-resident attribute has no data runs")
)

// parseReject is raised internally by structural checks (short read, failed
// invariant, rejected filename) to tell a caller "treat this as unparseable".
// It never crosses a package-exported boundary.
type parseReject struct{ reason string }

func (e *parseReject) Error() string { return "ntfs: rejected: " + e.reason }

func reject(reason string) error { return &parseReject{reason: reason} }

// FileReference is a 48-bit MFT record index plus a 16-bit sequence number.
// The root directory is FileReference{Index: 5, Sequence: 5}.
type FileReference struct {
	Index    uint64
	Sequence uint16
}

// RootReference identifies the volume's root directory.
var RootReference = FileReference{Index: 5, Sequence: 5}

// FileAttrFlags mirrors the 32-bit flags field carried on every $FILE_NAME
// attribute and index entry.
type FileAttrFlags uint32

const (
	FlagReadOnly          FileAttrFlags = 0x00000001
	FlagHidden            FileAttrFlags = 0x00000002
	FlagSystem            FileAttrFlags = 0x00000004
	FlagArchive           FileAttrFlags = 0x00000020
	FlagDevice            FileAttrFlags = 0x00000040
	FlagNormal            FileAttrFlags = 0x00000080
	FlagTemporary         FileAttrFlags = 0x00000100
	FlagSparse            FileAttrFlags = 0x00000200
	FlagReparsePoint      FileAttrFlags = 0x00000400
	FlagCompressed        FileAttrFlags = 0x00000800
	FlagOffline           FileAttrFlags = 0x00001000
	FlagNotContentIndexed FileAttrFlags = 0x00002000
	FlagEncrypted         FileAttrFlags = 0x00004000
	FlagVirtual           FileAttrFlags = 0x00010000
	FlagDirectory         FileAttrFlags = 0x10000000
	FlagIndexView         FileAttrFlags = 0x20000000
)

var flagNames = []struct {
	bit  FileAttrFlags
	name string
}{
	{FlagReadOnly, "READ_ONLY"},
	{FlagHidden, "HIDDEN"},
	{FlagSystem, "SYSTEM"},
	{FlagArchive, "ARCHIVE"},
	{FlagDevice, "DEVICE"},
	{FlagNormal, "NORMAL"},
	{FlagTemporary, "TEMPORARY"},
	{FlagSparse, "SPARSE"},
	{FlagReparsePoint, "REPARSE_POINT"},
	{FlagCompressed, "COMPRESSED"},
	{FlagOffline, "OFFLINE"},
	{FlagNotContentIndexed, "NOT_CONTENT_INDEXED"},
	{FlagEncrypted, "ENCRYPTED"},
	{FlagVirtual, "VIRTUAL"},
	{FlagDirectory, "DIRECTORY"},
	{FlagIndexView, "INDEX_VIEW"},
}

// Names returns the set of flag names set in f, in a stable order.
func (f FileAttrFlags) Names() []string {
	var names []string
	for _, fl := range flagNames {
		if f&fl.bit != 0 {
			names = append(names, fl.name)
		}
	}
	return names
}

// IsDirectory reports whether the DIRECTORY bit is set.
func (f FileAttrFlags) IsDirectory() bool { return f&FlagDirectory != 0 }
