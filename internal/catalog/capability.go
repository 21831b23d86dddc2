package catalog

import "fmt"

// Capability describes how the catalog lays out new entries on disk.
// It is resolved once when the catalog is opened and never changes afterwards.
type Capability int

const (
	// LegacyStorage places every new image in the shared Pictures directory
	// and ignores relative path hints.
	LegacyStorage Capability = iota
	// ScopedStorage honors the relative path hint of each entry.
	ScopedStorage
)

// Storage mode names as they appear in configuration.
const (
	StorageAuto   = "auto"
	StorageScoped = "scoped"
	StorageLegacy = "legacy"
)

// String returns the configuration name of the capability.
func (c Capability) String() string {
	switch c {
	case LegacyStorage:
		return StorageLegacy
	case ScopedStorage:
		return StorageScoped
	default:
		return fmt.Sprintf("capability(%d)", int(c))
	}
}

// ParseCapability maps a storage mode name to a Capability.
// "auto" resolves to ScopedStorage, which every catalog in this module supports.
func ParseCapability(mode string) (Capability, error) {
	switch mode {
	case StorageAuto, StorageScoped, "":
		return ScopedStorage, nil
	case StorageLegacy:
		return LegacyStorage, nil
	default:
		return LegacyStorage, fmt.Errorf("catalog: unknown storage mode %q", mode)
	}
}
