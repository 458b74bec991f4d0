package phys

import "github.com/sirupsen/logrus"

// RegionKind classifies a boot memory-map entry.
type RegionKind int

const (
	KindUsable RegionKind = iota
	KindBootloader
	KindReserved
	KindUnknown
)

func (k RegionKind) String() string {
	switch k {
	case KindUsable:
		return "Usable"
	case KindBootloader:
		return "Bootloader"
	case KindReserved:
		return "Reserved"
	default:
		return "Unknown"
	}
}

// MemoryRegion is one [Start, End) entry of the boot physical memory map.
type MemoryRegion struct {
	Start uint64
	End   uint64
	Kind  RegionKind
}

// Size returns the region's byte length.
func (r MemoryRegion) Size() uint64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// BootInfo is the state the bootloader hands the kernel exactly once at
// entry: the ordered physical memory map, the physical-to-virtual offset,
// and where the kernel image itself was loaded.
type BootInfo struct {
	Regions     []MemoryRegion
	PhysOffset  uint64
	KernelStart uint64
}

// TotalUsable sums the usable region sizes.
func (bi BootInfo) TotalUsable() uint64 {
	var total uint64
	for _, r := range bi.Regions {
		if r.Kind == KindUsable {
			total += r.Size()
		}
	}
	return total
}

// LogMap dumps the boot memory map with per-kind totals.
func (bi BootInfo) LogMap(log *logrus.Entry) {
	var usable, reserved uint64
	for _, r := range bi.Regions {
		if r.Kind == KindUsable {
			usable += r.Size()
		} else {
			reserved += r.Size()
		}
		log.WithFields(logrus.Fields{
			"start": r.Start,
			"end":   r.End,
			"kind":  r.Kind.String(),
		}).Debug("memory region")
	}
	log.WithFields(logrus.Fields{
		"usableBytes":   usable,
		"reservedBytes": reserved,
		"regions":       len(bi.Regions),
	}).Info("boot memory map")
}
