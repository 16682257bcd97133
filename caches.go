package opsdiag

import (
	"runtime"

	"github.com/pbnjay/memory"

	"github.com/danpasecinic/opsdiag/internal/reflect"
)

type ManagedCache struct {
	Kind           string `json:"kind"`
	KeyCount       int64  `json:"keyCount"`
	SizeBytes      int64  `json:"sizeBytes"`
	SizeLimitBytes int64  `json:"sizeLimitBytes,omitempty"`
}

type UnmanagedCache struct {
	Kind string `json:"kind"`
}

type CacheSnapshot struct {
	Managed        []ManagedCache   `json:"managed"`
	Unmanaged      []UnmanagedCache `json:"unmanaged"`
	TotalKeys      int64            `json:"totalKeys"`
	TotalSizeBytes int64            `json:"totalSizeBytes"`
}

type MemoryStats struct {
	HeapAllocBytes   uint64 `json:"heapAllocBytes"`
	SysBytes         uint64 `json:"sysBytes"`
	TotalSystemBytes uint64 `json:"totalSystemBytes"`
	NumGC            uint32 `json:"numGC"`
}

type CachesReport struct {
	CacheSnapshot
	Memory MemoryStats `json:"memory"`
}

// SnapshotCaches sums the caches that can size themselves and lists the
// rest by type. Caches are only read.
func SnapshotCaches(src CacheSource) CacheSnapshot {
	snapshot := CacheSnapshot{
		Managed:   []ManagedCache{},
		Unmanaged: []UnmanagedCache{},
	}
	if src == nil {
		return snapshot
	}

	for _, cache := range src.Caches() {
		if reflect.IsNil(cache) {
			continue
		}
		kind := reflect.DisplayNameOf(cache)

		sizer, ok := cache.(CacheSizer)
		if !ok {
			snapshot.Unmanaged = append(snapshot.Unmanaged, UnmanagedCache{Kind: kind})
			continue
		}

		managed := ManagedCache{
			Kind:           kind,
			KeyCount:       sizer.KeyCount(),
			SizeBytes:      sizer.SizeBytes(),
			SizeLimitBytes: sizer.SizeLimitBytes(),
		}
		snapshot.TotalKeys += managed.KeyCount
		snapshot.TotalSizeBytes += managed.SizeBytes
		snapshot.Managed = append(snapshot.Managed, managed)
	}

	return snapshot
}

func readMemoryStats() MemoryStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryStats{
		HeapAllocBytes:   ms.HeapAlloc,
		SysBytes:         ms.Sys,
		TotalSystemBytes: memory.TotalMemory(),
		NumGC:            ms.NumGC,
	}
}

func (e *Engine) CachesReport() CachesReport {
	return CachesReport{
		CacheSnapshot: SnapshotCaches(e),
		Memory:        readMemoryStats(),
	}
}
