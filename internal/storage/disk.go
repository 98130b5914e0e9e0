package storage

import (
	"os"
)

// sidecarSuffixes are files SQLite keeps next to a WAL-mode database.
var sidecarSuffixes = []string{"", "-wal", "-shm"}

// DiskUsageBytes returns the on-disk size of the database at path, including
// SQLite WAL and shared-memory sidecar files. Missing files count as 0.
func DiskUsageBytes(path string) (int64, error) {
	if path == "" {
		return 0, nil
	}
	var total int64
	for _, suffix := range sidecarSuffixes {
		info, err := os.Stat(path + suffix)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
		}
	}
	return total, nil
}
