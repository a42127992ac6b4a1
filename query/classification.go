package query

import (
	"strconv"
	"strings"
)

// ResolvePartition maps a free-form building classification to the corpus
// partition that covers it. NCC Volume One covers classes 2-9, Volume Two
// covers classes 1 and 10. The mapping is total: unrecognized strings fall
// back to {volume 2, class 1} rather than failing, a deliberate
// compatibility choice (stricter validation would reject them upstream).
// The same input always yields the same partition.
func ResolvePartition(buildingClass string) Partition {
	class := strings.TrimSpace(buildingClass)

	switch {
	case strings.HasPrefix(class, "10"):
		return Partition{Volume: 2, ClassID: 10}
	case strings.HasPrefix(class, "1"):
		return Partition{Volume: 2, ClassID: 1}
	}

	if n, err := strconv.Atoi(class); err == nil && n >= 2 && n <= 9 {
		return Partition{Volume: 1, ClassID: n}
	}

	return Partition{Volume: 2, ClassID: 1}
}
