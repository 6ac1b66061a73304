package cache

import (
	"fmt"
	"slices"
	"strings"
)

// GenerateKey derives a cache key from a logical name and its arguments.
// Argument names are sorted, so the key never depends on map order:
//
//	GenerateKey("pets:all", {"page": 1, "limit": 50}) == "pets:all:limit:50:page:1"
func GenerateKey(name string, args map[string]any) string {
	if len(args) == 0 {
		return name
	}
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	slices.Sort(names)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range names {
		fmt.Fprintf(&b, ":%s:%v", k, args[k])
	}
	return b.String()
}

// FamilyPattern matches every key of a resource family.
func FamilyPattern(family string) string {
	return family + ":*"
}
