// Package registry reads and writes the hierarchical key-value registry that
// records, per cluster and slot, the pre-allocated network identity, the
// storage volumes and the registered compute instance.
//
// Keys follow /<project>/<environment>/<role>/<category>/<slot> (see
// internal/util/naming). The registry is the only source of membership and
// is read fresh on every admission; nothing in this package caches it.
package registry
