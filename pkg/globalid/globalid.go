// Package globalid derives the catalog's content-addressed asset identifiers.
//
// An ID is "<prefix>-<md5 hex>" where the digest covers the tenant ID, the
// cluster endpoint and the asset's content key concatenated without
// separators. The same inputs always produce the same ID, so IDs computed
// here match the ones the catalog assigned when the assets were registered.
package globalid

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not a security boundary
	"encoding/hex"
	"fmt"
	"strings"
)

// Kind is the asset kind encoded in an ID prefix.
type Kind int

const (
	Table Kind = iota
	Column
	Schema
	DataSource
)

var kinds = [...]struct {
	name   string
	prefix string
}{
	Table:      {"table", "tbl"},
	Column:     {"column", "col"},
	Schema:     {"schema", "schm"},
	DataSource: {"data_source", "dsrc"},
}

// String returns the kind name used in configuration and logs.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kinds) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kinds[k].name
}

// Prefix returns the short code that starts IDs of this kind.
func (k Kind) Prefix() string {
	if k < 0 || int(k) >= len(kinds) {
		return ""
	}
	return kinds[k].prefix
}

// ParseKind resolves a kind name: table, column, schema or data_source.
func ParseKind(s string) (Kind, error) {
	for i, k := range kinds {
		if strings.EqualFold(s, k.name) {
			return Kind(i), nil
		}
	}
	return Table, fmt.Errorf("unknown asset kind %q", s)
}

// Derive returns the global ID of an asset.
func Derive(tenantID, clusterID, contentKey string, kind Kind) string {
	sum := md5.Sum([]byte(tenantID + clusterID + contentKey)) //nolint:gosec // see import
	return kind.Prefix() + "-" + hex.EncodeToString(sum[:])
}

// ContentKey joins path segments (database, schema, table, column) into a
// content key. Segments are concatenated as-is, with no separator.
func ContentKey(segments ...string) string {
	return strings.Join(segments, "")
}

// TableID is shorthand for the ID of database.schema.table.
func TableID(tenantID, clusterID, database, schema, table string) string {
	return Derive(tenantID, clusterID, ContentKey(database, schema, table), Table)
}

// ColumnID is shorthand for the ID of database.schema.table.column.
func ColumnID(tenantID, clusterID, database, schema, table, column string) string {
	return Derive(tenantID, clusterID, ContentKey(database, schema, table, column), Column)
}
