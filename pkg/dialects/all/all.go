// Package all registers every built-in dialect.
package all

import (
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/ansi"       // register ansi
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/bigquery"   // register bigquery
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/databricks" // register databricks
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/oracle"     // register oracle
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/postgres"   // register postgres
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/presto"     // register presto
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/redshift"   // register redshift
	_ "github.com/leapstack-labs/catalogsync/pkg/dialects/snowflake"  // register snowflake
)
