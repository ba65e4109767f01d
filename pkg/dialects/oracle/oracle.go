// Package oracle provides the Oracle SQL dialect definition.
//
// Physical attributes (TABLESPACE, NOLOGGING, PARALLEL), view constraints
// and WITH READ ONLY are not modeled and fail to parse.
package oracle

import (
	"github.com/leapstack-labs/catalogsync/pkg/core"
	"github.com/leapstack-labs/catalogsync/pkg/dialect"
)

func init() {
	dialect.Register(Oracle)
}

// Config is the Oracle SQL dialect configuration.
var Config = &core.DialectConfig{
	Name: "oracle",
	Identifiers: core.IdentifierConfig{
		Quote:         `"`,
		QuoteEnd:      `"`,
		Normalization: core.NormUppercase,
	},
}

// Oracle is the Oracle SQL dialect.
var Oracle = dialect.New(dialect.Oracle, Config).Build()
