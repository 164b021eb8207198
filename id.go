package coalesce

import "github.com/xraph/coalesce/id"

// ID is the primary identifier type for all coalesce entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
