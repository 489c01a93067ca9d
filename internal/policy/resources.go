// Package policy wires the gate library to the account database: it resolves
// users to permission profiles and exposes HTTP middleware for route checks.
package policy

// Resource types used in permissions ("account:update", "address:*", ...).
const (
	ResourceAccount    = "account"
	ResourceAddress    = "address"
	ResourceTelephone  = "telephone"
	ResourceOccupation = "occupation"
	ResourceProfile    = "profile"
)

// Resources lists every resource type, used when seeding permissions.
var Resources = []string{ResourceAccount, ResourceAddress, ResourceTelephone, ResourceOccupation, ResourceProfile}
