// Package audit provides the append-only record of every accepted mutation in
// the registry core. Entries substitute for an immutable ledger history: they
// are never updated or deleted, and only accepted operations produce one.
// Rejected calls leave no trace here; an observability layer may log them
// separately.
package audit

import (
	"time"
)

// Operation names an accepted mutation. The set is closed: stores and
// consumers may rely on it for routing and retention decisions.
type Operation string

const (
	// Identity registry
	OpIdentityRegistered Operation = "identity_registered"
	OpIdentityCompleted  Operation = "identity_completed"

	// Asset registry
	OpTitleRegistered  Operation = "title_registered"
	OpTitleTransferred Operation = "title_transferred"

	// Succession plan engine
	OpPlanDefined          Operation = "plan_defined"
	OpPlanReplaced         Operation = "plan_replaced"
	OpAdjudicationExecuted Operation = "adjudication_executed"

	// Escrow release engine
	OpEscrowCreated      Operation = "escrow_created"
	OpProofOfDeathActive Operation = "proof_of_death_activated"
	OpEscrowClaimed      Operation = "escrow_claimed"
	OpEscrowWithdrawn    Operation = "escrow_withdrawn"
)

// Category classifies operations by their retention and routing needs.
type Category string

const (
	// CategoryCompliance covers mutations with legal significance: anything
	// that changes who owns what or who inherits what. Long retention.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers role-sensitive transitions: proof-of-death
	// assertions and escrow payouts feed monitoring pipelines.
	CategorySecurity Category = "security"

	// CategoryOperations covers routine registrations.
	CategoryOperations Category = "operations"
)

var operationCategories = map[Operation]Category{
	OpIdentityRegistered: CategoryOperations,
	OpIdentityCompleted:  CategoryOperations,

	OpTitleRegistered:  CategoryOperations,
	OpTitleTransferred: CategoryCompliance,

	OpPlanDefined:          CategoryCompliance,
	OpPlanReplaced:         CategoryCompliance,
	OpAdjudicationExecuted: CategoryCompliance,

	OpEscrowCreated:      CategoryOperations,
	OpProofOfDeathActive: CategorySecurity,
	OpEscrowClaimed:      CategorySecurity,
	OpEscrowWithdrawn:    CategorySecurity,
}

// Category returns the category for this operation. Unknown operations
// default to CategoryOperations.
func (o Operation) Category() Category {
	if cat, ok := operationCategories[o]; ok {
		return cat
	}
	return CategoryOperations
}

// Entry is one accepted mutation. Seq is assigned by the store on append and
// is strictly increasing; callers leave it zero.
type Entry struct {
	Seq          uint64
	Timestamp    time.Time // UTC, set by the recorder if zero
	Operation    Operation
	Actor        string // verified caller credential, or "system"
	EntityKey    string // e.g. "identity/V101", "asset/1", "escrow/<uuid>"
	BeforeDigest string // digest of entity state before the mutation; empty on creation
	AfterDigest  string // digest of entity state after the mutation
}
