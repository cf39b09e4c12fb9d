package core

import "experimentdb/pkg/domain"

type (
	EntityType      = domain.EntityType
	Transaction     = domain.Transaction
	View            = domain.View
	PersistentStore = domain.PersistentStore
)

const (
	EntityCloning     = domain.EntityCloning
	EntityMutagenesis = domain.EntityMutagenesis
	EntityProtocol    = domain.EntityProtocol
	EntityExperiment  = domain.EntityExperiment
	EntityResult      = domain.EntityResult
	EntitySequencing  = domain.EntitySequencing
	EntityCohort      = domain.EntityCohort
	EntityReference   = domain.EntityReference
)

// Action classifies a service mutation for audit and metrics.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLink   Action = "link"
	ActionUnlink Action = "unlink"
)
