package models

import "time"

// Workflow is a named, data-driven lifecycle graph. The default
// "Part Workflow" mirrors the operational revision lifecycle.
type Workflow struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"size:64;not null;uniqueIndex"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time

	States      []WorkflowState      `gorm:"foreignKey:WorkflowID"`
	Transitions []WorkflowTransition `gorm:"foreignKey:WorkflowID"`
}

// WorkflowState is a node in a workflow graph.
type WorkflowState struct {
	ID         int64  `gorm:"primaryKey"`
	WorkflowID int64  `gorm:"not null;index;uniqueIndex:idx_workflow_states_name"`
	Name       string `gorm:"size:64;not null;uniqueIndex:idx_workflow_states_name"`
	IsInitial  bool   `gorm:"not null;default:false"`
	IsTerminal bool   `gorm:"not null;default:false"`
}

// WorkflowTransition is a directed edge between two workflow states.
type WorkflowTransition struct {
	ID               int64  `gorm:"primaryKey"`
	WorkflowID       int64  `gorm:"not null;index"`
	FromStateID      int64  `gorm:"not null;index"`
	ToStateID        int64  `gorm:"not null"`
	Name             string `gorm:"size:64;not null"`
	RequiresApproval bool   `gorm:"not null;default:false"`

	FromState *WorkflowState `gorm:"foreignKey:FromStateID"`
	ToState   *WorkflowState `gorm:"foreignKey:ToStateID"`
}
