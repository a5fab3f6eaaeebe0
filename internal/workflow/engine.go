package workflow

import (
	"errors"
	"fmt"

	"github.com/partvault/partvault/internal/models"
	"gorm.io/gorm"
)

// DefaultWorkflowName is the seeded workflow mirroring the revision lifecycle.
const DefaultWorkflowName = "Part Workflow"

// Engine is a read-mostly accessor over the workflow graph tables. It answers
// structural questions (initial state, outgoing transitions); it does not
// execute transitions.
type Engine struct {
	db *gorm.DB
}

// NewEngine returns an Engine bound to the given database handle.
func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// InitialState returns the state flagged is_initial for a workflow.
func (e *Engine) InitialState(workflowID int64) (*models.WorkflowState, error) {
	var state models.WorkflowState
	err := e.db.Where("workflow_id = ? AND is_initial = ?", workflowID, true).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow: no initial state for workflow %d", workflowID)
		}
		return nil, fmt.Errorf("workflow: initial state of %d: %w", workflowID, err)
	}
	return &state, nil
}

// States returns all states of a workflow, initial first then by name.
func (e *Engine) States(workflowID int64) ([]models.WorkflowState, error) {
	var states []models.WorkflowState
	err := e.db.Where("workflow_id = ?", workflowID).
		Order("is_initial DESC, name ASC").
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("workflow: states of %d: %w", workflowID, err)
	}
	return states, nil
}

// TransitionsFrom returns the outgoing transitions of a state, with both
// endpoint states preloaded.
func (e *Engine) TransitionsFrom(stateID int64) ([]models.WorkflowTransition, error) {
	var transitions []models.WorkflowTransition
	err := e.db.Preload("FromState").Preload("ToState").
		Where("from_state_id = ?", stateID).
		Order("name ASC").
		Find(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("workflow: transitions from state %d: %w", stateID, err)
	}
	return transitions, nil
}

// RequiresApproval reports whether the transition between the named states
// carries the approval gate. Unknown transitions gate by default.
func (e *Engine) RequiresApproval(workflowName, from, to string) (bool, error) {
	wf, err := e.Lookup(workflowName)
	if err != nil {
		return true, err
	}
	var transition models.WorkflowTransition
	err = e.db.
		Joins("JOIN workflow_states fs ON fs.id = workflow_transitions.from_state_id").
		Joins("JOIN workflow_states ts ON ts.id = workflow_transitions.to_state_id").
		Where("workflow_transitions.workflow_id = ? AND fs.name = ? AND ts.name = ?", wf.ID, from, to).
		First(&transition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return true, nil
		}
		return true, fmt.Errorf("workflow: transition %s to %s: %w", from, to, err)
	}
	return transition.RequiresApproval, nil
}

// Lookup returns a workflow by name.
func (e *Engine) Lookup(name string) (*models.Workflow, error) {
	var wf models.Workflow
	err := e.db.Preload("States").Where("name = ?", name).First(&wf).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("workflow: not found: %s", name)
		}
		return nil, fmt.Errorf("workflow: lookup %s: %w", name, err)
	}
	return &wf, nil
}
