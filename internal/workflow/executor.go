package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const (
	workflowExecutionErrorTemplateConstant = "workflow step %d (%s) failed: %w"
	workflowStepStartedMessageConstant     = "Workflow step started"
	workflowStepCompletedMessageConstant   = "Workflow step completed"
	workflowStepFailedMessageConstant      = "Workflow step failed"
	workflowCompletedMessageConstant       = "Workflow completed"
	logFieldStepConstant                   = "step"
	logFieldOperationConstant              = "operation"
	logFieldStepCountConstant              = "step_count"
)

// Executor runs workflow operations in order.
type Executor struct {
	operations  []Operation
	environment Environment
}

// NewExecutor constructs an Executor instance.
func NewExecutor(operations []Operation, environment Environment) *Executor {
	if environment.Logger == nil {
		environment.Logger = zap.NewNop()
	}
	return &Executor{operations: append([]Operation{}, operations...), environment: environment}
}

// Execute runs every operation in sequence and stops at the first failure. Each operation writes its
// own report before the next one starts.
func (executor *Executor) Execute(executionContext context.Context) error {
	logger := executor.environment.Logger
	for operationIndex, operation := range executor.operations {
		if operation == nil {
			continue
		}
		stepNumber := operationIndex + 1
		stepLogger := logger.With(zap.Int(logFieldStepConstant, stepNumber), zap.String(logFieldOperationConstant, operation.Name()))
		if contextError := executionContext.Err(); contextError != nil {
			return fmt.Errorf(workflowExecutionErrorTemplateConstant, stepNumber, operation.Name(), contextError)
		}

		stepLogger.Info(workflowStepStartedMessageConstant)
		if executeError := operation.Execute(executionContext, &executor.environment); executeError != nil {
			stepLogger.Error(workflowStepFailedMessageConstant, zap.Error(executeError))
			return fmt.Errorf(workflowExecutionErrorTemplateConstant, stepNumber, operation.Name(), executeError)
		}
		stepLogger.Info(workflowStepCompletedMessageConstant)
	}

	logger.Info(workflowCompletedMessageConstant, zap.Int(logFieldStepCountConstant, len(executor.operations)))
	return nil
}
