// Package dispatch executes resolved, validated function calls (local
// chat commands and remote webhook actions) with at-most-once semantics,
// converts every outcome into a user-facing result, and records each
// dispatch to an append-only audit log.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/llm"
)

// Outcome classifies a dispatch result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Result is the user-facing outcome of executing one function call.
type Result struct {
	Outcome Outcome

	// UserMessage is a human-readable summary sent back over the transport.
	UserMessage string

	// Raw is the action-specific payload, kept for the audit log only.
	Raw string
}

// CommandInvoker runs a locally-registered chat command. Implemented by
// the commands registry; defined here so dispatch stays decoupled from it.
type CommandInvoker interface {
	Invoke(ctx context.Context, name, args string) (string, error)
}

// Executor executes function calls and audits them.
type Executor struct {
	registry *actions.Registry
	commands CommandInvoker
	webhook  *WebhookClient
	audit    *AuditLog
	logger   *slog.Logger
}

// NewExecutor creates a dispatch executor. audit may be nil (auditing
// disabled); commands may be nil when no local commands are registered.
func NewExecutor(registry *actions.Registry, commands CommandInvoker, webhook *WebhookClient, audit *AuditLog, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: registry,
		commands: commands,
		webhook:  webhook,
		audit:    audit,
		logger:   logger.With("component", "dispatch"),
	}
}

// Execute runs one function call with the given (already validated)
// parameters. It never panics and never returns an error: every failure
// mode is folded into a Failure result with a readable message. sourceText
// is the originating user message, recorded for audit only.
func (e *Executor) Execute(ctx context.Context, call *llm.FunctionCall, params map[string]string, sourceText string) Result {
	var result Result
	switch call.Target {
	case llm.TargetLocalCommand:
		result = e.executeCommand(ctx, call)
	case llm.TargetRemoteWebhook:
		result = e.executeWebhook(ctx, call, params)
	default:
		result = Result{
			Outcome:     OutcomeFailure,
			UserMessage: fmt.Sprintf("I don't know how to run %q.", call.ActionID),
		}
	}

	// Audit append is fire-and-forget: a logging failure must never fail
	// the dispatch itself.
	if e.audit != nil {
		e.audit.Record(call.ActionID, params, sourceText, result)
	}
	return result
}

// executeCommand invokes a local command handler. A crashing handler must
// never crash the router, so panics are contained here.
func (e *Executor) executeCommand(ctx context.Context, call *llm.FunctionCall) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("command handler panicked", "command", call.ActionID, "panic", r)
			result = Result{
				Outcome:     OutcomeFailure,
				UserMessage: fmt.Sprintf("The %s command failed unexpectedly.", call.ActionID),
				Raw:         fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	if e.commands == nil {
		return Result{
			Outcome:     OutcomeFailure,
			UserMessage: fmt.Sprintf("I couldn't find a %s command.", call.ActionID),
		}
	}

	reply, err := e.commands.Invoke(ctx, call.ActionID, call.ArgsText)
	if err != nil {
		e.logger.Warn("command failed", "command", call.ActionID, "error", err)
		return Result{
			Outcome:     OutcomeFailure,
			UserMessage: fmt.Sprintf("The %s command failed: %v", call.ActionID, err),
			Raw:         err.Error(),
		}
	}
	return Result{Outcome: OutcomeSuccess, UserMessage: reply}
}

// executeWebhook posts the validated parameters to the remote webhook.
func (e *Executor) executeWebhook(ctx context.Context, call *llm.FunctionCall, params map[string]string) Result {
	def, ok := e.registry.Find(call.ActionID)
	if !ok {
		return Result{
			Outcome:     OutcomeFailure,
			UserMessage: fmt.Sprintf("I couldn't find an action called %q.", call.ActionID),
		}
	}
	if e.webhook == nil {
		return Result{
			Outcome:     OutcomeFailure,
			UserMessage: "Home control is not configured.",
		}
	}

	resp, err := e.webhook.Trigger(ctx, def.Alias(), params)
	if err != nil {
		e.logger.Warn("webhook dispatch failed", "action", def.ID, "error", err)
		return Result{
			Outcome:     OutcomeFailure,
			UserMessage: fmt.Sprintf("Couldn't reach the home controller: %v", err),
			Raw:         err.Error(),
		}
	}

	msg := resp.Message
	if msg == "" {
		msg = fmt.Sprintf("Done, %s executed.", def.ID)
	}
	return Result{Outcome: OutcomeSuccess, UserMessage: msg, Raw: resp.Raw}
}
