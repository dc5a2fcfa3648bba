// Package router turns inbound chat messages into replies and actions.
// Each message runs a strictly sequential pipeline: classify the intent,
// generate a reply or a function call, then dispatch at most one action.
package router

import (
	"context"
	"log/slog"

	"casabot/pkg/casabot/actions"
	"casabot/pkg/casabot/commands"
	"casabot/pkg/casabot/dispatch"
	"casabot/pkg/casabot/llm"
)

// apologyReply is sent when the model backend is unreachable. There is no
// retry: the user can simply re-ask.
const apologyReply = "Sorry, I'm having trouble thinking right now. Please try again in a moment."

// Model is the generation surface the router needs. Satisfied by
// llm.Gateway.
type Model interface {
	Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResult, error)
}

// Dispatcher executes one resolved function call. Satisfied by
// dispatch.Executor.
type Dispatcher interface {
	Execute(ctx context.Context, call *llm.FunctionCall, params map[string]string, sourceText string) dispatch.Result
}

// Options tunes router behavior.
type Options struct {
	// AutoDispatch allows the router to execute function calls. When
	// false the router replies with text only and never dispatches.
	AutoDispatch bool `yaml:"auto_dispatch"`
}

// DefaultOptions enables dispatch.
func DefaultOptions() Options {
	return Options{AutoDispatch: true}
}

// Router is the per-message pipeline. It holds no per-conversation state,
// so distinct conversations may be routed concurrently; the channel
// manager serializes messages within one conversation.
type Router struct {
	registry   *actions.Registry
	extractor  *actions.Extractor
	model      Model
	dispatcher Dispatcher
	commands   *commands.Registry
	opts       Options
	logger     *slog.Logger
}

// New creates a router. commands may be nil when no local commands exist.
func New(registry *actions.Registry, extractor *actions.Extractor, model Model, dispatcher Dispatcher, cmds *commands.Registry, opts Options, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry:   registry,
		extractor:  extractor,
		model:      model,
		dispatcher: dispatcher,
		commands:   cmds,
		opts:       opts,
		logger:     logger.With("component", "router"),
	}
}

// RouteMessage processes one inbound message and returns the ordered
// replies to send back. It never returns an empty slice and never panics:
// every failure mode folds into a readable reply.
func (r *Router) RouteMessage(ctx context.Context, channel, chatID, text string) []string {
	ctx = commands.WithChat(ctx, channel, chatID)

	// Bang commands bypass the model entirely.
	if name, args, ok := commands.ParseBang(text); ok && r.commands != nil && r.commands.Has(name) {
		r.logger.Debug("bang command", "command", name)
		if !r.opts.AutoDispatch {
			return []string{"Automatic actions are disabled."}
		}
		result := r.dispatcher.Execute(ctx, &llm.FunctionCall{
			Target:   llm.TargetLocalCommand,
			ActionID: name,
			ArgsText: args,
		}, nil, text)
		return []string{result.UserMessage}
	}

	bucket := r.classify(ctx, text)
	r.logger.Debug("pipeline state", "from", "classifying", "to", "responding", "bucket", bucket)

	if bucket == BucketChat {
		return []string{r.chatReply(ctx, text)}
	}
	return r.actionReply(ctx, text)
}

// chatReply generates a plain conversational answer, with no function
// definitions in play.
func (r *Router) chatReply(ctx context.Context, text string) string {
	res, err := r.model.Generate(ctx, llm.GenerateRequest{
		Purpose:      llm.PurposeChat,
		SystemPrompt: chatSystemPrompt,
		UserText:     text,
	})
	if err != nil {
		r.logger.Warn("chat generation failed", "error", err)
		return apologyReply
	}
	if res.Text == "" {
		return apologyReply
	}
	return res.Text
}

// actionReply runs the function pass for COMMAND/WEBHOOK buckets and
// dispatches the resulting call, if any.
func (r *Router) actionReply(ctx context.Context, text string) []string {
	res, err := r.model.Generate(ctx, llm.GenerateRequest{
		Purpose:      llm.PurposeFunction,
		SystemPrompt: functionSystemPrompt(r.registry, r.commands),
		UserText:     text,
		Functions:    functionDefs(r.registry, r.commands),
	})
	if err != nil {
		r.logger.Warn("function generation failed", "error", err)
		return []string{apologyReply}
	}

	// No call produced: the text is the final reply. Never retried and
	// never forced into a call.
	if res.FunctionCall == nil {
		if res.Text == "" {
			return []string{apologyReply}
		}
		return []string{res.Text}
	}

	r.logger.Debug("pipeline state", "from", "responding", "to", "dispatching",
		"target", res.FunctionCall.Target, "action", res.FunctionCall.ActionID)

	if !r.opts.AutoDispatch {
		if res.Text != "" {
			return []string{res.Text, "Automatic actions are disabled."}
		}
		return []string{"Automatic actions are disabled."}
	}

	// Explanatory text goes first, the dispatch outcome follows as its
	// own message. The user sees "I'll do X" before "X was done".
	var replies []string
	if res.Text != "" {
		replies = append(replies, res.Text)
	}

	switch res.FunctionCall.Target {
	case llm.TargetLocalCommand:
		result := r.dispatcher.Execute(ctx, res.FunctionCall, nil, text)
		replies = append(replies, result.UserMessage)

	case llm.TargetRemoteWebhook:
		replies = append(replies, r.dispatchWebhook(ctx, res.FunctionCall, text)...)

	default:
		replies = append(replies, apologyReply)
	}
	return replies
}

// dispatchWebhook layers text extraction over the model's parameters,
// validates, and executes. A validation failure produces the itemized
// error and stops; the remote endpoint is never called.
func (r *Router) dispatchWebhook(ctx context.Context, call *llm.FunctionCall, text string) []string {
	def, ok := r.registry.Find(call.ActionID)
	if !ok {
		r.logger.Warn("function call for unknown action", "action", call.ActionID)
		return []string{"I couldn't find an action called \"" + call.ActionID + "\"."}
	}

	params := r.extractor.Extract(text, def.ID, call.Parameters)
	report := actions.Validate(r.registry, def.ID, params)
	if !report.Valid {
		r.logger.Debug("validation failed", "action", def.ID,
			"missing", len(report.Missing), "invalid", len(report.Invalid))
		return []string{report.UserMessage()}
	}

	result := r.dispatcher.Execute(ctx, call, params, text)
	return []string{result.UserMessage}
}
