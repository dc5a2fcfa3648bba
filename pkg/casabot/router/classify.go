package router

import (
	"context"
	"strconv"
	"strings"

	"casabot/pkg/casabot/llm"
)

// Bucket is the coarse intent class assigned to an inbound message.
type Bucket string

const (
	BucketChat    Bucket = "CHAT"
	BucketCommand Bucket = "COMMAND"
	BucketWebhook Bucket = "WEBHOOK"
)

// minConfidence is the classifier confidence below which we treat the
// result as CHAT rather than risk a wrong dispatch.
const minConfidence = 0.5

// classify asks the intent model for a bucket. Every failure mode, from
// an unreachable backend to garbage output, resolves to CHAT so a broken
// classifier never blocks conversation.
func (r *Router) classify(ctx context.Context, text string) Bucket {
	res, err := r.model.Generate(ctx, llm.GenerateRequest{
		Purpose:      llm.PurposeIntent,
		SystemPrompt: classifySystemPrompt(r.registry, r.commands),
		UserText:     text,
		Temperature:  0.0,
		MaxTokens:    16,
	})
	if err != nil {
		r.logger.Warn("classification failed, defaulting to chat", "error", err)
		return BucketChat
	}

	bucket, confidence, ok := parseClassification(res.Text)
	if !ok {
		r.logger.Warn("unparseable classification, defaulting to chat", "raw", res.Text)
		return BucketChat
	}
	if confidence < minConfidence {
		r.logger.Debug("low-confidence classification, defaulting to chat",
			"bucket", bucket, "confidence", confidence)
		return BucketChat
	}

	r.logger.Debug("message classified", "bucket", bucket, "confidence", confidence)
	return bucket
}

// parseClassification extracts a bucket token and optional confidence from
// the model's reply. The first recognized token wins; a missing confidence
// defaults to 1.0 so bare "WEBHOOK" answers are accepted.
func parseClassification(raw string) (Bucket, float64, bool) {
	bucket := Bucket("")
	confidence := 1.0
	haveConf := false

	for _, field := range strings.Fields(raw) {
		token := strings.ToUpper(strings.Trim(field, ".,:;!\"'`()[]"))
		if bucket == "" {
			switch token {
			case string(BucketChat):
				bucket = BucketChat
			case string(BucketCommand):
				bucket = BucketCommand
			case string(BucketWebhook):
				bucket = BucketWebhook
			}
			continue
		}
		if !haveConf {
			if f, err := strconv.ParseFloat(strings.Trim(field, ".,:;!\"'`()[]%"), 64); err == nil && f >= 0 && f <= 1 {
				confidence = f
				haveConf = true
			}
		}
	}

	if bucket == "" {
		return "", 0, false
	}
	return bucket, confidence, true
}
