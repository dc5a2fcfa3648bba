package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Textual function-call markers for backends without native tool calling.
// The system prompt instructs the model to embed exactly one of:
//
//	run_command("!weather", "Madrid")
//	call_service("area_control", {"area": "office", "turn": "off"})
//	call_service("area_control", "area=office, turn=off")
//
// Precedence is fixed: run_command first, then call_service with a JSON
// object, then call_service with a key=value string. The first complete
// match wins; a later, looser form never overrides an earlier, stricter one.
var (
	runCommandRe = regexp.MustCompile(`run_command\(\s*"([^"]+)"\s*(?:,\s*"([^"]*)"\s*)?\)`)

	// callServiceHeadRe locates the call and captures the action id; the
	// argument payload is parsed separately because JSON objects can nest.
	callServiceHeadRe = regexp.MustCompile(`call_service\(\s*"([^"]+)"\s*,\s*`)

	callServiceKVRe = regexp.MustCompile(`call_service\(\s*"([^"]+)"\s*,\s*"([^"]*)"\s*\)`)
)

// ParseMarker scans text for a function-call marker and returns the
// normalized call plus the text with the marker removed. Returns a nil call
// when no well-formed marker is found; malformed markers are treated as
// "no call" rather than an error, so the router can fall back to the plain
// text reply.
func ParseMarker(text string) (*FunctionCall, string) {
	if m := runCommandRe.FindStringSubmatchIndex(text); m != nil {
		name := text[m[2]:m[3]]
		args := ""
		if m[4] >= 0 {
			args = text[m[4]:m[5]]
		}
		return &FunctionCall{
			Target:   TargetLocalCommand,
			ActionID: name,
			ArgsText: strings.TrimSpace(args),
		}, stripSpan(text, m[0], m[1])
	}

	if call, start, end, ok := parseCallServiceJSON(text); ok {
		return call, stripSpan(text, start, end)
	}

	if m := callServiceKVRe.FindStringSubmatchIndex(text); m != nil {
		params := parseKVPairs(text[m[4]:m[5]])
		return &FunctionCall{
			Target:     TargetRemoteWebhook,
			ActionID:   text[m[2]:m[3]],
			Parameters: params,
		}, stripSpan(text, m[0], m[1])
	}

	return nil, text
}

// parseCallServiceJSON handles call_service("<id>", {…}) with a balanced
// brace scan, since the JSON payload can contain nested objects.
func parseCallServiceJSON(text string) (call *FunctionCall, start, end int, ok bool) {
	head := callServiceHeadRe.FindStringSubmatchIndex(text)
	if head == nil {
		return nil, 0, 0, false
	}
	payloadStart := head[1]
	if payloadStart >= len(text) || text[payloadStart] != '{' {
		return nil, 0, 0, false
	}
	payloadEnd := findMatchingBrace(text, payloadStart)
	if payloadEnd < 0 {
		return nil, 0, 0, false
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text[payloadStart:payloadEnd+1]), &raw); err != nil {
		return nil, 0, 0, false
	}

	// The call must close with ")" after the payload (whitespace allowed).
	rest := text[payloadEnd+1:]
	trimmed := strings.TrimLeft(rest, " \t\n")
	if !strings.HasPrefix(trimmed, ")") {
		return nil, 0, 0, false
	}
	end = payloadEnd + 1 + (len(rest) - len(trimmed)) + 1

	return &FunctionCall{
		Target:     TargetRemoteWebhook,
		ActionID:   text[head[2]:head[3]],
		Parameters: FlattenParams(raw),
	}, head[0], end, true
}

// findMatchingBrace returns the index of the '}' closing the '{' at start,
// respecting nesting and quoted strings. Returns -1 when unbalanced.
func findMatchingBrace(s string, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseKVPairs parses "area=office, turn=off" into a parameter map.
func parseKVPairs(s string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" && v != "" {
			params[k] = v
		}
	}
	return params
}

// FlattenParams converts a decoded JSON object into the string parameter
// map the extractor and validator work with. Nested values are re-encoded
// as compact JSON so nothing is silently dropped.
func FlattenParams(raw map[string]any) map[string]string {
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			params[k] = t
		case float64:
			params[k] = formatNumber(t)
		case bool:
			params[k] = fmt.Sprintf("%t", t)
		case nil:
			// skip nulls, absence is handled by validation
		default:
			b, err := json.Marshal(v)
			if err == nil {
				params[k] = string(b)
			}
		}
	}
	return params
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// stripSpan removes [start,end) from text and tidies the leftover whitespace.
func stripSpan(text string, start, end int) string {
	out := text[:start] + text[end:]
	return strings.TrimSpace(out)
}
