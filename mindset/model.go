// Package mindset parses .jellyfish files: line-oriented declarative
// records describing named "mindset" model descriptors and the chain
// files they reference. It never instantiates a chatbot or realizes a
// chain itself — it only produces descriptors for a host to act on.
package mindset

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dreamer-coding/fossil-jellyfish/chain"
)

// MaxTags and MaxModels bound how many list entries a Model keeps; extras
// are discarded silently, matching spec.md §4.7.
const (
	MaxTags   = 16
	MaxModels = 16
)

// Model is a single parsed mindset record.
type Model struct {
	Name                string
	Description         string
	ActivationCondition string
	SourceURI           string
	OriginDeviceID      string
	Version             string
	ContentHash         string
	StateMachine        string
	CreatedAt           uint64
	UpdatedAt           uint64
	TrustScore          float64
	Immutable           bool
	Priority            int64
	ConfidenceThreshold float64
	Tags                []string
	Models              []string

	// Chain is populated by a host that realizes this descriptor by
	// loading one of Models through persist.Load; ParseFile never sets it.
	Chain *chain.Chain
}

func setStringField(m *Model, key, value string) bool {
	switch key {
	case "description":
		m.Description = value
	case "activation_condition":
		m.ActivationCondition = value
	case "source_uri":
		m.SourceURI = value
	case "origin_device_id":
		m.OriginDeviceID = value
	case "version":
		m.Version = value
	case "content_hash":
		m.ContentHash = value
	case "state_machine":
		m.StateMachine = value
	default:
		return false
	}
	return true
}

// ParseFile reads path and returns the model records it declares. Like the
// .fish codec, a malformed record fails the whole parse; there is no
// partial result.
func ParseFile(path string) ([]Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, chain.NewError(chain.ErrIOFailure, err.Error())
	}
	models, err := Parse(data)
	if err != nil {
		return nil, chain.NewError(chain.ErrParseFailure, err.Error())
	}
	return models, nil
}

// Parse parses .jellyfish document bytes into model records.
func Parse(data []byte) ([]Model, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var models []Model
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, ok := matchTrigger(line)
		if !ok {
			return nil, fmt.Errorf("line %d: expected a model(...) { trigger, got %q", lineNo, line)
		}
		m := Model{Name: name}
		closed := false
		for scanner.Scan() {
			lineNo++
			body := strings.TrimSpace(scanner.Text())
			if body == "" {
				continue
			}
			if body == "}" {
				closed = true
				break
			}
			if err := applyField(&m, body); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
		if !closed {
			return nil, fmt.Errorf("model %q: missing closing '}'", name)
		}
		models = append(models, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// matchTrigger reports whether line is a model('name') { record start and,
// if so, returns the quoted name.
func matchTrigger(line string) (string, bool) {
	const prefix = "model("
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	rest := line[len(prefix):]
	closeParen := strings.IndexByte(rest, ')')
	if closeParen < 0 {
		return "", false
	}
	quoted := strings.TrimSpace(rest[:closeParen])
	name, err := unquoteValue(quoted)
	if err != nil {
		return "", false
	}
	tail := strings.TrimSpace(rest[closeParen+1:])
	if tail != "{" {
		return "", false
	}
	return name, true
}

// applyField parses one "key: value" line and folds it into m. Unknown
// keys are ignored, matching spec.md §4.7.
func applyField(m *Model, line string) error {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return fmt.Errorf("malformed field %q", line)
	}
	key := strings.TrimSpace(line[:idx])
	value := strings.TrimSpace(line[idx+1:])

	if setStringField(m, key, trimQuotesLoose(value)) {
		return nil
	}

	switch key {
	case "created_at":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("created_at: %w", err)
		}
		m.CreatedAt = v
	case "updated_at":
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("updated_at: %w", err)
		}
		m.UpdatedAt = v
	case "trust_score":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("trust_score: %w", err)
		}
		m.TrustScore = v
	case "confidence_threshold":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("confidence_threshold: %w", err)
		}
		m.ConfidenceThreshold = v
	case "priority":
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		m.Priority = v
	case "immutable":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("immutable: %w", err)
		}
		m.Immutable = v
	case "tags":
		items, err := parseList(value)
		if err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		if len(items) > MaxTags {
			items = items[:MaxTags]
		}
		m.Tags = items
	case "models":
		items, err := parseList(value)
		if err != nil {
			return fmt.Errorf("models: %w", err)
		}
		if len(items) > MaxModels {
			items = items[:MaxModels]
		}
		m.Models = items
	default:
		// unknown key: ignored
	}
	return nil
}

// parseList parses a [a, b, c] bracketed, comma-separated list of
// (optionally quoted) values.
func parseList(value string) ([]string, error) {
	if len(value) < 2 || value[0] != '[' || value[len(value)-1] != ']' {
		return nil, fmt.Errorf("expected a [ ... ] list, got %q", value)
	}
	inner := strings.TrimSpace(value[1 : len(value)-1])
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		items = append(items, trimQuotesLoose(strings.TrimSpace(p)))
	}
	return items, nil
}

// trimQuotesLoose strips a single matching pair of leading/trailing quotes
// (either ' or "), leaving unquoted values untouched.
func trimQuotesLoose(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// unquoteValue requires the value to actually be quoted (used for the
// record's name, which the trigger line always quotes).
func unquoteValue(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("value %q is too short to be quoted", s)
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
		return s[1 : len(s)-1], nil
	}
	return "", fmt.Errorf("value %q is not quoted", s)
}
