package marker

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// ErrRecoveryExhausted is returned when none of the parsing strategies
// produced a usable structure.
var ErrRecoveryExhausted = errors.New("all parsing strategies failed")

// Strategy identifies which parsing strategy produced a result.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyRepaired Strategy = "repaired"
	StrategySalvage  Strategy = "salvage"
)

// bareKeyPattern matches lines that look like a mapping key with the
// trailing colon truncated.
var bareKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// quotedListItemPattern matches quoted sequence entries at any indent.
var quotedListItemPattern = regexp.MustCompile(`(?m)^\s*-\s*"(.+)"$`)

// Parser recovers a key-value structure from marker documents that are
// almost, but not quite, valid YAML. Strategies escalate from a direct parse
// over textual repair to line-by-line salvage, always preferring the most
// faithful result that succeeds.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Run parses the raw document content, returning the parsed structure and
// the strategy that produced it. An empty structure counts as a failure.
func (p *Parser) Run(content []byte) (map[string]any, Strategy, error) {
	// Strategy 1: parse as-is
	if data := p.tryParse(content); len(data) > 0 {
		return data, StrategyDirect, nil
	}

	// Strategy 2: apply textual repairs and retry
	repaired := p.Repair(string(content))
	if data := p.tryParse([]byte(repaired)); len(data) > 0 {
		return data, StrategyRepaired, nil
	}

	// Strategy 3: line-by-line salvage
	if data := p.salvage(string(content)); len(data) > 0 {
		return data, StrategySalvage, nil
	}

	return nil, "", ErrRecoveryExhausted
}

func (p *Parser) tryParse(content []byte) map[string]any {
	var data map[string]any
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil
	}
	return data
}

// Repair applies the fixed sequence of textual repairs for common marker
// syntax defects: document separators, tab indentation, truncated keys and
// inconsistently indented quoted list items.
func (p *Parser) Repair(content string) string {
	content = strings.ReplaceAll(content, "---", "")
	content = strings.ReplaceAll(content, "\t", "  ")

	lines := strings.Split(content, "\n")
	repaired := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && !strings.HasPrefix(trimmed, "-") && !strings.Contains(line, ":") {
			if bareKeyPattern.MatchString(trimmed) {
				line = strings.TrimRight(line, " ") + ":"
			}
		}
		repaired = append(repaired, line)
	}
	content = strings.Join(repaired, "\n")

	content = quotedListItemPattern.ReplaceAllString(content, `  - "$1"`)

	return content
}

// salvage reconstructs whatever key-value pairs it can find, joining
// continuation lines into multi-line scalar values. It never fails; callers
// must treat an empty result as a failure.
func (p *Parser) salvage(content string) map[string]any {
	data := make(map[string]any)
	var currentKey string
	var currentValue []string

	flush := func() {
		if currentKey != "" && len(currentValue) > 0 {
			data[currentKey] = strings.TrimSpace(strings.Join(currentValue, "\n"))
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, ":") && !strings.HasPrefix(line, "-") {
			flush()

			key, value, _ := strings.Cut(line, ":")
			currentKey = strings.TrimSpace(key)
			currentValue = nil
			if v := strings.TrimSpace(value); v != "" {
				currentValue = []string{v}
			}
		} else if currentKey != "" {
			currentValue = append(currentValue, line)
		}
	}
	flush()

	return data
}
