package tool

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/codcoz/chefia/agent/contract"
)

// ToolCalcEvaluate scales ingredient quantities and totals counts without
// letting the model do arithmetic on its own.
const ToolCalcEvaluate = "calc.evaluate"

// Digits, whitespace, decimal points, the four operators, and parentheses.
var calcExpressionPattern = regexp.MustCompile(`^[\d\s\+\-\*/\(\)\.]+$`)

type CalcOutput struct {
	Expression string  `json:"expressao"`
	Result     float64 `json:"resultado"`
}

func executeCalcTool(args map[string]any) contractx.ToolResult {
	rawExpression, ok := args["expression"]
	if !ok {
		return contractx.ToolResult{
			Tool:  ToolCalcEvaluate,
			Error: "expression is required",
		}
	}

	expression, ok := rawExpression.(string)
	if !ok {
		return contractx.ToolResult{
			Tool:  ToolCalcEvaluate,
			Error: "expression must be a string",
		}
	}

	expression = strings.TrimSpace(expression)
	if err := validateCalcExpression(expression); err != nil {
		return contractx.ToolResult{
			Tool:  ToolCalcEvaluate,
			Error: err.Error(),
		}
	}

	result, err := evaluateCalcExpression(expression)
	if err != nil {
		return contractx.ToolResult{
			Tool:  ToolCalcEvaluate,
			Error: err.Error(),
		}
	}

	return contractx.ToolResult{
		Tool: ToolCalcEvaluate,
		Result: CalcOutput{
			Expression: expression,
			Result:     result,
		},
	}
}

func validateCalcExpression(expression string) error {
	if expression == "" {
		return fmt.Errorf("expression is empty")
	}
	if !calcExpressionPattern.MatchString(expression) {
		return fmt.Errorf("expression contains invalid characters")
	}

	balance := 0
	for _, ch := range expression {
		switch ch {
		case '(':
			balance++
		case ')':
			balance--
			if balance < 0 {
				return fmt.Errorf("expression has unbalanced parentheses")
			}
		}
	}
	if balance != 0 {
		return fmt.Errorf("expression has unbalanced parentheses")
	}
	return nil
}

func evaluateCalcExpression(expression string) (float64, error) {
	p := &calcParser{input: expression}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.hasNext() {
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return value, nil
}

// calcParser is a recursive-descent evaluator for +, -, *, / and parentheses.
type calcParser struct {
	input string
	pos   int
}

func (p *calcParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('+'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.match('-'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *calcParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('*'):
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.match('/'):
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *calcParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.match('+') {
		return p.parseUnary()
	}
	if p.match('-') {
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parsePrimary()
}

func (p *calcParser) parsePrimary() (float64, error) {
	p.skipSpaces()
	if p.match('(') {
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		return value, nil
	}
	return p.parseNumber()
}

func (p *calcParser) parseNumber() (float64, error) {
	p.skipSpaces()
	start := p.pos
	hasDigit := false
	hasDot := false

	for p.hasNext() {
		ch := p.peek()
		switch {
		case ch >= '0' && ch <= '9':
			hasDigit = true
			p.pos++
		case ch == '.':
			if hasDot {
				return 0, fmt.Errorf("invalid number format at position %d", p.pos)
			}
			hasDot = true
			p.pos++
		default:
			goto done
		}
	}

done:
	if !hasDigit {
		return 0, fmt.Errorf("expected number at position %d", start)
	}

	raw := p.input[start:p.pos]
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	return value, nil
}

func (p *calcParser) skipSpaces() {
	for p.hasNext() && p.peek() == ' ' {
		p.pos++
	}
}

func (p *calcParser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *calcParser) peek() byte {
	return p.input[p.pos]
}

func (p *calcParser) match(expected byte) bool {
	if p.hasNext() && p.peek() == expected {
		p.pos++
		return true
	}
	return false
}
