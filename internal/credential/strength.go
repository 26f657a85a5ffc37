package credential

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
)

// commonPatterns are rejected anywhere in the lowercased password.
var commonPatterns = []string{ //nolint:gochecknoglobals
	"123456",
	"password",
	"qwerty",
	"abc123",
	"111111",
	"admin",
	"letmein",
	"welcome",
	"contraseña",
	"usuario",
}

// Strength is the result of ScoreStrength.
type Strength struct {
	IsValid  bool     `json:"isValid"`
	Score    int      `json:"score"`
	MaxScore int      `json:"maxScore"`
	Feedback []string `json:"feedback"`
}

type rule struct {
	met      bool
	feedback string
}

// ScoreStrength scores plain against the password rules. Every met rule adds one point,
// every unmet one adds a feedback line.
func (c *Codec) ScoreStrength(plain string) Strength {
	var lower, upper, digit, symbol bool

	for _, r := range plain {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r), unicode.IsSpace(r):
			symbol = true
		}
	}

	length := len([]rune(plain))
	minLength := length >= c.cfg.MinLength

	rules := []rule{
		{minLength, "use at least " + strconv.Itoa(c.cfg.MinLength) + " characters"},
		{length >= c.cfg.StrongLength, "use " + strconv.Itoa(c.cfg.StrongLength) + " or more characters for a strong password"},
		{lower, "add a lowercase letter"},
		{upper, "add an uppercase letter"},
		{digit, "add a digit"},
		{symbol, "add a symbol"},
		{!hasCommonPattern(plain), "avoid common words and sequences"},
	}

	s := Strength{MaxScore: len(rules), Feedback: []string{}}
	all := true

	for _, r := range rules {
		if r.met {
			s.Score++

			continue
		}

		all = false

		s.Feedback = append(s.Feedback, r.feedback)
	}

	if c.cfg.ValidityRule == RuleAllRules {
		s.IsValid = all
	} else {
		s.IsValid = minLength
	}

	return s
}

// CheckStrength returns a validation error carrying the feedback when plain is not acceptable.
func (c *Codec) CheckStrength(plain string) error {
	s := c.ScoreStrength(plain)
	if s.IsValid {
		return nil
	}

	return apperror.WeakPassword("password does not meet the requirements", s.Feedback)
}

func hasCommonPattern(plain string) bool {
	p := strings.ToLower(plain)

	for _, c := range commonPatterns {
		if strings.Contains(p, c) {
			return true
		}
	}

	return false
}
