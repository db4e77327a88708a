// Package safety screens every incoming message for self-harm risk before
// any other stage sees it.
package safety

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/zhouzirui/daybook/internal/config"
	"github.com/zhouzirui/daybook/internal/logging"
	"github.com/zhouzirui/daybook/internal/service/ai"
)

// HelplineMessage is shown whenever a crisis is detected.
const HelplineMessage = "[!] You may be in danger. Please contact someone right now:\n\n" +
	"[SOS] Emergency number: 112\n" +
	"[HELP] Telefono Amico: 02 2327 2327\n" +
	"[CARE] Mental health support: 800-822-132\n\n" +
	"You are not alone. Ask for help now."

// Result is the outcome of a check.
type Result struct {
	IsCrisis     bool   `json:"isCrisis"`
	ResponseText string `json:"responseText,omitempty"`
}

// Tier 1 patterns. Figurative phrases such as "dying of laughter" or
// "muoio dal ridere" must not match.
var crisisPatterns = compile(
	`\bi\s+want\s+to\s+die\b`,
	`\bwant(s|ing)?\s+to\s+(kill\s+myself|end\s+(it\s+all|my\s+life))\b`,
	`\bkill(ing)?\s+myself\b`,
	`\bend(ing)?\s+my\s+life\b`,
	`\bsuicid(e|al)\b`,
	`\bdon'?t\s+want\s+to\s+(live|be\s+alive)\b`,
	`\b(self[-\s]?harm|hurt(ing)?\s+myself)\b`,
	`\bvoglio\s+(morire|uccidermi|farla\s+finita)\b`,
	`\bpensieri?\s+suicid[aei]\b`,
	`\bnon\s+voglio\s+(più\s+)?vivere\b`,
	`\bsuicid(io|armi)\b`,
	`\bfarla\s+finita\b`,
)

// 手机键盘常插入弯引号
var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// fallbackKeywords answer tier 2 when no generator is configured.
var fallbackKeywords = []string{
	"suicide",
	"kill myself",
	"want to die",
	"end my life",
	"don't want to live",
	"suicidio",
	"non voglio vivere",
	"voglio morire",
	"pensieri suicidi",
	"non riesco a farcela",
}

const semanticInstructions = `You screen messages written by a journaling user.
Does the user express a REAL intention of self-harm or suicide?
Answer ONLY "YES" or "NO". Nothing else.
- "YES" only if there is a clear intention to hurt themselves.
- "NO" if the expression is figurative (for example "I'm dying of laughter").
- "NO" if it only expresses sadness or difficulty without suicidal intent.`

// Gate is the two-tier crisis detector.
type Gate struct {
	semantic bool
	gen      ai.Generator
	logger   *zap.Logger
}

// NewGate builds a gate. gen may be nil, in which case tier 2 answers from
// a fixed keyword list.
func NewGate(cfg config.SafetyConfig, gen ai.Generator, logger *zap.Logger) *Gate {
	return &Gate{
		semantic: cfg.SemanticCheck,
		gen:      gen,
		logger:   logging.OrNop(logger).Named("safety"),
	}
}

// Check classifies message. Tier 2 can only confirm or reject a tier 1 hit;
// it never runs on a tier 1 miss.
func (g *Gate) Check(ctx context.Context, message string) Result {
	if !MatchesPattern(message) {
		return Result{}
	}

	isCrisis := true
	if g.semantic {
		isCrisis = g.semanticCheck(ctx, message)
	}

	g.logger.Info("tier 1 pattern matched",
		zap.Bool("semantic", g.semantic),
		zap.Bool("crisis", isCrisis),
	)
	if !isCrisis {
		return Result{}
	}
	return Result{IsCrisis: true, ResponseText: HelplineMessage}
}

// MatchesPattern reports whether message hits a tier 1 pattern.
func MatchesPattern(message string) bool {
	message = apostrophes.Replace(message)
	for _, pattern := range crisisPatterns {
		if pattern.MatchString(message) {
			return true
		}
	}
	return false
}

func (g *Gate) semanticCheck(ctx context.Context, message string) bool {
	if g.gen == nil {
		g.logger.Warn("no generator configured, falling back to keyword check")
		return matchesKeyword(message)
	}

	answer, err := g.gen.Generate(ctx, ai.Request{
		Instructions: semanticInstructions,
		Input:        "Text: \"" + message + "\"\n\nAnswer:",
		Temperature:  0,
		MaxTokens:    10,
	})
	if err != nil {
		// 无法确认时按危机处理。
		g.logger.Error("semantic check failed, treating as crisis", zap.Error(err))
		return true
	}

	verdict, ok := parseVerdict(answer)
	if !ok {
		g.logger.Error("semantic check answer malformed, treating as crisis",
			zap.String("answer", logging.Preview(answer)))
		return true
	}
	g.logger.Debug("semantic check",
		zap.String("message", logging.Preview(message)),
		zap.Bool("crisis", verdict),
	)
	return verdict
}

// parseVerdict reads the first word of a yes/no answer. Italian answers are
// accepted too.
func parseVerdict(answer string) (bool, bool) {
	fields := strings.FieldsFunc(strings.ToUpper(answer), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return false, false
	}
	switch fields[0] {
	case "YES", "Y", "SI", "SÌ", "SÍ":
		return true, true
	case "NO", "N":
		return false, true
	default:
		return false, false
	}
}

func matchesKeyword(message string) bool {
	lowered := strings.ToLower(apostrophes.Replace(message))
	for _, keyword := range fallbackKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(`(?i)`+p))
	}
	return compiled
}
