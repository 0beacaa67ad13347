// Package translate provides the Translator capability used for feed titles
// and source labels, its backends, and the gateway that shares one backend
// across concurrent fetches.
package translate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/deusflow/newsdigest/internal/logger"
)

// maxChars bounds the text sent to a backend in one call.
const maxChars = 4000

// Translator turns free text into the target language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Noop returns text unchanged.
type Noop struct{}

func (Noop) Translate(_ context.Context, text string) (string, error) {
	return text, nil
}

// Chain tries each backend in order and returns the first non-empty answer.
type Chain []Named

// Named pairs a backend with the name used in logs.
type Named struct {
	Name       string
	Translator Translator
}

func (c Chain) Translate(ctx context.Context, text string) (string, error) {
	if len(c) == 0 {
		return text, nil
	}

	var errs []error
	for _, b := range c {
		out, err := b.Translator.Translate(ctx, text)
		if err == nil && strings.TrimSpace(out) != "" {
			logger.Debug("translated", "backend", b.Name)
			return out, nil
		}
		if err == nil {
			err = errors.New("empty answer")
		}
		logger.Debug("translation backend failed", "backend", b.Name, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", b.Name, err))

		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// LanguageName returns the English name of a language tag, used in prompts.
func LanguageName(tag language.Tag) string {
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return tag.String()
}

func truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	return string([]rune(text)[:n]) + "..."
}

var (
	parenNote   = regexp.MustCompile(`(?i)\(\s*note\s*:[^)]*\)`)
	bracketNote = regexp.MustCompile(`(?i)\[\s*note\s*:[^\]]*\]`)
	lineNote    = regexp.MustCompile(`(?i)^\s*(\*\*)?note\s*:`)
	spaces      = regexp.MustCompile(`[ \t]{2,}`)
)

// SanitizeAIText strips the disclaimers language models like to append to a
// translation, such as "(Note: this is a machine translation...)".
func SanitizeAIText(s string) string {
	s = parenNote.ReplaceAllString(s, "")
	s = bracketNote.ReplaceAllString(s, "")

	var kept []string
	for _, line := range strings.Split(s, "\n") {
		if lineNote.MatchString(line) {
			continue
		}
		line = strings.TrimSpace(spaces.ReplaceAllString(line, " "))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
