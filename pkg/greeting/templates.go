package greeting

import (
	"fmt"

	"github.com/redialhq/redial/pkg/transcript"
)

// TemplateKind selects which fallback greeting shape applies when no
// synthesized greeting exists for a returning caller.
type TemplateKind int

const (
	// KindGeneric applies when neither a name nor usable context exists;
	// the agent's own default first message should stand.
	KindGeneric TemplateKind = iota

	// KindNamed applies when only the caller's name is known.
	KindNamed

	// KindContextual applies when only prior-conversation context is known.
	KindContextual

	// KindPersonal applies when both a name and usable context are known.
	KindPersonal
)

// ClassifyTemplate picks the fallback template for the given name and
// context snippet. Context that fails the quality gate counts as absent.
func ClassifyTemplate(name, context string) TemplateKind {
	hasName := name != ""
	hasContext := transcript.IsMeaningful(context)

	switch {
	case hasName && hasContext:
		return KindPersonal
	case hasName:
		return KindNamed
	case hasContext:
		return KindContextual
	default:
		return KindGeneric
	}
}

// RenderFallback renders the fallback greeting for a returning caller.
// KindGeneric renders "" so the agent's configured first message applies.
func RenderFallback(kind TemplateKind, name, context string) string {
	switch kind {
	case KindPersonal:
		return fmt.Sprintf("Hi %s! Last time we talked about %s. How have you been?", name, context)
	case KindNamed:
		return fmt.Sprintf("Hi %s! It's good to hear from you again. How have you been?", name)
	case KindContextual:
		return fmt.Sprintf("Welcome back! Last time we talked about %s. How have you been?", context)
	default:
		return ""
	}
}
