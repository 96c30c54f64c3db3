package banter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ArithmeticResponderName is the registry name of ArithmeticResponder.
const ArithmeticResponderName = "arithmetic"

// ResponderFunc computes a reply from the raw user input. It returns false
// when it has nothing to say, and the entry's responses are used instead.
type ResponderFunc func(input string) (string, bool)

// Responder is a named ResponderFunc.
type Responder struct {
	Name string
	Func ResponderFunc
	// NonDeterministic responders read external state (the clock), so the
	// same input may produce different replies.
	NonDeterministic bool
}

// ResponderRegistry resolves responder names used in knowledge documents.
type ResponderRegistry struct {
	mu         sync.RWMutex
	responders map[string]Responder
}

// NewResponderRegistry creates an empty registry.
func NewResponderRegistry() *ResponderRegistry {
	return &ResponderRegistry{responders: make(map[string]Responder)}
}

// DefaultResponders returns a registry holding the arithmetic, clock and
// language responders. now is the clock used by the clock responder; nil
// means time.Now.
func DefaultResponders(now func() time.Time) *ResponderRegistry {
	if now == nil {
		now = time.Now
	}
	r := NewResponderRegistry()
	r.Register(Responder{Name: ArithmeticResponderName, Func: ArithmeticResponder})
	r.Register(Responder{Name: "clock", Func: ClockResponder(now), NonDeterministic: true})
	r.Register(Responder{Name: "language", Func: LanguageResponder})
	return r
}

// Register adds or replaces a responder.
func (r *ResponderRegistry) Register(responder Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders[responder.Name] = responder
}

// Lookup finds a responder by name.
func (r *ResponderRegistry) Lookup(name string) (Responder, bool) {
	if r == nil {
		return Responder{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	responder, ok := r.responders[name]
	return responder, ok
}

// Names lists registered responder names in sorted order.
func (r *ResponderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.responders))
	for name := range r.responders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ArithmeticResponder evaluates the arithmetic expression embedded in input.
//
//	"сколько будет 2+2*3" → "Result: 8"
//	"calculate 10 / 4"    → "Result: 2.5"
//	"calculate 1/0"       → not applicable
func ArithmeticResponder(input string) (string, bool) {
	value, err := EvaluateExpression(ExtractExpression(input))
	if err != nil {
		return "", false
	}
	return "Result: " + FormatNumber(value), true
}

// ClockResponder reports the current date and time.
func ClockResponder(now func() time.Time) ResponderFunc {
	return func(string) (string, bool) {
		t := now()
		return fmt.Sprintf("🕐 It is %s\n📅 %s", t.Format("15:04:05"), t.Format("Monday, January 2, 2006")), true
	}
}

type languageReply struct {
	keywords []string
	reply    string
}

var languageReplies = []languageReply{
	{[]string{"javascript", "js"}, "JavaScript is the language of the web! Async code, the DOM, frameworks: what are we looking at?"},
	{[]string{"python"}, "Python is wonderfully versatile! Scripts, data, ML: what do you use it for?"},
	{[]string{"golang", "go"}, "Go is great for services and tooling! Goroutines, channels, interfaces: what's the question?"},
	{[]string{"html"}, "HTML is the structure of the web. Semantics, accessibility, SEO: what do you need?"},
	{[]string{"css"}, "CSS is where the magic happens! Flexbox, Grid, animations: what interests you?"},
}

// LanguageResponder answers about the first programming language mentioned
// by name as a whole word.
func LanguageResponder(input string) (string, bool) {
	padded := " " + Normalize(input) + " "
	for _, lang := range languageReplies {
		for _, kw := range lang.keywords {
			if strings.Contains(padded, " "+kw+" ") {
				return lang.reply, true
			}
		}
	}
	return "", false
}
