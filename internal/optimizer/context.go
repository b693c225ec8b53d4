package optimizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultSummaryThreshold is the AI reply length, in characters, above which a
	// reply is truncated when formatting history.
	DefaultSummaryThreshold = 2000

	// DefaultSummaryKeep is how many characters of a truncated reply are kept at each end.
	DefaultSummaryKeep = 500

	historyHeader = "[Conversation history]\n\n" +
		"Note: the following is a multi-turn conversation in which the user worked with a model " +
		"using a previously optimized prompt.\n\n"
)

// ConversationTurn is one user/AI exchange. Turns decoded from JSON never fail to
// decode; a turn that is not an object with scalar "user" and "ai" values is kept
// in place but marked malformed so the builder can skip it.
type ConversationTurn struct {
	User string `json:"user"`
	AI   string `json:"ai"`

	malformed string
}

// Valid reports whether the turn can be rendered into a context.
func (t ConversationTurn) Valid() bool {
	return t.malformed == ""
}

// Problem returns why the turn is malformed, or "" for a valid turn.
func (t ConversationTurn) Problem() string {
	return t.malformed
}

// MalformedTurn rebuilds a turn that was rejected elsewhere, for instance before
// being handed to a background worker.
func MalformedTurn(reason string) ConversationTurn {
	return ConversationTurn{malformed: reason}
}

func (t *ConversationTurn) UnmarshalJSON(data []byte) error {
	*t = ConversationTurn{}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		t.malformed = "not an object"
		return nil
	}

	user, hasUser := fields["user"]
	ai, hasAI := fields["ai"]
	if !hasUser || !hasAI {
		t.malformed = "missing user or ai field"
		return nil
	}

	var ok bool
	if t.User, ok = scalarString(user); !ok {
		t.malformed = "user is not a string"
		return nil
	}
	if t.AI, ok = scalarString(ai); !ok {
		t.malformed = "ai is not a string"
		return nil
	}
	return nil
}

// scalarString coerces a JSON string, number or boolean to its string form.
func scalarString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", false
		}
		return fmt.Sprint(b), true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	}
	return "", false
}

// History is an ordered conversation; position i is turn i+1.
type History []ConversationTurn

// ContextBuilder assembles the text context shared by every pipeline stage.
// It is a pure function of its inputs apart from warnings sent to the logger.
type ContextBuilder struct {
	SummaryThreshold int
	SummaryKeep      int
	logger           *zap.Logger
}

// NewContextBuilder creates a builder. A non-positive threshold selects the default.
func NewContextBuilder(summaryThreshold int, logger *zap.Logger) *ContextBuilder {
	if summaryThreshold <= 0 {
		summaryThreshold = DefaultSummaryThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextBuilder{
		SummaryThreshold: summaryThreshold,
		SummaryKeep:      DefaultSummaryKeep,
		logger:           logger,
	}
}

// DecodeHistory decodes a raw conversation_history value. Anything that is not a
// JSON array is coerced to an empty history with a warning; null or absent is empty.
func (b *ContextBuilder) DecodeHistory(raw json.RawMessage) History {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return History{}
	}
	if raw[0] != '[' {
		b.logger.Warn("conversation history is not a list, treating it as empty")
		return History{}
	}
	var h History
	if err := json.Unmarshal(raw, &h); err != nil {
		b.logger.Warn("conversation history could not be decoded, treating it as empty", zap.Error(err))
		return History{}
	}
	return h
}

// Build returns the stage input context and whether history was supplied.
func (b *ContextBuilder) Build(rawText string, history History) (string, bool) {
	hasHistory := len(history) > 0
	formatted := b.FormatHistory(history)

	switch {
	case hasHistory && rawText != "":
		return "Initial requirement: " + rawText + "\n\n" + formatted, true
	case hasHistory:
		return formatted, true
	default:
		return rawText, false
	}
}

// FormatHistory renders turns in order, truncating long AI replies.
func (b *ContextBuilder) FormatHistory(history History) string {
	if len(history) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(historyHeader)
	for i, turn := range history {
		if !turn.Valid() {
			b.logger.Warn("skipping malformed conversation turn",
				zap.Int("turn", i+1),
				zap.String("reason", turn.malformed),
			)
			continue
		}

		fmt.Fprintf(&sb, "Turn %d:\n", i+1)
		fmt.Fprintf(&sb, "User: %s\n", turn.User)

		if reply, truncated := b.TruncateReply(turn.AI); truncated {
			fmt.Fprintf(&sb, "AI: %s\n", reply)
			fmt.Fprintf(&sb, "(original reply was %d characters and has been shortened)\n", utf8.RuneCountInString(turn.AI))
		} else {
			fmt.Fprintf(&sb, "AI: %s\n", turn.AI)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// TruncateReply keeps the head and tail of a reply longer than the threshold and
// replaces the middle with an omission marker. Lengths are counted in characters.
func (b *ContextBuilder) TruncateReply(reply string) (string, bool) {
	n := utf8.RuneCountInString(reply)
	if n <= b.SummaryThreshold {
		return reply, false
	}

	keep := b.SummaryKeep
	if keep <= 0 {
		keep = DefaultSummaryKeep
	}
	if 2*keep >= n {
		return reply, false
	}

	runes := []rune(reply)
	return string(runes[:keep]) + OmissionMarker(n-2*keep) + string(runes[n-keep:]), true
}

// OmissionMarker is the text that replaces the middle of a truncated reply.
func OmissionMarker(omitted int) string {
	return fmt.Sprintf("...[omitted ~%d chars]...", omitted)
}
