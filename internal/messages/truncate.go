package messages

import (
	"encoding/json"

	"gatewire/internal/core"
)

// Truncation strategies.
const (
	StrategyTail   = "tail"
	StrategyHead   = "head"
	StrategyMiddle = "middle"
)

// Truncate drops messages when the serialized conversation is longer than
// maxTokens characters. tail keeps the newest half, head the oldest half and
// middle a maxTokens/2 wide window around the midpoint. Unknown strategies
// behave like tail. The result always shares no backing array with msgs.
func Truncate(msgs []core.Message, maxTokens int, strategy string) []core.Message {
	if maxTokens <= 0 || serializedLength(msgs) <= maxTokens {
		return append([]core.Message(nil), msgs...)
	}

	n := len(msgs)
	half := max(n/2, 1)

	var kept []core.Message
	switch strategy {
	case StrategyHead:
		kept = msgs[:half]
	case StrategyMiddle:
		width := max(maxTokens/2, 1)
		start := max(n/2-width/2, 0)
		end := min(start+width, n)
		kept = msgs[start:end]
	default:
		kept = msgs[n-half:]
	}
	return append([]core.Message(nil), kept...)
}

func serializedLength(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		if m.Content.IsText() {
			total += len(m.Content.String())
			continue
		}
		if raw, err := json.Marshal(m.Content); err == nil {
			total += len(raw)
		}
	}
	return total
}
