package responder

import (
	"math/rand"
	"strings"
)

// RuleSet produces canned Hindi replies for common phrases. It backs the
// assistant whenever the remote generator is unreachable, and the
// response_generation recovery strategy uses it as its canary.
type RuleSet struct{}

var greetingReplies = map[string]string{
	"नमस्ते":  "नमस्ते! मैं आपका हिंदी AI सहायक हूं। आप कैसे हैं?",
	"नमस्कार": "नमस्कार! आपका स्वागत है।",
	"हैलो":    "हैलो! मैं आपकी सहायता के लिए यहां हूं।",
	"hello":   "नमस्ते! मैं हिंदी में बात कर सकता हूं।",
}

var (
	howAreYouPatterns = []string{"कैसे हैं", "कैसे हो", "कैसी हो", "कैसा है", "how are you"}
	thankPatterns     = []string{"धन्यवाद", "शुक्रिया", "thank you", "thanks"}
	goodbyePatterns   = []string{"अलविदा", "bye", "goodbye", "टाटा"}
	namePatterns      = []string{"मेरा नाम", "मैं हूं", "my name is"}
	helpPatterns      = []string{"मदद", "सहायता", "help"}
	weatherPatterns   = []string{"मौसम", "weather"}
)

func containsAny(input string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(input, p) {
			return true
		}
	}
	return false
}

// Respond returns a canned reply for input, or "" when nothing matches.
func (RuleSet) Respond(input string) string {
	input = strings.ToLower(strings.TrimSpace(input))

	for pattern, reply := range greetingReplies {
		if strings.Contains(input, pattern) {
			return reply
		}
	}

	switch {
	case containsAny(input, howAreYouPatterns):
		return "मैं ठीक हूं, धन्यवाद! आप कैसे हैं?"
	case containsAny(input, thankPatterns):
		return "आपका स्वागत है! क्या मैं और कुछ मदद कर सकता हूं?"
	case containsAny(input, goodbyePatterns):
		return "अलविदा! फिर मिलते हैं।"
	case containsAny(input, namePatterns):
		return "खुशी हुई आपसे मिलकर! मैं आपका AI सहायक हूं।"
	case containsAny(input, helpPatterns):
		return "मैं आपकी हिंदी में बातचीत करने में मदद कर सकता हूं। कुछ पूछिए!"
	case containsAny(input, weatherPatterns):
		return "मुझे मौसम की जानकारी नहीं है, लेकिन मैं आपसे बातचीत कर सकता हूं।"
	}

	return ""
}

// emergencyReplies are the last resort when both the remote generator and
// the rule set come up empty.
var emergencyReplies = []string{
	"क्षमा करें, मुझे आपकी बात समझ नहीं आई। कृपया दोबारा कहिए।",
	"मैं अभी ठीक से जवाब नहीं दे पा रहा हूं। थोड़ी देर बाद कोशिश कीजिए।",
	"कुछ तकनीकी समस्या है, लेकिन मैं आपकी बात सुन रहा हूं।",
}

// Emergency returns a generic fallback reply.
func Emergency() string {
	return emergencyReplies[rand.Intn(len(emergencyReplies))]
}
