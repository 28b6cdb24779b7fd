package emoji

// emojiMap holds [emoji, fallback] pairs
var emojiMap = map[string][2]string{
	"error":    {"❌", "[ERR]"},
	"warning":  {"⚠️", "[WRN]"},
	"box":      {"📦", "[BOX]"},
	"info":     {"ℹ️", "[INF]"},
	"fatal":    {"💥", "[FATAL]"},
	"success":  {"✅", "[OK]"},
	"file":     {"📄", "[FILE]"},
	"include":  {"📎", "[INC]"},
	"tool":     {"🔧", "[RUN]"},
	"driver":   {"🔁", "[MK]"},
	"pass":     {"🔢", "[#]"},
	"summary":  {"📊", "[STATS]"},
	"viewer":   {"👀", "[VIEW]"},
	"watch":    {"👁️", "[WATCH]"},
	"clean":    {"🧹", "[CLEAN]"},
	"help":     {"❓", "[?]"},
	"door":     {"🚪", "[EXIT]"},
	"document": {"📝", "[TEX]"},
}

var emojiDisabled bool

// SetEmojiDisabled switches every lookup to the bracket fallbacks
func SetEmojiDisabled(disabled bool) {
	emojiDisabled = disabled
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if emojiDisabled {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}
