package localgen

// Built-in vocabularies. Keys are lowercase; lookups normalize the request
// field before matching. Unknown keys fall back to the default theme pool
// with a confidence penalty.

var themeEmojis = map[string][]string{
	"nature":      {"🌿", "🌸", "🍃", "🌻", "🌲", "🍀", "🌷", "🪴"},
	"ocean":       {"🌊", "🐚", "🐬", "🐠", "🦀", "⚓", "🐙", "🪸"},
	"space":       {"🌟", "🚀", "🪐", "🌙", "☄️", "✨", "🛸", "🌌"},
	"food":        {"🍎", "🍞", "🧀", "🍇", "🍰", "🍜", "🍓", "🥐"},
	"weather":     {"☀️", "🌧️", "⛅", "🌈", "❄️", "🌪️", "⛈️", "🌤️"},
	"animals":     {"🐶", "🐱", "🦊", "🐼", "🦁", "🐸", "🦉", "🐰"},
	"celebration": {"🎉", "🎊", "🎈", "🎁", "🥳", "🎂", "🪅", "🎆"},
	"travel":      {"✈️", "🗺️", "🏔️", "🏖️", "🚂", "🧳", "🗽", "⛺"},
	"music":       {"🎵", "🎶", "🎸", "🎹", "🥁", "🎻", "🎤", "🎷"},
	"garden":      {"🌱", "🌺", "🦋", "🐝", "🌼", "🍄", "🪻", "🐞"},
}

var emotionEmojis = map[string][]string{
	"happy":    {"😊", "🌞", "💛", "✨"},
	"calm":     {"🌊", "🕊️", "💙", "🌙"},
	"excited":  {"🎉", "⚡", "🔥", "🤩"},
	"cozy":     {"🕯️", "☕", "🧣", "🏠"},
	"playful":  {"🎈", "🐾", "🌈", "😄"},
	"peaceful": {"🍃", "🌸", "🤍", "🌅"},
}

var colorEmojis = map[string][]string{
	"red":    {"🍎", "🌹", "❤️", "🍓"},
	"blue":   {"💙", "🌊", "🦋", "🫐"},
	"green":  {"🌿", "🍀", "💚", "🐸"},
	"yellow": {"🌻", "⭐", "💛", "🍋"},
	"purple": {"💜", "🍇", "🔮", "🪻"},
	"pink":   {"🌸", "💗", "🌷", "🦩"},
	"orange": {"🍊", "🦊", "🧡", "🎃"},
	"white":  {"🤍", "🕊️", "☁️", "❄️"},
}

// defaultTheme is used when the request names no theme or an unknown one.
const defaultTheme = "nature"
