package telegram

import (
	"strings"

	"tradebot-go/internal/bot"
)

// ParseCommand tokenizes a message such as "/buy@MyTradeBot aapl 150.50" into
// bot.Command{Name: "buy", Args: ["aapl", "150.50"]}. It reports false for
// text that is not a bot command, and for commands addressed to a bot other
// than botUsername. An empty botUsername accepts any addressee.
func ParseCommand(text, botUsername string) (bot.Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return bot.Command{}, false
	}

	name := strings.TrimPrefix(fields[0], "/")
	// commands in group chats are addressed as /cmd@botname
	if at := strings.IndexByte(name, '@'); at >= 0 {
		addressee := name[at+1:]
		if botUsername != "" && !strings.EqualFold(addressee, strings.TrimPrefix(botUsername, "@")) {
			return bot.Command{}, false
		}
		name = name[:at]
	}
	if name == "" {
		return bot.Command{}, false
	}

	return bot.Command{
		Name: strings.ToLower(name),
		Args: fields[1:],
	}, true
}
