package status

import (
	"encoding/hex"
	"strings"
)

// Device families that embed the sent AT command hex-encoded inside the
// binary message field. Every other device type carries the command in
// clear text.
var embeddingDeviceTypes = map[string]struct{}{
	"BSFlex":      {},
	"BSMax":       {},
	"BeeLabel":    {},
	"BeeAssetFit": {},
}

// Offsets of the embedded command inside the binary message: the command hex
// starts at byte 38 and the last 4 bytes are a checksum/terminator. Messages
// shorter than 43 characters cannot carry a command.
const (
	atCommandStart     = 38
	atCommandTailSkip  = 4
	atCommandMinLength = 43
)

const noCommandFound = "No AT command found"

// ExtractCommand recovers the human-readable command from a raw command
// record message. For device types that do not embed a hex command the
// message is returned unchanged, even if it looks hex-like. Decode failures
// never fail the row; the raw hex slice is returned instead.
func ExtractCommand(msg, deviceType string) string {
	if msg == "" || msg == "N/A" {
		return "N/A"
	}
	if _, embeds := embeddingDeviceTypes[deviceType]; !embeds {
		return msg
	}
	if len(msg) < atCommandMinLength {
		return noCommandFound
	}

	commandHex := msg[atCommandStart : len(msg)-atCommandTailSkip]
	if len(commandHex)%2 != 0 {
		commandHex = commandHex[:len(commandHex)-1]
	}

	decoded, err := hex.DecodeString(commandHex)
	if err != nil || !isASCII(decoded) {
		return commandHex
	}
	text := string(decoded)
	if hasATPrefix(text) || strings.Contains(text, "=") {
		return text
	}
	return commandHex
}

func hasATPrefix(text string) bool {
	return len(text) >= 3 && strings.EqualFold(text[:3], "AT+")
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7f {
			return false
		}
	}
	return true
}
