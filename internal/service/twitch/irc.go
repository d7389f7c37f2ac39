package twitch

import (
	"fmt"
	"strings"
)

// ircMessage is a single parsed IRC line:
// [@tags ][:prefix ]COMMAND [params][ :trailing]
type ircMessage struct {
	Tags     map[string]string
	Prefix   string
	Command  string
	Params   []string
	Trailing string
}

// Nick extracts the sender nickname from the prefix (":nick!user@host").
// A missing prefix yields the sentinel "system".
func (m *ircMessage) Nick() string {
	if m.Prefix == "" {
		return "system"
	}
	if i := strings.IndexByte(m.Prefix, '!'); i > 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// parseLine parses one IRC line. Tags and prefix are optional; the command is
// not.
func parseLine(line string) (*ircMessage, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("empty line")
	}

	msg := &ircMessage{}

	if strings.HasPrefix(line, "@") {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return nil, fmt.Errorf("malformed tags: %q", line)
		}
		msg.Tags = parseTags(line[1:i])
		line = strings.TrimLeft(line[i+1:], " ")
	}

	if strings.HasPrefix(line, ":") {
		i := strings.IndexByte(line, ' ')
		if i < 0 {
			return nil, fmt.Errorf("prefix without command: %q", line)
		}
		msg.Prefix = line[1:i]
		line = strings.TrimLeft(line[i+1:], " ")
	}

	if i := strings.Index(line, " :"); i >= 0 {
		msg.Trailing = line[i+2:]
		line = line[:i]
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, fmt.Errorf("missing command")
	}
	msg.Command = fields[0]
	msg.Params = fields[1:]
	return msg, nil
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		if i := strings.IndexByte(kv, '='); i >= 0 {
			tags[kv[:i]] = unescapeTagValue(kv[i+1:])
		} else {
			tags[kv] = ""
		}
	}
	return tags
}

// unescapeTagValue reverses IRCv3 tag value escaping.
func unescapeTagValue(v string) string {
	if !strings.ContainsRune(v, '\\') {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' || i == len(v)-1 {
			b.WriteByte(v[i])
			continue
		}
		i++
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}
