package twitch

import "testing"

func TestParsePrivmsgWithTags(t *testing.T) {
	line := "@badge-info=;id=abc-123;mod=0 :somenick!somenick@somenick.tmi.twitch.tv PRIVMSG #general :hello there"
	msg, err := parseLine(line)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Command != "PRIVMSG" {
		t.Fatalf("command = %q", msg.Command)
	}
	if msg.Nick() != "somenick" {
		t.Fatalf("nick = %q", msg.Nick())
	}
	if len(msg.Params) != 1 || msg.Params[0] != "#general" {
		t.Fatalf("params = %v", msg.Params)
	}
	if msg.Trailing != "hello there" {
		t.Fatalf("trailing = %q", msg.Trailing)
	}
	if msg.Tags["id"] != "abc-123" {
		t.Fatalf("tag id = %q", msg.Tags["id"])
	}
}

func TestParseWithoutTags(t *testing.T) {
	msg, err := parseLine(":nick!u@h PRIVMSG #chan :text body")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Tags != nil {
		t.Fatalf("expected no tags, got %v", msg.Tags)
	}
	if msg.Nick() != "nick" || msg.Trailing != "text body" {
		t.Fatalf("unexpected %+v", msg)
	}
}

func TestParseWithoutPrefixDefaultsToSystem(t *testing.T) {
	msg, err := parseLine("PING :tmi.twitch.tv")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Command != "PING" {
		t.Fatalf("command = %q", msg.Command)
	}
	if msg.Nick() != "system" {
		t.Fatalf("nick = %q, want system", msg.Nick())
	}
	if msg.Trailing != "tmi.twitch.tv" {
		t.Fatalf("trailing = %q", msg.Trailing)
	}
}

func TestParseJoin(t *testing.T) {
	msg, err := parseLine(":nick!u@h JOIN #general")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Command != "JOIN" || msg.Params[0] != "#general" {
		t.Fatalf("unexpected %+v", msg)
	}
}

func TestParseEscapedTagValue(t *testing.T) {
	msg, err := parseLine("@display-name=Some\\sOne;flags= :n!u@h PRIVMSG #c :hi")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Tags["display-name"] != "Some One" {
		t.Fatalf("display-name = %q", msg.Tags["display-name"])
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "\r\n", ":prefixonly"} {
		if _, err := parseLine(line); err == nil {
			t.Fatalf("expected error for %q", line)
		}
	}
}

func TestPrefixWithoutBang(t *testing.T) {
	msg, err := parseLine(":tmi.twitch.tv 001 nick :Welcome, GLHF!")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if msg.Nick() != "tmi.twitch.tv" {
		t.Fatalf("nick = %q", msg.Nick())
	}
	if msg.Command != "001" {
		t.Fatalf("command = %q", msg.Command)
	}
}
