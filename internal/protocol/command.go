package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Credentials reports the credential to inject into non-login commands.
// ok is false until the session has completed its login handshake.
type Credentials interface {
	ActiveCredential() (token string, ok bool)
}

// Command is a single user-issued message. Treat it as immutable: the codec
// copies Payload before injecting the credential.
type Command struct {
	Kind    string
	Payload map[string]any
}

// IsLogin reports whether the command is the login handshake.
func (c Command) IsLogin() bool {
	return strings.EqualFold(c.Kind, KindLogin)
}

// clonePayload returns a shallow copy of the payload, never nil.
func (c Command) clonePayload() map[string]any {
	out := make(map[string]any, len(c.Payload)+1)
	for k, v := range c.Payload {
		out[k] = v
	}
	return out
}

// LoginCommand builds the handshake command for the given player.
func LoginCommand(username, soulID string) Command {
	return Command{
		Kind: KindLogin,
		Payload: map[string]any{
			UsernameKey: username,
			SoulIDKey:   soulID,
		},
	}
}

// ParseCommand parses a line of the form "<Kind> [<JSON object>]".
//
// Postcondition: Returns a Command with a non-empty Kind and non-nil Payload,
// or an error wrapping ErrMalformedCommand.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, fmt.Errorf("%w: missing type, expected %s", ErrMalformedCommand, CommandFormat)
	}

	kind, rest := line, ""
	if idx := strings.IndexFunc(line, unicode.IsSpace); idx >= 0 {
		kind, rest = line[:idx], strings.TrimSpace(line[idx+1:])
	}

	payload := map[string]any{}
	if rest != "" {
		obj, err := decodeObject([]byte(rest))
		if err != nil {
			return Command{}, fmt.Errorf("%w: %v, expected %s", ErrMalformedCommand, err, CommandFormat)
		}
		payload = obj
	}
	return Command{Kind: kind, Payload: payload}, nil
}

// EncodeCommand serializes cmd to its canonical wire form
// {"type": Kind, "payload": {...}}. Non-login commands get the active
// credential under soul_id, overriding any caller-supplied value.
func EncodeCommand(cmd Command, creds Credentials) ([]byte, error) {
	if strings.TrimSpace(cmd.Kind) == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedCommand)
	}

	payload := cmd.clonePayload()
	if !cmd.IsLogin() {
		token, ok := "", false
		if creds != nil {
			token, ok = creds.ActiveCredential()
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s requires a logged-in session", ErrNotAuthenticated, cmd.Kind)
		}
		payload[SoulIDKey] = token
	}

	out, err := Marshal(cmd.Kind, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	return out, nil
}

// Encode parses a raw command line and encodes it for the given session.
func Encode(line string, creds Credentials) ([]byte, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return nil, err
	}
	return EncodeCommand(cmd, creds)
}

// decodeObject decodes exactly one JSON object, keeping numbers verbatim.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("payload must be a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after payload")
	}
	return obj, nil
}
