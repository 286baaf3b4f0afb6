// Package protocol implements the client side of the VinnyVerse wire format:
// typed command envelopes going out and world snapshots coming in.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Message kinds the game server is known to accept. The codec does not restrict
// commands to this set; it is used for help text and the fake server.
const (
	KindLogin        = "Login"
	KindBuild        = "Build"
	KindActivate     = "Activate"
	KindGenerateSoul = "GenerateSoul"
	KindMountSoul    = "MountSoul"
	KindNameSoul     = "NameSoul"
	KindDismountSoul = "DismountSoul"
	KindUpdateBrain  = "UpdateBrain"
	KindReadBrain    = "ReadBrain"
)

// KnownKinds lists every verb observed on the server, login first.
func KnownKinds() []string {
	return []string{
		KindLogin, KindBuild, KindActivate,
		KindGenerateSoul, KindMountSoul, KindNameSoul, KindDismountSoul,
		KindUpdateBrain, KindReadBrain,
	}
}

// SoulIDKey is the payload key carrying the soul id on login and the session
// credential on every other command.
const SoulIDKey = "soul_id"

// UsernameKey is the payload key carrying the username on login.
const UsernameKey = "username"

// Envelope wraps every outbound message with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Marshal encodes a typed message into a JSON envelope.
func Marshal(kind string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: kind, Payload: raw})
}

// Unmarshal decodes a JSON envelope. Callers switch on env.Type and then
// decode env.Payload into whatever shape that kind carries.
func Unmarshal(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, err
	}
	if env.Type == "" {
		return Envelope{}, errors.New("envelope has no type")
	}
	return env, nil
}

// DecodePayload decodes an envelope payload into a generic JSON object,
// keeping numbers as json.Number.
func DecodePayload(raw json.RawMessage) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]any{}, nil
	}
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return obj, nil
}
