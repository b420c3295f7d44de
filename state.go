package gotable

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
)

// State is the view configuration of a table: visible columns, sort
// specification and filter payload.
type State struct {
	Visible []string       `json:"visible" yaml:"visible"`
	SortBy  string         `json:"sort_by" yaml:"sort_by"`
	Filter  map[string]any `json:"filter" yaml:"filter"`
}

// Clone returns a copy of the state. The filter values are shared.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	ret := &State{
		Visible: slices.Clone(s.Visible),
		SortBy:  s.SortBy,
		Filter:  make(map[string]any, len(s.Filter)),
	}
	for k, v := range s.Filter {
		ret.Filter[k] = v
	}

	return ret
}

// stateDecoder decodes a state blob, reporting false when it cannot.
type stateDecoder func(data []byte) (*State, bool)

// _stateDecoders are tried in order. Gob records are the current encoding,
// JSON and YAML documents were written by earlier releases.
var _stateDecoders = []stateDecoder{
	decodeStateGob,
	decodeStateJSON,
	decodeStateYAML,
}

// _gobMagic prefixes gob records. A NUL byte never starts a JSON or YAML
// document.
var _gobMagic = []byte("\x00gob1")

// stateRecord is the gob form of State. Gob drops empty slices and maps, so
// an explicitly empty visible list is flagged.
type stateRecord struct {
	Visible    []string
	VisibleSet bool
	SortBy     string
	Filter     map[string]any
}

func init() {
	for _, value := range []any{
		map[string]any{},
		[]any{},
		time.Time{},
		[]time.Time{},
	} {
		RegisterStateValue(value)
	}
}

// RegisterStateValue registers the type of value for filter payloads. Basic
// types, their slices and maps of strings are registered already. States
// carrying unregistered types are stored as JSON, losing the Go types.
func RegisterStateValue(value any) {
	gob.Register(value)
}

// DumpState encodes the state as a hex encoded gob record. Filter values of
// unregistered types fall back to a JSON document.
func DumpState(state *State) (string, error) {
	data, err := encodeState(state)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(data), nil
}

func encodeState(state *State) ([]byte, error) {
	if state == nil {
		state = &State{}
	}

	rec := stateRecord{
		Visible:    state.Visible,
		VisibleSet: state.Visible != nil,
		SortBy:     state.SortBy,
		Filter:     state.Filter,
	}

	buf := bytes.NewBuffer(slices.Clone(_gobMagic))
	if err := gob.NewEncoder(buf).Encode(&rec); err == nil {
		return buf.Bytes(), nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}

	return data, nil
}

// LoadState decodes a blob written by DumpState or by an earlier release.
// Blobs that cannot be decoded yield nil, they are never an error.
func LoadState(dump string) *State {
	data, err := hex.DecodeString(dump)
	if err != nil {
		return nil
	}

	for _, decode := range _stateDecoders {
		if state, ok := decode(data); ok {
			return state
		}
	}

	return nil
}

func decodeStateGob(data []byte) (*State, bool) {
	payload, ok := bytes.CutPrefix(data, _gobMagic)
	if !ok {
		return nil, false
	}

	var rec stateRecord
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&rec); err != nil {
		return nil, false
	}

	state := &State{Visible: rec.Visible, SortBy: rec.SortBy, Filter: rec.Filter}
	if rec.VisibleSet && state.Visible == nil {
		state.Visible = []string{}
	}
	if state.Filter == nil {
		state.Filter = map[string]any{}
	}

	return state, true
}

func decodeStateJSON(data []byte) (*State, bool) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	return stateFromDocument(doc)
}

func decodeStateYAML(data []byte) (*State, bool) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, false
	}

	return stateFromDocument(doc)
}

// stateFromDocument reads a decoded document. Fields of the wrong shape are
// dropped; a filter that is not a mapping, as stored by old releases, is
// read as an empty filter.
func stateFromDocument(doc map[string]any) (*State, bool) {
	if doc == nil {
		return nil, false
	}

	state := &State{Filter: map[string]any{}}

	if visible, ok := doc["visible"].([]any); ok {
		state.Visible = make([]string, 0, len(visible))
		for _, key := range visible {
			if s, ok := key.(string); ok {
				state.Visible = append(state.Visible, s)
			}
		}
	}

	if sortBy, ok := doc["sort_by"].(string); ok {
		state.SortBy = sortBy
	}

	switch filter := doc["filter"].(type) {
	case map[string]any:
		state.Filter = filter
	case map[any]any:
		for k, v := range filter {
			state.Filter[fmt.Sprint(k)] = v
		}
	}

	return state, true
}

// encodeSessionState encodes the state kept in the session. It is the
// DumpState encoding, so filter values keep their types across requests.
func encodeSessionState(state *State) (string, error) {
	return DumpState(state)
}

// decodeSessionState decodes the state kept in the session, nil when it
// cannot be read.
func decodeSessionState(value string) *State {
	return LoadState(value)
}
