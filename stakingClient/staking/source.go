package staking

import (
	"encoding/json"
)

// SourceState tells whether a fetched value is still loading, known to be
// absent, or present.
type SourceState int

const (
	StateLoading SourceState = iota
	StateEmpty
	StateLoaded
)

func (s SourceState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	default:
		return "loading"
	}
}

// Source holds a value fetched from the chain or the metadata store.
// The zero value is loading.
type Source[T any] struct {
	state SourceState
	value T
}

func Loading[T any]() Source[T] { return Source[T]{} }

func Empty[T any]() Source[T] { return Source[T]{state: StateEmpty} }

func Loaded[T any](v T) Source[T] { return Source[T]{state: StateLoaded, value: v} }

func (s Source[T]) State() SourceState { return s.state }

func (s Source[T]) IsLoading() bool { return s.state == StateLoading }

func (s Source[T]) IsLoaded() bool { return s.state == StateLoaded }

// Get returns the value and whether it is loaded.
func (s Source[T]) Get() (T, bool) {
	return s.value, s.state == StateLoaded
}

// OrElse returns the value if loaded, otherwise def.
func (s Source[T]) OrElse(def T) T {
	if s.state == StateLoaded {
		return s.value
	}
	return def
}

type sourceJSON[T any] struct {
	State string `json:"state"`
	Value *T     `json:"value,omitempty"`
}

func (s Source[T]) MarshalJSON() ([]byte, error) {
	out := sourceJSON[T]{State: s.state.String()}
	if s.state == StateLoaded {
		v := s.value
		out.Value = &v
	}
	return json.Marshal(out)
}

func (s *Source[T]) UnmarshalJSON(data []byte) error {
	var in sourceJSON[T]
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.State {
	case "loaded":
		var v T
		if in.Value != nil {
			v = *in.Value
		}
		*s = Loaded(v)
	case "empty":
		*s = Empty[T]()
	default:
		*s = Loading[T]()
	}
	return nil
}
