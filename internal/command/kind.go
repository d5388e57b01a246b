// SPDX-License-Identifier: MPL-2.0

package command

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// Operation kinds understood by every owner.
const (
	KindPing             Kind = "ping"
	KindNavigate         Kind = "navigate"
	KindLoadHTML         Kind = "load_html"
	KindEvaluateScript   Kind = "evaluate_script"
	KindGetTitle         Kind = "get_title"
	KindSetTitle         Kind = "set_title"
	KindResize           Kind = "resize"
	KindGetSize          Kind = "get_size"
	KindMinimize         Kind = "minimize"
	KindMaximize         Kind = "maximize"
	KindRestore          Kind = "restore"
	KindSetMaximized     Kind = "set_maximized"
	KindToggleFullscreen Kind = "toggle_fullscreen"
	KindPickFiles        Kind = "pick_files"
	KindSaveFile         Kind = "save_file"
	KindDestroy          Kind = "destroy"
)

type (
	// Kind identifies one operation in the closed catalog.
	Kind string

	// Shape describes the payload and result shape of a Kind. A nil type means
	// the kind carries no payload (or produces no result).
	Shape struct {
		Kind        Kind
		PayloadType reflect.Type
		ResultType  reflect.Type
	}

	// validator is implemented by payloads with constraints beyond their type.
	validator interface {
		Validate() error
	}
)

var catalog = map[Kind]Shape{
	KindPing:             {Kind: KindPing, ResultType: reflect.TypeFor[bool]()},
	KindNavigate:         {Kind: KindNavigate, PayloadType: reflect.TypeFor[NavigatePayload]()},
	KindLoadHTML:         {Kind: KindLoadHTML, PayloadType: reflect.TypeFor[LoadHTMLPayload]()},
	KindEvaluateScript:   {Kind: KindEvaluateScript, PayloadType: reflect.TypeFor[EvaluateScriptPayload](), ResultType: reflect.TypeFor[any]()},
	KindGetTitle:         {Kind: KindGetTitle, ResultType: reflect.TypeFor[string]()},
	KindSetTitle:         {Kind: KindSetTitle, PayloadType: reflect.TypeFor[SetTitlePayload]()},
	KindResize:           {Kind: KindResize, PayloadType: reflect.TypeFor[ResizePayload]()},
	KindGetSize:          {Kind: KindGetSize, ResultType: reflect.TypeFor[Size]()},
	KindMinimize:         {Kind: KindMinimize},
	KindMaximize:         {Kind: KindMaximize},
	KindRestore:          {Kind: KindRestore},
	KindSetMaximized:     {Kind: KindSetMaximized, PayloadType: reflect.TypeFor[SetMaximizedPayload]()},
	KindToggleFullscreen: {Kind: KindToggleFullscreen},
	KindPickFiles:        {Kind: KindPickFiles, PayloadType: reflect.TypeFor[PickFilesPayload](), ResultType: reflect.TypeFor[[]string]()},
	KindSaveFile:         {Kind: KindSaveFile, PayloadType: reflect.TypeFor[SaveFilePayload](), ResultType: reflect.TypeFor[bool]()},
	KindDestroy:          {Kind: KindDestroy},
}

// String returns the wire name of the kind.
func (k Kind) String() string { return string(k) }

// Validate returns nil if the Kind is part of the catalog, or an
// *UnsupportedKindError otherwise.
func (k Kind) Validate() error {
	if _, ok := catalog[k]; !ok {
		return &UnsupportedKindError{Value: k}
	}
	return nil
}

// Lookup returns the Shape for k.
func Lookup(k Kind) (Shape, bool) {
	s, ok := catalog[k]
	return s, ok
}

// Kinds returns every kind in the catalog, sorted by name.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(catalog))
	for k := range catalog {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// CheckPayload verifies that payload has the type registered for the kind and
// satisfies its constraints. Pointers to the registered type are accepted and
// dereferenced; the normalized payload is returned.
func (s Shape) CheckPayload(payload any) (any, error) {
	if s.PayloadType == nil {
		if payload != nil {
			return nil, &InvalidPayloadError{Kind: s.Kind, Reason: fmt.Sprintf("takes no payload, got %T", payload)}
		}
		return nil, nil
	}
	if payload == nil {
		return nil, &InvalidPayloadError{Kind: s.Kind, Reason: "missing payload of type " + s.PayloadType.String()}
	}

	v := reflect.ValueOf(payload)
	if v.Kind() == reflect.Pointer && v.Type().Elem() == s.PayloadType {
		if v.IsNil() {
			return nil, &InvalidPayloadError{Kind: s.Kind, Reason: "nil payload pointer"}
		}
		v = v.Elem()
	}
	if v.Type() != s.PayloadType {
		return nil, &InvalidPayloadError{Kind: s.Kind, Reason: fmt.Sprintf("want %s, got %T", s.PayloadType, payload)}
	}

	normalized := v.Interface()
	if val, ok := normalized.(validator); ok {
		if err := val.Validate(); err != nil {
			return nil, &InvalidPayloadError{Kind: s.Kind, Reason: err.Error()}
		}
	}
	return normalized, nil
}

// DecodePayload decodes raw JSON into the kind's payload type.
func (s Shape) DecodePayload(raw json.RawMessage) (any, error) {
	if s.PayloadType == nil {
		return nil, nil
	}
	ptr := reflect.New(s.PayloadType)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return nil, &InvalidPayloadError{Kind: s.Kind, Reason: err.Error()}
		}
	}
	return s.CheckPayload(ptr.Elem().Interface())
}

// DecodeResult decodes raw JSON into the kind's result type. Kinds without a
// result decode to nil.
func (s Shape) DecodeResult(raw json.RawMessage) (any, error) {
	if s.ResultType == nil || len(raw) == 0 {
		return nil, nil
	}
	ptr := reflect.New(s.ResultType)
	if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", s.Kind, err)
	}
	return ptr.Elem().Interface(), nil
}
