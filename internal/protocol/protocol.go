// Package protocol defines the JSON values exchanged over the wire between
// kvs-client and kvs-server: one Command per request, one Response per
// reply, both externally tagged the same way the on-disk mutation records
// are (internal/engine.record) — exactly one field set per value, no
// separators needed because encoding/json's Decoder consumes one value at a
// time from the stream.
package protocol

import "encoding/json"

// Command is a single client request. Exactly one of Set, Get, or Rm is
// non-nil.
type Command struct {
	Set *SetCommand `json:"Set,omitempty"`
	Get *GetCommand `json:"Get,omitempty"`
	Rm  *RmCommand  `json:"Rm,omitempty"`
}

type SetCommand struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type GetCommand struct {
	Key string `json:"key"`
}

type RmCommand struct {
	Key string `json:"key"`
}

// NewSetCommand builds a Command requesting key be set to value.
func NewSetCommand(key, value string) Command {
	return Command{Set: &SetCommand{Key: key, Value: value}}
}

// NewGetCommand builds a Command requesting key's current value.
func NewGetCommand(key string) Command {
	return Command{Get: &GetCommand{Key: key}}
}

// NewRmCommand builds a Command requesting key be removed.
func NewRmCommand(key string) Command {
	return Command{Rm: &RmCommand{Key: key}}
}

// Encode returns cmd's wire encoding.
func (c Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// Response is a single server reply. It always carries exactly one of Ok or
// Err. Ok is reused across Set/Get/Rm: nil for Set/Rm's unit result, the
// string value for a successful Get. A successful response with no payload
// must still encode as {"Ok":null}, not omit the field entirely, so Response
// marshals itself rather than relying on struct tags.
type Response struct {
	ok    *string
	err   *string
	isErr bool
}

type wireOkResponse struct {
	Ok *string `json:"Ok"`
}

type wireErrResponse struct {
	Err string `json:"Err"`
}

// MarshalJSON encodes r as {"Ok":null|"value"} or {"Err":"message"}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.isErr {
		return json.Marshal(wireErrResponse{Err: *r.err})
	}
	return json.Marshal(wireOkResponse{Ok: r.ok})
}

// UnmarshalJSON decodes either wire shape into r.
func (r *Response) UnmarshalJSON(data []byte) error {
	var probe struct {
		Ok  *string `json:"Ok"`
		Err *string `json:"Err"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Err != nil {
		r.isErr = true
		r.err = probe.Err
		return nil
	}
	r.isErr = false
	r.ok = probe.Ok
	return nil
}

// KeyNotFoundMessage is the error string the wire protocol uses to signal
// both a Remove of an absent key and a Get that found nothing — per spec.md
// §6, a Get miss is reported as this same message rather than a distinct
// response shape.
const KeyNotFoundMessage = "Key not found"

// OkResponse builds a successful response with no payload (Set, Rm).
func OkResponse() Response {
	return Response{}
}

// OkValueResponse builds a successful Get response carrying value.
func OkValueResponse(value string) Response {
	return Response{ok: &value}
}

// ErrResponse builds a failure response carrying msg.
func ErrResponse(msg string) Response {
	return Response{isErr: true, err: &msg}
}

// Encode returns r's wire encoding.
func (r Response) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// IsOk reports whether r represents success.
func (r Response) IsOk() bool {
	return !r.isErr
}

// Value returns the payload of a successful Get response and whether one
// was present.
func (r Response) Value() (string, bool) {
	if r.isErr || r.ok == nil {
		return "", false
	}
	return *r.ok, true
}

// ErrorMessage returns r's error message and whether r represents a failure.
func (r Response) ErrorMessage() (string, bool) {
	if !r.isErr {
		return "", false
	}
	return *r.err, true
}
