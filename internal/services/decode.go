package services

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/isdelr/jackie/internal/database"
	"github.com/isdelr/jackie/internal/models"
	"github.com/valyala/fastjson"
)

// Row decoding is strict: every required field must be present with its exact
// JSON type, otherwise the row is rejected as a whole.

func parseRow(p *fastjson.Parser, raw []byte) (*fastjson.Value, error) {
	if !utf8.Valid(raw) {
		return nil, errors.New("row is not valid UTF-8")
	}
	v, err := p.ParseBytes(raw)
	if err != nil {
		return nil, err
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("row is a JSON %s, want object", v.Type())
	}
	return v, nil
}

// decodeEventResult decodes the bucket-named envelope of a `SELECT *` row.
func decodeEventResult(p *fastjson.Parser, raw []byte) (models.EventResult, error) {
	var r models.EventResult
	v, err := parseRow(p, raw)
	if err != nil {
		return r, err
	}
	doc, err := objectField(v, database.BucketName)
	if err != nil {
		return r, err
	}
	r.Events, err = decodeEvent(doc)
	return r, err
}

// decodeEventRow decodes a `SELECT *` row and discards the envelope.
func decodeEventRow(p *fastjson.Parser, raw []byte) (models.Event, error) {
	r, err := decodeEventResult(p, raw)
	if err != nil {
		return models.Event{}, err
	}
	return r.Events, nil
}

func decodeEvent(v *fastjson.Value) (models.Event, error) {
	var (
		e   models.Event
		err error
	)
	cons, err := objectField(v, "consistency")
	if err != nil {
		return e, err
	}
	if e.Consistency.Key, err = stringField(cons, "key"); err != nil {
		return e, fmt.Errorf("consistency: %w", err)
	}
	if e.Consistency.Value, err = uintField(cons, "value"); err != nil {
		return e, fmt.Errorf("consistency: %w", err)
	}
	if e.CorrelationID, err = uintField(v, "correlation_id"); err != nil {
		return e, err
	}
	if e.EventType, err = stringField(v, "event_type"); err != nil {
		return e, err
	}
	if e.Sender, err = stringField(v, "sender"); err != nil {
		return e, err
	}
	if e.Timestamp, err = stringField(v, "timestamp"); err != nil {
		return e, err
	}

	if f := optionalField(v, "message_type"); f != nil {
		b, err := f.StringBytes()
		if err != nil {
			return e, fmt.Errorf("field %q: %w", "message_type", err)
		}
		s := string(b)
		e.MessageType = &s
	}
	if f := optionalField(v, "session_id"); f != nil {
		n, err := f.Uint64()
		if err != nil {
			return e, fmt.Errorf("field %q: %w", "session_id", err)
		}
		e.SessionID = &n
	}
	if f := optionalField(v, "timestamp_raw"); f != nil {
		n, err := f.Int64()
		if err != nil {
			return e, fmt.Errorf("field %q: %w", "timestamp_raw", err)
		}
		e.TimestampRaw = &n
	}
	return e, nil
}

func decodeAggregation(p *fastjson.Parser, raw []byte) (models.AggregationResult, error) {
	var (
		a   models.AggregationResult
		err error
	)
	v, err := parseRow(p, raw)
	if err != nil {
		return a, err
	}
	if a.EventType, err = stringField(v, "event_type"); err != nil {
		return a, err
	}
	if a.EventCount, err = intField(v, "event_count"); err != nil {
		return a, err
	}
	return a, nil
}

func requiredField(v *fastjson.Value, key string) (*fastjson.Value, error) {
	f := v.Get(key)
	if f == nil {
		return nil, fmt.Errorf("missing field %q", key)
	}
	return f, nil
}

// optionalField returns nil when key is absent or null.
func optionalField(v *fastjson.Value, key string) *fastjson.Value {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return nil
	}
	return f
}

func objectField(v *fastjson.Value, key string) (*fastjson.Value, error) {
	f, err := requiredField(v, key)
	if err != nil {
		return nil, err
	}
	if f.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("field %q is a JSON %s, want object", key, f.Type())
	}
	return f, nil
}

func stringField(v *fastjson.Value, key string) (string, error) {
	f, err := requiredField(v, key)
	if err != nil {
		return "", err
	}
	b, err := f.StringBytes()
	if err != nil {
		return "", fmt.Errorf("field %q: %w", key, err)
	}
	return string(b), nil
}

func uintField(v *fastjson.Value, key string) (uint64, error) {
	f, err := requiredField(v, key)
	if err != nil {
		return 0, err
	}
	n, err := f.Uint64()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}

func intField(v *fastjson.Value, key string) (int64, error) {
	f, err := requiredField(v, key)
	if err != nil {
		return 0, err
	}
	n, err := f.Int64()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return n, nil
}
