package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Root fields owned by the workflow itself. They change only through the
// dedicated operations (Touch, WithStep, MarkClosed), never through Update.
var guardedFields = map[string]struct{}{
	"id":            {},
	"schemaVersion": {},
	"version":       {},
	"role":          {},
	"status":        {},
	"createdAt":     {},
	"updatedAt":     {},
	"closedAt":      {},
}

// Fields written only by the workflow operations (signing, offer generation and
// payment, escrow progression, deposit confirmation). Update rejects them, their
// descendants and the containers holding them; the operations use Apply.
var workflowFields = []string{
	"signatures",
	"offer.generated",
	"offer.generatedAt",
	"offer.status",
	"offer.price",
	"offer.hasPaid",
	"offer.selectedPlan",
	"offer.paidAt",
	"offer.paymentRef",
	"offer.history",
	"escrow.status",
	"escrow.funded",
	"escrow.conditionsMet",
	"escrow.released",
	"depositVerification.confirmedByBuyer",
	"depositVerification.confirmedBySeller",
	"diligence.depositSent",
	"diligence.depositReceived",
}

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// Update returns a new transaction with the field at path set to value. It is
// the generic editor entry point: workflow-owned fields are rejected with
// ErrImmutableField.
//
// Every container on the path is shallow-copied and the rest of the record keeps
// its identity, so callers can detect changes by comparing pointers. The value may
// be of the field's exact type, a json.RawMessage, or anything that survives a JSON
// round trip into the field type (strings for enums, numbers for money).
func Update(tx *Transaction, path string, value any) (*Transaction, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	if owned := WorkflowOwned(path); owned != "" {
		return nil, fmt.Errorf("%w: %s is changed by its workflow operation", ErrImmutableField, owned)
	}
	return Apply(tx, path, value)
}

// Apply is Update without the workflow-field check. Only the workflow
// operations call it.
func Apply(tx *Transaction, path string, value any) (*Transaction, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	if tx.IsClosed() {
		return nil, ErrTransactionClosed
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	if _, guarded := guardedFields[segs[0]]; guarded {
		return nil, fmt.Errorf("%w: %s", ErrImmutableField, segs[0])
	}
	if len(segs) == 1 && segs[0] == "currentStep" {
		step, err := convertLeaf(path, reflect.TypeOf(0), value)
		if err != nil {
			return nil, err
		}
		return WithStep(tx, int(step.Int()))
	}
	return set(tx, segs, path, value)
}

// WorkflowOwned returns the workflow-owned field that a write to path would
// touch, or "" when path is free to edit.
func WorkflowOwned(path string) string {
	for _, owned := range workflowFields {
		if path == owned || strings.HasPrefix(path, owned+".") || strings.HasPrefix(owned, path+".") {
			return owned
		}
	}
	return ""
}

// WithStep writes currentStep clamped to the step sequence.
func WithStep(tx *Transaction, step int) (*Transaction, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	return set(tx, []string{"currentStep"}, "currentStep", ClampStep(step))
}

// Touch bumps the mutation counter and the modification time.
func Touch(tx *Transaction, now time.Time) (*Transaction, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	next, err := set(tx, []string{"version"}, "version", tx.Version+1)
	if err != nil {
		return nil, err
	}
	return set(next, []string{"updatedAt"}, "updatedAt", now.UTC())
}

// MarkClosed moves the transaction into its terminal state.
func MarkClosed(tx *Transaction, now time.Time) (*Transaction, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	if tx.IsClosed() {
		return nil, ErrTransactionClosed
	}
	next, err := set(tx, []string{"status"}, "status", StatusClosed)
	if err != nil {
		return nil, err
	}
	closedAt := now.UTC()
	return set(next, []string{"closedAt"}, "closedAt", &closedAt)
}

// Field reads the JSON value at path, using the same dot notation as Update.
func Field(tx *Transaction, path string) (json.RawMessage, error) {
	if tx == nil {
		return nil, ErrNoTransaction
	}
	segs, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}
	escaped := make([]string, len(segs))
	for i, seg := range segs {
		escaped[i] = gjsonEscaper.Replace(seg)
	}
	res := gjson.GetBytes(body, strings.Join(escaped, "."))
	if !res.Exists() {
		return nil, &InvalidPathError{Path: path, Reason: "no such field"}
	}
	return json.RawMessage(res.Raw), nil
}

var gjsonEscaper = strings.NewReplacer(
	`\`, `\\`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`, `!`, `\!`, `=`, `\=`, `<`, `\<`, `>`, `\>`, `%`, `\%`,
)

func splitPath(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &InvalidPathError{Path: path, Reason: "path is empty"}
	}
	segs := strings.Split(path, ".")
	for _, seg := range segs {
		if seg == "" {
			return nil, &InvalidPathError{Path: path, Reason: "path has an empty segment"}
		}
	}
	return segs, nil
}

func set(tx *Transaction, segs []string, path string, value any) (*Transaction, error) {
	out, err := assign(reflect.ValueOf(tx), segs, 0, path, value)
	if err != nil {
		return nil, err
	}
	return out.Interface().(*Transaction), nil
}

func assign(cur reflect.Value, segs []string, depth int, path string, value any) (reflect.Value, error) {
	t := cur.Type()
	if depth == len(segs) {
		return convertLeaf(path, t, value)
	}
	seg := segs[depth]

	switch t.Kind() {
	case reflect.Pointer:
		if t.Elem().Kind() != reflect.Struct {
			return reflect.Value{}, &InvalidPathError{Path: path, Segment: seg, Reason: "parent is not a container"}
		}
		if cur.IsNil() {
			return reflect.Value{}, &InvalidPathError{Path: path, Segment: seg, Reason: "parent container does not exist"}
		}
		next := reflect.New(t.Elem())
		next.Elem().Set(cur.Elem())
		if err := assignField(next.Elem(), segs, depth, path, value); err != nil {
			return reflect.Value{}, err
		}
		return next, nil

	case reflect.Struct:
		next := reflect.New(t).Elem()
		next.Set(cur)
		if err := assignField(next, segs, depth, path, value); err != nil {
			return reflect.Value{}, err
		}
		return next, nil

	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, &InvalidPathError{Path: path, Segment: seg, Reason: "map is not keyed by name"}
		}
		key := reflect.ValueOf(seg).Convert(t.Key())
		var existing reflect.Value
		if !cur.IsNil() {
			existing = cur.MapIndex(key)
		}
		if !existing.IsValid() {
			if depth+1 < len(segs) {
				return reflect.Value{}, &InvalidPathError{Path: path, Segment: seg, Reason: "entry does not exist"}
			}
			existing = reflect.Zero(t.Elem())
		}
		nv, err := assign(existing, segs, depth+1, path, value)
		if err != nil {
			return reflect.Value{}, err
		}
		next := reflect.MakeMapWithSize(t, cur.Len()+1)
		if !cur.IsNil() {
			iter := cur.MapRange()
			for iter.Next() {
				next.SetMapIndex(iter.Key(), iter.Value())
			}
		}
		next.SetMapIndex(key, nv)
		return next, nil
	}

	return reflect.Value{}, &InvalidPathError{Path: path, Segment: seg, Reason: "cannot descend into a " + t.Kind().String()}
}

func assignField(structVal reflect.Value, segs []string, depth int, path string, value any) error {
	idx, ok := fieldIndex(structVal.Type(), segs[depth])
	if !ok {
		return &InvalidPathError{Path: path, Segment: segs[depth], Reason: "unknown field"}
	}
	field := structVal.Field(idx)
	nv, err := assign(field, segs, depth+1, path, value)
	if err != nil {
		return err
	}
	field.Set(nv)
	return nil
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if tagName, _, _ := strings.Cut(tag, ","); tagName == name {
			return i, true
		}
	}
	return 0, false
}

func convertLeaf(path string, t reflect.Type, value any) (reflect.Value, error) {
	out := reflect.New(t)
	switch v := value.(type) {
	case nil:
	case json.RawMessage:
		if t == rawMessageType {
			out.Elem().Set(reflect.ValueOf(append(json.RawMessage(nil), v...)))
		} else if err := json.Unmarshal(v, out.Interface()); err != nil {
			return reflect.Value{}, invalidValue(path, err)
		}
	default:
		rv := reflect.ValueOf(value)
		if rv.Type().AssignableTo(t) {
			if rv.Kind() == reflect.Slice && !rv.IsNil() {
				cp := reflect.MakeSlice(t, rv.Len(), rv.Len())
				reflect.Copy(cp, rv)
				rv = cp
			}
			out.Elem().Set(rv)
		} else {
			raw, err := json.Marshal(value)
			if err != nil {
				return reflect.Value{}, invalidValue(path, err)
			}
			if err := json.Unmarshal(raw, out.Interface()); err != nil {
				return reflect.Value{}, invalidValue(path, err)
			}
		}
	}
	if v, ok := out.Elem().Interface().(interface{ Valid() bool }); ok && !v.Valid() {
		return reflect.Value{}, invalidValue(path, fmt.Errorf("%v is not an allowed value", out.Elem().Interface()))
	}
	return out.Elem(), nil
}

func invalidValue(path string, err error) error {
	return WrapError(ErrCodeInvalid, fmt.Sprintf("invalid value for %s", path), err)
}
