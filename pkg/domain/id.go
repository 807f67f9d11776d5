package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// PendingPrefix marks pending identifiers in their text form ("new_3").
const PendingPrefix = "new_"

// ErrInvalidID is returned for identifiers that are neither "<n>" nor "new_<n>".
var ErrInvalidID = errors.New("invalid id")

// ID identifies a record either by a server-issued number (Persisted) or by a
// client-local token assigned before the record was ever saved (Pending).
// The zero value is the invalid ID.
type ID struct {
	value   uint64
	pending bool
}

// Persisted returns the identifier of a record that already exists server side.
func Persisted(n uint64) ID { return ID{value: n} }

// Pending returns the identifier of a record created locally and not yet saved.
func Pending(n uint64) ID { return ID{value: n, pending: true} }

// IsZero reports whether the identifier is unset.
func (id ID) IsZero() bool { return id.value == 0 }

// IsPending reports whether the identifier is a client-local token.
func (id ID) IsPending() bool { return id.pending }

// IsPersisted reports whether the identifier was issued by the server.
func (id ID) IsPersisted() bool { return !id.pending && id.value != 0 }

// Value returns the numeric part of the identifier regardless of its variant.
func (id ID) Value() uint64 { return id.value }

func (id ID) String() string {
	if id.pending {
		return "pending:" + strconv.FormatUint(id.value, 10)
	}
	return strconv.FormatUint(id.value, 10)
}

// Text returns the form used on the wire and in URLs: "12" or "new_3".
func (id ID) Text() string {
	if id.pending {
		return PendingPrefix + strconv.FormatUint(id.value, 10)
	}
	return strconv.FormatUint(id.value, 10)
}

// ParseID is the inverse of Text. Zero is rejected.
func ParseID(raw string) (ID, error) {
	pending := strings.HasPrefix(raw, PendingPrefix)
	n, err := strconv.ParseUint(strings.TrimPrefix(raw, PendingPrefix), 10, 64)
	if err != nil || n == 0 {
		return ID{}, fmt.Errorf("%w %q", ErrInvalidID, raw)
	}
	if pending {
		return Pending(n), nil
	}
	return Persisted(n), nil
}

// MarshalJSON encodes persisted ids as numbers and pending ids as "new_<n>"
// strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.pending {
		return []byte(strconv.Quote(id.Text())), nil
	}
	if id.value == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatUint(id.value, 10)), nil
}

// UnmarshalJSON decodes numbers into Persisted ids and strings into Pending
// ids. Strings may carry the "new_" prefix or be bare digits.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(raw, PendingPrefix), 10, 64)
		if err != nil {
			return fmt.Errorf("pending id %q is not numeric", raw)
		}
		*id = Pending(n)
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = Persisted(n)
	return nil
}

// NextID returns the id for a record appended to a collection holding ids:
// Pending(max+1), or Pending(1) when the collection is empty.
func NextID(ids []ID) ID {
	var highest uint64
	for _, id := range ids {
		if id.value > highest {
			highest = id.value
		}
	}
	return Pending(highest + 1)
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []ID, id ID) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
