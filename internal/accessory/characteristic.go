package accessory

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
)

// Format identifies the wire type of a characteristic value.
type Format string

// Characteristic value formats.
const (
	FormatBool   Format = "bool"
	FormatUint8  Format = "uint8"
	FormatFloat  Format = "float"
	FormatString Format = "string"
)

// Perm is a characteristic permission flag.
type Perm string

// Characteristic permissions.
const (
	PermRead   Perm = "pr"
	PermWrite  Perm = "pw"
	PermEvents Perm = "ev"
)

// WriteFunc handles a value written by a protocol client.
// Returning an error rejects the write: the value is not stored and the
// error propagates to the caller.
type WriteFunc func(value any) error

// ChangeFunc observes a stored value change (old, new).
type ChangeFunc func(old, new any)

// Characteristic is a single accessory attribute: a typed value plus the
// metadata a controller needs to render and bound it. Values move in two
// directions with different hooks:
//
//   - Write: a protocol client sets the value (onWrite consulted first)
//   - Update: the bridge refreshes the value from device state
//
// All methods are safe for concurrent use.
type Characteristic struct {
	Type   string
	Name   string
	Format Format
	Perms  []Perm
	Unit   string

	mu          sync.RWMutex
	iid         uint64
	value       any
	minValue    *float64
	maxValue    *float64
	minStep     *float64
	validValues []int
	onWrite     WriteFunc
	onChange    ChangeFunc
}

// newCharacteristic builds a characteristic with the given metadata and
// initial value. Used by the typed constructors.
func newCharacteristic(typ, name string, format Format, perms []Perm, initial any) *Characteristic {
	return &Characteristic{
		Type:   typ,
		Name:   name,
		Format: format,
		Perms:  perms,
		value:  initial,
	}
}

// Write applies a value coming from a protocol client.
//
// The value is coerced to the characteristic's format and clamped to its
// bounds, then offered to the write hook. If the hook rejects it the
// value is dropped entirely; otherwise it is stored and change observers
// fire.
func (c *Characteristic) Write(value any) error {
	coerced, err := c.coerce(value)
	if err != nil {
		return err
	}
	coerced = c.clamp(coerced)

	c.mu.RLock()
	hook := c.onWrite
	c.mu.RUnlock()

	if hook != nil {
		if err := hook(coerced); err != nil {
			return err
		}
	}

	c.store(coerced)
	return nil
}

// Update applies a value coming from the bridge's device refresh.
// No write hook fires; change observers see the transition if the stored
// value actually changed.
func (c *Characteristic) Update(value any) error {
	coerced, err := c.coerce(value)
	if err != nil {
		return err
	}
	c.store(c.clamp(coerced))
	return nil
}

// store saves the value and notifies the change observer when it differs
// from the previous one.
func (c *Characteristic) store(value any) {
	c.mu.Lock()
	old := c.value
	c.value = value
	observer := c.onChange
	c.mu.Unlock()

	if observer != nil && old != value {
		observer(old, value)
	}
}

// Value returns the current raw value.
func (c *Characteristic) Value() any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Int returns the current value as an int. Non-numeric values yield 0.
func (c *Characteristic) Int() int {
	switch v := c.Value().(type) {
	case int:
		return v
	case float64:
		return int(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Float returns the current value as a float64. Non-numeric values yield 0.
func (c *Characteristic) Float() float64 {
	switch v := c.Value().(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// String returns the current value as a string, or "" for other formats.
func (c *Characteristic) String() string {
	if s, ok := c.Value().(string); ok {
		return s
	}
	return ""
}

// SetBounds sets the minimum, maximum, and step metadata.
func (c *Characteristic) SetBounds(min, max, step float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minValue = &min
	c.maxValue = &max
	c.minStep = &step
}

// Bounds returns the configured min, max, and step. ok is false when no
// bounds are set.
func (c *Characteristic) Bounds() (min, max, step float64, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.minValue == nil || c.maxValue == nil {
		return 0, 0, 0, false
	}
	min, max = *c.minValue, *c.maxValue
	if c.minStep != nil {
		step = *c.minStep
	}
	return min, max, step, true
}

// SetValidValues restricts the characteristic to an explicit value set.
func (c *Characteristic) SetValidValues(values []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.validValues = make([]int, len(values))
	copy(c.validValues, values)
}

// ValidValues returns a copy of the restricted value set, or nil when
// the characteristic is unrestricted.
func (c *Characteristic) ValidValues() []int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.validValues == nil {
		return nil
	}
	out := make([]int, len(c.validValues))
	copy(out, c.validValues)
	return out
}

// IsValidValue reports whether v is allowed by the valid-value set.
// Unrestricted characteristics accept anything.
func (c *Characteristic) IsValidValue(v int) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.validValues == nil {
		return true
	}
	for _, allowed := range c.validValues {
		if allowed == v {
			return true
		}
	}
	return false
}

// OnWrite registers the write hook. Only one hook is held; later calls
// replace earlier ones.
func (c *Characteristic) OnWrite(fn WriteFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onWrite = fn
}

// OnChange registers the change observer. Only one observer is held;
// later calls replace earlier ones.
func (c *Characteristic) OnChange(fn ChangeFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// IID returns the instance ID assigned when the accessory tree was built.
func (c *Characteristic) IID() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.iid
}

func (c *Characteristic) setIID(iid uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.iid = iid
}

// coerce converts an incoming value (typically JSON-decoded) to the
// characteristic's storage type.
func (c *Characteristic) coerce(value any) (any, error) {
	switch c.Format {
	case FormatBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case float64:
			return v != 0, nil
		case int:
			return v != 0, nil
		}
	case FormatUint8:
		switch v := value.(type) {
		case int:
			if v >= 0 && v <= math.MaxUint8 {
				return v, nil
			}
		case float64:
			if v == math.Trunc(v) && v >= 0 && v <= math.MaxUint8 {
				return int(v), nil
			}
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
	case FormatFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		}
	case FormatString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %v (%T) for format %s", ErrInvalidValue, value, value, c.Format)
}

// clamp bounds float values to [min, max] when bounds are configured.
func (c *Characteristic) clamp(value any) any {
	f, isFloat := value.(float64)
	if !isFloat {
		return value
	}

	c.mu.RLock()
	minValue, maxValue := c.minValue, c.maxValue
	c.mu.RUnlock()

	if minValue != nil && f < *minValue {
		return *minValue
	}
	if maxValue != nil && f > *maxValue {
		return *maxValue
	}
	return f
}

// characteristicJSON is the wire shape of a characteristic.
type characteristicJSON struct {
	IID         uint64   `json:"iid"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Format      Format   `json:"format"`
	Perms       []Perm   `json:"perms"`
	Value       any      `json:"value,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	MinValue    *float64 `json:"minValue,omitempty"`
	MaxValue    *float64 `json:"maxValue,omitempty"`
	MinStep     *float64 `json:"minStep,omitempty"`
	ValidValues []int    `json:"valid-values,omitempty"`
}

// MarshalJSON renders the characteristic in the conventional accessory
// wire shape.
func (c *Characteristic) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	payload := characteristicJSON{
		IID:         c.iid,
		Type:        c.Type,
		Description: c.Name,
		Format:      c.Format,
		Perms:       c.Perms,
		Value:       c.value,
		Unit:        c.Unit,
		MinValue:    c.minValue,
		MaxValue:    c.maxValue,
		MinStep:     c.minStep,
		ValidValues: c.validValues,
	}
	c.mu.RUnlock()

	return json.Marshal(payload)
}
