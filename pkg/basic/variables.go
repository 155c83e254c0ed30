package basic

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DefaultMaxArrayElements bounds the total number of slots a single DIM may allocate.
const DefaultMaxArrayElements = 1 << 20

// Array is a dimensioned array. Every dimension spans 0..N inclusive.
type Array struct {
	Name   string
	Bounds []int // upper bound per dimension
	values []BASICValue
}

// Len returns the number of slots.
func (a *Array) Len() int { return len(a.values) }

func (a *Array) offset(indices []float64) (int, error) {
	if len(indices) != len(a.Bounds) {
		return 0, NewBASICError(KindSubscriptOutOfRange,
			fmt.Sprintf("%s EXPECTS %d SUBSCRIPTS", a.Name, len(a.Bounds)))
	}
	off := 0
	for i, f := range indices {
		// compare as float; huge values overflow int
		if !(f >= 0 && f < float64(a.Bounds[i]+1)) {
			return 0, NewBASICError(KindSubscriptOutOfRange, a.Name+formatIndices(indices))
		}
		off = off*(a.Bounds[i]+1) + int(math.Floor(f))
	}
	return off, nil
}

// Variables stores scalars and arrays. Scalars and arrays of the same name
// live in separate namespaces, so A and A(1) never collide.
type Variables struct {
	scalars     map[string]BASICValue
	arrays      map[string]*Array
	maxElements int
}

// NewVariables creates empty storage.
func NewVariables() *Variables {
	return &Variables{
		scalars:     make(map[string]BASICValue),
		arrays:      make(map[string]*Array),
		maxElements: DefaultMaxArrayElements,
	}
}

// SetMaxElements changes the per-array allocation limit.
func (v *Variables) SetMaxElements(n int) {
	if n > 0 {
		v.maxElements = n
	}
}

// Get returns a scalar. Unassigned names read as 0 or "".
func (v *Variables) Get(name string) BASICValue {
	name = strings.ToUpper(name)
	if val, ok := v.scalars[name]; ok {
		return val
	}
	return defaultFor(name)
}

// Has reports whether a scalar has been assigned.
func (v *Variables) Has(name string) bool {
	_, ok := v.scalars[strings.ToUpper(name)]
	return ok
}

// Set assigns a scalar, enforcing the $ suffix typing.
func (v *Variables) Set(name string, val BASICValue) error {
	name = strings.ToUpper(name)
	if err := checkType(name, val); err != nil {
		return err
	}
	v.scalars[name] = val
	return nil
}

// Dim creates an array with the given upper bounds.
func (v *Variables) Dim(name string, bounds ...int) error {
	name = strings.ToUpper(name)
	if _, exists := v.arrays[name]; exists {
		return NewBASICError(KindRedimensionedArray, name)
	}
	if len(bounds) == 0 {
		return syntaxError("DIM %s WITHOUT SIZE", name)
	}
	total := 1
	for _, b := range bounds {
		if b < 0 {
			return illegalQuantity("negative array size for %s", name)
		}
		total *= b + 1
		if total > v.maxElements {
			return NewBASICError(KindOutOfMemory, name)
		}
	}
	arr := &Array{Name: name, Bounds: append([]int(nil), bounds...), values: make([]BASICValue, total)}
	zero := defaultFor(name)
	for i := range arr.values {
		arr.values[i] = zero
	}
	v.arrays[name] = arr
	return nil
}

// Array returns a dimensioned array.
func (v *Variables) Array(name string) (*Array, bool) {
	arr, ok := v.arrays[strings.ToUpper(name)]
	return arr, ok
}

// GetIndexed reads one array element.
func (v *Variables) GetIndexed(name string, indices ...float64) (BASICValue, error) {
	arr, ok := v.Array(name)
	if !ok {
		return BASICValue{}, NewBASICError(KindSubscriptOutOfRange, strings.ToUpper(name)+formatIndices(indices))
	}
	off, err := arr.offset(indices)
	if err != nil {
		return BASICValue{}, err
	}
	return arr.values[off], nil
}

// SetIndexed writes one array element.
func (v *Variables) SetIndexed(name string, val BASICValue, indices ...float64) error {
	name = strings.ToUpper(name)
	if err := checkType(name, val); err != nil {
		return err
	}
	arr, ok := v.arrays[name]
	if !ok {
		return NewBASICError(KindSubscriptOutOfRange, name+formatIndices(indices))
	}
	off, err := arr.offset(indices)
	if err != nil {
		return err
	}
	arr.values[off] = val
	return nil
}

// Clear drops every scalar and array.
func (v *Variables) Clear() {
	v.scalars = make(map[string]BASICValue)
	v.arrays = make(map[string]*Array)
}

// Names returns the assigned scalar names in sorted order.
func (v *Variables) Names() []string {
	names := make([]string, 0, len(v.scalars))
	for name := range v.scalars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkType(name string, val BASICValue) error {
	if IsStringName(name) && val.IsNumeric {
		return typeMismatch("cannot assign number to %s", name)
	}
	if !IsStringName(name) && !val.IsNumeric {
		return typeMismatch("cannot assign string to %s", name)
	}
	return nil
}

func formatIndices(indices []float64) string {
	parts := make([]string, len(indices))
	for i, f := range indices {
		parts[i] = formatNumber(f)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// Unset forgets a scalar so it reads as its default again.
func (v *Variables) Unset(name string) {
	delete(v.scalars, strings.ToUpper(name))
}
