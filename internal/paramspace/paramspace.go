// Package paramspace enumerates the request parameter combinations the
// fetcher walks through.
package paramspace

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoDimensions    = errors.New("the parameter space needs at least one dimension")
	ErrUnnamedDim      = errors.New("every dimension needs a name")
	ErrDuplicateDim    = errors.New("dimension names must be unique")
	ErrEmptyDimension  = errors.New("dimension has no values")
	ErrAmbiguousValues = errors.New("dimension sets both a range and a value list")
	ErrEmptyValue      = errors.New("dimension values must not be empty")
)

// Dimension is one axis of the parameter space. Either Values is set, or the
// dimension is the integer range [Start, End).
type Dimension struct {
	Name   string   `json:"name"`
	Start  int64    `json:"start"`
	End    int64    `json:"end"`
	Values []string `json:"values"`
}

func (d Dimension) isRange() bool {
	return len(d.Values) == 0
}

func (d Dimension) size() int64 {
	if d.isRange() {
		return max(d.End-d.Start, 0)
	}
	return int64(len(d.Values))
}

func (d Dimension) value(i int64) string {
	if d.isRange() {
		return strconv.FormatInt(d.Start+i, 10)
	}
	return d.Values[i]
}

// Param is a single name/value pair of a request.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Params is one point of the space, in dimension order.
type Params []Param

// Get returns the value of the named param.
func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Map returns the params as a map, used for template substitution.
func (p Params) Map() map[string]string {
	out := make(map[string]string, len(p))
	for _, param := range p {
		out[param.Name] = param.Value
	}
	return out
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9.\-]+`)

func sanitizeName(s string) string {
	return unsafeNameChars.ReplaceAllString(s, "-")
}

// escapeValue percent-encodes every byte of `s` that is not an ASCII letter
// or digit. Distinct values always give distinct results and never contain
// the "-" or "_" key separators.
func escapeValue(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' {
			out.WriteByte(c)
			continue
		}
		fmt.Fprintf(&out, "%%%02X", c)
	}
	return out.String()
}

// Key is the deterministic file-safe identifier of a combination. A single
// dimension keys by value alone ("20000001"), more dimensions key by
// "name-value" pairs joined by "_" ("ward-12_page-3"). Values are escaped so
// that two combinations of a space never share a key ("Ward 1" is
// "Ward%201", "Ward/1" is "Ward%2F1").
func (p Params) Key() string {
	if len(p) == 1 {
		return escapeValue(p[0].Value)
	}
	parts := make([]string, len(p))
	for i, param := range p {
		parts[i] = fmt.Sprintf("%s-%s", sanitizeName(param.Name), escapeValue(param.Value))
	}
	return strings.Join(parts, "_")
}

func (p Params) String() string {
	parts := make([]string, len(p))
	for i, param := range p {
		parts[i] = fmt.Sprintf("%s=%s", param.Name, param.Value)
	}
	return strings.Join(parts, "&")
}

// Space is the cartesian product of its dimensions, the last dimension
// varies fastest.
type Space struct {
	Dimensions []Dimension
}

func New(dims ...Dimension) (Space, error) {
	s := Space{Dimensions: dims}
	return s, s.Validate()
}

func (s Space) Validate() error {
	if len(s.Dimensions) == 0 {
		return ErrNoDimensions
	}
	seen := map[string]struct{}{}
	for _, d := range s.Dimensions {
		if d.Name == "" {
			return ErrUnnamedDim
		}
		if _, ok := seen[d.Name]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDim, d.Name)
		}
		seen[d.Name] = struct{}{}
		if len(d.Values) > 0 && (d.Start != 0 || d.End != 0) {
			return fmt.Errorf("%w: %s", ErrAmbiguousValues, d.Name)
		}
		if d.size() == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyDimension, d.Name)
		}
		for _, v := range d.Values {
			if v == "" {
				return fmt.Errorf("%w: %s", ErrEmptyValue, d.Name)
			}
		}
	}
	return nil
}

// Size is the number of combinations in the space.
func (s Space) Size() int64 {
	if len(s.Dimensions) == 0 {
		return 0
	}
	var total int64 = 1
	for _, d := range s.Dimensions {
		total *= d.size()
	}
	return total
}

// Cursor walks a Space like an odometer.
type Cursor struct {
	dims    []Dimension
	indices []int64
	done    bool
}

// Cursor returns a cursor positioned on the first combination.
func (s Space) Cursor() *Cursor {
	c := &Cursor{
		dims:    s.Dimensions,
		indices: make([]int64, len(s.Dimensions)),
	}
	c.done = s.Size() == 0
	return c
}

// Done is true once every combination has been visited.
func (c *Cursor) Done() bool {
	return c.done
}

// Params returns the combination under the cursor.
func (c *Cursor) Params() Params {
	out := make(Params, len(c.dims))
	for i, d := range c.dims {
		out[i] = Param{Name: d.Name, Value: d.value(c.indices[i])}
	}
	return out
}

// Next advances to the following combination.
func (c *Cursor) Next() {
	c.carry(len(c.dims) - 1)
}

// carry increments dimension `i` and propagates the overflow outwards.
func (c *Cursor) carry(i int) {
	for ; i >= 0; i-- {
		c.indices[i]++
		if c.indices[i] < c.dims[i].size() {
			return
		}
		c.indices[i] = 0
	}
	c.done = true
}

// SkipAligned moves the innermost range dimension to the next value that is
// a multiple of `align`. It returns false (and does nothing) when the
// innermost dimension is a value list or align is not positive.
func (c *Cursor) SkipAligned(align int64) bool {
	last := len(c.dims) - 1
	d := c.dims[last]
	if !d.isRange() || align <= 0 {
		return false
	}
	current := d.Start + c.indices[last]
	next := (current/align + 1) * align
	c.indices[last] = next - d.Start - 1
	c.carry(last)
	return true
}

// NextSlice abandons the rest of the innermost dimension and moves on to the
// next combination of the outer dimensions.
func (c *Cursor) NextSlice() {
	last := len(c.dims) - 1
	c.indices[last] = 0
	if last == 0 {
		c.done = true
		return
	}
	c.carry(last - 1)
}
