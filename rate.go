package scrawl

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rate is an exact rational speed multiplier. The zero value is not a valid
// rate; use NewRate or one of the presets.
type Rate struct {
	Num, Den int64
}

var (
	Normal = Rate{1, 1}
	Slow   = Rate{1, 3}
	Slower = Rate{1, 8}
)

// NewRate returns num/den in lowest terms with a positive denominator.
func NewRate(num, den int64) (Rate, error) {
	if den == 0 {
		return Rate{}, fmt.Errorf("%w: %d/%d", ErrInvalidRate, num, den)
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	return Rate{num / g, den / g}, nil
}

// IsZero reports whether r is the zero value; yaml omits such rates.
func (r Rate) IsZero() bool { return r.Num == 0 && r.Den == 0 }

func (r Rate) Valid() bool { return r.Den > 0 }

func (r Rate) Positive() bool { return r.Den > 0 && r.Num > 0 }

// Scale returns d*r, truncated towards zero.
func (r Rate) Scale(d Diff) Diff {
	return Diff(int64(d) * r.Num / r.Den)
}

// Unscale returns the wall-clock diff that advances the clock by d at rate r.
// r must be non-zero.
func (r Rate) Unscale(d Diff) Diff {
	return Diff(ceilDiv(int64(d)*r.Den, r.Num))
}

func (r Rate) Mul(o Rate) Rate {
	ret, _ := NewRate(r.Num*o.Num, r.Den*o.Den)
	return ret
}

func (r Rate) Neg() Rate { return Rate{-r.Num, r.Den} }

func (r Rate) Equal(o Rate) bool { return r.Num*o.Den == o.Num*r.Den && r.Valid() == o.Valid() }

func (r Rate) Float() float64 { return float64(r.Num) / float64(r.Den) }

func (r Rate) String() string {
	if r.Den == 1 {
		return strconv.FormatInt(r.Num, 10)
	}
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRate parses "n" or "n/d".
func ParseRate(s string) (Rate, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseInt(strings.TrimSpace(num), 10, 64)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	d := int64(1)
	if found {
		if d, err = strconv.ParseInt(strings.TrimSpace(den), 10, 64); err != nil {
			return Rate{}, fmt.Errorf("%w: %q", ErrInvalidRate, s)
		}
	}
	return NewRate(n, d)
}

func (r Rate) MarshalYAML() (any, error) {
	return r.String(), nil
}

func (r *Rate) UnmarshalYAML(value *yaml.Node) error {
	p, err := ParseRate(value.Value)
	if err != nil {
		return err
	}
	*r = p
	return nil
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(a int64) int64 {
	if a < 0 {
		return -a
	}
	return a
}
