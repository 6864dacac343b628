// Package quote converts between decimal prices and the US treasury
// fractional notation "WHOLE-XYZ": XY is a count of 32nds (00..31) and Z
// a count of 256ths within that 32nd (0..7), with 4 written as "+".
// 99-16+ is 99 + 16/32 + 4/256 = 99.515625.
package quote

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	d32  = decimal.NewFromInt(32)
	d256 = decimal.NewFromInt(256)
)

// Format renders price rounded to the nearest 1/256.
func Format(price float64) string {
	d := decimal.NewFromFloat(price)
	whole := d.Floor()
	ticks := d.Sub(whole).Mul(d256).Round(0).IntPart()
	if ticks == 256 {
		whole = whole.Add(decimal.NewFromInt(1))
		ticks = 0
	}

	z := strconv.FormatInt(ticks%8, 10)
	if ticks%8 == 4 {
		z = "+"
	}
	return fmt.Sprintf("%s-%02d%s", whole.String(), ticks/8, z)
}

// Parse reads a fractional price. The trailing 256ths digit is optional.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	dash := strings.LastIndexByte(s, '-')
	if dash <= 0 || dash == len(s)-1 {
		return 0, fmt.Errorf("bad fractional price %q", s)
	}

	whole, err := decimal.NewFromString(s[:dash])
	if err != nil {
		return 0, fmt.Errorf("bad fractional price %q: %w", s, err)
	}

	frac := s[dash+1:]
	if len(frac) != 2 && len(frac) != 3 {
		return 0, fmt.Errorf("bad fractional price %q", s)
	}
	xy, err := strconv.Atoi(frac[:2])
	if err != nil || xy < 0 || xy > 31 {
		return 0, fmt.Errorf("bad 32nds in %q", s)
	}

	z := 0
	if len(frac) == 3 {
		if frac[2] == '+' {
			z = 4
		} else if z, err = strconv.Atoi(frac[2:]); err != nil || z > 7 {
			return 0, fmt.Errorf("bad 256ths in %q", s)
		}
	}

	price := whole.
		Add(decimal.NewFromInt(int64(xy)).Div(d32)).
		Add(decimal.NewFromInt(int64(z)).Div(d256))
	return price.InexactFloat64(), nil
}
