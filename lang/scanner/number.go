package scanner

import "strconv"

func isDecimal(rn rune) bool { return '0' <= rn && rn <= '9' }

func isNumberRune(rn rune) bool {
	switch {
	case isDecimal(rn):
		return true
	case rn == '.' || rn == 'x' || rn == 'X':
		return true
	case 'a' <= rn && rn <= 'f', 'A' <= rn && rn <= 'F':
		return true
	}
	return false
}

// number greedily consumes digits and the characters `. x X a..f A..F`,
// matching the spec's "greedy consumption, parse-time validation" rule for
// decimal, hex and float literals.
func (s *Scanner) number() string {
	start := s.off
	for isNumberRune(s.cur) {
		s.advance()
	}
	return string(s.src[start:s.off])
}

// parseNumber validates and parses a number literal produced by number().
// Hex literals (0x... / 0X...) parse as an unsigned integer converted to a
// float64; everything else parses as a float64 via strconv, matching a
// strtod-equivalent. A parse error here is the "consumed length and parse
// length disagree" failure mode.
func parseNumber(lit string) (float64, error) {
	if len(lit) > 1 && lit[0] == '0' && (lit[1] == 'x' || lit[1] == 'X') {
		v, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	}
	v, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, err
	}
	return v, nil
}
