package lottery

import "github.com/pkg/errors"

// ValidateNumbers checks a ticket before it is bought: regular numbers must be distinct and in
// [1, maxValidRange], the power number in [1, powerBallRange].
func ValidateNumbers(numbers []uint16, power uint16, maxValidRange uint16, powerBallRange uint16) error {
	if len(numbers) != RegularNumbersCount {
		return errors.Wrapf(ErrInvalidTicketNumbers, "expected %d numbers, got %d", RegularNumbersCount, len(numbers))
	}

	seen := make(map[uint16]struct{}, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > maxValidRange {
			return errors.Wrapf(ErrInvalidTicketNumbers, "number %d out of range [1, %d]", n, maxValidRange)
		}
		if _, found := seen[n]; found {
			return errors.Wrapf(ErrInvalidTicketNumbers, "number %d picked twice", n)
		}
		seen[n] = struct{}{}
	}

	if power < 1 || power > powerBallRange {
		return errors.Wrapf(ErrInvalidTicketNumbers, "power number %d out of range [1, %d]", power, powerBallRange)
	}

	return nil
}
