package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// Numbering prefixes. Each (prefix, year) pair is an independent sequence.
const (
	PrefixReceivable        = "CXC"
	PrefixPayable           = "CXP"
	PrefixReceivablePayment = "PCXC"
	PrefixPayablePayment    = "PCXP"
)

// SequenceWidth is the zero-padded width of the sequence part
const SequenceWidth = 5

// IsKnownPrefix reports whether prefix is one of the numbering prefixes
func IsKnownPrefix(prefix string) bool {
	switch prefix {
	case PrefixReceivable, PrefixPayable, PrefixReceivablePayment, PrefixPayablePayment:
		return true
	}
	return false
}

// FormatDocumentNumber renders "{prefix}-{year}-{seq:05d}", e.g. CXC-2024-00007.
// Sequences past 99999 simply grow wider.
func FormatDocumentNumber(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, SequenceWidth, seq)
}

// NumberPrefix returns the "{prefix}-{year}-" stem shared by a sequence
func NumberPrefix(prefix string, year int) string {
	return fmt.Sprintf("%s-%d-", prefix, year)
}

// ParseDocumentSequence extracts the trailing sequence of a number belonging
// to the (prefix, year) sequence
func ParseDocumentSequence(prefix string, year int, number string) (int, error) {
	stem := NumberPrefix(prefix, year)
	if !strings.HasPrefix(number, stem) {
		return 0, ErrInvalidNumber.WithMessage(fmt.Sprintf("Number %q does not start with %q", number, stem))
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, stem))
	if err != nil || seq <= 0 {
		return 0, ErrInvalidNumber.WithMessage(fmt.Sprintf("Number %q has no valid sequence", number))
	}
	return seq, nil
}

// NextDocumentNumber continues the sequence after lastNumber. An empty
// lastNumber starts the year at 00001. Gaps left by deleted or rolled back
// numbers are not reused.
func NextDocumentNumber(prefix string, year int, lastNumber string) (string, error) {
	if !IsKnownPrefix(prefix) {
		return "", ErrInvalidNumber.WithMessage("Unknown numbering prefix: " + prefix)
	}
	next := 1
	if lastNumber != "" {
		seq, err := ParseDocumentSequence(prefix, year, lastNumber)
		if err != nil {
			return "", err
		}
		next = seq + 1
	}
	return FormatDocumentNumber(prefix, year, next), nil
}
