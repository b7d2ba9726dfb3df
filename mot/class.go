package mot

import (
	"strings"

	"github.com/pkg/errors"
)

// ObjectClass is label assigned by detector
type ObjectClass uint8

const (
	ClassPlayer ObjectClass = iota
	ClassQuarterback
	ClassReceiver
	ClassDefender
	ClassBall
)

// ErrUnknownClass is returned when class label can't be parsed
var ErrUnknownClass = errors.New("unknown object class")

var classNames = [...]string{
	ClassPlayer:      "player",
	ClassQuarterback: "quarterback",
	ClassReceiver:    "receiver",
	ClassDefender:    "defender",
	ClassBall:        "ball",
}

// AllClasses lists every known class in declaration order
func AllClasses() []ObjectClass {
	return []ObjectClass{ClassPlayer, ClassQuarterback, ClassReceiver, ClassDefender, ClassBall}
}

func (c ObjectClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// ParseObjectClass converts label (case-insensitive) to ObjectClass
func ParseObjectClass(label string) (ObjectClass, error) {
	trimmed := strings.ToLower(strings.TrimSpace(label))
	for idx, name := range classNames {
		if name == trimmed {
			return ObjectClass(idx), nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownClass, "label %q", label)
}

func (c ObjectClass) MarshalText() ([]byte, error) {
	if int(c) >= len(classNames) {
		return nil, errors.Wrapf(ErrUnknownClass, "value %d", uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *ObjectClass) UnmarshalText(text []byte) error {
	parsed, err := ParseObjectClass(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
