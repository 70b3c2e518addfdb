/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Thu Mar 14 09:30:41 2019 mstenber
 * Last modified: Mon Mar 18 15:02:10 2019 mstenber
 * Edit time:     18 min
 *
 */

package ndb

import (
	"fmt"

	"github.com/pkg/errors"
)

// FormatError is returned when the container is not something we
// can read at all (wrong magic, unsupported version or encryption,
// header checksum mismatch).
type FormatError struct {
	Reason string
}

func (self *FormatError) Error() string {
	return fmt.Sprintf("unsupported or invalid container: %s", self.Reason)
}

// CorruptionError is returned when a structure inside an otherwise
// valid container fails validation. It is fatal only to the
// operation that encountered it.
type CorruptionError struct {
	Structure string
	Reason    string
}

func (self *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt %s: %s", self.Structure, self.Reason)
}

func formatErrorf(format string, args ...interface{}) error {
	return errors.WithStack(&FormatError{Reason: fmt.Sprintf(format, args...)})
}

// Corruptf produces a (stack-annotated) CorruptionError. It is
// exported so that the layers above can report their structural
// problems the same way.
func Corruptf(structure string, format string, args ...interface{}) error {
	return errors.WithStack(&CorruptionError{Structure: structure,
		Reason: fmt.Sprintf(format, args...)})
}

func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}
