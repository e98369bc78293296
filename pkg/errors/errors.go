package errors

import (
	"errors"
	"fmt"
)

// ErrPartialWrite 多步写入中途失败：之前的步骤已生效，不做回滚
var ErrPartialWrite = errors.New("opération partiellement appliquée")

// PartialWriteError 记录多步写入失败的步骤与已完成的写入数
type PartialWriteError struct {
	Step    string
	Applied int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("%s: étape %q échouée après %d écriture(s): %v", ErrPartialWrite, e.Step, e.Applied, e.Err)
}

func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrPartialWrite, e.Err}
}

// Partial 构造 PartialWriteError
func Partial(step string, applied int, err error) error {
	return &PartialWriteError{Step: step, Applied: applied, Err: err}
}
