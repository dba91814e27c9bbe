//go:build !windows

package pcan

import (
	"github.com/pkg/errors"
)

func loadDLL() (driver, error) {
	return nil, errors.Errorf("%s is only available on windows", dllName)
}
