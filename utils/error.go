package utils

import (
  "context"
  "errors"
)

func ErrorIsAnyOf(err error, targets... error) bool {
  for _, target := range targets {
    if errors.Is(err, target) {
      return true
    }
  }

  return false
}

// IsScanStop reports whether err only signals that a scan ended because its context did.
func IsScanStop(err error) bool {
  return ErrorIsAnyOf(err, context.Canceled, context.DeadlineExceeded)
}
