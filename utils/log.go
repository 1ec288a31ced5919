package utils

import (
  "fmt"

  "github.com/rs/zerolog"
)

func ToZeroLogArray[T fmt.Stringer](arr []T) (ret *zerolog.Array) {
  ret = zerolog.Arr()

  for _, elem := range arr {
    ret = ret.Str(elem.String())
  }

  return ret
}

// ToZeroLogDict logs a map of manufacturer id to payload, ids in ascending order.
func ToZeroLogDict(m map[uint16][]byte) *zerolog.Event {
  dict := zerolog.Dict()

  for _, id := range SortedKeys(m) {
    dict = dict.Hex(fmt.Sprintf("0x%04x", id), m[id])
  }

  return dict
}
