package utils_test

import (
  "context"
  "io"
  "net"
  "testing"

  "github.com/pkg/errors"
  "github.com/robertof/go-rapt-exporter/utils"
  "github.com/stretchr/testify/require"
)

func TestErrorIsAnyOf(t *testing.T) {
  wrapped := errors.Wrap(io.EOF, "reading")

  require.True(t, utils.ErrorIsAnyOf(wrapped, io.ErrUnexpectedEOF, io.EOF))
  require.False(t, utils.ErrorIsAnyOf(wrapped, io.ErrUnexpectedEOF))
  require.False(t, utils.ErrorIsAnyOf(wrapped))
}

func TestIsScanStop(t *testing.T) {
  require.True(t, utils.IsScanStop(errors.Wrap(context.Canceled, "scan")))
  require.True(t, utils.IsScanStop(context.DeadlineExceeded))
  require.False(t, utils.IsScanStop(io.EOF))
  require.False(t, utils.IsScanStop(nil))
}

func TestReverse(t *testing.T) {
  addr := net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
  reversed := utils.Reverse(addr)

  require.Equal(t, net.HardwareAddr{0x55, 0x44, 0x33, 0x22, 0x11, 0x00}, reversed)
  // input is left untouched
  require.Equal(t, "00:11:22:33:44:55", addr.String())
  require.Empty(t, utils.Reverse([]byte{}))
}

func TestSortedKeys(t *testing.T) {
  m := map[uint16][]byte{0x454b: nil, 0x004c: nil, 0x4152: nil}

  require.Equal(t, []uint16{0x004c, 0x4152, 0x454b}, utils.SortedKeys(m))
  require.Empty(t, utils.SortedKeys(map[string]int{}))
}
